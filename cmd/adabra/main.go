// Command adabra runs the ADABRA buzzer coordinator: HTTP + websocket
// server, Timer Service ticker, and Room Registry reaper, wired
// together and shut down gracefully on SIGINT/SIGTERM.
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/adabra/server/internal/config"
	"github.com/adabra/server/internal/httpapi"
	"github.com/adabra/server/internal/registry"
	"github.com/adabra/server/internal/timersvc"
)

func main() {
	cfg := config.Load()
	logrus.SetLevel(cfg.LogLevel)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := registry.New(nil)
	reg.IdleTTL = cfg.IdleTTL
	reg.EmptyTTL = cfg.EmptyTTL

	stopSignals := make(chan struct{})
	go reg.RunReaper(stopSignals, cfg.ReaperInterval)

	timer := timersvc.New(reg, nil)
	go timer.Run(stopSignals)

	api := httpapi.New(reg)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: api.Routes(),
	}

	go func() {
		logrus.WithField("port", cfg.Port).Info("adabra listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down")
	close(stopSignals)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("graceful shutdown failed")
	}
}
