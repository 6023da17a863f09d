// Package config loads process configuration from the environment,
// following the teacher's declared but unused github.com/joho/godotenv
// dependency: load a .env file if one is present, then read overrides
// from the real environment with sane defaults so nothing is a
// required variable.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds every tunable the rest of the module needs at startup.
type Config struct {
	Port string

	ReaperInterval time.Duration
	IdleTTL        time.Duration
	EmptyTTL       time.Duration

	LogLevel logrus.Level
}

// Load reads .env (if present, silently ignored otherwise) and then
// the process environment, applying ADABRA's defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Debug("no .env file loaded")
	}

	cfg := Config{
		Port:           getEnv("PORT", "3000"),
		ReaperInterval: getDuration("REAPER_INTERVAL", 60*time.Second),
		IdleTTL:        getDuration("ROOM_IDLE_TTL", 30*time.Minute),
		EmptyTTL:       getDuration("ROOM_EMPTY_TTL", 2*time.Minute),
		LogLevel:       getLogLevel("LOG_LEVEL", logrus.InfoLevel),
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	seconds, err := strconv.Atoi(v)
	if err != nil {
		logrus.WithField("key", key).WithError(err).Warn("invalid duration env var, using default")
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

func getLogLevel(key string, fallback logrus.Level) logrus.Level {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	lvl, err := logrus.ParseLevel(v)
	if err != nil {
		logrus.WithField("key", key).WithError(err).Warn("invalid log level env var, using default")
		return fallback
	}
	return lvl
}
