// Package session implements the Session Layer (spec §4.4): per-
// connection identity, command routing, authority/ownership
// validation, and outbound delivery.
//
// Grounded on the teacher's internal/game/websocket.go HandleWebSocket
// / handleMessages loop, generalized from the teacher's "Conn field
// embedded on Player" design into a standalone Session the Room never
// references (spec §9: "model as a per-connection Session struct
// owned by the connection task"), and with the per-connection
// outbound queue the teacher's code calls (player.SafeWriteJSON) but
// never implements.
package session

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/adabra/server/internal/hub"
	"github.com/adabra/server/internal/registry"
	"github.com/adabra/server/internal/room"
	"github.com/adabra/server/internal/wire"
)

const (
	outboundQueueSize = 32
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingInterval      = (pongWait * 9) / 10

	// inboundRatePerSec/inboundBurst bound how fast one connection can
	// push commands into a room's critical section, so a flooding
	// client cannot starve other participants (SPEC_FULL.md domain
	// stack: golang.org/x/time/rate).
	inboundRatePerSec = 20
	inboundBurst      = 40
)

// Clock lets tests control "now" instead of calling time.Now.
type Clock func() int64

func systemClockMs() int64 { return time.Now().UnixMilli() }

// Session is the per-connection state the spec calls "socket data"
// (isHost, playerId, teamId, roomCode) at §9, now a real owned type
// instead of ad-hoc fields bolted onto a connection object.
type Session struct {
	conn  *websocket.Conn
	out   chan []byte
	limit *rate.Limiter
	clock Clock
	log   *logrus.Entry

	registry *registry.Registry

	playerID string
	isHost   bool
	roomHub  *hub.RoomHub
}

// New wraps an upgraded websocket connection in a Session.
func New(conn *websocket.Conn, reg *registry.Registry, clock Clock) *Session {
	if clock == nil {
		clock = systemClockMs
	}
	return &Session{
		conn:     conn,
		out:      make(chan []byte, outboundQueueSize),
		limit:    rate.NewLimiter(rate.Limit(inboundRatePerSec), inboundBurst),
		clock:    clock,
		log:      logrus.WithField("component", "session"),
		registry: reg,
	}
}

// hub.Sink implementation.
func (s *Session) PlayerID() string { return s.playerID }
func (s *Session) IsHost() bool     { return s.isHost }

// Enqueue is non-blocking: a saturated outbound queue means a dead or
// irredeemably slow client, so the frame is dropped and logged rather
// than letting one slow socket stall every broadcaster (spec §5:
// "locks must not be held across network sends").
func (s *Session) Enqueue(frame []byte) {
	select {
	case s.out <- frame:
	default:
		s.log.WithField("player", s.playerID).Warn("outbound queue full, dropping frame")
	}
}

// Serve runs both pumps and blocks until the connection closes. Call
// it from the HTTP handler goroutine after upgrading.
func (s *Session) Serve() {
	done := make(chan struct{})
	go s.writePump(done)
	s.readPump()
	close(done)
	s.teardown()
}

func (s *Session) teardown() {
	if s.roomHub != nil {
		s.roomHub.Unsubscribe(s)
		s.handleDisconnect()
	}
	_ = s.conn.Close()
}

// handleDisconnect implements spec §4.2's disconnect rules: a
// disconnecting lock-holder leaves the room locked (the host must
// still rule); any other disconnect is inert beyond MembersCount,
// which Unsubscribe already adjusted.
func (s *Session) handleDisconnect() {
	if s.playerID == "" {
		return
	}
	h := s.roomHub
	r := h.Room
	r.Mu.Lock()
	r.Touch(s.clock())
	r.HandleLockHolderDisconnect()
	r.Mu.Unlock()
}

func (s *Session) writePump(done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case frame, ok := <-s.out:
			if !ok {
				return
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (s *Session) readPump() {
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		if !s.limit.Allow() {
			s.sendError("rate limit exceeded")
			continue
		}

		var env wire.Inbound
		if err := json.Unmarshal(raw, &env); err != nil {
			s.sendError("malformed message")
			continue
		}
		s.dispatch(env)
	}
}

func (s *Session) sendError(msg string) {
	s.sendEvent(wire.EvErrorMsg, wire.ErrorMsgEvt{Message: msg})
}

func (s *Session) sendEvent(event string, data any) {
	frame, err := wire.Encode(event, data)
	if err != nil {
		return
	}
	s.Enqueue(frame)
}

var errUnknownEvent = errors.New("unknown event")

func (s *Session) dispatch(env wire.Inbound) {
	// joinRoom/rejoinRoom are valid before a room is attached; every
	// other command requires one.
	switch env.Event {
	case wire.EvJoinRoom:
		s.handleJoinRoom(env.Data)
		return
	case wire.EvRejoinRoom:
		s.handleRejoinRoom(env.Data)
		return
	}

	if s.roomHub == nil {
		s.sendError("join a room first")
		return
	}

	switch env.Event {
	case wire.EvSetTeam:
		s.handleSetTeam(env.Data)
	case wire.EvSetTeamName:
		s.handleSetTeamName(env.Data)
	case wire.EvPlayerFocus:
		s.handlePlayerFocus(env.Data)
	case wire.EvBuzz, wire.EvFalseStartAttempt:
		s.handleBuzz()
	case wire.EvHostSetTeamCount:
		s.handleHostSetTeamCount(env.Data)
	case wire.EvHostSetDuration:
		s.handleHostSetDuration(env.Data)
	case wire.EvHostNextRound:
		s.handleHostSimple((*room.Room).HostNextRound)
	case wire.EvHostBeepStart:
		s.handleHostBeepStart()
	case wire.EvHostPauseTimer:
		s.handleHostSimple((*room.Room).HostPauseTimer)
	case wire.EvHostCorrect:
		s.handleHostCorrect()
	case wire.EvHostIncorrect:
		s.handleHostSimple((*room.Room).HostIncorrect)
	case wire.EvHostAdjustScore:
		s.handleHostAdjustScore(env.Data)
	case wire.EvHostSetFairPlay:
		s.handleHostSetFairPlay(env.Data)
	case wire.EvHostUnblockFocus:
		s.handleHostUnblockFocus(env.Data)
	case wire.EvHostRemoveTeam:
		s.handleHostRemoveTeam(env.Data)
	case wire.EvHostEndRound:
		s.handleHostEndRound()
	default:
		s.log.WithError(errUnknownEvent).WithField("event", env.Event).Debug("ignoring")
	}
}
