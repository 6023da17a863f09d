// Package timersvc implements the Timer Service (spec §4.3): a single
// process-wide 200ms ticker that advances remainingMs for every armed
// room by wall-clock delta and fires the time-up transition.
//
// Grounded on the teacher's internal/game/timer.go StartPhaseTimer,
// but restructured per spec.md's explicit correction at §9: one
// shared ticker iterating all rooms, rather than one
// goroutine+context per active phase, and a wall-clock delta rather
// than a tick-count decrement.
package timersvc

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/adabra/server/internal/hub"
	"github.com/adabra/server/internal/room"
	"github.com/adabra/server/internal/wire"
)

// RoomSource supplies the set of rooms to tick. Registry satisfies
// this without timersvc importing registry, keeping the dependency
// pointed the other way (registry has no knowledge of the timer).
type RoomSource interface {
	Rooms() []*hub.RoomHub
}

// Clock is injected so tests can drive ticks deterministically.
type Clock func() int64

func systemClockMs() int64 { return time.Now().UnixMilli() }

// Service owns the ticker goroutine.
type Service struct {
	source RoomSource
	clock  Clock
}

// New builds a Timer Service over the given room source.
func New(source RoomSource, clock Clock) *Service {
	if clock == nil {
		clock = systemClockMs
	}
	return &Service{source: source, clock: clock}
}

// Run blocks, ticking every room.TickInterval until stop is closed.
func (s *Service) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(room.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.TickOnce()
		case <-stop:
			return
		}
	}
}

// TickOnce advances every running room by one wall-clock delta. It is
// exported so tests (and a hand-rolled fake ticker) can drive it
// directly instead of sleeping 200ms per assertion.
func (s *Service) TickOnce() {
	now := s.clock()
	for _, h := range s.source.Rooms() {
		s.tickRoom(h, now)
	}
}

// tickRoom takes the room's lock for the state mutation (spec §4.3:
// "must take the room's mutex before touching any field"), then
// releases it before broadcasting.
func (s *Service) tickRoom(h *hub.RoomHub, now int64) {
	r := h.Room
	r.Mu.Lock()
	if !r.TimerRunning {
		r.Mu.Unlock()
		return
	}
	timedUp := r.Tick(now)
	view := r.View()
	r.Mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"room":      view.RoomCode,
		"remaining": view.RemainingMs,
		"timedUp":   timedUp,
	}).Debug("timer tick")

	if timedUp {
		if frame, err := wire.Encode(wire.EvTimeUp, struct{}{}); err == nil {
			h.Broadcast(frame)
		}
	}
	if frame, err := wire.Encode(wire.EvRoomState, view); err == nil {
		h.Broadcast(frame)
	}
}
