// Package registry implements the process-wide Room Registry (spec
// §4.1): room creation with rejection-sampled codes, lookup, and the
// idleness/empty-room reaper.
//
// Grounded on the teacher's internal/game/room.go globals
// (Rooms/RoomsMu, getOrCreateRoom, CleanupRoom), restructured into an
// injectable type instead of package-level state, and on the room
// code generator pattern from the quiz-room reference example
// (crypto/rand + rejection sampling against a fixed alphabet).
package registry

import (
	"crypto/rand"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/adabra/server/internal/hub"
	"github.com/adabra/server/internal/room"
)

// Clock is injected so tests can control time without sleeping.
type Clock func() int64

func systemClockMs() int64 {
	return time.Now().UnixMilli()
}

// Registry owns every live room's hub, keyed by uppercase room code.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*hub.RoomHub

	now Clock

	// IdleTTL and EmptyTTL drive ReapOnce and default to room's spec
	// constants; config.Load lets an operator override them without
	// touching the room package.
	IdleTTL  time.Duration
	EmptyTTL time.Duration
}

// New creates an empty registry. A nil clock uses wall time.
func New(clock Clock) *Registry {
	if clock == nil {
		clock = systemClockMs
	}
	return &Registry{
		rooms:    make(map[string]*hub.RoomHub),
		now:      clock,
		IdleTTL:  room.IdleTTL,
		EmptyTTL: room.EmptyTTL,
	}
}

// generateCode rejection-samples a RoomCodeLength string from
// room.RoomCodeAlphabet until it collides with no existing room. The
// registry lock must be held by the caller.
func (reg *Registry) generateCode() (string, error) {
	for {
		code, err := randomString(room.RoomCodeAlphabet, room.RoomCodeLength)
		if err != nil {
			return "", err
		}
		if _, exists := reg.rooms[code]; !exists {
			return code, nil
		}
	}
}

func randomString(alphabet string, n int) (string, error) {
	var sb strings.Builder
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(alphabet[idx.Int64()])
	}
	return sb.String(), nil
}

// hostKeyAlphabet is intentionally wider than the room-code alphabet:
// the host key is never read aloud or typed by a human, only copied
// from the host console, so there is no need to avoid ambiguous
// glyphs.
const hostKeyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// CreateRoom generates a fresh code and host key and registers a new
// room in its initial lobby state (spec §4.1 createRoom).
func (reg *Registry) CreateRoom() (*hub.RoomHub, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	code, err := reg.generateCode()
	if err != nil {
		return nil, err
	}
	hostKey, err := randomString(hostKeyAlphabet, room.HostKeyLength)
	if err != nil {
		return nil, err
	}

	r := room.New(code, hostKey, reg.now())
	h := hub.New(r)
	reg.rooms[code] = h

	logrus.WithField("room", code).Info("room created")
	return h, nil
}

// GetRoom does a case-insensitive lookup by room code.
func (reg *Registry) GetRoom(code string) (*hub.RoomHub, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	h, ok := reg.rooms[strings.ToUpper(code)]
	return h, ok
}

// Len reports the number of live rooms (used by tests and metrics).
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// Remove deletes a room unconditionally; idempotent.
func (reg *Registry) Remove(code string) {
	reg.mu.Lock()
	delete(reg.rooms, code)
	reg.mu.Unlock()
}

// Rooms returns a snapshot slice of all live hubs, for the Timer
// Service to iterate without holding the registry lock during ticks.
func (reg *Registry) Rooms() []*hub.RoomHub {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]*hub.RoomHub, 0, len(reg.rooms))
	for _, h := range reg.rooms {
		out = append(out, h)
	}
	return out
}

// ReapOnce runs a single reaper pass (spec §4.1): a room dies if it
// has been idle for longer than reg.IdleTTL, or if it has zero
// members and has been idle for longer than reg.EmptyTTL. Per-room inspection takes
// only the room's own lock; the registry write-lock is taken only
// when actually deleting, per spec §4.5.
func (reg *Registry) ReapOnce() {
	now := reg.now()

	var toDelete []string
	for _, h := range reg.Rooms() {
		h.Room.Mu.Lock()
		idleMs := now - h.Room.LastActivityAt
		members := h.Room.MembersCount
		code := h.Room.RoomCode
		h.Room.Mu.Unlock()

		dead := idleMs > reg.IdleTTL.Milliseconds()
		empty := members == 0 && idleMs > reg.EmptyTTL.Milliseconds()
		if dead || empty {
			toDelete = append(toDelete, code)
		}
	}

	if len(toDelete) == 0 {
		return
	}

	reg.mu.Lock()
	for _, code := range toDelete {
		delete(reg.rooms, code)
	}
	reg.mu.Unlock()

	for _, code := range toDelete {
		logrus.WithField("room", code).Info("room reaped")
	}
}

// RunReaper blocks, running ReapOnce every interval until stop is
// closed. Call it in its own goroutine from cmd/adabra.
func (reg *Registry) RunReaper(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			reg.ReapOnce()
		case <-stop:
			return
		}
	}
}
