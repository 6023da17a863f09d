// Package hub implements the broadcast fan-out half of the Session
// Layer (spec §4.4, §5, §9): a subscriber list held alongside each
// Room, where membership changes take the room's lock but the actual
// network send always happens outside it.
//
// It is the typed, completed version of the teacher's
// SafeBroadcastToRoom / SafeBroadcastToRoomExcept generics in
// internal/game/draw.go, generalized from a single websocket.Conn
// field on Player to an injected Sink so this package never imports
// gorilla/websocket directly.
package hub

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/adabra/server/internal/room"
)

// Sink is anything that can receive an outbound wire frame without
// blocking the caller. Session implements this; hub never knows about
// websocket.Conn.
type Sink interface {
	PlayerID() string
	IsHost() bool
	Enqueue(frame []byte)
}

// RoomHub pairs a Room with its set of live subscribers.
type RoomHub struct {
	Room *room.Room

	mu   sync.RWMutex
	subs map[Sink]struct{}
}

// New creates a hub for an already-constructed room.
func New(r *room.Room) *RoomHub {
	return &RoomHub{
		Room: r,
		subs: make(map[Sink]struct{}),
	}
}

// Subscribe adds a connection to the room's fan-out list and updates
// MembersCount. Takes the room lock only for the count update.
func (h *RoomHub) Subscribe(s Sink) {
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	h.Room.Mu.Lock()
	h.Room.MembersCount++
	h.Room.Mu.Unlock()
}

// Unsubscribe removes a connection, e.g. on disconnect.
func (h *RoomHub) Unsubscribe(s Sink) {
	h.mu.Lock()
	_, existed := h.subs[s]
	delete(h.subs, s)
	h.mu.Unlock()

	if !existed {
		return
	}
	h.Room.Mu.Lock()
	if h.Room.MembersCount > 0 {
		h.Room.MembersCount--
	}
	h.Room.Mu.Unlock()
}

func (h *RoomHub) snapshot() []Sink {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Sink, 0, len(h.subs))
	for s := range h.subs {
		out = append(out, s)
	}
	return out
}

// SubscriberCount reports the live fan-out size. The registry's
// empty-room check reads MembersCount, not this.
func (h *RoomHub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Broadcast fans a pre-encoded frame out to every subscriber. Callers
// must build frame before taking any room lock, so the lock is never
// held across this call (spec §5).
func (h *RoomHub) Broadcast(frame []byte) {
	for _, s := range h.snapshot() {
		s.Enqueue(frame)
	}
}

// BroadcastExceptPlayer fans a frame out to everyone except sessions
// bound to excludePlayerID.
func (h *RoomHub) BroadcastExceptPlayer(frame []byte, excludePlayerID string) {
	for _, s := range h.snapshot() {
		if s.PlayerID() == excludePlayerID {
			continue
		}
		s.Enqueue(frame)
	}
}

// SendToPlayer delivers a frame to every live session bound to
// playerID (a player may have more than one tab/connection open).
func (h *RoomHub) SendToPlayer(playerID string, frame []byte) {
	for _, s := range h.snapshot() {
		if s.PlayerID() == playerID {
			s.Enqueue(frame)
		}
	}
}

// KickPlayer marks sinks bound to playerID for logging purposes; the
// actual "kicked" frame is sent by the caller via SendToPlayer, this
// just records the event.
func (h *RoomHub) KickPlayer(playerID string) {
	logrus.WithFields(logrus.Fields{
		"room":   h.Room.RoomCode,
		"player": playerID,
	}).Info("player kicked")
}
