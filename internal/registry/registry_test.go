package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adabra/server/internal/room"
)

func TestCreateRoomDefaults(t *testing.T) {
	reg := New(nil)
	h, err := reg.CreateRoom()
	require.NoError(t, err)
	require.Len(t, h.Room.RoomCode, room.RoomCodeLength)
	require.Len(t, h.Room.HostKey, room.HostKeyLength)
	require.Equal(t, room.PhaseLobby, h.Room.Phase)
	require.Len(t, h.Room.TeamOrder, 2)
}

func TestGetRoomCaseInsensitive(t *testing.T) {
	reg := New(nil)
	h, err := reg.CreateRoom()
	require.NoError(t, err)

	got, ok := reg.GetRoom(h.Room.RoomCode)
	require.True(t, ok)
	require.Same(t, h, got)

	lower := toLower(h.Room.RoomCode)
	got2, ok2 := reg.GetRoom(lower)
	require.True(t, ok2)
	require.Same(t, h, got2)
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func TestReapOnceDeletesIdleRoom(t *testing.T) {
	clockMs := int64(0)
	clock := func() int64 { return clockMs }

	reg := New(clock)
	h, err := reg.CreateRoom()
	require.NoError(t, err)

	clockMs = room.IdleTTL.Milliseconds() + 1
	reg.ReapOnce()

	_, ok := reg.GetRoom(h.Room.RoomCode)
	require.False(t, ok)
}

func TestReapOnceDeletesEmptyRoomAfterGrace(t *testing.T) {
	clockMs := int64(0)
	clock := func() int64 { return clockMs }

	reg := New(clock)
	h, err := reg.CreateRoom()
	require.NoError(t, err)

	clockMs = room.EmptyTTL.Milliseconds() + 1
	reg.ReapOnce()

	_, ok := reg.GetRoom(h.Room.RoomCode)
	require.False(t, ok)
}

func TestReapOnceKeepsActiveRoom(t *testing.T) {
	clockMs := int64(0)
	clock := func() int64 { return clockMs }

	reg := New(clock)
	h, err := reg.CreateRoom()
	require.NoError(t, err)
	h.Subscribe(fakeSink{playerID: "p1"})

	clockMs = room.EmptyTTL.Milliseconds() + 1
	reg.ReapOnce()

	_, ok := reg.GetRoom(h.Room.RoomCode)
	require.True(t, ok)
}

type fakeSink struct {
	playerID string
}

func (f fakeSink) PlayerID() string   { return f.playerID }
func (f fakeSink) IsHost() bool       { return false }
func (f fakeSink) Enqueue(_ []byte) {}
