package timersvc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adabra/server/internal/hub"
	"github.com/adabra/server/internal/room"
)

type fakeSource struct {
	rooms []*hub.RoomHub
}

func (f *fakeSource) Rooms() []*hub.RoomHub { return f.rooms }

func TestTickOnceDecrementsRemaining(t *testing.T) {
	r := room.New("ABCD", "hostkeyhostkeyhostkey123", 0)
	require.NoError(t, r.HostBeepStart(0))
	h := hub.New(r)

	clockMs := int64(0)
	svc := New(&fakeSource{rooms: []*hub.RoomHub{h}}, func() int64 { return clockMs })

	clockMs = 200
	svc.TickOnce()
	r.Mu.Lock()
	remaining := r.RemainingMs
	r.Mu.Unlock()
	require.Equal(t, room.DefaultDurationMs-200, remaining)
}

func TestTickOnceFiresTimeUp(t *testing.T) {
	r := room.New("ABCD", "hostkeyhostkeyhostkey123", 0)
	require.NoError(t, r.HostSetDuration(1)) // 1000ms, the shortest allowed round
	require.NoError(t, r.HostBeepStart(0))
	h := hub.New(r)

	clockMs := int64(0)
	svc := New(&fakeSource{rooms: []*hub.RoomHub{h}}, func() int64 { return clockMs })

	clockMs = 1000
	svc.TickOnce()

	r.Mu.Lock()
	defer r.Mu.Unlock()
	require.Equal(t, room.PhaseLobby, r.Phase)
	require.Equal(t, int64(0), r.RemainingMs)
	require.Equal(t, int64(1000), r.TimeUpAt)
}

func TestTickOnceSkipsNonRunningRoom(t *testing.T) {
	r := room.New("ABCD", "hostkeyhostkeyhostkey123", 0)
	h := hub.New(r)

	svc := New(&fakeSource{rooms: []*hub.RoomHub{h}}, func() int64 { return 10_000 })
	svc.TickOnce()

	r.Mu.Lock()
	defer r.Mu.Unlock()
	require.Equal(t, room.DefaultDurationMs, r.RemainingMs)
}
