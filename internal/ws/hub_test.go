package ws

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn records every frame written to it; shared by the hub,
// engine and fan-out tests.
type fakeConn struct {
	id         string
	mu         sync.Mutex
	frames     []outEnvelope
	writes     int
	failWrites bool
	closed     bool
}

func newFakeConn(id string) *fakeConn { return &fakeConn{id: id} }

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) WriteJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.failWrites {
		return errors.New("write failed")
	}
	if env, ok := v.(outEnvelope); ok {
		f.frames = append(f.frames, env)
	}
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func (f *fakeConn) lastFrame(t *testing.T) outEnvelope {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.frames, "connection %s received no frames", f.id)
	return f.frames[len(f.frames)-1]
}

func TestHubBroadcastReachesMembers(t *testing.T) {
	h := NewHub()
	a, b, c := newFakeConn("a"), newFakeConn("b"), newFakeConn("c")
	h.Join("r1", a)
	h.Join("r1", b)
	h.Join("r2", c)

	h.Broadcast("r1", outEnvelope{Event: "x"}, "")

	assert.Equal(t, 1, a.frameCount())
	assert.Equal(t, 1, b.frameCount())
	assert.Equal(t, 0, c.frameCount(), "other rooms must not receive the event")
}

func TestHubBroadcastExcludesSender(t *testing.T) {
	h := NewHub()
	a, b := newFakeConn("a"), newFakeConn("b")
	h.Join("r1", a)
	h.Join("r1", b)

	h.Broadcast("r1", outEnvelope{Event: "x"}, "a")

	assert.Equal(t, 0, a.frameCount())
	assert.Equal(t, 1, b.frameCount())
}

func TestHubJoinIsIdempotent(t *testing.T) {
	h := NewHub()
	a := newFakeConn("a")
	h.Join("r1", a)
	h.Join("r1", a)

	h.Broadcast("r1", outEnvelope{Event: "x"}, "")
	assert.Equal(t, 1, a.frameCount(), "double join must not double-deliver")
}

func TestHubJoinReportsNewMembership(t *testing.T) {
	h := NewHub()
	a := newFakeConn("a")

	assert.True(t, h.Join("r1", a), "first join creates the membership")
	assert.False(t, h.Join("r1", a), "re-join is the same membership")

	h.Leave("r1", a)
	assert.True(t, h.Join("r1", a), "after leaving, the next join is new again")
}

// A join racing the last member's disconnect must never land in a room
// that teardown is about to delete.
func TestHubJoinDuringTeardownKeepsRoomDeliverable(t *testing.T) {
	h := NewHub()

	for i := 0; i < 1000; i++ {
		a, b := newFakeConn("a"), newFakeConn("b")
		h.Join("r1", b)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			h.Disconnect(b)
		}()
		go func() {
			defer wg.Done()
			h.Join("r1", a)
		}()
		wg.Wait()

		h.Broadcast("r1", outEnvelope{Event: "x"}, "")
		require.Equal(t, 1, a.frameCount(), "iteration %d: joiner lost the room to a concurrent teardown", i)
		h.Disconnect(a)
	}
}

func TestHubDisconnectRemovesAllMemberships(t *testing.T) {
	h := NewHub()
	a, b := newFakeConn("a"), newFakeConn("b")
	h.Join("r1", a)
	h.Join("r2", a)
	h.Join("r1", b)

	left := h.Disconnect(a)
	assert.ElementsMatch(t, []string{"r1", "r2"}, left)

	h.Broadcast("r1", outEnvelope{Event: "x"}, "")
	h.Broadcast("r2", outEnvelope{Event: "x"}, "")
	assert.Equal(t, 0, a.frameCount(), "disconnected conn must never be reached again")
	assert.Equal(t, 1, b.frameCount())
}

func TestHubUnknownConnIsNoOp(t *testing.T) {
	h := NewHub()
	ghost := newFakeConn("ghost")

	assert.NotPanics(t, func() {
		h.Leave("r1", ghost)
		left := h.Disconnect(ghost)
		assert.Empty(t, left)
	})
}

func TestHubDuplicateDisconnectTolerated(t *testing.T) {
	h := NewHub()
	a := newFakeConn("a")
	h.Join("r1", a)

	assert.NotEmpty(t, h.Disconnect(a))
	assert.Empty(t, h.Disconnect(a), "second disconnect is a late notification, not an error")
}

func TestHubPrunesFailedWriters(t *testing.T) {
	h := NewHub()
	a, bad := newFakeConn("a"), newFakeConn("bad")
	bad.failWrites = true
	h.Join("r1", a)
	h.Join("r1", bad)

	h.Broadcast("r1", outEnvelope{Event: "x"}, "")
	h.Broadcast("r1", outEnvelope{Event: "y"}, "")

	assert.Equal(t, 2, a.frameCount())
	assert.Equal(t, 1, bad.writes, "failed writer must not be retried")
	assert.True(t, bad.closed)
}

func TestHubStats(t *testing.T) {
	h := NewHub()
	a, b := newFakeConn("a"), newFakeConn("b")
	h.Join("r1", a)
	h.Join("r1", b)
	h.Join("r2", a)

	rooms, clients := h.Stats()
	assert.Equal(t, 2, rooms)
	assert.Equal(t, 2, clients)

	h.Disconnect(b)
	rooms, clients = h.Stats()
	assert.Equal(t, 2, rooms)
	assert.Equal(t, 1, clients)
}
