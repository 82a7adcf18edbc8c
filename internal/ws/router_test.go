package ws

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterDispatchTypedHandler(t *testing.T) {
	r := NewRouter()
	var got WatchSeekRequest
	Register(r, EvtWpSeek, func(ctx context.Context, c *ConnContext, req WatchSeekRequest) error {
		got = req
		return nil
	})

	err := r.dispatch(context.Background(), asCtx(newFakeConn("a")), Envelope{
		Event: EvtWpSeek,
		Body:  json.RawMessage(`{"roomId":"r1","position":42}`),
	})

	require.NoError(t, err)
	assert.Equal(t, WatchSeekRequest{RoomID: "r1", Position: 42}, got)
}

func TestRouterUnknownEvent(t *testing.T) {
	r := NewRouter()
	err := r.dispatch(context.Background(), asCtx(newFakeConn("a")), Envelope{Event: "nope"})
	assert.ErrorIs(t, err, errUnknownEvent)
}

func TestRouterRejectsBadJSONBeforeHandlerRuns(t *testing.T) {
	r := NewRouter()
	called := false
	Register(r, EvtWpJoin, func(ctx context.Context, c *ConnContext, req WatchRoomRequest) error {
		called = true
		return nil
	})

	err := r.dispatch(context.Background(), asCtx(newFakeConn("a")), Envelope{
		Event: EvtWpJoin,
		Body:  json.RawMessage(`{"roomId":`),
	})

	assert.Error(t, err)
	assert.False(t, called, "a handler must never see a malformed body")
}

func TestRouterRejectsMissingRequiredFields(t *testing.T) {
	r := NewRouter()
	called := false
	Register(r, EvtWpURL, func(ctx context.Context, c *ConnContext, req WatchURLRequest) error {
		called = true
		return nil
	})

	cases := []json.RawMessage{
		nil,                                // no body at all
		json.RawMessage(`{}`),              // both fields missing
		json.RawMessage(`{"roomId":"r1"}`), // url missing
		json.RawMessage(`{"roomId":"","url":"http://x"}`), // empty room id
	}
	for _, body := range cases {
		err := r.dispatch(context.Background(), asCtx(newFakeConn("a")), Envelope{Event: EvtWpURL, Body: body})
		assert.Error(t, err, "body %s must be dropped", string(body))
	}
	assert.False(t, called)
}

func TestRouterEmptyEventPanics(t *testing.T) {
	r := NewRouter()
	assert.Panics(t, func() {
		Register(r, "", func(ctx context.Context, c *ConnContext, req WatchRoomRequest) error { return nil })
	})
}

// Malformed frames must be silent end to end: no state change, no
// broadcast, connection usable afterwards.
func TestMalformedFrameHasNoSideEffects(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	r := NewRouter()
	Register(r, EvtWpURL, e.WatchURL)
	Register(r, EvtWpSeek, e.WatchSeek)

	a, b := newFakeConn("a"), newFakeConn("b")
	require.NoError(t, e.WatchJoin(ctx, asCtx(a), WatchRoomRequest{RoomID: "r1"}))
	require.NoError(t, e.WatchJoin(ctx, asCtx(b), WatchRoomRequest{RoomID: "r1"}))

	err := r.dispatch(ctx, asCtx(a), Envelope{Event: EvtWpURL, Body: json.RawMessage(`{"url":""}`)})
	assert.Error(t, err)

	_, ok := e.store.Get("r1")
	assert.False(t, ok, "malformed url change must not create a session")
	assert.Equal(t, 0, b.frameCount(), "malformed url change must not broadcast")

	// The same connection keeps working.
	require.NoError(t, r.dispatch(ctx, asCtx(a), Envelope{
		Event: EvtWpURL,
		Body:  json.RawMessage(`{"roomId":"r1","url":"http://x/v.mp4"}`),
	}))
	assert.Equal(t, 1, b.frameCount())
}
