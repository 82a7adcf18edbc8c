package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSubMgr(hub *Hub, instance string) *subscriptionManager {
	return &subscriptionManager{
		hub:      hub,
		instance: instance,
		subs:     make(map[string]*subEntry),
	}
}

func TestFanoutSkipsOwnPublications(t *testing.T) {
	hub := NewHub()
	a := newFakeConn("a")
	hub.Join("wp_r1", a)

	sm := newTestSubMgr(hub, "node-a")
	payload, err := json.Marshal(fanoutFrame{Origin: "node-a", Event: EvtWpPause})
	require.NoError(t, err)

	sm.handlePayload("wp_r1", string(payload))

	assert.Equal(t, 0, a.frameCount(), "local delivery already happened; relaying again would double-send")
}

func TestFanoutRelaysRemoteEventsToLocalRoom(t *testing.T) {
	hub := NewHub()
	a, b := newFakeConn("a"), newFakeConn("b")
	hub.Join("wp_r1", a)
	hub.Join("wp_r1", b)
	hub.Join("wp_r2", newFakeConn("c"))

	sm := newTestSubMgr(hub, "node-a")
	payload, err := json.Marshal(fanoutFrame{
		Origin: "node-b",
		Event:  EvtWpSeek,
		Body:   json.RawMessage(`{"position":42}`),
	})
	require.NoError(t, err)

	sm.handlePayload("wp_r1", string(payload))

	frame := a.lastFrame(t)
	assert.Equal(t, EvtWpSeek, frame.Event)
	assert.JSONEq(t, `{"position":42}`, string(frame.Body.(json.RawMessage)))
	assert.Equal(t, 1, b.frameCount())
}

func TestFanoutIgnoresGarbagePayloads(t *testing.T) {
	hub := NewHub()
	a := newFakeConn("a")
	hub.Join("wp_r1", a)

	sm := newTestSubMgr(hub, "node-a")
	assert.NotPanics(t, func() { sm.handlePayload("wp_r1", "{not json") })
	assert.Equal(t, 0, a.frameCount())
}

func TestFanoutFrameRoundTrip(t *testing.T) {
	frame := fanoutFrame{Origin: "node-a", Event: EvtWpURL, Body: json.RawMessage(`{"url":"http://x/v.mp4"}`)}
	payload, err := json.Marshal(frame)
	require.NoError(t, err)

	var decoded fanoutFrame
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, frame.Origin, decoded.Origin)
	assert.Equal(t, frame.Event, decoded.Event)
	assert.JSONEq(t, string(frame.Body), string(decoded.Body))
}
