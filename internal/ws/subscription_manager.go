package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// subscriptionManager guarantees that we have **exactly one** Redis
// subscription per "room:<key>:events" channel ― no matter how many
// websocket clients join the same room on this node. It relays events
// published by other instances into the local hub; our own
// publications are skipped because local delivery already happened.
type subscriptionManager struct {
	rdb      *redis.Client
	hub      *Hub
	instance string
	mu       sync.Mutex
	subs     map[string]*subEntry // room key ➜ subscription data
}

type subEntry struct {
	refCnt int
	cancel context.CancelFunc
}

// fanoutFrame is the cross-instance wire format.
type fanoutFrame struct {
	Origin string          `json:"origin"`
	Event  string          `json:"event"`
	Body   json.RawMessage `json:"body,omitempty"`
}

func newSubscriptionManager(rdb *redis.Client, hub *Hub) *subscriptionManager {
	return &subscriptionManager{
		rdb:      rdb,
		hub:      hub,
		instance: uuid.NewString(),
		subs:     make(map[string]*subEntry),
	}
}

func roomChannel(roomKey string) string { return "room:" + roomKey + ":events" }

// Publish mirrors a locally broadcast event to the room's channel so
// that members connected to other instances receive it too.
func (sm *subscriptionManager) Publish(ctx context.Context, roomKey string, env outEnvelope) {
	frame := fanoutFrame{Origin: sm.instance, Event: env.Event}
	if env.Body != nil {
		body, err := json.Marshal(env.Body)
		if err != nil {
			zap.L().Warn("ws.fanout_encode", zap.Error(err))
			return
		}
		frame.Body = body
	}
	payload, err := json.Marshal(frame)
	if err != nil {
		zap.L().Warn("ws.fanout_encode", zap.Error(err))
		return
	}
	if err := sm.rdb.Publish(ctx, roomChannel(roomKey), payload).Err(); err != nil {
		zap.L().Warn("ws.fanout_publish", zap.String("room", roomKey), zap.Error(err))
	}
}

// Subscribe ensures that the process is subscribed to the room's
// channel; subsequent calls for the same room only increment the
// ref-counter.
func (sm *subscriptionManager) Subscribe(roomKey string) {
	sm.mu.Lock()
	if e, ok := sm.subs[roomKey]; ok {
		e.refCnt++
		sm.mu.Unlock()
		return
	}

	// First consumer → create Redis SUB and relay loop.
	ctx, cancel := context.WithCancel(context.Background())
	ps := sm.rdb.Subscribe(ctx, roomChannel(roomKey))

	sm.subs[roomKey] = &subEntry{refCnt: 1, cancel: cancel}
	sm.mu.Unlock()

	go func() {
		defer ps.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ps.Channel():
				if !ok { // Redis connection closed.
					return
				}
				sm.handlePayload(roomKey, m.Payload)
			}
		}
	}()
}

// Unsubscribe decrements the ref-counter and tears the Redis SUB down
// when the last local client leaves the room.
func (sm *subscriptionManager) Unsubscribe(roomKey string) {
	sm.mu.Lock()
	e, ok := sm.subs[roomKey]
	if !ok {
		sm.mu.Unlock()
		return
	}
	e.refCnt--
	if e.refCnt > 0 {
		sm.mu.Unlock()
		return
	}
	delete(sm.subs, roomKey)
	sm.mu.Unlock()

	// Outside the lock → stop the relay goroutine.
	e.cancel()
}

func (sm *subscriptionManager) handlePayload(roomKey, payload string) {
	var frame fanoutFrame
	if err := json.Unmarshal([]byte(payload), &frame); err != nil {
		zap.L().Warn("ws.fanout_decode", zap.Error(err))
		return
	}
	if frame.Origin == sm.instance {
		return // we broadcast this one ourselves already
	}
	env := outEnvelope{Event: frame.Event}
	if len(frame.Body) > 0 {
		env.Body = frame.Body
	}
	sm.hub.Broadcast(roomKey, env, "")
}
