package ws

import (
	"sync"

	"go.uber.org/zap"
)

// Hub is the connection registry: it keeps the member set per room key
// and, per connection, the set of room keys it has joined so that a
// disconnect can never leave stale recipients behind.
//
// Operations on an unknown connection are no-ops; late or duplicate
// disconnect notifications are tolerated.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]*room
	joined map[string]map[string]struct{} // connection id -> room keys
}

func NewHub() *Hub {
	return &Hub{
		rooms:  make(map[string]*room),
		joined: make(map[string]map[string]struct{}),
	}
}

// Join is idempotent: joining a room twice is a single membership.
// It reports whether the membership is new, so callers can attach
// per-membership resources without leaking them on a re-join. The
// room insert happens under h.mu so a concurrent last-member teardown
// can never drop the room out from under the joiner.
func (h *Hub) Join(roomKey string, c Conn) bool {
	h.mu.Lock()
	r, ok := h.rooms[roomKey]
	if !ok {
		r = newRoom()
		h.rooms[roomKey] = r
	}
	keys, ok := h.joined[c.ID()]
	if !ok {
		keys = make(map[string]struct{})
		h.joined[c.ID()] = keys
	}
	_, already := keys[roomKey]
	keys[roomKey] = struct{}{}
	r.add(c)
	h.mu.Unlock()

	if !already {
		zap.L().Debug("hub.join", zap.String("room", roomKey), zap.String("conn", c.ID()))
	}
	return !already
}

func (h *Hub) Leave(roomKey string, c Conn) {
	h.mu.Lock()
	r, ok := h.rooms[roomKey]
	if keys, found := h.joined[c.ID()]; found {
		delete(keys, roomKey)
		if len(keys) == 0 {
			delete(h.joined, c.ID())
		}
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	r.remove(c.ID())
	h.dropIfEmpty(roomKey, r)
}

// Disconnect removes the connection from every room it belonged to and
// reports which room keys it left.
func (h *Hub) Disconnect(c Conn) []string {
	h.mu.Lock()
	keys := h.joined[c.ID()]
	delete(h.joined, c.ID())
	left := make([]string, 0, len(keys))
	for k := range keys {
		left = append(left, k)
	}
	h.mu.Unlock()

	for _, k := range left {
		h.mu.RLock()
		r, ok := h.rooms[k]
		h.mu.RUnlock()
		if !ok {
			continue
		}
		r.remove(c.ID())
		h.dropIfEmpty(k, r)
	}
	if len(left) > 0 {
		zap.L().Debug("hub.disconnect", zap.String("conn", c.ID()), zap.Strings("rooms", left))
	}
	return left
}

// Broadcast fans v out to the room's current members, excluding
// exceptID when non-empty. Unknown rooms are a no-op.
func (h *Hub) Broadcast(roomKey string, v any, exceptID string) {
	h.mu.RLock()
	r, ok := h.rooms[roomKey]
	h.mu.RUnlock()
	if ok {
		r.broadcast(v, exceptID)
	}
}

// Stats reports room and client counts, mostly for logs.
func (h *Hub) Stats() (rooms, clients int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms), len(h.joined)
}

func (h *Hub) dropIfEmpty(roomKey string, r *room) {
	if r.size() > 0 {
		return
	}
	h.mu.Lock()
	if cur, ok := h.rooms[roomKey]; ok && cur == r && cur.size() == 0 {
		delete(h.rooms, roomKey)
	}
	h.mu.Unlock()
}
