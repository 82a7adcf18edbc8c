package ws

import (
	"sync"
)

type room struct {
	mu    sync.RWMutex
	conns map[string]Conn // connection id -> conn
}

func newRoom() *room { return &room{conns: map[string]Conn{}} }

func (r *room) add(c Conn) {
	r.mu.Lock()
	r.conns[c.ID()] = c
	r.mu.Unlock()
}

func (r *room) remove(connID string) {
	r.mu.Lock()
	delete(r.conns, connID)
	r.mu.Unlock()
}

func (r *room) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// broadcast delivers v to every member except exceptID (pass "" to
// include everyone). Fire-and-forget: a member whose write fails is
// dropped from the room and closed.
func (r *room) broadcast(v any, exceptID string) {
	// Take a quick snapshot of the current connections
	r.mu.RLock()
	conns := make([]Conn, 0, len(r.conns))
	for id, c := range r.conns {
		if id == exceptID {
			continue
		}
		conns = append(conns, c)
	}
	r.mu.RUnlock()

	// Do the I/O outside the lock
	var failed []Conn
	for _, c := range conns {
		if err := c.WriteJSON(v); err != nil {
			failed = append(failed, c)
		}
	}
	for _, c := range failed {
		r.remove(c.ID())
		_ = c.Close()
	}
}
