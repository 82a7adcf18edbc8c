package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type clientConn struct {
	id      string
	rawConn *websocket.Conn
	mu      sync.Mutex
}

func (c *clientConn) ID() string { return c.id }

func (c *clientConn) write(mt int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.rawConn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.rawConn.WriteMessage(mt, data)
}

func (c *clientConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.rawConn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.rawConn.WriteJSON(v)
}

func (c *clientConn) Close() error { return c.rawConn.Close() }
