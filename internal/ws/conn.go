package ws

// Conn is the minimal surface the hub needs from one live client
// connection. *clientConn implements it over a websocket; tests plug
// in an in-memory recorder.
type Conn interface {
	ID() string
	WriteJSON(v any) error
	Close() error
}

// ConnContext carries everything a handler may need about the
// originating connection. UserID/Username come from the identity
// collaborator and may be empty on unauthenticated sockets.
type ConnContext struct {
	Conn     Conn
	UserID   string
	Username string
}
