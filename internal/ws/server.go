package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10 // must be < pongWait
	maxFrameSize    = 4096
	dispatchTimeout = 1900 * time.Millisecond
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true }, // dev-only
}

// TokenVerifier is the identity collaborator: it turns a bearer token
// into an authenticated {id, username} pair.
type TokenVerifier interface {
	VerifyToken(token string) (userID, username string, err error)
}

type WsServer struct {
	engine   *Engine
	router   *Router
	verifier TokenVerifier // nil: anonymous sockets allowed
}

func NewWsServer(engine *Engine, verifier TokenVerifier) *WsServer {
	srv := &WsServer{
		engine:   engine,
		router:   NewRouter(),
		verifier: verifier,
	}
	srv.registerHandlers() // ← all WS events configured here
	return srv
}

// ---------------------------------------------------------------------------
//  Public: Gin entry-point
// ---------------------------------------------------------------------------

func (s *WsServer) Handle(ginCtx *gin.Context) {
	var userID, username string
	if token := ginCtx.Query("token"); token != "" && s.verifier != nil {
		uid, uname, err := s.verifier.VerifyToken(token)
		if err != nil {
			ginCtx.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		userID, username = uid, uname
	}

	rawConn, err := upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.upgrade", zap.Error(err))
		return
	}

	// ─────────────────── Client connected ────────────────────────
	conn := &clientConn{id: uuid.NewString(), rawConn: rawConn}
	cc := &ConnContext{Conn: conn, UserID: userID, Username: username}

	done := make(chan struct{})
	go s.reader(cc, conn, done)
	go s.pinger(conn, done)
}

// ---------------------------------------------------------------------------
//  Private helpers
// ---------------------------------------------------------------------------

func (s *WsServer) registerHandlers() {
	Register(s.router, EvtJoinChannel, s.engine.JoinChannel)
	Register(s.router, EvtSendMessage, s.engine.SendMessage)
	Register(s.router, EvtWpJoin, s.engine.WatchJoin)
	Register(s.router, EvtWpURL, s.engine.WatchURL)
	Register(s.router, EvtWpPlay, s.engine.WatchPlay)
	Register(s.router, EvtWpPause, s.engine.WatchPause)
	Register(s.router, EvtWpSeek, s.engine.WatchSeek)
}

func (s *WsServer) reader(cc *ConnContext, conn *clientConn, done chan<- struct{}) {
	defer func() {
		close(done)
		s.engine.Disconnect(conn)
		_ = conn.Close()
	}()

	conn.rawConn.SetReadLimit(maxFrameSize)
	_ = conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	conn.rawConn.SetPongHandler(func(string) error {
		return conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.rawConn.ReadMessage()
		if err != nil {
			return // transport-level: client closed or errored
		}

		// A frame that is not even an envelope is still only a
		// malformed payload: drop it, keep the connection.
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			zap.L().Debug("ws.drop",
				zap.String("conn", conn.ID()),
				zap.Error(err),
			)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		err = s.router.dispatch(ctx, cc, env)
		cancel()

		// Malformed or unknown frames are dropped without a reply; the
		// connection stays open and no state was touched.
		if err != nil {
			zap.L().Debug("ws.drop",
				zap.String("event", env.Event),
				zap.String("conn", conn.ID()),
				zap.Error(err),
			)
		}
	}
}

func (s *WsServer) pinger(conn *clientConn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.write(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}
