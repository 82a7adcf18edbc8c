package http_server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"omnicom/internal/auth"
	"omnicom/internal/http/authhandler"
	"omnicom/internal/http/chathandler"
	"omnicom/internal/services/chat"
	"omnicom/internal/ws"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type httpServer struct {
	listenPort  uint16
	srv         http.Server
	ln          net.Listener
	authService auth.IAuthService
	chatService chat.IChatService
	wsSrv       *ws.WsServer
	ctx         context.Context
}

func NewHttpServer(ctx context.Context, listenPort uint16, wsSrv *ws.WsServer,
	authService auth.IAuthService, chatService chat.IChatService,
) *httpServer {
	return &httpServer{
		listenPort:  listenPort,
		wsSrv:       wsSrv,
		authService: authService,
		chatService: chatService,
		ctx:         ctx,
	}
}

func (h *httpServer) Start() error {
	var err error
	listenAddr := fmt.Sprintf(":%d", h.listenPort)
	h.ln, err = net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}

	routerEngine := gin.New()
	routerEngine.Use(ginzap.RecoveryWithZap(zap.L(), true))

	// websocket endpoint
	routerEngine.GET("/ws", h.wsSrv.Handle)

	// REST API
	ah := authhandler.New(h.authService)
	ah.Register(routerEngine)

	ch := chathandler.New(h.chatService)
	ch.Register(routerEngine, authhandler.AuthRequired(h.authService))

	h.srv = http.Server{
		Handler: routerEngine,
	}

	return h.srv.Serve(h.ln)
}

// Dispose gracefully shuts the HTTP server down.
// It waits up to 10 s for in-flight requests to finish.
func (h *httpServer) Dispose() error {
	ctx, cancel := context.WithTimeout(h.ctx, 10*time.Second)
	defer cancel()

	if err := h.srv.Shutdown(ctx); err != nil {
		zap.L().Error("http_dispose", zap.Error(err))
		return err // e.g. active conns didn't finish in time
	}

	if ctx.Err() == context.DeadlineExceeded {
		zap.L().Error("http_dispose", zap.Error(errors.New("shutdown timed out")))
		log.Println("shutdown timeout (10 s)")
	}

	return nil
}
