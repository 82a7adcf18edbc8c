package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"omnicom/internal/auth"
	"omnicom/internal/config"
	"omnicom/internal/database/db_client"
	"omnicom/internal/http/http_server"
	"omnicom/internal/redis/redis_client"
	"omnicom/internal/services/chat"
	"omnicom/internal/syncmsg"
	"omnicom/internal/ws"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	var err error
	var cfg *config.Config
	var redisClient *redis.Client

	// 1. Load configuration
	cfg, err = config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Redis (cross-instance fan-out + message archive stream)
	redisClient, err = redis_client.NewRedisClient(cfg.RedisHost, int(cfg.RedisPort))
	if err != nil {
		Log.Fatal("Failed to create Redis client", zap.Error(err))
	}
	defer redisClient.Close()
	Log.Debug("Redis client created successfully")

	// 4. Postgres db client
	pgDb, err := db_client.Open(cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDb)
	if err != nil {
		Log.Fatal("pg-open", zap.Error(err))
	}
	defer pgDb.Close()

	if err := db_client.EnsureSchema(ctx, pgDb); err != nil {
		Log.Fatal("pg-schema", zap.Error(err))
	}

	// 5. Services
	authService := auth.NewAuthService(pgDb, cfg.JwtSecret, time.Duration(cfg.JwtTTLHours)*time.Hour)
	chatService := chat.NewChatService(pgDb)

	// 6. Background: chat-message archiver (stream ➜ Postgres)
	syncmsg.Run(ctx, redisClient, pgDb)

	// 7. Room hub + playback state + sync engine
	hub := ws.NewHub()
	store := ws.NewStateStore()
	engine := ws.NewEngine(hub, store, redisClient)

	// 8. Initialize the WS server
	wsSrv := ws.NewWsServer(engine, authService)

	// 9. HTTP + WS server
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, wsSrv, authService, chatService)
	if err := httpServer.Start(); err != nil {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
}
