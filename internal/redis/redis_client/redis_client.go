package redis_client

import (
	"context"
	"fmt"
	"net"
	"runtime"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient opens a pooled client and verifies the connection
// before anything else gets wired to it.
func NewRedisClient(host string, port int) (*redis.Client, error) {
	rc := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		PoolSize: min(runtime.NumCPU()*8, 512),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		zap.L().Error("redis_connect", zap.Error(err))
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return rc, nil
}
