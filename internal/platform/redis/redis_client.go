package redis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"stock_realtime/internal/platform/env"
)

// ErrNotConfigured は REDIS_HOST が未設定の場合に返されます。
var ErrNotConfigured = errors.New("redis: REDIS_HOST is not set")

// Config holds the Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// LoadConfig は環境変数からRedis設定を読み込みます。REDIS_HOST が空なら Addr も空になります。
func LoadConfig() Config {
	host := env.String("REDIS_HOST", "")
	addr := ""
	if host != "" {
		addr = host + ":" + env.String("REDIS_PORT", "6379")
	}
	return Config{
		Addr:     addr,
		Password: env.String("REDIS_PASSWORD", ""),
		DB:       env.Int("REDIS_DB", 0),
	}
}

// NewRedisClient connects and pings. Callers treat an error as "run without cache".
func NewRedisClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, ErrNotConfigured
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 接続確認
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		slog.Error("Redis connection failed", "address", cfg.Addr, "error", err)
		_ = rdb.Close()
		return nil, err
	}

	slog.Info("Redis connection successful", "address", cfg.Addr)
	return rdb, nil
}
