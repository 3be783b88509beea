// Package ratelimit provides a Redis-backed fixed-window limiter for
// the abuse-prone endpoints (chat relay, passcode requests).
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"battsim/internal/config"
)

// Limiter counts requests per key in fixed windows. When Redis is
// unreachable it fails open: a broken limiter must not take the
// service down with it.
type Limiter struct {
	client  *redis.Client
	enabled bool
	logger  *zap.Logger
}

// NewLimiter creates a limiter from config
func NewLimiter(cfg config.RedisConfig, enabled bool, logger *zap.Logger) *Limiter {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.Database,
		PoolSize: cfg.PoolSize,
	})
	return &Limiter{client: client, enabled: enabled, logger: logger}
}

// Allow reports whether the caller identified by key may proceed,
// permitting at most limit requests per window.
func (l *Limiter) Allow(ctx context.Context, key string, limit int, window time.Duration) bool {
	if !l.enabled || limit <= 0 {
		return true
	}

	bucket := time.Now().Unix() / int64(window.Seconds())
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, bucket)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		l.logger.Warn("rate limiter unavailable, allowing request", zap.Error(err))
		return true
	}
	if count == 1 {
		l.client.Expire(ctx, redisKey, window)
	}
	return count <= int64(limit)
}

// Close releases the Redis connection
func (l *Limiter) Close() error {
	return l.client.Close()
}
