package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// LimiterConfig bounds login attempts per account within a fixed window.
type LimiterConfig struct {
	KeyPrefix   string
	MaxAttempts int
	Window      time.Duration
}

// LoginLimiter counts attempts in Redis with INCR and a window-long TTL.
type LoginLimiter struct {
	client *redis.Client
	cfg    LimiterConfig
}

func NewLoginLimiter(client *redis.Client, cfg LimiterConfig) *LoginLimiter {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "login_attempts"
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	return &LoginLimiter{client: client, cfg: cfg}
}

// Allow records one attempt and reports whether it is within the limit.
func (l *LoginLimiter) Allow(ctx context.Context, identifier string) (bool, error) {
	key := l.key(identifier)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis incr: %w", err)
	}

	if count == 1 {
		if err := l.client.Expire(ctx, key, l.cfg.Window).Err(); err != nil {
			return false, fmt.Errorf("redis expire: %w", err)
		}
	}

	return count <= int64(l.cfg.MaxAttempts), nil
}

func (l *LoginLimiter) Reset(ctx context.Context, identifier string) error {
	if err := l.client.Del(ctx, l.key(identifier)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (l *LoginLimiter) key(identifier string) string {
	return fmt.Sprintf("%s:%s", l.cfg.KeyPrefix, strings.ToLower(strings.TrimSpace(identifier)))
}
