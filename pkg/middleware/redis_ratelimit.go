package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/platinummonkey/noticias/pkg/config"
)

// RedisRateLimiter is a fixed window limiter shared by every instance
// pointing at the same Redis
type RedisRateLimiter struct {
	client *redis.Client
	cfg    config.RateLimitConfig
	prefix string
}

// NewRedisRateLimiter creates a Redis backed limiter. Keys are stored as
// prefix:key.
func NewRedisRateLimiter(client *redis.Client, cfg config.RateLimitConfig, prefix string) *RedisRateLimiter {
	if cfg.RequestsPerWindow <= 0 {
		cfg.RequestsPerWindow = config.Default().RateLimit.RequestsPerWindow
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisRateLimiter{
		client: client,
		cfg:    cfg,
		prefix: prefix,
	}
}

func (rl *RedisRateLimiter) key(key string) string {
	return fmt.Sprintf("%s:%s", rl.prefix, key)
}

// Limit returns the configured requests per window
func (rl *RedisRateLimiter) Limit() int { return rl.cfg.RequestsPerWindow }

// Window returns the configured window
func (rl *RedisRateLimiter) Window() time.Duration { return rl.cfg.Window }

// Allow counts one request in the current window. On Redis errors the
// request is allowed and the error returned.
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := rl.key(key)

	pipe := rl.client.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("redis error: %w", err)
	}

	// a negative TTL means the window was just opened
	if ttl.Val() < 0 {
		if err := rl.client.Expire(ctx, redisKey, rl.cfg.Window).Err(); err != nil {
			return true, fmt.Errorf("redis error: %w", err)
		}
	}

	return incr.Val() <= int64(rl.cfg.RequestsPerWindow+rl.cfg.Burst), nil
}

// Remaining returns the requests left in key's window
func (rl *RedisRateLimiter) Remaining(ctx context.Context, key string) (int, error) {
	count, err := rl.client.Get(ctx, rl.key(key)).Int()
	if err == redis.Nil {
		return rl.cfg.RequestsPerWindow + rl.cfg.Burst, nil
	} else if err != nil {
		return 0, err
	}

	remaining := rl.cfg.RequestsPerWindow + rl.cfg.Burst - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Reset clears key's window
func (rl *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	return rl.client.Del(ctx, rl.key(key)).Err()
}
