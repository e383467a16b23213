package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	// Allow reports whether the request is allowed, how many requests remain
	// in the current window, and how long until the window resets.
	Allow(ctx context.Context, key string) (allowed bool, remaining int, retryAfter time.Duration, err error)
}

// RedisLimiter is a fixed window counter stored in Redis.
type RedisLimiter struct {
	client redis.Cmdable
	prefix string
	limit  int
	window time.Duration
}

// NewRedisLimiter allows limit requests per key in every window.
func NewRedisLimiter(client redis.Cmdable, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: prefix,
		limit:  limit,
		window: window,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, int, time.Duration, error) {
	redisKey := l.prefix + ":" + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, 0, 0, err
	}

	// First hit in the window starts the clock.
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return false, 0, 0, err
		}
	}

	remaining := l.limit - int(count)
	if remaining >= 0 {
		return true, remaining, 0, nil
	}

	ttl, err := l.client.TTL(ctx, redisKey).Result()
	if err != nil {
		return false, 0, 0, err
	}
	if ttl < 0 {
		// Key lost its expiry; reset it so the client is not blocked forever.
		_ = l.client.Expire(ctx, redisKey, l.window).Err()
		ttl = l.window
	}

	return false, 0, ttl, nil
}
