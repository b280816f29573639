package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces limiter keys in a shared Redis.
const DefaultKeyPrefix = "pricecheck:ratelimit:"

// Redis counts requests per key in Redis, so every instance behind a load
// balancer shares one window per client. When Redis is unreachable requests
// are allowed.
type Redis struct {
	client *redis.Client
	prefix string
	limit  int
	period time.Duration
	logger *slog.Logger
}

// NewRedis creates a Redis-backed limiter.
func NewRedis(client *redis.Client, prefix string, limit int, period time.Duration, logger *slog.Logger) *Redis {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Redis{
		client: client,
		prefix: prefix,
		limit:  limit,
		period: period,
		logger: logger,
	}
}

// Allow increments the counter of key and reports whether it is within limit.
// The first request of a window sets the expiry.
func (l *Redis) Allow(ctx context.Context, key string) bool {
	if l.limit <= 0 {
		return false
	}

	k := l.prefix + key

	pipe := l.client.Pipeline()
	incr := pipe.Incr(ctx, k)
	ttl := pipe.TTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Error("rate limit check failed", "key", k, "error", err)
		return true
	}

	// TTL is negative for a key without expiry.
	if ttl.Val() < 0 {
		if err := l.client.Expire(ctx, k, l.period).Err(); err != nil {
			l.logger.Error("rate limit expire failed", "key", k, "error", err)
		}
	}

	return incr.Val() <= int64(l.limit)
}
