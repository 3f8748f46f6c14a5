package ratelimit

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/mikey/email-risk/internal/core"
	"go.uber.org/zap"
)

const redisKeyPrefix = "email-risk:ratelimit:"

// RedisLimiter shares fixed windows between instances through Redis counters.
// When Redis is unavailable requests are allowed.
type RedisLimiter struct {
	client *redis.Client
	cfg    Config
	logger *zap.Logger
}

// NewRedisLimiter creates a limiter over an existing client
func NewRedisLimiter(client *redis.Client, cfg Config, logger *zap.Logger) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		cfg:    cfg.withDefaults(),
		logger: logger,
	}
}

// Allow counts a request for the client and reports whether it may proceed
func (l *RedisLimiter) Allow(ctx context.Context, clientID string) core.RateDecision {
	key := redisKeyPrefix + clientID

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		l.logger.Warn("Rate limiter unavailable, allowing request", zap.String("client", clientID), zap.Error(err))
		return core.RateDecision{
			Allowed:   true,
			Limit:     l.cfg.MaxRequests,
			Remaining: l.cfg.MaxRequests - 1,
			ResetIn:   l.cfg.Window,
		}
	}
	if count == 1 {
		if err := l.client.PExpire(ctx, key, l.cfg.Window).Err(); err != nil {
			l.logger.Warn("Failed to set rate limit window", zap.String("client", clientID), zap.Error(err))
		}
	}

	ttl, err := l.client.PTTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		// a key without expiry would never reset
		ttl = l.cfg.Window
		l.client.PExpire(ctx, key, ttl)
	}

	if count > int64(l.cfg.MaxRequests) {
		return core.RateDecision{
			Allowed:   false,
			Limit:     l.cfg.MaxRequests,
			Remaining: 0,
			ResetIn:   ttl,
		}
	}
	return core.RateDecision{
		Allowed:   true,
		Limit:     l.cfg.MaxRequests,
		Remaining: l.cfg.MaxRequests - int(count),
		ResetIn:   ttl,
	}
}

// Stop closes the Redis client
func (l *RedisLimiter) Stop() {
	if err := l.client.Close(); err != nil {
		l.logger.Error("Failed to close Redis client", zap.Error(err))
	}
}
