package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/mikey/email-risk/internal/adapters/ratelimit"
	"github.com/mikey/email-risk/internal/config"
	"github.com/mikey/email-risk/internal/core"
	"go.uber.org/zap"
)

// RateLimitFactory creates per-client rate limiters based on configuration
type RateLimitFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewRateLimitFactory creates a new rate limit factory
func NewRateLimitFactory(cfg *config.Config, logger *zap.Logger) *RateLimitFactory {
	return &RateLimitFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateRateLimiter creates a rate limiter. The "none" type disables
// limiting and yields a nil limiter.
func (f *RateLimitFactory) CreateRateLimiter() (core.RateLimiter, error) {
	rateCfg, err := f.cfg.GetRateLimit()
	if err != nil {
		return nil, err
	}
	limiterCfg := ratelimit.Config{
		Window:          rateCfg.Window,
		MaxRequests:     rateCfg.MaxRequests,
		CleanupInterval: rateCfg.CleanupFrequency,
	}

	switch rateCfg.Type {
	case "none":
		f.logger.Warn("Rate limiting disabled")
		return nil, nil
	case "memory":
		return ratelimit.NewMemoryLimiter(limiterCfg, f.logger), nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: rateCfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return ratelimit.NewRedisLimiter(client, limiterCfg, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported rate limit type: %s", rateCfg.Type)
	}
}
