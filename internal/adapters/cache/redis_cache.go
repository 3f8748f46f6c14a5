package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/mikey/email-risk/internal/core"
	"go.uber.org/zap"
)

const redisKeyPrefix = "email-risk:verdict:"

// RedisCache stores verdicts in Redis and lets Redis expire them
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisCache creates a Redis backed cache and verifies the connection
func NewRedisCache(ctx context.Context, opts *redis.Options, logger *zap.Logger) (*RedisCache, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisCache{client: client, logger: logger}, nil
}

// Get retrieves the cached verdict for a domain
func (c *RedisCache) Get(ctx context.Context, domain string) (*core.CacheEntry, error) {
	payload, err := c.client.Get(ctx, redisKeyPrefix+domain).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	verdict, err := decodeVerdict(payload)
	if err != nil {
		return nil, err
	}

	entry := &core.CacheEntry{Domain: domain, Verdict: verdict, WrittenAt: verdict.EvaluatedAt}
	ttl, err := c.client.PTTL(ctx, redisKeyPrefix+domain).Result()
	if err != nil || ttl <= 0 {
		return nil, ErrExpired
	}
	entry.ExpiresAt = time.Now().Add(ttl)
	return entry, nil
}

// Set stores a cache entry with the remaining lifetime as its Redis TTL
func (c *RedisCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	payload, err := encodeVerdict(entry.Verdict)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, redisKeyPrefix+entry.Domain, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	return nil
}

// Delete removes a cache entry
func (c *RedisCache) Delete(ctx context.Context, domain string) error {
	if err := c.client.Del(ctx, redisKeyPrefix+domain).Err(); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Cleanup is a no-op, Redis expires keys itself
func (c *RedisCache) Cleanup(ctx context.Context) error {
	return nil
}

// Stop closes the Redis client
func (c *RedisCache) Stop() {
	if err := c.client.Close(); err != nil {
		c.logger.Error("Failed to close Redis client", zap.Error(err))
	}
}
