package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aicost/backend/internal/infrastructure/config"
)

// NewRedisClient connects a Redis client and verifies the connection
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisStatsCache caches serialized stats payloads in Redis so that
// multiple instances share a warm cache.
type RedisStatsCache struct {
	client    *redis.Client
	keyPrefix string
	logger    *zap.Logger
}

// NewRedisStatsCache creates a stats cache backed by an existing client
func NewRedisStatsCache(client *redis.Client, logger *zap.Logger) *RedisStatsCache {
	return &RedisStatsCache{
		client:    client,
		keyPrefix: "aicost:",
		logger:    logger,
	}
}

// Get returns the cached payload, or false on a miss.
// Redis errors degrade to a miss so callers recompute instead of failing.
func (c *RedisStatsCache) Get(ctx context.Context, key string) ([]byte, bool) {
	raw, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("stats cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return raw, true
}

// Set stores the payload with a TTL
func (c *RedisStatsCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, c.keyPrefix+key, value, ttl).Err(); err != nil {
		c.logger.Warn("stats cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes the cached payload
func (c *RedisStatsCache) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, c.keyPrefix+key).Err(); err != nil {
		c.logger.Warn("stats cache delete failed", zap.String("key", key), zap.Error(err))
	}
}

// RedisRunLock serializes lifecycle runs across instances with SETNX
type RedisRunLock struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisRunLock creates a distributed run lock backed by an existing client
func NewRedisRunLock(client *redis.Client) *RedisRunLock {
	return &RedisRunLock{
		client:    client,
		keyPrefix: "aicost:lock:",
	}
}

// Acquire takes the lock atomically. Returns false when another instance
// holds it. The TTL bounds how long a crashed holder blocks others.
func (l *RedisRunLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.keyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	return ok, nil
}

// Release frees the lock
func (l *RedisRunLock) Release(ctx context.Context, key string) {
	_ = l.client.Del(ctx, l.keyPrefix+key).Err()
}
