package cache

import (
	"io"

	"go.uber.org/zap"

	budgetapp "github.com/aicost/backend/internal/application/budget"
	"github.com/aicost/backend/internal/infrastructure/config"
)

// Components bundles the caching primitives the application consumes
type Components struct {
	StatsCache budgetapp.StatsCache
	RunLocker  budgetapp.RunLocker

	closers []io.Closer
}

// NewComponents builds the stats cache and run lock. When Redis is
// enabled and reachable both are Redis-backed and shared across
// instances; otherwise they fall back to in-memory implementations,
// which cannot coordinate a multi-instance deployment.
func NewComponents(cfg config.RedisConfig, logger *zap.Logger) *Components {
	if cfg.Enabled {
		client, err := NewRedisClient(cfg)
		if err == nil {
			logger.Info("using Redis cache", zap.String("addr", cfg.Addr()))
			return &Components{
				StatsCache: NewRedisStatsCache(client, logger),
				RunLocker:  NewRedisRunLock(client),
				closers:    []io.Closer{client},
			}
		}
		logger.Warn("Redis unavailable, falling back to in-memory cache and run lock. "+
			"Lifecycle runs will not be coordinated across instances.",
			zap.Error(err))
	}

	memory := NewInMemoryStatsCache()
	return &Components{
		StatsCache: memory,
		RunLocker:  NewInMemoryRunLock(),
		closers:    []io.Closer{memory},
	}
}

// Close releases the underlying clients
func (c *Components) Close() error {
	var firstErr error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ budgetapp.StatsCache = (*RedisStatsCache)(nil)
var _ budgetapp.StatsCache = (*InMemoryStatsCache)(nil)
var _ budgetapp.RunLocker = (*RedisRunLock)(nil)
var _ budgetapp.RunLocker = (*InMemoryRunLock)(nil)
