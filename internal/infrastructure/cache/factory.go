package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/davidleathers/p2p-trade-desk-backend/internal/infrastructure/config"
)

const healthCheckKey = "ptd:health_check"

// CacheManager shares one redis client between the assessment cache, the
// sanctions cache and the API rate limiter
type CacheManager struct {
	Cache       Cache
	RateLimiter RateLimiter

	client *redis.Client
	logger *zap.Logger
}

func NewCacheManager(cfg *config.RedisConfig, logger *zap.Logger) (*CacheManager, error) {
	client, err := newClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	// the URL form may carry credentials, so log the resolved address
	logger.Info("cache manager initialized",
		zap.String("addr", client.Options().Addr),
		zap.Int("db", client.Options().DB),
		zap.Int("pool_size", client.Options().PoolSize))

	return &CacheManager{
		Cache:       newRedisCache(client, logger),
		RateLimiter: NewRedisRateLimiter(client, logger),
		client:      client,
		logger:      logger,
	}, nil
}

func (cm *CacheManager) Close() error {
	if err := cm.Cache.Close(); err != nil {
		return fmt.Errorf("close redis client: %w", err)
	}
	cm.logger.Info("cache manager closed")
	return nil
}

// HealthCheck round-trips a short-lived key, which also catches a replica
// that answers PING but refuses writes
func (cm *CacheManager) HealthCheck(ctx context.Context) error {
	pipe := cm.client.TxPipeline()
	pipe.Set(ctx, healthCheckKey, time.Now().UnixNano(), 10*time.Second)
	pipe.Del(ctx, healthCheckKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis health check: %w", err)
	}
	return nil
}

// PoolStats exposes the client pool counters to the metrics exporter
func (cm *CacheManager) PoolStats() *redis.PoolStats {
	return cm.client.PoolStats()
}
