package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/davidleathers/p2p-trade-desk-backend/internal/infrastructure/config"
)

// redisCache stores decision results and screening answers in Redis
type redisCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisCache dials Redis and returns a Cache over its own client
func NewRedisCache(cfg *config.RedisConfig, logger *zap.Logger) (Cache, error) {
	client, err := newClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	return newRedisCache(client, logger), nil
}

func newRedisCache(client *redis.Client, logger *zap.Logger) *redisCache {
	return &redisCache{client: client, logger: logger}
}

// clientOptions accepts either a redis:// URL or a bare host:port. Explicit
// config fields override what the URL carries.
func clientOptions(cfg *config.RedisConfig) (*redis.Options, error) {
	opts := &redis.Options{Addr: cfg.URL}
	if strings.HasPrefix(cfg.URL, "redis://") || strings.HasPrefix(cfg.URL, "rediss://") {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		opts = parsed
	}

	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.MaxRetries = cfg.MaxRetries
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	return opts, nil
}

// newClient dials Redis and verifies the connection
func newClient(cfg *config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("redis config is required")
	}

	opts, err := clientOptions(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	timeout := opts.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info("redis client initialized",
		zap.String("addr", opts.Addr),
		zap.Int("db", opts.DB),
		zap.Int("pool_size", opts.PoolSize))

	return client, nil
}

// fail logs a Redis error and wraps it with the operation name
func (r *redisCache) fail(op, key string, err error) error {
	r.logger.Error("redis "+op+" failed", zap.String("key", key), zap.Error(err))
	return fmt.Errorf("redis %s failed: %w", op, err)
}

func (r *redisCache) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", ErrCacheKeyNotFound{Key: key}
	case err != nil:
		return "", r.fail("get", key, err)
	}
	return v, nil
}

func (r *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return r.fail("set", key, err)
	}
	return nil
}

func (r *redisCache) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return r.fail("delete", key, err)
	}
	return nil
}

// GetJSON decodes the value at key into dest. A value that no longer
// decodes is reported as a miss so callers refill it.
func (r *redisCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return ErrCacheKeyNotFound{Key: key}
	case err != nil:
		return r.fail("get", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		r.logger.Warn("discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		return ErrCacheKeyNotFound{Key: key}
	}
	return nil
}

func (r *redisCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("json marshal failed for %s: %w", key, err)
	}
	return r.Set(ctx, key, data, ttl)
}

func (r *redisCache) Close() error {
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("redis close failed: %w", err)
	}
	r.logger.Info("redis cache connection closed")
	return nil
}
