package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/davidleathers/p2p-trade-desk-backend/internal/infrastructure/config"
)

func testRedisConfig(addr string) *config.RedisConfig {
	return &config.RedisConfig{
		URL:          addr,
		PoolSize:     5,
		MinIdleConns: 1,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

func setupTestRedis(t *testing.T) (*redisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	c, err := NewRedisCache(testRedisConfig(mr.Addr()), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c.(*redisCache), mr
}

func TestNewRedisCache(t *testing.T) {
	t.Run("successful creation", func(t *testing.T) {
		c, _ := setupTestRedis(t)
		assert.NotNil(t, c.client)
		assert.NotNil(t, c.logger)
	})

	t.Run("nil logger", func(t *testing.T) {
		_, err := NewRedisCache(&config.RedisConfig{URL: "localhost:6379"}, nil)
		assert.ErrorContains(t, err, "logger is required")
	})

	t.Run("nil config", func(t *testing.T) {
		_, err := NewRedisCache(nil, zaptest.NewLogger(t))
		assert.ErrorContains(t, err, "redis config is required")
	})

	t.Run("connection failure", func(t *testing.T) {
		cfg := &config.RedisConfig{
			URL:         "localhost:9999",
			DialTimeout: 100 * time.Millisecond,
		}
		_, err := NewRedisCache(cfg, zaptest.NewLogger(t))
		assert.ErrorContains(t, err, "redis connection failed")
	})
}

func TestRedisCache_BasicOperations(t *testing.T) {
	c, _ := setupTestRedis(t)
	ctx := context.Background()

	t.Run("Set and Get", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "test:key", "value", time.Hour))

		v, err := c.Get(ctx, "test:key")
		require.NoError(t, err)
		assert.Equal(t, "value", v)
	})

	t.Run("Get non-existent key", func(t *testing.T) {
		_, err := c.Get(ctx, "test:missing")
		assert.True(t, IsNotFound(err))

		var notFound ErrCacheKeyNotFound
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "test:missing", notFound.Key)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "test:delete", "value", time.Hour))
		require.NoError(t, c.Delete(ctx, "test:delete"))

		_, err := c.Get(ctx, "test:delete")
		assert.True(t, IsNotFound(err))
	})

	t.Run("Delete non-existent key", func(t *testing.T) {
		assert.NoError(t, c.Delete(ctx, "test:never"))
	})
}

func TestRedisCache_JSONOperations(t *testing.T) {
	c, _ := setupTestRedis(t)
	ctx := context.Background()

	type snapshot struct {
		OrderID string   `json:"order_id"`
		Score   float64  `json:"score"`
		Notes   []string `json:"notes"`
	}

	t.Run("SetJSON and GetJSON", func(t *testing.T) {
		original := snapshot{OrderID: "ord-1", Score: 0.42, Notes: []string{"a", "b"}}
		require.NoError(t, c.SetJSON(ctx, "test:json", original, time.Hour))

		var result snapshot
		require.NoError(t, c.GetJSON(ctx, "test:json", &result))
		assert.Equal(t, original, result)
	})

	t.Run("GetJSON with invalid JSON is a miss", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "test:invalid_json", "invalid json", time.Hour))

		var result snapshot
		err := c.GetJSON(ctx, "test:invalid_json", &result)
		assert.True(t, IsNotFound(err))
	})

	t.Run("GetJSON miss", func(t *testing.T) {
		var result snapshot
		assert.True(t, IsNotFound(c.GetJSON(ctx, "test:json_missing", &result)))
	})

	t.Run("SetJSON with unmarshalable value", func(t *testing.T) {
		err := c.SetJSON(ctx, "test:bad", map[string]interface{}{"ch": make(chan int)}, time.Hour)
		assert.ErrorContains(t, err, "json marshal failed")
	})
}

func TestRedisCache_TTL(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	t.Run("key expires after TTL", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "test:ttl", "expires_soon", time.Second))

		_, err := c.Get(ctx, "test:ttl")
		require.NoError(t, err)

		mr.FastForward(1100 * time.Millisecond)

		_, err = c.Get(ctx, "test:ttl")
		assert.True(t, IsNotFound(err))
	})

	t.Run("no TTL means no expiration", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "test:no_ttl", "never_expires", 0))

		mr.FastForward(time.Hour)

		v, err := c.Get(ctx, "test:no_ttl")
		require.NoError(t, err)
		assert.Equal(t, "never_expires", v)
	})
}

func TestRedisCache_ServerDown(t *testing.T) {
	c, mr := setupTestRedis(t)
	mr.Close()

	_, err := c.Get(context.Background(), "test:key")
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
	assert.ErrorContains(t, err, "redis get failed")
}

func TestClientOptions(t *testing.T) {
	t.Run("bare address", func(t *testing.T) {
		opts, err := clientOptions(&config.RedisConfig{URL: "cache:6379", DB: 2, PoolSize: 7})
		require.NoError(t, err)
		assert.Equal(t, "cache:6379", opts.Addr)
		assert.Equal(t, 2, opts.DB)
		assert.Equal(t, 7, opts.PoolSize)
	})

	t.Run("redis url", func(t *testing.T) {
		opts, err := clientOptions(&config.RedisConfig{URL: "redis://:s3cret@cache:6380/3"})
		require.NoError(t, err)
		assert.Equal(t, "cache:6380", opts.Addr)
		assert.Equal(t, "s3cret", opts.Password)
		assert.Equal(t, 3, opts.DB)
	})

	t.Run("explicit fields win over the url", func(t *testing.T) {
		opts, err := clientOptions(&config.RedisConfig{URL: "redis://cache:6380/3", Password: "override", DB: 5})
		require.NoError(t, err)
		assert.Equal(t, "override", opts.Password)
		assert.Equal(t, 5, opts.DB)
	})

	t.Run("malformed url", func(t *testing.T) {
		_, err := clientOptions(&config.RedisConfig{URL: "redis://cache:6380/not-a-db"})
		assert.ErrorContains(t, err, "invalid redis url")
	})
}
