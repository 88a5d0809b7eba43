package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// slidingWindow trims the window, counts it and admits the request in one
// round trip so concurrent API replicas cannot both take the last slot.
// Scores are microseconds since the epoch.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) >= limit then
	return 0
end

redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, math.ceil(window / 1000))
return 1
`)

// redisRateLimiter keeps one sorted set of request timestamps per caller
type redisRateLimiter struct {
	client *redis.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewRedisRateLimiter creates a new Redis-based rate limiter
func NewRedisRateLimiter(client *redis.Client, logger *zap.Logger) RateLimiter {
	return &redisRateLimiter{
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// Allow admits the request when fewer than limit requests were admitted for
// key during the last window
func (r *redisRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	res, err := slidingWindow.Run(ctx, r.client, []string{RateLimitPrefix + key},
		r.now().UnixMicro(),
		window.Microseconds(),
		limit,
		uuid.NewString(),
	).Int()
	if err != nil {
		r.logger.Error("rate limiter script failed",
			zap.String("key", key),
			zap.Int("limit", limit),
			zap.Duration("window", window),
			zap.Error(err))
		return false, fmt.Errorf("rate limiter script failed: %w", err)
	}

	if res == 0 {
		r.logger.Debug("rate limit exceeded",
			zap.String("key", key),
			zap.Int("limit", limit),
			zap.Duration("window", window))
		return false, nil
	}
	return true, nil
}

// Remaining counts the free slots left in key's current window without
// admitting anything
func (r *redisRateLimiter) Remaining(ctx context.Context, key string, limit int, window time.Duration) (int, error) {
	now := r.now()
	from := strconv.FormatInt(now.Add(-window).UnixMicro(), 10)

	used, err := r.client.ZCount(ctx, RateLimitPrefix+key, "("+from, "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("rate limiter count failed: %w", err)
	}

	return max(limit-int(used), 0), nil
}
