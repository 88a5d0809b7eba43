package cache

import (
	"context"
	"errors"
	"time"
)

// Cache is a string and JSON key/value store with per-key TTL. A zero
// TTL stores without expiry. Misses surface as ErrCacheKeyNotFound.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// GetJSON decodes into dest; a value that no longer decodes is a miss
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error

	Close() error
}

// RateLimiter counts requests per key over a sliding window
type RateLimiter interface {
	// Allow takes a slot when one is free; denied calls take none
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Remaining(ctx context.Context, key string, limit int, window time.Duration) (int, error)
}

const (
	RiskAssessmentPrefix = "ptd:risk:"
	SanctionsPrefix      = "ptd:sanctions:"
	RateLimitPrefix      = "ptd:ratelimit:"

	// RiskAssessmentTTL keeps the latest assessment for a day of operator lookups
	RiskAssessmentTTL = 24 * time.Hour
	// SanctionsTTL bounds how stale a cached screening result may get
	SanctionsTTL = 6 * time.Hour
)

// ErrCacheKeyNotFound reports a miss for Key
type ErrCacheKeyNotFound struct {
	Key string
}

func (e ErrCacheKeyNotFound) Error() string {
	return "cache miss: " + e.Key
}

// IsNotFound reports whether err, or anything it wraps, is a miss
func IsNotFound(err error) bool {
	var miss ErrCacheKeyNotFound
	return errors.As(err, &miss)
}
