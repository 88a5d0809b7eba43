package providers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/davidleathers/p2p-trade-desk-backend/internal/infrastructure/cache"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/service/kyc"
)

var _ kyc.SanctionsListChecker = (*CachedSanctionsChecker)(nil)

const (
	sanctionsListed = "1"
	sanctionsClear  = "0"
)

// CachedSanctionsChecker memoises screening results per normalised name.
// Cache failures never fail a screening; the wrapped checker is asked instead.
type CachedSanctionsChecker struct {
	next   kyc.SanctionsListChecker
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedSanctionsChecker wraps next with a Redis backed cache
func NewCachedSanctionsChecker(next kyc.SanctionsListChecker, c cache.Cache, ttl time.Duration, logger *slog.Logger) *CachedSanctionsChecker {
	if ttl <= 0 {
		ttl = cache.SanctionsTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedSanctionsChecker{next: next, cache: c, ttl: ttl, logger: logger}
}

// Check returns the cached answer for fullName or screens it and caches the result.
// Provider errors are not cached.
func (c *CachedSanctionsChecker) Check(ctx context.Context, fullName string) (bool, error) {
	key := sanctionsKey(fullName)

	v, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		return v == sanctionsListed, nil
	case !cache.IsNotFound(err):
		c.logger.WarnContext(ctx, "sanctions cache read failed", "error", err)
	}

	listed, err := c.next.Check(ctx, fullName)
	if err != nil {
		return false, err
	}

	val := sanctionsClear
	if listed {
		val = sanctionsListed
	}
	if err := c.cache.Set(ctx, key, val, c.ttl); err != nil {
		c.logger.WarnContext(ctx, "sanctions cache write failed", "error", err)
	}
	return listed, nil
}

// sanctionsKey hashes the normalised name so raw names never reach the cache
func sanctionsKey(fullName string) string {
	normalised := strings.ToUpper(strings.Join(strings.Fields(fullName), " "))
	sum := sha256.Sum256([]byte(normalised))
	return cache.SanctionsPrefix + hex.EncodeToString(sum[:])
}
