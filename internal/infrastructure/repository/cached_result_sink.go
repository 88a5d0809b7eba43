package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/davidleathers/p2p-trade-desk-backend/internal/domain/risk"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/infrastructure/cache"
)

// AssessmentStore is the durable side of the assessment sink
type AssessmentStore interface {
	UpsertRiskAssessment(ctx context.Context, a *risk.Assessment) error
	GetRiskAssessment(ctx context.Context, orderID string) (*risk.Assessment, error)
}

// CacheObserver receives cache hit/miss observations
type CacheObserver interface {
	RecordCacheLookup(hit bool)
}

// CachedResultSink keeps the latest assessment per order in Redis in front
// of the durable store. Postgres stays the source of truth: a cache failure
// is logged and never fails the write or the read.
type CachedResultSink struct {
	store    AssessmentStore
	cache    cache.Cache
	ttl      time.Duration
	observer CacheObserver
	logger   *slog.Logger
}

// NewCachedResultSink wraps store with the assessment cache. A zero ttl uses cache.RiskAssessmentTTL.
func NewCachedResultSink(store AssessmentStore, c cache.Cache, ttl time.Duration, observer CacheObserver, logger *slog.Logger) *CachedResultSink {
	if ttl <= 0 {
		ttl = cache.RiskAssessmentTTL
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &CachedResultSink{
		store:    store,
		cache:    c,
		ttl:      ttl,
		observer: observer,
		logger:   logger.With("component", "assessment_cache"),
	}
}

// UpsertRiskAssessment writes through to the store and then refreshes the cache entry
func (s *CachedResultSink) UpsertRiskAssessment(ctx context.Context, a *risk.Assessment) error {
	if err := s.store.UpsertRiskAssessment(ctx, a); err != nil {
		return err
	}

	if err := s.cache.SetJSON(ctx, assessmentKey(a.OrderID), a, s.ttl); err != nil {
		s.logger.WarnContext(ctx, "failed to cache risk assessment",
			"order_id", a.OrderID,
			"error", err,
		)
	}

	return nil
}

// GetLatestAssessment serves the assessment from cache, falling back to the store
func (s *CachedResultSink) GetLatestAssessment(ctx context.Context, orderID string) (*risk.Assessment, error) {
	key := assessmentKey(orderID)

	var cached risk.Assessment
	err := s.cache.GetJSON(ctx, key, &cached)
	if err == nil {
		s.observe(true)
		return &cached, nil
	}
	if !cache.IsNotFound(err) {
		s.logger.WarnContext(ctx, "assessment cache read failed",
			"order_id", orderID,
			"error", err,
		)
	}
	s.observe(false)

	a, err := s.store.GetRiskAssessment(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetJSON(ctx, key, a, s.ttl); err != nil {
		s.logger.WarnContext(ctx, "failed to cache risk assessment",
			"order_id", orderID,
			"error", err,
		)
	}

	return a, nil
}

func (s *CachedResultSink) observe(hit bool) {
	if s.observer != nil {
		s.observer.RecordCacheLookup(hit)
	}
}

func assessmentKey(orderID string) string {
	return cache.RiskAssessmentPrefix + orderID
}
