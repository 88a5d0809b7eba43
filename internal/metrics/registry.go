package metrics

import (
	"context"
	"errors"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	latencyBucketsMS = []float64{1, 5, 10, 50, 100, 500, 1000, 3000, 5000}
	slowBucketsMS    = []float64{10, 50, 100, 500, 1000, 5000, 10000, 30000}
	scoreBuckets     = []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0}
)

// Registry owns the OpenTelemetry instruments of both engines, the
// provider clients and the API
type Registry struct {
	RiskAssessmentDuration metric.Float64Histogram
	RiskScore              metric.Float64Histogram
	RiskRecommendations    metric.Int64Counter
	RiskFactorCounter      metric.Int64Counter

	KYCVerificationDuration metric.Float64Histogram
	KYCScore                metric.Float64Histogram
	KYCStatusCounter        metric.Int64Counter

	ProviderCallDuration   metric.Float64Histogram
	ProviderFailureCounter metric.Int64Counter

	DatabaseConnectionPool metric.Int64ObservableGauge
	CacheHitRate           metric.Float64ObservableGauge
	APIRequestDuration     metric.Float64Histogram
	APIRequestCounter      metric.Int64Counter

	dbPoolSize  atomic.Int64
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
}

// NewRegistry creates the instruments on the global meter provider
func NewRegistry(meterName string) (*Registry, error) {
	return newRegistry(otel.Meter(meterName))
}

// builder collects instrument errors so construction reads as a list
type builder struct {
	meter metric.Meter
	errs  []error
}

func (b *builder) histogram(name, desc, unit string, bounds []float64) metric.Float64Histogram {
	opts := []metric.Float64HistogramOption{metric.WithDescription(desc), metric.WithExplicitBucketBoundaries(bounds...)}
	if unit != "" {
		opts = append(opts, metric.WithUnit(unit))
	}
	h, err := b.meter.Float64Histogram(name, opts...)
	b.errs = append(b.errs, err)
	return h
}

func (b *builder) counter(name, desc string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc))
	b.errs = append(b.errs, err)
	return c
}

func newRegistry(meter metric.Meter) (*Registry, error) {
	r := &Registry{}
	b := &builder{meter: meter}

	r.RiskAssessmentDuration = b.histogram("ptd.risk.assessment_duration", "Duration of a risk assessment", "ms", latencyBucketsMS)
	r.RiskScore = b.histogram("ptd.risk.overall_score", "Aggregated risk score per assessment", "", scoreBuckets)
	r.RiskRecommendations = b.counter("ptd.risk.recommendation_total", "Risk assessments by recommendation")
	r.RiskFactorCounter = b.counter("ptd.risk.factor_total", "Risk factors emitted by type and severity")

	r.KYCVerificationDuration = b.histogram("ptd.kyc.verification_duration", "Duration of an identity verification", "ms", slowBucketsMS)
	r.KYCScore = b.histogram("ptd.kyc.score", "KYC checklist score per verification", "", scoreBuckets)
	r.KYCStatusCounter = b.counter("ptd.kyc.status_total", "Identity verifications by resulting status")

	r.ProviderCallDuration = b.histogram("ptd.provider.call_duration", "External verification provider latency", "ms", latencyBucketsMS)
	r.ProviderFailureCounter = b.counter("ptd.provider.failure_total", "Failed or timed out provider calls by capability")

	r.APIRequestDuration = b.histogram("ptd.api.request_duration", "API request duration", "ms", latencyBucketsMS)
	r.APIRequestCounter = b.counter("ptd.api.request_total", "API requests by route and status")

	var err error
	r.DatabaseConnectionPool, err = meter.Int64ObservableGauge("ptd.system.db_connection_pool_size",
		metric.WithDescription("Open connections in the database pool"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(r.dbPoolSize.Load())
			return nil
		}),
	)
	b.errs = append(b.errs, err)

	r.CacheHitRate, err = meter.Float64ObservableGauge("ptd.system.cache_hit_rate",
		metric.WithDescription("Share of latest-assessment reads served from cache"),
		metric.WithFloat64Callback(func(_ context.Context, o metric.Float64Observer) error {
			o.Observe(r.hitRate())
			return nil
		}),
	)
	b.errs = append(b.errs, err)

	if err := errors.Join(b.errs...); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) hitRate() float64 {
	hits, misses := r.cacheHits.Load(), r.cacheMisses.Load()
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}

// SetDBPoolSize is called by the database pool after each stats sweep
func (r *Registry) SetDBPoolSize(size int64) {
	r.dbPoolSize.Store(size)
}

func (r *Registry) RecordCacheLookup(hit bool) {
	if hit {
		r.cacheHits.Add(1)
		return
	}
	r.cacheMisses.Add(1)
}

// RecordRiskAssessment records one assessment. factors maps factor type to severity.
func (r *Registry) RecordRiskAssessment(ctx context.Context, durationMS, score float64, recommendation string, factors map[string]string) {
	rec := metric.WithAttributes(attribute.String("recommendation", recommendation))
	r.RiskAssessmentDuration.Record(ctx, durationMS, rec)
	r.RiskScore.Record(ctx, score, rec)
	r.RiskRecommendations.Add(ctx, 1, rec)

	for factorType, severity := range factors {
		r.RiskFactorCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("type", factorType),
			attribute.String("severity", severity),
		))
	}
}

func (r *Registry) RecordKYCVerification(ctx context.Context, durationMS, score float64, status string) {
	st := metric.WithAttributes(attribute.String("status", status))
	r.KYCVerificationDuration.Record(ctx, durationMS, st)
	r.KYCScore.Record(ctx, score, st)
	r.KYCStatusCounter.Add(ctx, 1, st)
}

// RecordProviderCall records latency for every call and counts failures
func (r *Registry) RecordProviderCall(ctx context.Context, durationMS float64, capability string, success bool) {
	capAttr := metric.WithAttributes(attribute.String("capability", capability))
	r.ProviderCallDuration.Record(ctx, durationMS, capAttr)
	if !success {
		r.ProviderFailureCounter.Add(ctx, 1, capAttr)
	}
}

// RecordAPIRequest takes the route pattern as path, never the raw URL
func (r *Registry) RecordAPIRequest(ctx context.Context, durationMS float64, method, path string, statusCode int) {
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status_code", statusCode),
	)
	r.APIRequestDuration.Record(ctx, durationMS, attrs)
	r.APIRequestCounter.Add(ctx, 1, attrs)
}
