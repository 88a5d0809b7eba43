package main

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/davidleathers/p2p-trade-desk-backend/internal/infrastructure/cache"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/metrics"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/service/kyc/providers"
)

// Metric definitions scraped from /metrics. Engine metrics go through the
// OpenTelemetry registry; these cover the HTTP surface and live pool state.

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ptd",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "handler", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ptd",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~32s
		},
		[]string{"method", "handler"},
	)
)

// MetricsHandler returns the Prometheus metrics handler
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// apiMetrics feeds every API observation to both the OpenTelemetry
// registry and the Prometheus collectors
type apiMetrics struct {
	registry *metrics.Registry
}

func (m apiMetrics) RecordAPIRequest(ctx context.Context, durationMS float64, method, path string, statusCode int) {
	if m.registry != nil {
		m.registry.RecordAPIRequest(ctx, durationMS, method, path, statusCode)
	}

	httpRequestsTotal.WithLabelValues(method, path, statusCodeClass(statusCode)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(durationMS / 1000)
}

// statusCodeClass returns the status code class (2xx, 3xx, 4xx, 5xx)
func statusCodeClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return strconv.Itoa(code)
	}
}

// registerRedisPoolMetrics exposes the shared Redis client pool
func registerRedisPoolMetrics(cm *cache.CacheManager) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "ptd",
		Subsystem: "redis",
		Name:      "total_conns",
		Help:      "Connections currently held by the Redis pool",
	}, func() float64 {
		if stats := cm.PoolStats(); stats != nil {
			return float64(stats.TotalConns)
		}
		return 0
	})

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "ptd",
		Subsystem: "redis",
		Name:      "idle_conns",
		Help:      "Idle connections in the Redis pool",
	}, func() float64 {
		if stats := cm.PoolStats(); stats != nil {
			return float64(stats.IdleConns)
		}
		return 0
	})
}

// registerCircuitMetrics exposes each verification provider's breaker state
// as 0 (closed), 1 (open) or 2 (half-open)
func registerCircuitMetrics(ps []*providers.HTTPProvider) {
	for _, p := range ps {
		promauto.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   "ptd",
			Subsystem:   "kyc_provider",
			Name:        "circuit_state",
			Help:        "Circuit breaker state of a verification provider",
			ConstLabels: prometheus.Labels{"provider": p.Name()},
		}, func() float64 {
			return float64(p.CircuitState())
		})
	}
}
