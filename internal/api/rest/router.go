package rest

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/davidleathers/p2p-trade-desk-backend/internal/infrastructure/cache"
)

// Config holds API configuration
type Config struct {
	Version string
	Logger  *slog.Logger

	Auth AuthConfig

	// RateLimiter is optional; nil disables rate limiting
	RateLimiter cache.RateLimiter
	RateLimit   RateLimitConfig

	// Metrics records per-route request metrics; MetricsHandler serves /metrics
	Metrics        APIMetrics
	MetricsHandler http.Handler

	Health *HealthService

	// EngineTimeout bounds a single assessment or verification request
	EngineTimeout time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Version:       "v1",
		Logger:        slog.Default(),
		RateLimit:     RateLimitConfig{Requests: 120, Window: time.Minute},
		EngineTimeout: 30 * time.Second,
	}
}

// NewRouter wires the order decision endpoints behind operator auth
func NewRouter(config *Config, services Services) http.Handler {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	mux := http.NewServeMux()

	base := NewBaseHandler(config.Version, config.Metrics, config.Logger)
	handlers := NewHandlers(base, services, config.Logger)

	chain := NewMiddlewareChain(
		SecurityHeadersMiddleware(),
		RequestIDMiddleware(),
		TracingMiddleware(otel.Tracer("api.rest")),
		RequestLoggingMiddleware(config.Logger),
	)

	auth := NewAuthMiddleware(config.Auth)
	apiChain := chain.Append(auth.Middleware())
	if config.RateLimiter != nil {
		limiter := NewRateLimiterMiddleware(config.RateLimiter, config.RateLimit, config.Logger)
		apiChain = apiChain.Append(limiter.Middleware())
	}

	timeout := WithTimeout(config.EngineTimeout)

	mux.Handle("POST /api/v1/orders/{orderID}/risk-assessment", apiChain.Then(
		handlers.WrapHandler("POST", "/api/v1/orders/{orderID}/risk-assessment", handlers.handleAssessRisk, timeout),
	))
	mux.Handle("GET /api/v1/orders/{orderID}/risk-assessment", apiChain.Then(
		handlers.WrapHandler("GET", "/api/v1/orders/{orderID}/risk-assessment", handlers.handleGetRiskAssessment),
	))
	mux.Handle("POST /api/v1/orders/{orderID}/kyc-verification", apiChain.Then(
		handlers.WrapHandler("POST", "/api/v1/orders/{orderID}/kyc-verification", handlers.handleVerifyIdentity, timeout),
	))

	if config.Health != nil {
		mux.Handle("GET /health", chain.Then(config.Health.Handler()))
	}
	if config.MetricsHandler != nil {
		mux.Handle("GET /metrics", config.MetricsHandler)
	}

	return RecoveryMiddleware(config.Logger)(mux)
}
