package rest

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/davidleathers/p2p-trade-desk-backend/internal/infrastructure/cache"
)

// RateLimitConfig bounds requests per caller over a sliding window
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// RateLimiterMiddleware applies the Redis sliding-window limiter per
// operator, falling back to the client IP before authentication.
type RateLimiterMiddleware struct {
	limiter cache.RateLimiter
	config  RateLimitConfig
	logger  *slog.Logger
}

// NewRateLimiterMiddleware creates a new rate limiting middleware
func NewRateLimiterMiddleware(limiter cache.RateLimiter, config RateLimitConfig, logger *slog.Logger) *RateLimiterMiddleware {
	return &RateLimiterMiddleware{
		limiter: limiter,
		config:  config,
		logger:  logger,
	}
}

// Middleware returns the middleware function
func (rlm *RateLimiterMiddleware) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rlm.rateLimitKey(r)

			allowed, err := rlm.limiter.Allow(r.Context(), key, rlm.config.Requests, rlm.config.Window)
			if err != nil {
				// Redis trouble must not take the API down
				rlm.logger.WarnContext(r.Context(), "rate limiter unavailable", "key", key, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rlm.config.Requests))
			if !allowed {
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", strconv.Itoa(int(rlm.config.Window.Seconds())))
				writeErrorEnvelope(w, r, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Too many requests")
				return
			}

			if remaining, err := rlm.limiter.Remaining(r.Context(), key, rlm.config.Requests, rlm.config.Window); err == nil {
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (rlm *RateLimiterMiddleware) rateLimitKey(r *http.Request) string {
	if operatorID, ok := OperatorFromContext(r.Context()); ok {
		return "operator:" + operatorID
	}
	return "ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
