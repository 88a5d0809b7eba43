package rest

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/davidleathers/p2p-trade-desk-backend/internal/domain/risk"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/infrastructure/cache"
)

func setupLimiter(t *testing.T) (*miniredis.Miniredis, cache.RateLimiter) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	return mr, cache.NewRedisRateLimiter(client, zaptest.NewLogger(t))
}

func TestRateLimiterMiddleware(t *testing.T) {
	_, limiter := setupLimiter(t)
	rlm := NewRateLimiterMiddleware(limiter, RateLimitConfig{Requests: 2, Window: time.Minute}, discardLogger())

	calls := 0
	h := rlm.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(remoteAddr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remoteAddr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := send("203.0.113.9:5000")
	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusNoContent, send("203.0.113.9:5001").Code)

	denied := send("203.0.113.9:5002")
	assert.Equal(t, http.StatusTooManyRequests, denied.Code)
	assert.Equal(t, "60", denied.Header().Get("Retry-After"))
	assert.Equal(t, "0", denied.Header().Get("X-RateLimit-Remaining"))
	assert.Contains(t, denied.Body.String(), `"RATE_LIMIT_EXCEEDED"`)

	// a different caller has its own window
	assert.Equal(t, http.StatusNoContent, send("198.51.100.4:5000").Code)
	assert.Equal(t, 3, calls)
}

func TestRateLimiterMiddleware_FailsOpen(t *testing.T) {
	mr, limiter := setupLimiter(t)
	rlm := NewRateLimiterMiddleware(limiter, RateLimitConfig{Requests: 1, Window: time.Minute}, discardLogger())
	h := rlm.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	mr.Close()

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRouter_RateLimitsPerOperator(t *testing.T) {
	_, limiter := setupLimiter(t)
	router, svc := setupRouter(t, func(c *Config) {
		c.RateLimiter = limiter
		c.RateLimit = RateLimitConfig{Requests: 1, Window: 30 * time.Second}
	})
	svc.risk.On("AssessOrderRisk", mock.Anything, "ord-1").Return(&risk.Assessment{OrderID: "ord-1"}, nil).Once()

	token := operatorToken(t)
	rec, _ := doRequest(t, router, http.MethodPost, "/api/v1/orders/ord-1/risk-assessment", token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := doRequest(t, router, http.MethodPost, "/api/v1/orders/ord-1/risk-assessment", token)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	require.NotNil(t, env.Error)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", env.Error.Code)
	svc.risk.AssertExpectations(t)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded chain", headers: map[string]string{"X-Forwarded-For": "192.0.2.1, 10.0.0.1"}, remote: "10.0.0.2:80", want: "192.0.2.1"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "192.0.2.7"}, remote: "10.0.0.2:80", want: "192.0.2.7"},
		{name: "remote addr", remote: "192.0.2.9:4431", want: "192.0.2.9"},
		{name: "remote without port", remote: "192.0.2.9", want: "192.0.2.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}
