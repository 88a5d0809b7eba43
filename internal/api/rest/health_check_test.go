package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthService_Handler(t *testing.T) {
	ok := NewCheckFunc("database", func(context.Context) error { return nil })
	down := NewCheckFunc("redis", func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name       string
		checkers   []HealthChecker
		wantStatus int
		want       HealthStatus
	}{
		{name: "all pass", checkers: []HealthChecker{ok}, wantStatus: http.StatusOK, want: HealthStatusPass},
		{name: "one failing", checkers: []HealthChecker{ok, down}, wantStatus: http.StatusServiceUnavailable, want: HealthStatusFail},
		{name: "no checkers", wantStatus: http.StatusOK, want: HealthStatusPass},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewHealthService("1.2.3", time.Second, tt.checkers...)

			rec := httptest.NewRecorder()
			svc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

			var resp HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.want, resp.Status)
			assert.Equal(t, "1.2.3", resp.Version)
			assert.Len(t, resp.Checks, len(tt.checkers))
		})
	}
}

func TestHealthService_CheckReportsErrors(t *testing.T) {
	svc := NewHealthService("dev", time.Second,
		NewCheckFunc("redis", func(context.Context) error { return errors.New("connection refused") }),
	)

	resp := svc.Check(context.Background())

	require.Contains(t, resp.Checks, "redis")
	assert.Equal(t, HealthStatusFail, resp.Checks["redis"].Status)
	assert.Equal(t, "connection refused", resp.Checks["redis"].Error)
}

func TestHealthService_CheckTimesOut(t *testing.T) {
	slow := NewCheckFunc("database", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	svc := NewHealthService("dev", 20*time.Millisecond, slow)

	resp := svc.Check(context.Background())

	assert.Equal(t, HealthStatusFail, resp.Status)
	assert.Contains(t, resp.Checks["database"].Error, "deadline exceeded")
}

func TestRouter_HealthIsPublic(t *testing.T) {
	router, _ := setupRouter(t, func(c *Config) {
		c.Health = NewHealthService("dev", time.Second)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
