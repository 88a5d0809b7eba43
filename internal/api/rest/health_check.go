package rest

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// HealthChecker checks the health of a dependency
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckFunc adapts a ping function to HealthChecker
type CheckFunc struct {
	name string
	fn   func(ctx context.Context) error
}

// NewCheckFunc names a ping function
func NewCheckFunc(name string, fn func(ctx context.Context) error) CheckFunc {
	return CheckFunc{name: name, fn: fn}
}

func (c CheckFunc) Name() string                    { return c.name }
func (c CheckFunc) Check(ctx context.Context) error { return c.fn(ctx) }

// HealthStatus represents the health status
type HealthStatus string

const (
	HealthStatusPass HealthStatus = "pass"
	HealthStatusFail HealthStatus = "fail"
)

// HealthCheckResult represents the result of one dependency check
type HealthCheckResult struct {
	Status       HealthStatus `json:"status"`
	Error        string       `json:"error,omitempty"`
	ResponseTime string       `json:"response_time"`
}

// HealthResponse represents the overall health response
type HealthResponse struct {
	Status  HealthStatus                 `json:"status"`
	Version string                       `json:"version"`
	Uptime  string                       `json:"uptime"`
	Checks  map[string]HealthCheckResult `json:"checks,omitempty"`
}

// HealthService runs dependency checks concurrently
type HealthService struct {
	checkers  []HealthChecker
	timeout   time.Duration
	version   string
	tracer    trace.Tracer
	startTime time.Time
}

// NewHealthService creates a new health service
func NewHealthService(version string, timeout time.Duration, checkers ...HealthChecker) *HealthService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthService{
		checkers:  checkers,
		timeout:   timeout,
		version:   version,
		tracer:    otel.Tracer("api.rest.health"),
		startTime: time.Now(),
	}
}

// Check runs every checker and reports pass only when all of them pass
func (h *HealthService) Check(ctx context.Context) HealthResponse {
	ctx, span := h.tracer.Start(ctx, "health.check")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	results := make(map[string]HealthCheckResult, len(h.checkers))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, checker := range h.checkers {
		wg.Add(1)
		go func(c HealthChecker) {
			defer wg.Done()

			start := time.Now()
			res := HealthCheckResult{Status: HealthStatusPass}
			if err := c.Check(ctx); err != nil {
				res.Status = HealthStatusFail
				res.Error = err.Error()
			}
			res.ResponseTime = time.Since(start).String()

			mu.Lock()
			results[c.Name()] = res
			mu.Unlock()
		}(checker)
	}
	wg.Wait()

	status := HealthStatusPass
	names := make([]string, 0, len(results))
	for name, res := range results {
		names = append(names, name)
		if res.Status == HealthStatusFail {
			status = HealthStatusFail
		}
	}
	sort.Strings(names)

	span.SetAttributes(
		attribute.String("health.status", string(status)),
		attribute.StringSlice("health.checks", names),
	)

	return HealthResponse{
		Status:  status,
		Version: h.version,
		Uptime:  time.Since(h.startTime).Truncate(time.Second).String(),
		Checks:  results,
	}
}

// Handler serves the health report; failing checks answer 503
func (h *HealthService) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := h.Check(r.Context())

		status := http.StatusOK
		if resp.Status != HealthStatusPass {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, status, resp)
	}
}
