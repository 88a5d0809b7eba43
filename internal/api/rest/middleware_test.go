package rest

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := RequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestIDFromContext(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{name: "client id kept", header: "req-abc-123", keep: true},
		{name: "missing", header: ""},
		{name: "too long", header: strings.Repeat("a", maxRequestIDLen+1)},
		{name: "control characters", header: "req\x1b[31m"},
		{name: "spaces", header: "req 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("X-Request-ID", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
			if tt.keep {
				assert.Equal(t, tt.header, seen)
			} else {
				assert.NotEqual(t, tt.header, seen)
				assert.Len(t, seen, 36)
			}
		})
	}
}

func TestTracingMiddleware_NamesSpanAfterRoute(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	mux := http.NewServeMux()
	mux.Handle("GET /api/v1/orders/{orderID}/risk-assessment", TracingMiddleware(tp.Tracer("test"))(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders/ord-77/risk-assessment", nil))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /api/v1/orders/{orderID}/risk-assessment", spans[0].Name())
	assert.Equal(t, "Error", spans[0].Status().Code.String())
	assert.Equal(t, spans[0].SpanContext().TraceID().String(), rec.Header().Get("X-Trace-ID"))
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("panic becomes 500", func(t *testing.T) {
		h := RecoveryMiddleware(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("nil map")
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), `"INTERNAL_ERROR"`)
	})

	t.Run("abort handler is re-raised", func(t *testing.T) {
		h := RecoveryMiddleware(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic(http.ErrAbortHandler)
		}))
		assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		})
	})
}

func TestStatusRecorder(t *testing.T) {
	w := httptest.NewRecorder()
	rec := newStatusRecorder(w)

	rec.WriteHeader(http.StatusAccepted)
	rec.WriteHeader(http.StatusTeapot)
	_, err := rec.Write([]byte("hello"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusAccepted, rec.statusCode)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.EqualValues(t, 5, rec.bytesWritten)
	assert.Same(t, w, rec.Unwrap())
}
