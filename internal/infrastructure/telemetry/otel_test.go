package telemetry

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitializeOpenTelemetry_Disabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false

	p, err := InitializeOpenTelemetry(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, p.TracerProvider)
	assert.NotNil(t, p.MeterProvider)
	assert.NoError(t, p.Shutdown(context.Background()))

	_, span := Tracer("test").Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
}

func TestRecordError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	RecordError(span, nil)
	RecordError(span, errors.New("boom"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "boom", spans[0].Status().Description)
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{rate: 1, want: "ParentBased{root:AlwaysOnSampler"},
		{rate: 0, want: "ParentBased{root:AlwaysOffSampler"},
		{rate: 0.25, want: "ParentBased{root:TraceIDRatioBased{0.25}"},
	}

	for _, tt := range tests {
		assert.True(t, strings.HasPrefix(newSampler(tt.rate).Description(), tt.want), newSampler(tt.rate).Description())
	}
}

func TestProvider_ShutdownJoinsErrors(t *testing.T) {
	p := &Provider{shutdown: []func(context.Context) error{
		func(context.Context) error { return errors.New("traces") },
		func(context.Context) error { return nil },
		func(context.Context) error { return errors.New("metrics") },
	}}

	err := p.Shutdown(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "traces")
	assert.Contains(t, err.Error(), "metrics")
}
