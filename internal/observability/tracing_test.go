package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
	"go.opentelemetry.io/otel/trace"
)

func TestNewTracer_Disabled(t *testing.T) {
	t.Parallel()

	tracer, err := NewTracer(TracerConfig{Enabled: false})
	require.NoError(t, err)

	assert.False(t, tracer.Enabled())
	ctx, span := tracer.StartSpan(context.Background(), "noop")
	span.End()
	assert.NotNil(t, ctx)
	assert.NoError(t, tracer.Shutdown(context.Background()))
}

func TestNewTracer_EnabledWithoutExporter(t *testing.T) {
	// Not parallel: installs the global tracer provider.
	tracer, err := NewTracer(TracerConfig{ServiceName: "pap-test", Enabled: true, SamplingRate: 1})
	require.NoError(t, err)
	defer func() { _ = tracer.Shutdown(context.Background()) }()

	ctx, span := tracer.StartSpan(context.Background(), "op")
	defer span.End()

	assert.True(t, trace.SpanContextFromContext(ctx).IsValid())
}

func TestNewResource_MergesWithSDKDefault(t *testing.T) {
	t.Parallel()

	// Act
	res, err := newResource("pap-test")

	// Assert
	require.NoError(t, err)
	value, ok := res.Set().Value(semconv.ServiceNameKey)
	require.True(t, ok)
	assert.Equal(t, "pap-test", value.AsString())
}

func TestCreateSampler(t *testing.T) {
	t.Parallel()

	assert.Contains(t, createSampler(1).Description(), "AlwaysOn")
	assert.Contains(t, createSampler(0).Description(), "AlwaysOff")
	assert.Contains(t, createSampler(0.5).Description(), "TraceIDRatioBased")
}

func TestInjectAndExtractTraceContext(t *testing.T) {
	// Not parallel: installs the global propagator.
	otel.SetTextMapPropagator(propagation.TraceContext{})

	// Arrange
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	// Act
	InjectTraceContext(ctx, req)
	extracted := ExtractTraceContext(context.Background(), req.Header)

	// Assert
	assert.NotEmpty(t, req.Header.Get("traceparent"))
	assert.Equal(t, traceID, trace.SpanContextFromContext(extracted).TraceID())
}
