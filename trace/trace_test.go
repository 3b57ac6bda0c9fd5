package trace

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

var uuidPattern = regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`)

func TestHeaderConstants(t *testing.T) {
	assert.Equal(t, "X-Request-ID", HeaderXRequestID)
	assert.Equal(t, "traceparent", HeaderTraceParent)
	assert.Equal(t, "tracestate", HeaderTraceState)
}

func TestEnsureRequestIDUsesExisting(t *testing.T) {
	ctx := WithRequestID(context.Background(), "existing-id")

	got, id := EnsureRequestID(ctx)

	assert.Equal(t, "existing-id", id)
	assert.Equal(t, ctx, got)
}

func TestEnsureRequestIDGeneratesWhenMissing(t *testing.T) {
	ctx, id := EnsureRequestID(context.Background())

	assert.True(t, uuidPattern.MatchString(strings.ToLower(id)))
	stored, ok := RequestIDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, id, stored)
}

func TestRequestIDFromContextIgnoresEmpty(t *testing.T) {
	_, ok := RequestIDFromContext(WithRequestID(context.Background(), ""))
	assert.False(t, ok)
}

func TestInjectRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")

	t.Run("default header", func(t *testing.T) {
		h := http.Header{}
		InjectRequestID(ctx, h, "")
		assert.Equal(t, "req-1", h.Get(HeaderXRequestID))
	})

	t.Run("custom header", func(t *testing.T) {
		h := http.Header{}
		InjectRequestID(ctx, h, "X-Correlation-ID")
		assert.Equal(t, "req-1", h.Get("X-Correlation-ID"))
		assert.Empty(t, h.Get(HeaderXRequestID))
	})

	t.Run("caller header wins", func(t *testing.T) {
		h := http.Header{}
		h.Set(HeaderXRequestID, "caller")
		InjectRequestID(ctx, h, "")
		assert.Equal(t, "caller", h.Get(HeaderXRequestID))
	})

	t.Run("no id in context", func(t *testing.T) {
		h := http.Header{}
		InjectRequestID(context.Background(), h, "")
		assert.Empty(t, h.Get(HeaderXRequestID))
	})
}

func TestInjectTraceContext(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "call")
	defer span.End()

	h := http.Header{}
	InjectTraceContext(ctx, h)

	traceParent := h.Get(HeaderTraceParent)
	require.NotEmpty(t, traceParent)
	parts := strings.Split(traceParent, "-")
	require.Len(t, parts, 4)
	assert.Equal(t, "00", parts[0])
	assert.Equal(t, span.SpanContext().TraceID().String(), parts[1])
	assert.Equal(t, span.SpanContext().SpanID().String(), parts[2])

	extracted := oteltrace.SpanContextFromContext(Extract(context.Background(), h))
	assert.Equal(t, span.SpanContext().TraceID(), extracted.TraceID())
	assert.True(t, extracted.IsRemote())
}

func TestInjectTraceContextKeepsCallerHeader(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(context.Background(), "call")
	defer span.End()

	const callerParent = "00-0123456789abcdef0123456789abcdef-0123456789abcdef-01"
	h := http.Header{}
	h.Set(HeaderTraceParent, callerParent)

	InjectTraceContext(ctx, h)

	assert.Equal(t, callerParent, h.Get(HeaderTraceParent))
}

func TestInjectTraceContextWithoutSpan(t *testing.T) {
	h := http.Header{}
	InjectTraceContext(context.Background(), h)
	assert.Empty(t, h.Get(HeaderTraceParent))
}

func TestPropagatorFallback(t *testing.T) {
	fields := Propagator().Fields()
	assert.Contains(t, fields, HeaderTraceParent)
	assert.Contains(t, fields, HeaderTraceState)
}
