package httpclient

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/gaborage/go-bricks-httpx/httpclient"

// startSpan opens the client span covering every attempt of one call.
func (c *Client) startSpan(ctx context.Context, f family, req *Request, requestID string) (context.Context, oteltrace.Span) {
	method := http.MethodGet
	attrs := []attribute.KeyValue{
		attribute.String("httpx.family", f.String()),
		attribute.String("httpx.request_id", requestID),
	}
	if req != nil {
		if req.Method != "" {
			method = req.Method
		}
		attrs = append(attrs, attribute.String("url.full", req.URL))
	}
	attrs = append(attrs, attribute.String("http.request.method", method))

	return c.tracer.Start(ctx, "HTTP "+method,
		oteltrace.WithSpanKind(oteltrace.SpanKindClient),
		oteltrace.WithAttributes(attrs...),
	)
}

func recordRetry(span oteltrace.Span, attempt int, delay time.Duration, reason string) {
	span.AddEvent("http.retry", oteltrace.WithAttributes(
		attribute.Int("httpx.attempt", attempt),
		attribute.Int64("httpx.delay_ms", delay.Milliseconds()),
		attribute.String("httpx.reason", reason),
	))
}

// endSpan records the final outcome of the call on span.
func endSpan(span oteltrace.Span, s summary) {
	if s.attempts > 1 {
		span.SetAttributes(attribute.Int("http.request.resend_count", s.attempts-1))
	}
	if s.statusCode > 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", s.statusCode))
	}
	span.SetAttributes(attribute.String("httpx.outcome", s.kind.String()))

	if s.kind == OutcomeSuccess {
		span.SetStatus(codes.Ok, "")
		return
	}
	if s.err != nil {
		span.RecordError(s.err)
		span.SetStatus(codes.Error, s.err.Error())
		return
	}
	span.SetStatus(codes.Error, s.kind.String())
}
