// Package trace carries request identifiers and W3C trace context onto
// outbound HTTP requests.
package trace

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// contextKey is the type for context keys to avoid collisions
type contextKey string

const (
	// requestIDKey is the context key for request ID values
	requestIDKey contextKey = "request_id"
	// HeaderXRequestID is the standard header name for request tracing
	HeaderXRequestID = "X-Request-ID"
	// HeaderTraceParent is the W3C trace context header name
	HeaderTraceParent = "traceparent"
	// HeaderTraceState is the W3C trace context "tracestate" header name
	HeaderTraceState = "tracestate"
)

var defaultPropagator propagation.TextMapPropagator = propagation.NewCompositeTextMapPropagator(
	propagation.TraceContext{},
	propagation.Baggage{},
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns a request ID from context if present
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		return id, true
	}
	return "", false
}

// NewRequestID generates a random request ID.
func NewRequestID() string {
	return uuid.NewString()
}

// EnsureRequestID returns ctx carrying a request ID, generating one when ctx has none.
// All attempts of one logical call share the returned ID.
func EnsureRequestID(ctx context.Context) (context.Context, string) {
	if id, ok := RequestIDFromContext(ctx); ok {
		return ctx, id
	}
	id := NewRequestID()
	return WithRequestID(ctx, id), id
}

// Propagator returns the globally installed text map propagator, falling back to
// W3C trace context plus baggage while the global one is still the no-op default.
func Propagator() propagation.TextMapPropagator {
	p := otel.GetTextMapPropagator()
	if p == nil || len(p.Fields()) == 0 {
		return defaultPropagator
	}
	return p
}

// InjectRequestID sets header on h from the request ID in ctx unless h already carries one.
// An empty header name selects HeaderXRequestID.
func InjectRequestID(ctx context.Context, h http.Header, header string) {
	if header == "" {
		header = HeaderXRequestID
	}
	if h.Get(header) != "" {
		return
	}
	if id, ok := RequestIDFromContext(ctx); ok {
		h.Set(header, id)
	}
}

// InjectTraceContext writes the span context of ctx (traceparent, tracestate, baggage) into h.
// Headers set explicitly by the caller win.
func InjectTraceContext(ctx context.Context, h http.Header) {
	if h.Get(HeaderTraceParent) != "" {
		return
	}
	Propagator().Inject(ctx, propagation.HeaderCarrier(h))
}

// Extract returns ctx enriched with the trace context carried by h.
func Extract(ctx context.Context, h http.Header) context.Context {
	return Propagator().Extract(ctx, propagation.HeaderCarrier(h))
}
