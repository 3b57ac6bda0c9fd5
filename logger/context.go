package logger

import (
	"context"
	"sync/atomic"
)

// contextKey is the type for context keys to avoid collisions
type contextKey string

const (
	// attemptCounterKey tracks the number of HTTP sends made for one logical call
	attemptCounterKey contextKey = "http_attempt_counter"
	// attemptElapsedKey tracks the total time spent inside those sends
	attemptElapsedKey contextKey = "http_attempt_elapsed_nanos"
)

// WithAttemptCounter creates a new context with an HTTP attempt counter and elapsed time tracker.
func WithAttemptCounter(ctx context.Context) context.Context {
	counter := int64(0)
	elapsed := int64(0)
	ctx = context.WithValue(ctx, attemptCounterKey, &counter)
	ctx = context.WithValue(ctx, attemptElapsedKey, &elapsed)
	return ctx
}

// IncrementAttemptCounter increments the attempt counter in the context, if present.
func IncrementAttemptCounter(ctx context.Context) {
	if counter, ok := ctx.Value(attemptCounterKey).(*int64); ok && counter != nil {
		atomic.AddInt64(counter, 1)
	}
}

// GetAttemptCounter returns the number of attempts recorded in the context.
func GetAttemptCounter(ctx context.Context) int64 {
	if counter, ok := ctx.Value(attemptCounterKey).(*int64); ok && counter != nil {
		return atomic.LoadInt64(counter)
	}
	return 0
}

// AddAttemptElapsed adds elapsed nanoseconds spent in a send.
func AddAttemptElapsed(ctx context.Context, nanos int64) {
	if elapsed, ok := ctx.Value(attemptElapsedKey).(*int64); ok && elapsed != nil {
		atomic.AddInt64(elapsed, nanos)
	}
}

// GetAttemptElapsed returns the accumulated send time in nanoseconds.
func GetAttemptElapsed(ctx context.Context) int64 {
	if elapsed, ok := ctx.Value(attemptElapsedKey).(*int64); ok && elapsed != nil {
		return atomic.LoadInt64(elapsed)
	}
	return 0
}

// HasAttemptCounter reports whether ctx already carries an attempt counter.
func HasAttemptCounter(ctx context.Context) bool {
	counter, ok := ctx.Value(attemptCounterKey).(*int64)
	return ok && counter != nil
}
