package httpclient

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/gaborage/go-bricks-httpx/logger"
)

// BackoffDelay returns the wait before retry k (k >= 1):
// base*2^(k-1) plus a value drawn by jitter from [0, jitterBound).
// The result saturates at math.MaxInt64 instead of overflowing.
func BackoffDelay(base, jitterBound time.Duration, retry int, jitter func(time.Duration) time.Duration) time.Duration {
	if retry < 1 {
		retry = 1
	}
	shift := retry - 1

	var d time.Duration
	switch {
	case base <= 0:
		d = 0
	case shift >= 63 || base > time.Duration(math.MaxInt64>>shift):
		return time.Duration(math.MaxInt64)
	default:
		d = base << shift
	}

	if jitterBound > 0 && jitter != nil {
		j := jitter(jitterBound)
		if d > time.Duration(math.MaxInt64)-j {
			return time.Duration(math.MaxInt64)
		}
		d += j
	}
	return d
}

// randomJitter draws uniformly from [0, bound).
func randomJitter(bound time.Duration) time.Duration {
	if bound <= 0 {
		return 0
	}
	return rand.N(bound)
}

// sleepWithContext waits for d or until ctx is done.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// execution is the state one logical call shares across its attempts.
type execution struct {
	client *Client
	call   *call
	policy RetryPolicy
	log    logger.Logger
	span   oteltrace.Span
	family family
}

// run drives the attempts of one call. Attempts are strictly sequential; the
// loop inspects each outcome's kind and stops on the first terminal one, on a
// kind the policy does not retry, or when the retries are used up.
func run[T any](ctx context.Context, ex *execution, classify classifyFunc[T]) Outcome[T] {
	p := ex.policy
	start := time.Now()

	for sends := 0; ; {
		if err := ctx.Err(); err != nil {
			out := failed[T](NewCanceledError("request canceled", err))
			out.Attempts = sends
			out.Elapsed = time.Since(start)
			return out
		}

		sends++
		out := attemptOnce(ctx, ex, classify, sends)
		out.Attempts = sends
		out.Elapsed = time.Since(start)

		if !p.retryable(out.Kind, out.StatusCode) {
			return out
		}
		if sends > p.MaxAttempts {
			out.Exhausted = true
			return out
		}

		delay := BackoffDelay(p.BaseDelay, p.JitterUpperBound, sends, ex.client.jitter)
		release(out.Response)
		ex.logRetry(sends, delay, out.Kind, out.StatusCode, out.Err)

		if err := ex.client.sleep(ctx, delay); err != nil {
			canceled := failed[T](NewCanceledError("request canceled during backoff", err))
			canceled.Attempts = sends
			canceled.Elapsed = time.Since(start)
			return canceled
		}
	}
}

// attemptOnce sends and classifies one copy of the request. Panics raised by
// the transport, interceptors or the codec become OutcomeUnexpected.
func attemptOnce[T any](ctx context.Context, ex *execution, classify classifyFunc[T], attempt int) (out Outcome[T]) {
	c := ex.client
	var resp *http.Response
	defer func() {
		if r := recover(); r != nil {
			release(resp)
			out = failed[T](NewUnexpectedError("panic during attempt", fmt.Errorf("%v", r)))
		}
	}()

	start := time.Now()
	resp, err := c.invoke(ctx, ex.call, ex.log, attempt)
	if err != nil {
		return failed[T](err)
	}

	out = classify(ctx, resp)
	c.logResponse(ex.log, out.StatusCode, out.Header, out.Body, time.Since(start), ex.call.requestID, attempt)
	return out
}

// logRetry reports a scheduled retry on the log (unless suppressed) and the call span.
func (ex *execution) logRetry(attempt int, delay time.Duration, kind OutcomeKind, statusCode int, cause error) {
	reason := kind.String()
	if kind == OutcomeNonSuccessStatus {
		reason = fmt.Sprintf("%s %d", reason, statusCode)
	}
	recordRetry(ex.span, attempt, delay, reason)

	if !ex.policy.Log {
		return
	}
	event := ex.log.Warn().
		Str("request_id", ex.call.requestID).
		Str("method", ex.call.method).
		Str("url", ex.call.url).
		Int("attempt", attempt).
		Int("max_retries", ex.policy.MaxAttempts).
		Dur("delay", delay).
		Str("reason", reason)
	if cause != nil {
		event = event.Err(cause)
	}
	event.Msg("HTTP attempt retrying")
}
