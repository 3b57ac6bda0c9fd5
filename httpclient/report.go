package httpclient

import (
	"time"

	"github.com/gaborage/go-bricks-httpx/logger"
)

// summary is the type-independent view of a call's final outcome.
type summary struct {
	kind       OutcomeKind
	statusCode int
	body       []byte
	err        error
	attempts   int
	exhausted  bool
	elapsed    time.Duration
}

func summarize[T any](out Outcome[T]) summary {
	return summary{
		kind:       out.Kind,
		statusCode: out.StatusCode,
		body:       out.Body,
		err:        out.Err,
		attempts:   out.Attempts,
		exhausted:  out.Exhausted,
		elapsed:    out.Elapsed,
	}
}

// report logs the final outcome of a failed call once and closes the call span.
func (ex *execution) report(s summary) {
	endSpan(ex.span, s)
	if s.kind == OutcomeSuccess {
		return
	}

	var event logger.LogEvent
	var msg string
	switch {
	case s.kind == OutcomeCanceled:
		event, msg = ex.log.Warn(), "HTTP request canceled"
	case s.kind == OutcomeUnexpected:
		event, msg = ex.log.Error(), "HTTP request failed unexpectedly"
	case s.exhausted:
		event, msg = ex.log.Error(), "HTTP request failed after retries"
	case s.kind == OutcomeNonSuccessStatus && ex.family == familyResult:
		event, msg = ex.log.Warn(), "HTTP request returned non-success status"
	case s.kind == OutcomeNonSuccessStatus:
		event, msg = ex.log.Error(), "HTTP request returned non-success status"
	default:
		event, msg = ex.log.Error(), "HTTP request failed"
	}

	event = event.
		Str("family", ex.family.String()).
		Str("outcome", s.kind.String()).
		Int("attempts", s.attempts).
		Dur("elapsed", s.elapsed)
	if ex.call != nil {
		event = event.
			Str("request_id", ex.call.requestID).
			Str("method", ex.call.method).
			Str("url", ex.call.url)
	}
	if s.statusCode > 0 {
		event = event.Int("status", s.statusCode)
	}
	if s.kind == OutcomeDeserializationFailure && ex.policy.Log && len(s.body) > 0 {
		event = ex.client.logPayload(event, s.body)
	}
	if s.err != nil {
		event = event.Err(s.err)
	}
	event.Msg(msg)
}
