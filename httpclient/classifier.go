package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OutcomeKind tags the result of one attempt.
type OutcomeKind uint8

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeTransportFailure
	OutcomeNonSuccessStatus
	OutcomeDeserializationFailure
	OutcomeCanceled
	OutcomeUnexpected
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeTransportFailure:
		return "transport_failure"
	case OutcomeNonSuccessStatus:
		return "non_success_status"
	case OutcomeDeserializationFailure:
		return "deserialization_failure"
	case OutcomeCanceled:
		return "canceled"
	case OutcomeUnexpected:
		return "unexpected"
	default:
		return fmt.Sprintf("outcome(%d)", uint8(k))
	}
}

// terminal kinds end the loop whatever the policy says.
func (k OutcomeKind) terminal() bool {
	return k == OutcomeSuccess || k == OutcomeCanceled || k == OutcomeUnexpected
}

// Outcome is the classified result of an attempt, and of a call once the loop ends.
type Outcome[T any] struct {
	Kind       OutcomeKind
	StatusCode int
	Header     http.Header
	// Body is the materialized response body; nil for the raw family.
	Body []byte
	// Value is the decoded body, set only on success of a typed call.
	Value *T
	// Response is the live response of a raw call; the caller closes it.
	Response *http.Response
	Err      error
	// Attempts counts the sends made so far.
	Attempts int
	// Exhausted is set when the loop stopped on a retryable outcome.
	Exhausted bool
	Elapsed   time.Duration
}

// kindOf maps a client error onto the outcome taxonomy.
func kindOf(err error) OutcomeKind {
	var clientErr ClientError
	if !errors.As(err, &clientErr) {
		return OutcomeUnexpected
	}
	switch clientErr.Type() {
	case TransportError, TimeoutError, CloneError:
		return OutcomeTransportFailure
	case StatusError:
		return OutcomeNonSuccessStatus
	case DeserializationError:
		return OutcomeDeserializationFailure
	case CanceledError:
		return OutcomeCanceled
	default:
		return OutcomeUnexpected
	}
}

func failed[T any](err error) Outcome[T] {
	return Outcome[T]{Kind: kindOf(err), Err: err}
}

// classifyFunc turns a response into an outcome. It owns resp: unless the
// outcome keeps resp in Response, the body is closed before it returns.
type classifyFunc[T any] func(ctx context.Context, resp *http.Response) Outcome[T]

// none is the value type of families that never decode.
type none struct{}

// classifyStatus inspects the status only and leaves the body to the caller.
func classifyStatus(_ context.Context, resp *http.Response) Outcome[none] {
	out := Outcome[none]{
		Kind:       OutcomeSuccess,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Response:   resp,
	}
	if !IsSuccessStatus(resp.StatusCode) {
		out.Kind = OutcomeNonSuccessStatus
		out.Err = NewStatusError(fmt.Sprintf("HTTP request failed with status %d", resp.StatusCode), resp.StatusCode, nil)
	}
	return out
}

// classifyBody materializes the body. A non-success body is read best-effort
// so projections can decode it.
func classifyBody(ctx context.Context, resp *http.Response) Outcome[none] {
	body, err := readBody(resp)
	out := Outcome[none]{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}

	if err != nil && ctx.Err() != nil {
		out.Kind = OutcomeCanceled
		out.Err = NewCanceledError("request canceled while reading response", ctx.Err())
		return out
	}

	if !IsSuccessStatus(resp.StatusCode) {
		out.Kind = OutcomeNonSuccessStatus
		out.Err = NewStatusError(fmt.Sprintf("HTTP request failed with status %d", resp.StatusCode), resp.StatusCode, body)
		return out
	}

	if err != nil {
		out.Kind = OutcomeDeserializationFailure
		out.Err = NewDeserializationError("failed to read response body", resp.StatusCode, body, err)
		return out
	}

	out.Kind = OutcomeSuccess
	return out
}

// classifyValue materializes the body and decodes a success body into T.
// A body decoding to null is a failure: the caller asked for a value.
func classifyValue[T any](codec Codec) classifyFunc[T] {
	return func(ctx context.Context, resp *http.Response) Outcome[T] {
		out := retag[T](classifyBody(ctx, resp))
		if out.Kind != OutcomeSuccess {
			return out
		}

		var v *T
		if err := codec.Unmarshal(out.Body, &v); err != nil {
			out.Kind = OutcomeDeserializationFailure
			out.Err = NewDeserializationError("failed to decode response body", out.StatusCode, out.Body, err)
			return out
		}
		if v == nil {
			out.Kind = OutcomeDeserializationFailure
			out.Err = NewDeserializationError("response body has no value", out.StatusCode, out.Body, ErrNullBody)
			return out
		}

		out.Value = v
		return out
	}
}

// retag copies everything but the value into an outcome of another value type.
func retag[B, A any](o Outcome[A]) Outcome[B] {
	return Outcome[B]{
		Kind:       o.Kind,
		StatusCode: o.StatusCode,
		Header:     o.Header,
		Body:       o.Body,
		Response:   o.Response,
		Err:        o.Err,
		Attempts:   o.Attempts,
		Exhausted:  o.Exhausted,
		Elapsed:    o.Elapsed,
	}
}

// classifyPair decodes a success body into S and a non-success body into E.
// The kind stays that of the response, so retry decisions ignore the decoding
// of error bodies; an undecodable error body leaves Value nil.
func classifyPair[S, E any](codec Codec) classifyFunc[Pair[S, E]] {
	value := classifyValue[S](codec)
	return func(ctx context.Context, resp *http.Response) Outcome[Pair[S, E]] {
		src := value(ctx, resp)
		out := retag[Pair[S, E]](src)

		switch src.Kind {
		case OutcomeSuccess:
			out.Value = &Pair[S, E]{Success: src.Value}
		case OutcomeNonSuccessStatus:
			var e *E
			if err := codec.Unmarshal(src.Body, &e); err != nil {
				out.Err = NewDeserializationError("failed to decode error body", src.StatusCode, src.Body, err)
				return out
			}
			if e == nil {
				out.Err = NewDeserializationError("error body has no value", src.StatusCode, src.Body, ErrNullBody)
				return out
			}
			out.Value = &Pair[S, E]{Error: e}
		}
		return out
	}
}

func readBody(resp *http.Response) ([]byte, error) {
	if resp.Body == nil {
		return nil, nil
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// release discards a response the caller will never see.
func release(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
