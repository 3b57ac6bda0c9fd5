package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gaborage/go-bricks-httpx/logger"
	"github.com/gaborage/go-bricks-httpx/trace"
)

// maxDetailBytes caps the body excerpt placed in a Problem detail.
const maxDetailBytes = 512

// execute runs one logical call: options, request ID, span, retry loop, final report.
func execute[T any](ctx context.Context, c *Client, req *Request, f family, classify classifyFunc[T], opts []Option) Outcome[T] {
	if ctx == nil {
		ctx = context.Background()
	}
	o := c.callOptions(f, opts)

	ctx, requestID := trace.EnsureRequestID(ctx)
	if !logger.HasAttemptCounter(ctx) {
		ctx = logger.WithAttemptCounter(ctx)
	}
	ctx, span := c.startSpan(ctx, f, req, requestID)
	defer span.End()

	ex := &execution{client: c, policy: o.policy, log: o.logger, span: span, family: f}

	var out Outcome[T]
	cl, err := c.safePrepare(req, requestID)
	if err != nil {
		out = failed[T](err)
	} else {
		ex.call = cl
		out = run(ctx, ex, classify)
	}

	ex.report(summarize(out))
	return out
}

func (c *Client) safePrepare(req *Request, requestID string) (cl *call, err error) {
	defer func() {
		if r := recover(); r != nil {
			cl, err = nil, NewUnexpectedError("panic while preparing request", fmt.Errorf("%v", r))
		}
	}()
	return c.prepare(req, requestID)
}

// Send returns the live response; the caller must close its body. A final
// non-success status returns the response together with a status error.
// Transport failures and 408, 429 and 5xx responses are retried by default.
func (c *Client) Send(ctx context.Context, req *Request, opts ...Option) (*http.Response, error) {
	out := execute[none](ctx, c, req, familyRaw, classifyStatus, opts)
	switch out.Kind {
	case OutcomeSuccess:
		return out.Response, nil
	case OutcomeNonSuccessStatus:
		return out.Response, out.Err
	default:
		return nil, out.Err
	}
}

// TrySend reports whether the call succeeded. The response is returned
// whenever the server answered, even with a non-success status.
func (c *Client) TrySend(ctx context.Context, req *Request, opts ...Option) (bool, *http.Response) {
	resp, err := c.Send(ctx, req, opts...)
	return err == nil, resp
}

// SendToString returns the response body as text, whatever the status.
// A non-success status also returns a status error.
func (c *Client) SendToString(ctx context.Context, req *Request, opts ...Option) (string, error) {
	out := execute[none](ctx, c, req, familyString, classifyBody, opts)
	switch out.Kind {
	case OutcomeSuccess:
		return string(out.Body), nil
	case OutcomeNonSuccessStatus:
		return string(out.Body), out.Err
	default:
		return "", out.Err
	}
}

// TrySendToString reports whether the call succeeded along with the body text.
func (c *Client) TrySendToString(ctx context.Context, req *Request, opts ...Option) (bool, string) {
	body, err := c.SendToString(ctx, req, opts...)
	return err == nil, body
}

// SendToType decodes a success body into T. Transport failures, undecodable
// bodies and every non-success status are retried by default.
func SendToType[T any](ctx context.Context, c *Client, req *Request, opts ...Option) (*T, error) {
	out := execute(ctx, c, req, familyTyped, classifyValue[T](c.codec), opts)
	if out.Kind != OutcomeSuccess {
		return nil, out.Err
	}
	return out.Value, nil
}

// TrySendToType is SendToType returning nil on any failure.
func TrySendToType[T any](ctx context.Context, c *Client, req *Request, opts ...Option) *T {
	v, _ := SendToType[T](ctx, c, req, opts...)
	return v
}

// SendWithError decodes a success body into T and a non-success body into E.
// A non-success status is a definitive answer and is only retried for codes
// marked with WithRetryableStatus. The error is non-nil exactly when neither
// side of the pair is populated.
func SendWithError[T, E any](ctx context.Context, c *Client, req *Request, opts ...Option) (Pair[T, E], error) {
	out := execute(ctx, c, req, familyTuple, classifyPair[T, E](c.codec), opts)
	if out.Value == nil {
		return Pair[T, E]{}, out.Err
	}
	return *out.Value, nil
}

// TrySendWithError is SendWithError without the error.
func TrySendWithError[T, E any](ctx context.Context, c *Client, req *Request, opts ...Option) Pair[T, E] {
	pair, _ := SendWithError[T, E](ctx, c, req, opts...)
	return pair
}

// SendWithProblem is SendWithError with an RFC 7807 problem document as the error type.
func SendWithProblem[T any](ctx context.Context, c *Client, req *Request, opts ...Option) (Pair[T, Problem], error) {
	return SendWithError[T, Problem](ctx, c, req, opts...)
}

// TrySendWithProblem is SendWithProblem without the error.
func TrySendWithProblem[T any](ctx context.Context, c *Client, req *Request, opts ...Option) Pair[T, Problem] {
	return TrySendWithError[T, Problem](ctx, c, req, opts...)
}

// SendToResult resolves every call to a Result. Transport failures and
// non-success statuses are retried by default; an undecodable success body is
// terminal. The error is only set for failures outside the expected taxonomy
// and for requests that could not be built; the Result describes those too.
func SendToResult[T any](ctx context.Context, c *Client, req *Request, opts ...Option) (Result[T], error) {
	out := execute(ctx, c, req, familyResult, classifyValue[T](c.codec), opts)
	result := projectResult(c.codec, out)
	if out.Kind == OutcomeUnexpected {
		return result, out.Err
	}
	return result, nil
}

// TrySendToResult is SendToResult without the error.
func TrySendToResult[T any](ctx context.Context, c *Client, req *Request, opts ...Option) Result[T] {
	result, _ := SendToResult[T](ctx, c, req, opts...)
	return result
}

func projectResult[T any](codec Codec, out Outcome[T]) Result[T] {
	switch out.Kind {
	case OutcomeSuccess:
		return Ok(*out.Value)
	case OutcomeCanceled:
		return Fail[T](TitleRequestCanceled, "The request was canceled before a response was received.", http.StatusRequestTimeout)
	case OutcomeTransportFailure:
		return Fail[T](TitleServiceUnavailable,
			fmt.Sprintf("The upstream service could not be reached after %d attempt(s): %v", out.Attempts, out.Err),
			http.StatusServiceUnavailable)
	case OutcomeDeserializationFailure:
		return Fail[T](TitleInvalidResponse, fmt.Sprintf("The upstream response could not be read: %v", out.Err), http.StatusBadGateway)
	case OutcomeNonSuccessStatus:
		return FailWith[T](problemFromBody(codec, out.StatusCode, out.Body))
	default:
		if IsErrorType(out.Err, ValidationError) {
			return Fail[T](TitleInvalidRequest, out.Err.Error(), http.StatusBadRequest)
		}
		return Fail[T](TitleSomethingWentWrong, "An unexpected error occurred while executing the request.", http.StatusInternalServerError)
	}
}

// problemFromBody prefers a problem document sent by the server and falls back
// to the status text with an excerpt of the body.
func problemFromBody(codec Codec, statusCode int, body []byte) Problem {
	var p Problem
	if len(body) > 0 && codec.Unmarshal(body, &p) == nil && p.isDocument() {
		if p.Status == 0 {
			p.Status = statusCode
		}
		if p.Title == "" {
			p.Title = statusTitle(statusCode)
		}
		return p
	}
	return Problem{Title: statusTitle(statusCode), Detail: excerpt(body), Status: statusCode}
}

func statusTitle(statusCode int) string {
	if text := http.StatusText(statusCode); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", statusCode)
}

func excerpt(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= maxDetailBytes {
		return text
	}
	cut := maxDetailBytes
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
