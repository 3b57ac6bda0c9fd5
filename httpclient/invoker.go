package httpclient

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/gaborage/go-bricks-httpx/logger"
	"github.com/gaborage/go-bricks-httpx/trace"
)

// Doer sends a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RequestInterceptor is called before sending each attempt
type RequestInterceptor func(ctx context.Context, req *http.Request) error

// ResponseInterceptor is called after receiving each attempt's response
type ResponseInterceptor func(ctx context.Context, req *http.Request, resp *http.Response) error

// invoke performs exactly one send of a fresh copy of cl.
func (c *Client) invoke(ctx context.Context, cl *call, log logger.Logger, attempt int) (*http.Response, error) {
	httpReq, sent, err := cl.duplicate(ctx)
	if err != nil {
		return nil, err
	}

	c.applyHeaders(ctx, httpReq)

	if err := c.runRequestInterceptors(ctx, httpReq); err != nil {
		return nil, NewInterceptorError("request interceptor failed", "request", err)
	}

	c.logRequest(log, httpReq, sent, cl.requestID, attempt)

	logger.IncrementAttemptCounter(ctx)
	resp, err := c.doer.Do(httpReq)
	if err != nil {
		return nil, c.transportError(ctx, err)
	}

	if err := c.runResponseInterceptors(ctx, httpReq, resp); err != nil {
		release(resp)
		return nil, NewInterceptorError("response interceptor failed", "response", err)
	}
	return resp, nil
}

// applyHeaders fills in default headers the request did not set, then the
// request ID and the trace context.
func (c *Client) applyHeaders(ctx context.Context, httpReq *http.Request) {
	for key, value := range c.config.DefaultHeaders {
		if httpReq.Header.Get(key) == "" {
			httpReq.Header.Set(key, value)
		}
	}
	trace.InjectRequestID(ctx, httpReq.Header, c.config.RequestIDHeader)
	trace.InjectTraceContext(ctx, httpReq.Header)
}

// transportError classifies a failed send. Cancellation of the call context
// wins over whatever the transport reported.
func (c *Client) transportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return NewCanceledError("request canceled", ctxErr)
	}
	if c.isTimeout(err) {
		return NewTimeoutError("request timeout", c.config.Timeout, err)
	}
	return NewTransportError("request execution failed", err)
}

func (c *Client) isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// runRequestInterceptors executes all request interceptors
func (c *Client) runRequestInterceptors(ctx context.Context, req *http.Request) error {
	for _, interceptor := range c.config.RequestInterceptors {
		if err := interceptor(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

// runResponseInterceptors executes all response interceptors
func (c *Client) runResponseInterceptors(ctx context.Context, req *http.Request, resp *http.Response) error {
	for _, interceptor := range c.config.ResponseInterceptors {
		if err := interceptor(ctx, req, resp); err != nil {
			return err
		}
	}
	return nil
}
