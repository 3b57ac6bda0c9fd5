package httpclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

const headerContentType = "Content-Type"

// Request describes an outbound call. It is never sent directly: every attempt
// sends an independent copy, so one Request may be reused across attempts and calls.
type Request struct {
	Method string
	URL    string
	Header http.Header
	// Body is sent as-is on every attempt.
	Body []byte
	// GetBody returns a fresh body reader per attempt when Body is nil.
	GetBody func() (io.ReadCloser, error)
	// ContentLength applies to bodies produced by GetBody; 0 means unknown.
	ContentLength int64

	payload    any
	hasPayload bool
	stream     *replayableBody
}

// NewRequest creates a request for method and url. An empty method means GET.
func NewRequest(method, url string) *Request {
	if method == "" {
		method = http.MethodGet
	}
	return &Request{Method: method, URL: url, Header: make(http.Header)}
}

// Get creates a GET request.
func Get(url string) *Request {
	return NewRequest(http.MethodGet, url)
}

// Post creates a POST request whose body is payload serialized by the client codec.
func Post(url string, payload any) *Request {
	return NewRequest(http.MethodPost, url).WithPayload(payload)
}

// Put creates a PUT request whose body is payload serialized by the client codec.
func Put(url string, payload any) *Request {
	return NewRequest(http.MethodPut, url).WithPayload(payload)
}

// Patch creates a PATCH request whose body is payload serialized by the client codec.
func Patch(url string, payload any) *Request {
	return NewRequest(http.MethodPatch, url).WithPayload(payload)
}

// Delete creates a DELETE request.
func Delete(url string) *Request {
	return NewRequest(http.MethodDelete, url)
}

// FromHTTPRequest captures r so it can be sent several times. When r has no
// GetBody, its body stream is buffered on first use; a stream that fails to
// read makes every attempt fail with a clone error.
func FromHTTPRequest(r *http.Request) *Request {
	req := &Request{
		Method:        r.Method,
		URL:           r.URL.String(),
		Header:        r.Header.Clone(),
		GetBody:       r.GetBody,
		ContentLength: r.ContentLength,
	}
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	if r.GetBody == nil && r.Body != nil && r.Body != http.NoBody {
		req.stream = &replayableBody{src: r.Body}
	}
	return req
}

// WithHeader sets a request header.
func (r *Request) WithHeader(key, value string) *Request {
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	r.Header.Set(key, value)
	return r
}

// WithBody sets a raw body and, when contentType is not empty, its content type.
func (r *Request) WithBody(body []byte, contentType string) *Request {
	r.Body = body
	r.payload, r.hasPayload = nil, false
	if contentType != "" {
		r.WithHeader(headerContentType, contentType)
	}
	return r
}

// WithPayload sets a value serialized by the client codec once per call.
func (r *Request) WithPayload(payload any) *Request {
	r.payload, r.hasPayload = payload, true
	r.Body = nil
	return r
}

// replayableBody buffers a one-shot stream the first time it is needed.
type replayableBody struct {
	once sync.Once
	src  io.ReadCloser
	data []byte
	err  error
}

func (b *replayableBody) bytes() ([]byte, error) {
	b.once.Do(func() {
		defer b.src.Close()
		b.data, b.err = io.ReadAll(b.src)
	})
	return b.data, b.err
}

// call is a Request resolved for one logical call: URL joined with the base
// URL, payload serialized, body source fixed.
type call struct {
	method        string
	url           string
	header        http.Header
	body          []byte
	load          func() ([]byte, error)
	getBody       func() (io.ReadCloser, error)
	contentLength int64
	contentType   string
	requestID     string
}

// prepare validates req and resolves it against the client configuration.
func (c *Client) prepare(req *Request, requestID string) (*call, error) {
	if req == nil {
		return nil, NewValidationError("request cannot be nil", "request", nil)
	}
	if req.URL == "" {
		return nil, NewValidationError("URL cannot be empty", "url", nil)
	}

	target, err := c.resolveURL(req.URL)
	if err != nil {
		return nil, err
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	cl := &call{
		method:    method,
		url:       target,
		header:    req.Header.Clone(),
		requestID: requestID,
	}
	if cl.header == nil {
		cl.header = make(http.Header)
	}

	switch {
	case req.hasPayload:
		body, err := c.codec.Marshal(req.payload)
		if err != nil {
			return nil, NewValidationError("could not build request", "payload", err)
		}
		cl.body = body
		cl.contentType = c.codec.ContentType()
	case req.Body != nil:
		cl.body = req.Body
	case req.GetBody != nil:
		cl.getBody = req.GetBody
		cl.contentLength = req.ContentLength
	case req.stream != nil:
		cl.load = req.stream.bytes
	}

	return cl, nil
}

func (c *Client) resolveURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", NewValidationError("URL is malformed", "url", err)
	}
	if !u.IsAbs() && c.config.BaseURL != "" {
		base, err := url.Parse(strings.TrimRight(c.config.BaseURL, "/") + "/")
		if err != nil {
			return "", NewValidationError("base URL is malformed", "url", err)
		}
		ref, err := url.Parse(strings.TrimLeft(raw, "/"))
		if err != nil {
			return "", NewValidationError("URL is malformed", "url", err)
		}
		u = base.ResolveReference(ref)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", NewValidationError("URL must be absolute", "url", nil)
	}
	return u.String(), nil
}

// duplicate builds an independent *http.Request for one attempt. Each copy
// gets its own header map and a fresh reader over the body. The returned
// bytes are the body being sent; they are nil for GetBody streams, which
// are not read before the send.
func (cl *call) duplicate(ctx context.Context) (*http.Request, []byte, error) {
	var (
		body          io.Reader
		sent          []byte
		getBody       func() (io.ReadCloser, error)
		contentLength int64
	)

	switch {
	case cl.body != nil:
		sent = cl.body
		body = bytes.NewReader(cl.body)
	case cl.load != nil:
		data, err := cl.load()
		if err != nil {
			return nil, nil, NewCloneError("request body cannot be re-read", err)
		}
		sent = data
		body = bytes.NewReader(data)
	case cl.getBody != nil:
		rc, err := cl.getBody()
		if err != nil {
			return nil, nil, NewCloneError("request body cannot be re-read", err)
		}
		if rc == nil {
			rc = http.NoBody
		}
		body = rc
		getBody = cl.getBody
		contentLength = cl.contentLength
	}

	httpReq, err := http.NewRequestWithContext(ctx, cl.method, cl.url, body)
	if err != nil {
		return nil, nil, NewValidationError("failed to create HTTP request", "request", err)
	}
	if getBody != nil {
		httpReq.GetBody = getBody
		if contentLength > 0 {
			httpReq.ContentLength = contentLength
		}
	}

	httpReq.Header = cl.header.Clone()
	if body != nil && cl.contentType != "" && httpReq.Header.Get(headerContentType) == "" {
		httpReq.Header.Set(headerContentType, cl.contentType)
	}
	return httpReq, sent, nil
}
