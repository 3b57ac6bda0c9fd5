package httpclient

import (
	"context"
	"maps"
	"net/http"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/gaborage/go-bricks-httpx/config"
	"github.com/gaborage/go-bricks-httpx/logger"
	"github.com/gaborage/go-bricks-httpx/trace"
)

const (
	// DefaultTimeout is the default request timeout duration
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the default number of retries for a call without options
	DefaultMaxRetries = 0
)

// Config holds the client-wide configuration
type Config struct {
	Timeout time.Duration
	// BaseURL is prepended to relative request URLs
	BaseURL string
	// MaxRetries, RetryDelay, RetryJitter and LogRetries seed every call's RetryPolicy
	MaxRetries           int
	RetryDelay           time.Duration
	RetryJitter          time.Duration
	LogRetries           bool
	RequestInterceptors  []RequestInterceptor
	ResponseInterceptors []ResponseInterceptor
	DefaultHeaders       map[string]string
	// LogPayloads enables debug-level logging of headers and body payloads
	LogPayloads bool
	// MaxPayloadLogBytes caps the number of body bytes logged when LogPayloads is enabled
	MaxPayloadLogBytes int
	// RequestIDHeader configures the header name used for request ID propagation (default: X-Request-ID)
	RequestIDHeader string
}

// clone returns a copy that shares no interceptor slices or header maps with c.
func (c *Config) clone() *Config {
	cp := *c
	cp.RequestInterceptors = slices.Clone(c.RequestInterceptors)
	cp.ResponseInterceptors = slices.Clone(c.ResponseInterceptors)
	cp.DefaultHeaders = maps.Clone(c.DefaultHeaders)
	return &cp
}

// Client executes requests with retries and projects responses into the
// shapes of the Send* operation families. It is safe for concurrent use;
// calls share only the underlying Doer.
type Client struct {
	doer   Doer
	logger logger.Logger
	config *Config
	codec  Codec
	tracer oteltrace.Tracer

	jitter func(bound time.Duration) time.Duration
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewClient creates a new client with default configuration
func NewClient(log logger.Logger) *Client {
	return NewBuilder(log).Build()
}

// NewFromConfig creates a client from loaded configuration.
func NewFromConfig(cfg *config.Config, log logger.Logger) *Client {
	b := NewBuilder(log).
		WithTimeout(cfg.HTTP.Timeout).
		WithBaseURL(cfg.HTTP.BaseURL).
		WithRetries(cfg.Retry.Attempts, cfg.Retry.BaseDelay).
		WithJitter(cfg.Retry.Jitter).
		WithRetryLog(cfg.Retry.Log).
		WithRequestIDHeader(cfg.HTTP.RequestIDHeader).
		WithPayloadLogging(cfg.HTTP.LogPayloads, cfg.HTTP.MaxPayloadLogBytes)

	for key, value := range cfg.HTTP.Headers {
		b.WithDefaultHeader(key, value)
	}
	if cfg.App.Name != "" {
		b.WithTracerName(cfg.App.Name)
		if _, ok := cfg.HTTP.Headers["User-Agent"]; !ok {
			b.WithDefaultHeader("User-Agent", cfg.App.Name+"/"+cfg.App.Version)
		}
	}
	return b.Build()
}

// Builder provides a fluent interface for configuring the client
type Builder struct {
	config         *Config
	logger         logger.Logger
	doer           Doer
	codec          Codec
	tracerProvider oteltrace.TracerProvider
	tracerName     string
}

// NewBuilder creates a new client builder
func NewBuilder(log logger.Logger) *Builder {
	return &Builder{
		config: &Config{
			Timeout:              DefaultTimeout,
			MaxRetries:           DefaultMaxRetries,
			RetryDelay:           DefaultBaseDelay,
			RetryJitter:          DefaultJitter,
			LogRetries:           true,
			RequestInterceptors:  []RequestInterceptor{},
			ResponseInterceptors: []ResponseInterceptor{},
			DefaultHeaders:       make(map[string]string),
			MaxPayloadLogBytes:   DefaultMaxPayloadLogBytes,
			RequestIDHeader:      trace.HeaderXRequestID,
		},
		logger: log,
	}
}

// WithTimeout sets the per-send timeout of the default transport
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.config.Timeout = timeout
	return b
}

// WithBaseURL sets the URL relative request URLs resolve against
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.BaseURL = baseURL
	return b
}

// WithRetries sets the default number of retries and the base backoff delay
func (b *Builder) WithRetries(maxRetries int, baseDelay time.Duration) *Builder {
	b.config.MaxRetries = maxRetries
	b.config.RetryDelay = baseDelay
	return b
}

// WithJitter sets the exclusive upper bound of the random delay added to each backoff
func (b *Builder) WithJitter(jitter time.Duration) *Builder {
	b.config.RetryJitter = jitter
	return b
}

// WithRetryLog enables or suppresses retry warnings by default
func (b *Builder) WithRetryLog(enabled bool) *Builder {
	b.config.LogRetries = enabled
	return b
}

// WithDefaultHeader adds a default header that will be sent with all requests
func (b *Builder) WithDefaultHeader(key, value string) *Builder {
	b.config.DefaultHeaders[key] = value
	return b
}

// WithRequestInterceptor adds a request interceptor
func (b *Builder) WithRequestInterceptor(interceptor RequestInterceptor) *Builder {
	b.config.RequestInterceptors = append(b.config.RequestInterceptors, interceptor)
	return b
}

// WithResponseInterceptor adds a response interceptor
func (b *Builder) WithResponseInterceptor(interceptor ResponseInterceptor) *Builder {
	b.config.ResponseInterceptors = append(b.config.ResponseInterceptors, interceptor)
	return b
}

// WithPayloadLogging enables debug logging of headers and body previews of up to maxBytes
func (b *Builder) WithPayloadLogging(enabled bool, maxBytes int) *Builder {
	b.config.LogPayloads = enabled
	b.config.MaxPayloadLogBytes = maxBytes
	return b
}

// WithRequestIDHeader sets the header carrying the per-call request ID
func (b *Builder) WithRequestIDHeader(header string) *Builder {
	if header != "" {
		b.config.RequestIDHeader = header
	}
	return b
}

// WithHTTPClient sends through doer instead of a new *http.Client.
// The client never closes or reconfigures doer.
func (b *Builder) WithHTTPClient(doer Doer) *Builder {
	b.doer = doer
	return b
}

// WithCodec replaces the JSON codec used for payloads and response bodies
func (b *Builder) WithCodec(codec Codec) *Builder {
	b.codec = codec
	return b
}

// WithTracerProvider sets the provider of call spans (default: the global provider)
func (b *Builder) WithTracerProvider(tp oteltrace.TracerProvider) *Builder {
	b.tracerProvider = tp
	return b
}

// WithTracerName sets the instrumentation name of call spans
func (b *Builder) WithTracerName(name string) *Builder {
	b.tracerName = name
	return b
}

// Build creates the client with the configured options
func (b *Builder) Build() *Client {
	doer := b.doer
	if doer == nil {
		doer = &http.Client{Timeout: b.config.Timeout}
	}
	codec := b.codec
	if codec == nil {
		codec = JSONCodec{}
	}
	tp := b.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	name := b.tracerName
	if name == "" {
		name = instrumentationName
	}

	return &Client{
		doer:   doer,
		logger: logger.OrNop(b.logger),
		config: b.config.clone(),
		codec:  codec,
		tracer: tp.Tracer(name),
		jitter: randomJitter,
		sleep:  sleepWithContext,
	}
}
