package httpclient

import (
	"net/http"
	"slices"
	"time"

	"github.com/gaborage/go-bricks-httpx/logger"
)

const (
	// DefaultCallRetries is a common per-call retry count for WithRetries.
	DefaultCallRetries = 2

	// DefaultBaseDelay is the delay before the first retry
	DefaultBaseDelay = 2 * time.Second

	// DefaultJitter is the exclusive upper bound of the random delay added to each backoff
	DefaultJitter = 1 * time.Second
)

// OutcomeSet is a set of outcome kinds.
type OutcomeSet uint8

// NewOutcomeSet returns the set holding kinds.
func NewOutcomeSet(kinds ...OutcomeKind) OutcomeSet {
	var s OutcomeSet
	for _, k := range kinds {
		s |= 1 << k
	}
	return s
}

// Has reports whether k is in the set.
func (s OutcomeSet) Has(k OutcomeKind) bool {
	return s&(1<<k) != 0
}

// RetryPolicy controls the retry loop of one call.
type RetryPolicy struct {
	// MaxAttempts is the number of retries after the first send.
	MaxAttempts int
	// BaseDelay is the delay before the first retry; retry k waits BaseDelay*2^(k-1).
	BaseDelay time.Duration
	// JitterUpperBound bounds the uniform random delay added to every backoff.
	JitterUpperBound time.Duration
	// RetryOn lists the outcome kinds that may be retried.
	RetryOn OutcomeSet
	// RetryableStatus narrows which non-success status codes are retried.
	// Nil retries every non-success status when RetryOn holds OutcomeNonSuccessStatus.
	RetryableStatus func(statusCode int) bool
	// Log emits a warning before every retry.
	Log bool
}

func (p RetryPolicy) retryable(kind OutcomeKind, statusCode int) bool {
	if kind.terminal() || !p.RetryOn.Has(kind) {
		return false
	}
	if kind == OutcomeNonSuccessStatus && p.RetryableStatus != nil {
		return p.RetryableStatus(statusCode)
	}
	return true
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 0 {
		p.MaxAttempts = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.JitterUpperBound < 0 {
		p.JitterUpperBound = 0
	}
	return p
}

// defaultRetryableStatus matches statuses worth repeating: 408, 429 and 5xx.
func defaultRetryableStatus(statusCode int) bool {
	return statusCode == http.StatusRequestTimeout ||
		statusCode == http.StatusTooManyRequests ||
		(statusCode >= 500 && statusCode < 600)
}

// family identifies the output shape requested by a public operation.
type family int

const (
	familyRaw family = iota
	familyString
	familyTyped
	familyTuple
	familyResult
)

func (f family) String() string {
	switch f {
	case familyRaw:
		return "raw"
	case familyString:
		return "string"
	case familyTyped:
		return "typed"
	case familyTuple:
		return "tuple"
	case familyResult:
		return "result"
	default:
		return "unknown"
	}
}

// applyDefaults sets the retry classes each family uses unless a call overrides them.
func (f family) applyDefaults(p *RetryPolicy) {
	switch f {
	case familyRaw, familyString:
		p.RetryOn = NewOutcomeSet(OutcomeTransportFailure, OutcomeNonSuccessStatus)
		p.RetryableStatus = defaultRetryableStatus
	case familyTyped:
		p.RetryOn = NewOutcomeSet(OutcomeTransportFailure, OutcomeDeserializationFailure, OutcomeNonSuccessStatus)
	case familyTuple:
		p.RetryOn = NewOutcomeSet(OutcomeTransportFailure)
	case familyResult:
		p.RetryOn = NewOutcomeSet(OutcomeTransportFailure, OutcomeNonSuccessStatus)
	}
}

type callOptions struct {
	policy RetryPolicy
	logger logger.Logger
}

// Option tunes a single call.
type Option func(*callOptions)

// WithRetries sets the number of retries after the first send.
func WithRetries(n int) Option {
	return func(o *callOptions) {
		o.policy.MaxAttempts = n
	}
}

// WithBaseDelay sets the delay before the first retry.
func WithBaseDelay(d time.Duration) Option {
	return func(o *callOptions) {
		o.policy.BaseDelay = d
	}
}

// WithJitter sets the exclusive upper bound of the random delay added to each backoff.
func WithJitter(d time.Duration) Option {
	return func(o *callOptions) {
		o.policy.JitterUpperBound = d
	}
}

// WithRetryLog enables or suppresses retry warnings. Control flow is unaffected.
func WithRetryLog(enabled bool) Option {
	return func(o *callOptions) {
		o.policy.Log = enabled
	}
}

// WithRetryOn replaces the outcome kinds the call retries.
// OutcomeSuccess, OutcomeCanceled and OutcomeUnexpected are never retried.
func WithRetryOn(kinds ...OutcomeKind) Option {
	return func(o *callOptions) {
		o.policy.RetryOn = NewOutcomeSet(kinds...)
	}
}

// WithRetryableStatus marks status codes as retryable, in addition to the
// outcome kinds already retried. Only the listed codes are retried.
func WithRetryableStatus(codes ...int) Option {
	codes = slices.Clone(codes)
	return func(o *callOptions) {
		o.policy.RetryOn |= NewOutcomeSet(OutcomeNonSuccessStatus)
		o.policy.RetryableStatus = func(statusCode int) bool {
			return slices.Contains(codes, statusCode)
		}
	}
}

// WithPolicy replaces the whole retry policy.
func WithPolicy(p RetryPolicy) Option {
	return func(o *callOptions) {
		o.policy = p
	}
}

// WithLogger logs this call through l instead of the client logger.
func WithLogger(l logger.Logger) Option {
	return func(o *callOptions) {
		o.logger = l
	}
}

func (c *Client) callOptions(f family, opts []Option) callOptions {
	o := callOptions{
		policy: RetryPolicy{
			MaxAttempts:      c.config.MaxRetries,
			BaseDelay:        c.config.RetryDelay,
			JitterUpperBound: c.config.RetryJitter,
			Log:              c.config.LogRetries,
		},
		logger: c.logger,
	}
	f.applyDefaults(&o.policy)

	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	o.policy = o.policy.normalized()
	o.logger = logger.OrNop(o.logger)
	return o
}
