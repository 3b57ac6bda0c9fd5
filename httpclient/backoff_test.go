package httpclient

import (
	"context"
	"math"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedJitter(d time.Duration) func(time.Duration) time.Duration {
	return func(time.Duration) time.Duration { return d }
}

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		name   string
		base   time.Duration
		bound  time.Duration
		retry  int
		jitter func(time.Duration) time.Duration
		want   time.Duration
	}{
		{name: "first retry", base: 2 * time.Second, retry: 1, want: 2 * time.Second},
		{name: "second retry doubles", base: 2 * time.Second, retry: 2, want: 4 * time.Second},
		{name: "third retry", base: 2 * time.Second, retry: 3, want: 8 * time.Second},
		{name: "zero retry treated as first", base: time.Second, retry: 0, want: time.Second},
		{name: "jitter added", base: time.Second, bound: time.Second, retry: 2, jitter: fixedJitter(300 * time.Millisecond), want: 2300 * time.Millisecond},
		{name: "zero bound ignores jitter", base: time.Second, retry: 1, jitter: fixedJitter(time.Hour), want: time.Second},
		{name: "zero base", base: 0, bound: time.Second, retry: 4, jitter: fixedJitter(5 * time.Millisecond), want: 5 * time.Millisecond},
		{name: "shift overflow saturates", base: time.Second, retry: 64, want: time.Duration(math.MaxInt64)},
		{name: "multiplication overflow saturates", base: time.Hour, retry: 40, want: time.Duration(math.MaxInt64)},
		{name: "jitter overflow saturates", base: time.Duration(math.MaxInt64 >> 1), bound: time.Duration(math.MaxInt64), retry: 2, jitter: fixedJitter(time.Hour), want: time.Duration(math.MaxInt64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BackoffDelay(tt.base, tt.bound, tt.retry, tt.jitter))
		})
	}
}

func TestBackoffDelayRandomJitterRange(t *testing.T) {
	base := 100 * time.Millisecond
	bound := 50 * time.Millisecond
	for retry := 1; retry <= 5; retry++ {
		floor := base << (retry - 1)
		for range 200 {
			d := BackoffDelay(base, bound, retry, randomJitter)
			assert.GreaterOrEqual(t, d, floor)
			assert.Less(t, d, floor+bound)
		}
	}
}

func TestRandomJitter(t *testing.T) {
	assert.Zero(t, randomJitter(0))
	assert.Zero(t, randomJitter(-time.Second))
	for range 100 {
		j := randomJitter(time.Millisecond)
		assert.GreaterOrEqual(t, j, time.Duration(0))
		assert.Less(t, j, time.Millisecond)
	}
}

func TestSleepWithContext(t *testing.T) {
	t.Run("elapses", func(t *testing.T) {
		assert.NoError(t, sleepWithContext(context.Background(), time.Millisecond))
	})

	t.Run("zero delay", func(t *testing.T) {
		assert.NoError(t, sleepWithContext(context.Background(), 0))
	})

	t.Run("canceled before", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, sleepWithContext(ctx, 0), context.Canceled)
	})

	t.Run("canceled during", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(10*time.Millisecond, cancel)

		start := time.Now()
		err := sleepWithContext(ctx, time.Minute)

		assert.ErrorIs(t, err, context.Canceled)
		assert.Less(t, time.Since(start), 5*time.Second)
	})
}

func TestRetryLoopAttemptCounts(t *testing.T) {
	tests := []struct {
		name       string
		failures   int
		maxRetries int
		wantSends  int32
		wantOK     bool
	}{
		{name: "immediate success", failures: 0, maxRetries: 3, wantSends: 1, wantOK: true},
		{name: "success after two failures", failures: 2, maxRetries: 3, wantSends: 3, wantOK: true},
		{name: "success on last retry", failures: 3, maxRetries: 3, wantSends: 4, wantOK: true},
		{name: "exhausted", failures: 10, maxRetries: 3, wantSends: 4, wantOK: false},
		{name: "no retries", failures: 10, maxRetries: 0, wantSends: 1, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			server := newIPv4TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if int(hits.Add(1)) <= tt.failures {
					w.WriteHeader(http.StatusServiceUnavailable)
					return
				}
				_, _ = w.Write([]byte("ok"))
			}))

			c, rec := newTestClient(NewBuilder(nil).WithRetries(0, 100*time.Millisecond))
			ok, _ := c.TrySendToString(context.Background(), Get(server.URL), WithRetries(tt.maxRetries))

			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantSends, hits.Load())

			delays := rec.recorded()
			require.Len(t, delays, int(tt.wantSends)-1)
			for i, d := range delays {
				assert.Equal(t, 100*time.Millisecond<<i, d, "delay before retry %d", i+1)
			}
		})
	}
}

func TestRetryLoopMarksExhaustion(t *testing.T) {
	var hits atomic.Int32
	server := newIPv4TestServer(t, countingHandler(&hits, respond(http.StatusBadGateway, "down")))
	c, _ := newTestClient(NewBuilder(nil))

	out := execute[none](context.Background(), c, Get(server.URL), familyString, classifyBody, []Option{WithRetries(2)})

	assert.Equal(t, OutcomeNonSuccessStatus, out.Kind)
	assert.True(t, out.Exhausted)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, http.StatusBadGateway, out.StatusCode)
	assert.Equal(t, "down", string(out.Body))
}

func TestRetryLoopStopsOnNonRetryableStatus(t *testing.T) {
	var hits atomic.Int32
	server := newIPv4TestServer(t, countingHandler(&hits, respond(http.StatusBadRequest, "bad")))
	c, rec := newTestClient(NewBuilder(nil))

	out := execute[none](context.Background(), c, Get(server.URL), familyString, classifyBody, []Option{WithRetries(3)})

	assert.Equal(t, OutcomeNonSuccessStatus, out.Kind)
	assert.False(t, out.Exhausted)
	assert.Equal(t, int32(1), hits.Load())
	assert.Empty(t, rec.recorded())
}

func TestRetryableStatusOption(t *testing.T) {
	var hits atomic.Int32
	server := newIPv4TestServer(t, countingHandler(&hits,
		respond(http.StatusConflict, "busy"),
		respond(http.StatusServiceUnavailable, "down"),
	))
	c, _ := newTestClient(NewBuilder(nil))

	_, err := c.SendToString(context.Background(), Get(server.URL), WithRetries(5), WithRetryableStatus(http.StatusConflict))

	require.Error(t, err)
	assert.True(t, IsStatusError(err, http.StatusServiceUnavailable))
	assert.Equal(t, int32(2), hits.Load())
}

func TestRetryOnOption(t *testing.T) {
	var hits atomic.Int32
	server := newIPv4TestServer(t, countingHandler(&hits, respond(http.StatusServiceUnavailable, "down")))
	c, _ := newTestClient(NewBuilder(nil))

	_, err := c.SendToString(context.Background(), Get(server.URL), WithRetries(3), WithRetryOn(OutcomeTransportFailure))

	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestCancelDuringBackoffStopsSends(t *testing.T) {
	var hits atomic.Int32
	server := newIPv4TestServer(t, countingHandler(&hits, respond(http.StatusServiceUnavailable, "down")))

	ctx, cancel := context.WithCancel(context.Background())
	c := NewBuilder(nil).WithRetries(0, time.Minute).WithJitter(0).Build()
	c.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return sleepWithContext(ctx, d)
	}

	result := TrySendToResult[todo](ctx, c, Get(server.URL), WithRetries(5))

	problem, failed := result.Problem()
	require.True(t, failed)
	assert.Equal(t, TitleRequestCanceled, problem.Title)
	assert.Equal(t, http.StatusRequestTimeout, problem.Status)
	assert.Equal(t, int32(1), hits.Load())
}

func TestCanceledContextSendsNothing(t *testing.T) {
	var hits atomic.Int32
	server := newIPv4TestServer(t, countingHandler(&hits, respond(http.StatusOK, "{}")))
	c, _ := newTestClient(NewBuilder(nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := SendToType[todo](ctx, c, Get(server.URL), WithRetries(3))

	require.Error(t, err)
	assert.True(t, IsErrorType(err, CanceledError))
	assert.Equal(t, int32(0), hits.Load())
}

func TestPolicyNormalization(t *testing.T) {
	p := RetryPolicy{MaxAttempts: -2, BaseDelay: 0, JitterUpperBound: -time.Second}.normalized()

	assert.Equal(t, 0, p.MaxAttempts)
	assert.Equal(t, DefaultBaseDelay, p.BaseDelay)
	assert.Zero(t, p.JitterUpperBound)
}

func TestPolicyRetryable(t *testing.T) {
	p := RetryPolicy{RetryOn: NewOutcomeSet(OutcomeSuccess, OutcomeCanceled, OutcomeUnexpected, OutcomeTransportFailure)}

	assert.False(t, p.retryable(OutcomeSuccess, http.StatusOK))
	assert.False(t, p.retryable(OutcomeCanceled, 0))
	assert.False(t, p.retryable(OutcomeUnexpected, 0))
	assert.True(t, p.retryable(OutcomeTransportFailure, 0))
	assert.False(t, p.retryable(OutcomeNonSuccessStatus, http.StatusServiceUnavailable))
}

func TestFamilyDefaults(t *testing.T) {
	c := NewClient(nil)

	tests := []struct {
		family family
		status int
		kind   OutcomeKind
		want   bool
	}{
		{familyRaw, http.StatusServiceUnavailable, OutcomeNonSuccessStatus, true},
		{familyRaw, http.StatusNotFound, OutcomeNonSuccessStatus, false},
		{familyString, http.StatusTooManyRequests, OutcomeNonSuccessStatus, true},
		{familyTyped, http.StatusNotFound, OutcomeNonSuccessStatus, true},
		{familyTyped, http.StatusOK, OutcomeDeserializationFailure, true},
		{familyTuple, http.StatusServiceUnavailable, OutcomeNonSuccessStatus, false},
		{familyTuple, 0, OutcomeTransportFailure, true},
		{familyResult, http.StatusNotFound, OutcomeNonSuccessStatus, true},
		{familyResult, http.StatusOK, OutcomeDeserializationFailure, false},
	}

	for _, tt := range tests {
		t.Run(tt.family.String()+"/"+tt.kind.String(), func(t *testing.T) {
			o := c.callOptions(tt.family, nil)
			assert.Equal(t, tt.want, o.policy.retryable(tt.kind, tt.status))
		})
	}
}
