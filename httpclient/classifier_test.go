package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errReadCloser struct{ err error }

func (e errReadCloser) Read([]byte) (int, error) { return 0, e.err }
func (errReadCloser) Close() error { return nil }

func newResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{testContentType}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestOutcomeKindString(t *testing.T) {
	assert.Equal(t, "success", OutcomeSuccess.String())
	assert.Equal(t, "transport_failure", OutcomeTransportFailure.String())
	assert.Equal(t, "non_success_status", OutcomeNonSuccessStatus.String())
	assert.Equal(t, "deserialization_failure", OutcomeDeserializationFailure.String())
	assert.Equal(t, "canceled", OutcomeCanceled.String())
	assert.Equal(t, "unexpected", OutcomeUnexpected.String())
	assert.Equal(t, "outcome(42)", OutcomeKind(42).String())
}

func TestOutcomeSet(t *testing.T) {
	s := NewOutcomeSet(OutcomeTransportFailure, OutcomeDeserializationFailure)

	assert.True(t, s.Has(OutcomeTransportFailure))
	assert.True(t, s.Has(OutcomeDeserializationFailure))
	assert.False(t, s.Has(OutcomeNonSuccessStatus))
	assert.False(t, NewOutcomeSet().Has(OutcomeSuccess))
}

func TestClassifyStatus(t *testing.T) {
	ok := classifyStatus(context.Background(), newResponse(http.StatusCreated, "x"))
	assert.Equal(t, OutcomeSuccess, ok.Kind)
	assert.NotNil(t, ok.Response)
	assert.Nil(t, ok.Body)
	ok.Response.Body.Close()

	bad := classifyStatus(context.Background(), newResponse(http.StatusTooManyRequests, "slow down"))
	assert.Equal(t, OutcomeNonSuccessStatus, bad.Kind)
	assert.True(t, IsStatusError(bad.Err, http.StatusTooManyRequests))
	assert.NotNil(t, bad.Response)
	bad.Response.Body.Close()
}

func TestClassifyBody(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		out := classifyBody(context.Background(), newResponse(http.StatusOK, "hello"))
		assert.Equal(t, OutcomeSuccess, out.Kind)
		assert.Equal(t, "hello", string(out.Body))
		assert.NoError(t, out.Err)
	})

	t.Run("non-success keeps body", func(t *testing.T) {
		out := classifyBody(context.Background(), newResponse(http.StatusNotFound, "missing"))
		assert.Equal(t, OutcomeNonSuccessStatus, out.Kind)
		body, ok := ErrorBody(out.Err)
		require.True(t, ok)
		assert.Equal(t, "missing", string(body))
	})

	t.Run("read failure on success", func(t *testing.T) {
		resp := newResponse(http.StatusOK, "")
		resp.Body = errReadCloser{err: errors.New("connection reset")}

		out := classifyBody(context.Background(), resp)
		assert.Equal(t, OutcomeDeserializationFailure, out.Kind)
		assert.True(t, IsErrorType(out.Err, DeserializationError))
	})

	t.Run("read failure after cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		resp := newResponse(http.StatusOK, "")
		resp.Body = errReadCloser{err: context.Canceled}

		out := classifyBody(ctx, resp)
		assert.Equal(t, OutcomeCanceled, out.Kind)
	})

	t.Run("nil body", func(t *testing.T) {
		out := classifyBody(context.Background(), &http.Response{StatusCode: http.StatusNoContent})
		assert.Equal(t, OutcomeSuccess, out.Kind)
		assert.Empty(t, out.Body)
	})
}

func TestClassifyValue(t *testing.T) {
	classify := classifyValue[todo](JSONCodec{})

	tests := []struct {
		name   string
		status int
		body   string
		kind   OutcomeKind
		isNull bool
	}{
		{name: "decodes", status: http.StatusOK, body: testTodoJSON, kind: OutcomeSuccess},
		{name: "malformed", status: http.StatusOK, body: `{"id":`, kind: OutcomeDeserializationFailure},
		{name: "wrong shape", status: http.StatusOK, body: `[1,2]`, kind: OutcomeDeserializationFailure},
		{name: "null", status: http.StatusOK, body: `null`, kind: OutcomeDeserializationFailure, isNull: true},
		{name: "empty", status: http.StatusOK, body: ``, kind: OutcomeDeserializationFailure},
		{name: "non-success not decoded", status: http.StatusInternalServerError, body: testTodoJSON, kind: OutcomeNonSuccessStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := classify(context.Background(), newResponse(tt.status, tt.body))
			assert.Equal(t, tt.kind, out.Kind)
			if tt.kind == OutcomeSuccess {
				require.NotNil(t, out.Value)
				assert.Equal(t, 1, out.Value.ID)
				return
			}
			assert.Nil(t, out.Value)
			assert.Error(t, out.Err)
			assert.Equal(t, tt.isNull, errors.Is(out.Err, ErrNullBody))
		})
	}
}

func TestClassifyPair(t *testing.T) {
	classify := classifyPair[todo, apiError](JSONCodec{})

	t.Run("success side", func(t *testing.T) {
		out := classify(context.Background(), newResponse(http.StatusOK, testTodoJSON))
		require.NotNil(t, out.Value)
		assert.True(t, out.Value.HasSuccess())
		assert.False(t, out.Value.HasError())
	})

	t.Run("error side", func(t *testing.T) {
		out := classify(context.Background(), newResponse(http.StatusNotFound, `{"code":"not_found","message":"no todo"}`))
		assert.Equal(t, OutcomeNonSuccessStatus, out.Kind)
		require.NotNil(t, out.Value)
		assert.False(t, out.Value.HasSuccess())
		require.True(t, out.Value.HasError())
		assert.Equal(t, "not_found", out.Value.Error.Code)
	})

	t.Run("undecodable error body", func(t *testing.T) {
		out := classify(context.Background(), newResponse(http.StatusBadGateway, `<html>bad gateway</html>`))
		assert.Equal(t, OutcomeNonSuccessStatus, out.Kind)
		assert.Nil(t, out.Value)
		assert.True(t, IsErrorType(out.Err, DeserializationError))
	})

	t.Run("null error body", func(t *testing.T) {
		out := classify(context.Background(), newResponse(http.StatusConflict, `null`))
		assert.Nil(t, out.Value)
		assert.ErrorIs(t, out.Err, ErrNullBody)
	})

	t.Run("undecodable success body", func(t *testing.T) {
		out := classify(context.Background(), newResponse(http.StatusOK, `nope`))
		assert.Equal(t, OutcomeDeserializationFailure, out.Kind)
		assert.Nil(t, out.Value)
	})
}

func TestRelease(t *testing.T) {
	closed := false
	resp := &http.Response{Body: &trackingCloser{Reader: strings.NewReader("rest"), closed: &closed}}

	release(resp)
	release(nil)
	release(&http.Response{})

	assert.True(t, closed)
}

type trackingCloser struct {
	io.Reader
	closed *bool
}

func (c *trackingCloser) Close() error {
	*c.closed = true
	return nil
}
