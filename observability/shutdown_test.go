package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// mockProvider is a test provider for testing shutdown behavior.
type mockProvider struct {
	shutdownErr    error
	shutdownCalled bool
	deadline       bool
}

func (m *mockProvider) TracerProvider() trace.TracerProvider {
	return noop.NewTracerProvider()
}

func (m *mockProvider) Shutdown(ctx context.Context) error {
	m.shutdownCalled = true
	_, m.deadline = ctx.Deadline()
	return m.shutdownErr
}

func (m *mockProvider) ForceFlush(_ context.Context) error {
	return nil
}

func TestShutdownSuccess(t *testing.T) {
	mock := &mockProvider{}

	err := Shutdown(mock, 1*time.Second)
	assert.NoError(t, err)
	assert.True(t, mock.shutdownCalled)
	assert.True(t, mock.deadline)
}

func TestShutdownNilProvider(t *testing.T) {
	assert.NoError(t, Shutdown(nil, time.Second))
}

func TestShutdownDefaultTimeout(t *testing.T) {
	mock := &mockProvider{}

	assert.NoError(t, Shutdown(mock, 0))
	assert.True(t, mock.deadline)
}

func TestShutdownError(t *testing.T) {
	expectedErr := errors.New("shutdown failed")
	mock := &mockProvider{shutdownErr: expectedErr}

	err := Shutdown(mock, time.Second)
	assert.ErrorIs(t, err, expectedErr)
	assert.Contains(t, err.Error(), "observability shutdown failed")
}
