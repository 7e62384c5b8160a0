package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreaker(timeout time.Duration) *CircuitBreaker {
	return NewCircuitBreaker("test", Config{
		MaxRequests:      1,
		Timeout:          timeout,
		FailureThreshold: 2,
		SuccessThreshold: 1,
	})
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cb := newTestBreaker(time.Minute)
	boom := errors.New("boom")
	fail := func() error { return boom }

	require.ErrorIs(t, cb.Execute(context.Background(), fail), boom)
	require.ErrorIs(t, cb.Execute(context.Background(), fail), boom)
	assert.Equal(t, StateOpen, cb.State())

	err := cb.Execute(context.Background(), func() error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBreakerRecoversAfterTimeout(t *testing.T) {
	cb := newTestBreaker(10 * time.Millisecond)
	boom := errors.New("boom")
	fail := func() error { return boom }

	cb.Execute(context.Background(), fail)
	cb.Execute(context.Background(), fail)
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(15 * time.Millisecond)
	require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "open", StateOpen.String())
}
