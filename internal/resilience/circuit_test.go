package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = NewTransientError(errors.New("upstream 503"), 503)

func failing(context.Context) error { return errUpstream }
func passing(context.Context) error { return nil }

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	t.Parallel()

	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Minute,
		OnStateChange: func(from, to CircuitState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	assert.ErrorIs(t, cb.Execute(context.Background(), failing), errUpstream)
	assert.Equal(t, CircuitClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(context.Background(), failing), errUpstream)
	assert.Equal(t, CircuitOpen, cb.State())

	err := cb.Execute(context.Background(), passing)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, []string{"closed->open"}, transitions)
}

func TestCircuitBreaker_PermanentErrorsDoNotTrip(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1})
	bad := errors.New("malformed request")
	for range 3 {
		assert.ErrorIs(t, cb.Execute(context.Background(), func(context.Context) error { return bad }), bad)
	}
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	t.Parallel()

	now := time.Now()
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Second})
	cb.now = func() time.Time { return now }

	require.Error(t, cb.Execute(context.Background(), failing))
	assert.Equal(t, CircuitOpen, cb.State())

	now = now.Add(2 * time.Second)
	assert.Equal(t, CircuitHalfOpen, cb.State())

	// Failed probe reopens.
	require.ErrorIs(t, cb.Execute(context.Background(), failing), errUpstream)
	assert.Equal(t, CircuitOpen, cb.State())

	now = now.Add(2 * time.Second)
	require.NoError(t, cb.Execute(context.Background(), passing))
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestExecuteVal(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())
	got, err := ExecuteVal(context.Background(), cb, func(context.Context) (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestCircuitState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "closed", CircuitClosed.String())
	assert.Equal(t, "open", CircuitOpen.String())
	assert.Equal(t, "half-open", CircuitHalfOpen.String())
	assert.Equal(t, "unknown", CircuitState(9).String())
}
