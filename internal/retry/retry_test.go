package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsWithoutRetry(t *testing.T) {
	calls := 0
	policy := DefaultPolicy(func(err error) Decision { return Decision{Outcome: OutcomeRetry} })
	err := Do(context.Background(), policy, func(attempt int) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	policy := Policy{
		MaxAttempts: 5,
		BaseDelay:   0,
		MaxDelay:    time.Millisecond,
		Classify: func(err error) Decision {
			return Decision{Outcome: OutcomeRetry, Delay: time.Millisecond}
		},
	}
	err := Do(context.Background(), policy, func(attempt int) error {
		calls++
		if attempt < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoGivesUpImmediatelyOnHardError(t *testing.T) {
	calls := 0
	policy := DefaultPolicy(func(err error) Decision { return Decision{Outcome: OutcomeGiveUp} })
	err := Do(context.Background(), policy, func(attempt int) error {
		calls++
		return errors.New("http 400")
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGiveUp))
	assert.Equal(t, 1, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	policy := Policy{
		MaxAttempts: 3,
		MaxDelay:    time.Millisecond,
		Classify: func(err error) Decision {
			return Decision{Outcome: OutcomeRetry, Delay: time.Millisecond}
		},
	}
	err := Do(context.Background(), policy, func(attempt int) error {
		calls++
		return errors.New("still failing")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	policy := DefaultPolicy(func(err error) Decision { return Decision{Outcome: OutcomeRetry} })
	err := Do(ctx, policy, func(attempt int) error {
		t.Fatal("operation should not run when context already cancelled")
		return nil
	})
	require.Error(t, err)
}
