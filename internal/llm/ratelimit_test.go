package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestPacerEnforcesMinimumDelta(t *testing.T) {
	pacer := newRequestPacer(120) // delay = 500ms
	ctx := context.Background()

	require.NoError(t, pacer.Wait(ctx))
	start := time.Now()
	require.NoError(t, pacer.Wait(ctx))
	elapsed := time.Since(start)

	// spec P8: deltas >= 60/R - epsilon
	assert.GreaterOrEqual(t, elapsed, 450*time.Millisecond)
}

func TestRequestPacerFirstCallDoesNotBlock(t *testing.T) {
	pacer := newRequestPacer(1)
	start := time.Now()
	require.NoError(t, pacer.Wait(context.Background()))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestRequestPacerRespectsCancellation(t *testing.T) {
	pacer := newRequestPacer(1) // delay = 60s
	require.NoError(t, pacer.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := pacer.Wait(ctx)
	assert.Error(t, err)
}
