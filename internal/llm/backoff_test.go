package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"digital.vasic.lnmtl/internal/retry"
)

func TestClassifySafetyRefusalGivesUp(t *testing.T) {
	d := classify(&ProviderError{FinishReason: "SAFETY", Err: errors.New("blocked by safety filter")})
	assert.Equal(t, retry.OutcomeGiveUp, d.Outcome)
}

func TestClassifyHardHTTP400GivesUp(t *testing.T) {
	d := classify(&ProviderError{StatusCode: 400, Err: errors.New("bad request")})
	assert.Equal(t, retry.OutcomeGiveUp, d.Outcome)
}

func TestClassifyRateLimitRetries(t *testing.T) {
	d := classify(&ProviderError{StatusCode: 429, Transient: "resource_exhausted", Err: errors.New("rate limited")})
	assert.Equal(t, retry.OutcomeRetry, d.Outcome)
}

func TestClassifyUnavailableRetries(t *testing.T) {
	d := classify(&ProviderError{StatusCode: 503, Transient: "unavailable", Err: errors.New("unavailable")})
	assert.Equal(t, retry.OutcomeRetry, d.Outcome)
}

func TestClassifyNonProviderErrorRetries(t *testing.T) {
	d := classify(errors.New("some unrelated error"))
	assert.Equal(t, retry.OutcomeRetry, d.Outcome)
}
