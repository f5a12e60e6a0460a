package llm

import (
	"errors"
	"strings"

	"digital.vasic.lnmtl/internal/retry"
)

// ProviderError carries the classification signals the retry policy
// needs: an HTTP-ish status code (0 if not applicable) and the model's
// finish reason, if any.
type ProviderError struct {
	StatusCode   int
	FinishReason string
	Transient    string // one of: resource_exhausted, unavailable, timeout, deadline_exceeded, ""
	Err          error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return "provider error"
}

func (e *ProviderError) Unwrap() error { return e.Err }

// classify implements spec §4.1's retry/backoff rule: retry everything
// except a non-429 HTTP 400, an explicit safety refusal, or an explicit
// "blocked" response.
func classify(err error) retry.Decision {
	var perr *ProviderError
	if !errors.As(err, &perr) {
		return retry.Decision{Outcome: retry.OutcomeRetry}
	}

	if perr.FinishReason == "SAFETY" || perr.FinishReason == "PROHIBITED_CONTENT" {
		return retry.Decision{Outcome: retry.OutcomeGiveUp}
	}
	if strings.Contains(strings.ToLower(perr.Error()), "blocked") {
		return retry.Decision{Outcome: retry.OutcomeGiveUp}
	}
	if perr.StatusCode == 400 {
		return retry.Decision{Outcome: retry.OutcomeGiveUp}
	}

	switch perr.Transient {
	case "resource_exhausted", "unavailable", "timeout", "deadline_exceeded":
		return retry.Decision{Outcome: retry.OutcomeRetry}
	}
	if perr.StatusCode == 429 || perr.StatusCode == 503 {
		return retry.Decision{Outcome: retry.OutcomeRetry}
	}

	// Unrecognized error shape: retry conservatively, matching the
	// source pipeline's behavior of retrying everything not explicitly
	// excluded above.
	return retry.Decision{Outcome: retry.OutcomeRetry}
}
