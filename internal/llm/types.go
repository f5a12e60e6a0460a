// Package llm implements C1: a rate-limited, retry-aware, cache-aware
// wrapper around a generative model and an embedding model. It owns the
// provider-side cached-content lifecycle (create/validate/delete) and the
// single-sequential-stream rate limiter described in the component's
// design notes.
package llm

import "time"

// GenerateParams is the input to Generate. SystemInstruction and
// CachedContent are mutually exclusive: when CachedContent is set (either
// the client's own internal cache or an external one supplied by the
// caller), SystemInstruction is ignored because it must already be
// baked into the cache at creation time. Tools is not sent to the
// provider in either case.
type GenerateParams struct {
	Prompt           string
	SystemInstruction string
	Temperature      float32
	MaxOutputTokens  int32
	Model            string // empty means the client's configured default model
	CachedContent    string // external cache name; overrides the client's internal cache
	ForceNewSession  bool   // bypass all internal caches
	Tools            []string
}

// Response is C1's return value for a single generate call.
type Response struct {
	Content         string
	InputTokens     int32
	OutputTokens    int32
	CachedTokens    int32
	FinishReason    string
	ThinkingContent string
	SafetyBlocked   bool
}

// IsSafetyBlock reports whether the model refused to answer on safety
// grounds, per spec §4.1: empty content with a safety finish reason.
func (r Response) IsSafetyBlock() bool {
	return r.Content == "" && (r.FinishReason == "SAFETY" || r.FinishReason == "PROHIBITED_CONTENT")
}

// cacheState is the client's single internal cache record (spec §3
// "Volume Cache", §4.1 "Caching").
type cacheState struct {
	name      string
	model     string
	createdAt time.Time
	ttl       time.Duration
}

func (c *cacheState) validFor(model string) bool {
	if c == nil || c.name == "" {
		return false
	}
	if time.Since(c.createdAt) >= c.ttl {
		return false
	}
	return c.model == model
}

// SafetyCategory names the five harm categories the original pipeline
// configures explicitly rather than relying on provider defaults.
type SafetyCategory string

const (
	SafetyHarassment       SafetyCategory = "HARM_CATEGORY_HARASSMENT"
	SafetyHateSpeech       SafetyCategory = "HARM_CATEGORY_HATE_SPEECH"
	SafetySexuallyExplicit SafetyCategory = "HARM_CATEGORY_SEXUALLY_EXPLICIT"
	SafetyDangerousContent SafetyCategory = "HARM_CATEGORY_DANGEROUS_CONTENT"
	SafetyCivicIntegrity   SafetyCategory = "HARM_CATEGORY_CIVIC_INTEGRITY"
)

// AllSafetyCategories lists every category the client configures.
var AllSafetyCategories = []SafetyCategory{
	SafetyHarassment,
	SafetyHateSpeech,
	SafetySexuallyExplicit,
	SafetyDangerousContent,
	SafetyCivicIntegrity,
}

// isGemini3Family reports whether a model name belongs to the gemini-3
// family, which configures thinking via a ThinkingLevel enum rather than
// a numeric token budget (gemini-2.5 family).
func isGemini3Family(model string) bool {
	return len(model) >= 8 && model[:8] == "gemini-3"
}
