package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/genai"

	"digital.vasic.lnmtl/internal/config"
	"digital.vasic.lnmtl/internal/logging"
	"digital.vasic.lnmtl/internal/retry"
)

// Client is C1: the rate-limited, retry-aware, cache-aware wrapper
// described in spec §4.1. One Client instance serves exactly one
// sequential emission stream; it is owned by a single orchestrator run.
type Client struct {
	genaiClient *genai.Client
	cfg         config.LLMConfig
	log         logging.Logger
	pacer       *requestPacer

	mu    sync.Mutex
	cache *cacheState

	embeddingModel string
}

// SetEmbeddingModel configures the model used by Embed/EmbedBatch. The
// vector store (C2) calls this once at construction with its configured
// embedding model name.
func (c *Client) SetEmbeddingModel(model string) {
	c.embeddingModel = model
}

// New constructs a Client against the Gemini API via google.golang.org/genai.
func New(ctx context.Context, cfg config.LLMConfig, log logging.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("llm: failed to create genai client: %w", err)
	}

	return &Client{
		genaiClient: client,
		cfg:         cfg,
		log:         log,
		pacer:       newRequestPacer(cfg.RequestsPerMinute),
	}, nil
}

// Generate issues a single generation request, blocking for the pacing
// delay and retrying per the backoff policy in spec §4.1.
func (c *Client) Generate(ctx context.Context, params GenerateParams) (Response, error) {
	model := params.Model
	if model == "" {
		model = c.cfg.Model
	}

	var result Response
	policy := retry.DefaultPolicy(classify)
	policy.MaxAttempts = c.cfg.MaxAttempts
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 8
	}

	err := retry.Do(ctx, policy, func(attempt int) error {
		if err := c.pacer.Wait(ctx); err != nil {
			return err
		}

		attemptCtx := ctx
		var cancel context.CancelFunc
		if c.cfg.RequestTimeoutSec > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, time.Duration(c.cfg.RequestTimeoutSec)*time.Second)
			defer cancel()
		}

		resp, genErr := c.generateOnce(attemptCtx, model, params)
		if genErr != nil {
			c.log.Warn("llm generate attempt failed", map[string]interface{}{
				"attempt": attempt, "model": model, "error": genErr.Error(),
			})
			return genErr
		}
		result = resp
		return nil
	})
	if err != nil {
		return Response{}, err
	}
	return result, nil
}

func (c *Client) generateOnce(ctx context.Context, model string, params GenerateParams) (Response, error) {
	cachedContent := c.resolveCachedContent(model, params)

	genConfig := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(params.Temperature),
		MaxOutputTokens: params.MaxOutputTokens,
		SafetySettings:  safetySettings(c.cfg.SafetyBlockNone),
	}

	if cachedContent != "" {
		genConfig.CachedContent = cachedContent
	} else if params.SystemInstruction != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(params.SystemInstruction, genai.RoleUser)
	}

	applyThinkingConfig(genConfig, c.cfg, model)

	contents := []*genai.Content{genai.NewContentFromText(params.Prompt, genai.RoleUser)}

	resp, err := c.genaiClient.Models.GenerateContent(ctx, model, contents, genConfig)
	if err != nil {
		return Response{}, &ProviderError{Err: err, Transient: classifyTransient(err)}
	}

	return parseResponse(resp), nil
}

// resolveCachedContent implements spec §4.1's cache precedence: an
// external cache name always wins; otherwise the internal cache is used
// only if valid for the requested model and ForceNewSession is false.
func (c *Client) resolveCachedContent(model string, params GenerateParams) string {
	if params.CachedContent != "" {
		return params.CachedContent
	}
	if params.ForceNewSession {
		return ""
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cache.validFor(model) {
		return c.cache.name
	}
	return ""
}

func parseResponse(resp *genai.GenerateContentResponse) Response {
	out := Response{}
	if resp == nil || len(resp.Candidates) == 0 {
		return out
	}

	candidate := resp.Candidates[0]
	out.FinishReason = string(candidate.FinishReason)

	var text, thinking string
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Text == "" {
				continue
			}
			if part.Thought {
				thinking += part.Text
			} else {
				text += part.Text
			}
		}
	}
	out.Content = text
	out.ThinkingContent = thinking
	out.SafetyBlocked = out.IsSafetyBlock()

	if resp.UsageMetadata != nil {
		out.InputTokens = resp.UsageMetadata.PromptTokenCount
		out.OutputTokens = resp.UsageMetadata.CandidatesTokenCount
		out.CachedTokens = resp.UsageMetadata.CachedContentTokenCount
	}

	return out
}

func safetySettings(blockNone bool) []*genai.SafetySetting {
	threshold := genai.HarmBlockThresholdBlockOnlyHigh
	if blockNone {
		threshold = genai.HarmBlockThresholdBlockNone
	}

	settings := make([]*genai.SafetySetting, 0, len(AllSafetyCategories))
	for _, cat := range AllSafetyCategories {
		settings = append(settings, &genai.SafetySetting{
			Category:  genai.HarmCategory(cat),
			Threshold: threshold,
		})
	}
	return settings
}

// applyThinkingConfig wires the thinking knob the distilled spec was
// silent on: gemini-3 models take a ThinkingLevel enum, gemini-2.5
// models take a numeric token budget.
func applyThinkingConfig(genConfig *genai.GenerateContentConfig, cfg config.LLMConfig, model string) {
	if !cfg.ThinkingEnabled {
		return
	}
	if isGemini3Family(model) {
		level := cfg.ThinkingLevel
		if level == "" {
			level = "medium"
		}
		genConfig.ThinkingConfig = &genai.ThinkingConfig{
			IncludeThoughts: true,
			ThinkingLevel:   genai.ThinkingLevel(level),
		}
		return
	}

	budget := int32(cfg.ThinkingBudget)
	genConfig.ThinkingConfig = &genai.ThinkingConfig{
		IncludeThoughts: true,
		ThinkingBudget:  genai.Ptr(budget),
	}
}

func classifyTransient(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	switch {
	case contains(msg, "RESOURCE_EXHAUSTED"), contains(msg, "429"):
		return "resource_exhausted"
	case contains(msg, "UNAVAILABLE"), contains(msg, "503"):
		return "unavailable"
	case contains(msg, "deadline"), contains(msg, "timeout"):
		return "timeout"
	default:
		return ""
	}
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
