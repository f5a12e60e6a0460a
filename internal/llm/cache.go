package llm

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"
)

// CreateCache implements spec §4.1's create_cache operation and tracks
// the result as the client's sole internal cache, auto-reused by later
// Generate calls that pass no explicit CachedContent (resolveCachedContent).
// This is the right call for a cache this Client itself should manage
// end to end.
func (c *Client) CreateCache(ctx context.Context, model, systemInstruction string, contents []string, ttl time.Duration, displayName string) (string, error) {
	name, err := c.createCache(ctx, model, systemInstruction, contents, ttl, displayName)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.cache = &cacheState{name: name, model: model, createdAt: time.Now(), ttl: ttl}
	c.mu.Unlock()

	return name, nil
}

// CreateExternalCache implements the same create_cache operation but
// deliberately does NOT register the result as the client's internal
// cache: it is for a caller (the orchestrator's per-volume cache, spec
// §3 "Volume Cache") that keeps the returned name itself and passes it
// back explicitly via every GenerateParams.CachedContent. Keeping this
// cache out of the client's internal-cache slot means ClearCache (called
// before a model-fallback retry, spec P4) can never delete a cache an
// external owner still needs — only DeleteNamedCache, called by that
// owner, does.
func (c *Client) CreateExternalCache(ctx context.Context, model, systemInstruction string, contents []string, ttl time.Duration, displayName string) (string, error) {
	return c.createCache(ctx, model, systemInstruction, contents, ttl, displayName)
}

func (c *Client) createCache(ctx context.Context, model, systemInstruction string, contents []string, ttl time.Duration, displayName string) (string, error) {
	sanitized := sanitizeDisplayName(displayName)

	cacheContents := make([]*genai.Content, 0, len(contents))
	for _, text := range contents {
		cacheContents = append(cacheContents, genai.NewContentFromText(text, genai.RoleUser))
	}

	created, err := c.genaiClient.Caches.Create(ctx, model, &genai.CreateCachedContentConfig{
		DisplayName:       sanitized,
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		Contents:          cacheContents,
		TTL:               ttl,
	})
	if err != nil {
		return "", fmt.Errorf("llm: create_cache failed: %w", err)
	}

	return created.Name, nil
}

// ClearCache deletes the client's internal cache, if any, and forgets it.
// Spec §4.6 requires this before any model-fallback request, since a
// cache is model-specific.
func (c *Client) ClearCache(ctx context.Context) error {
	c.mu.Lock()
	cache := c.cache
	c.cache = nil
	c.mu.Unlock()

	if cache == nil || cache.name == "" {
		return nil
	}

	_, err := c.genaiClient.Caches.Delete(ctx, cache.name, nil)
	if err != nil {
		return fmt.Errorf("llm: delete_cache failed: %w", err)
	}
	return nil
}

// DeleteNamedCache deletes an arbitrary cache by name, used by the
// orchestrator to delete its own volume cache (which is not necessarily
// the client's tracked internal cache - spec §3 "Volume Cache" is owned
// by the orchestrator, not by C1).
func (c *Client) DeleteNamedCache(ctx context.Context, name string) error {
	if name == "" {
		return nil
	}
	_, err := c.genaiClient.Caches.Delete(ctx, name, nil)
	if err != nil {
		return fmt.Errorf("llm: delete_cache(%s) failed: %w", name, err)
	}
	return nil
}
