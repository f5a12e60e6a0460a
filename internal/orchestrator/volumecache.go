package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"digital.vasic.lnmtl/internal/manifest"
)

// createVolumeCache implements spec §4.6 initialization step 7:
// concatenate every target chapter's JP source (wrapped in a
// <CHAPTER id=... canonical_title=... source_file=...> tag) and cache
// it provider-side alongside the system instruction, so every
// per-chapter request reuses the same cached context instead of
// resending the whole volume. On failure it falls back to a
// prompt-only external cache (system instruction only, no chapter
// bodies); if that also fails, the run proceeds uncached.
func (o *Orchestrator) createVolumeCache(ctx context.Context, volumeDir string, m *manifest.Manifest, targets []manifest.Chapter, model, systemInstruction string) (name string, have bool) {
	contents := make([]string, 0, len(targets))
	for _, ch := range targets {
		canonical := manifest.CanonicalTitle(ch.ID)
		body, err := os.ReadFile(filepath.Join(volumeDir, ch.SourceFile))
		if err != nil {
			o.log.Warn("orchestrator: read chapter source for volume cache failed", map[string]interface{}{"chapter_id": ch.ID, "error": err.Error()})
			continue
		}
		wrapped := fmt.Sprintf("<CHAPTER id=%q canonical_title=%q source_file=%q>\n%s\n</CHAPTER>", ch.ID, canonical, ch.SourceFile, string(body))
		contents = append(contents, wrapped)
	}

	ttl := volumeCacheTTL(o.cfg.LLM)
	displayName := m.VolumeID + "_full"

	// CreateExternalCache, not CreateCache: this cache is owned by the
	// orchestrator for the life of the whole volume run, tracked in
	// TranslateVolume's volumeCacheName/haveVolumeCache locals and deleted exactly
	// once in finalize. It must never become the llm.Client's internal
	// cache, or a later ClearCache (run before a model-fallback retry)
	// would delete it out from under still-pending chapters.
	cacheName, err := o.llmClient.CreateExternalCache(ctx, model, systemInstruction, contents, ttl, displayName)
	if err == nil {
		return cacheName, true
	}
	o.log.Warn("orchestrator: create_cache failed, falling back to prompt-only cache", map[string]interface{}{"error": err.Error()})

	cacheName, err = o.llmClient.CreateExternalCache(ctx, model, systemInstruction, nil, ttl, displayName+"_prompt_only")
	if err == nil {
		return cacheName, true
	}
	o.log.Warn("orchestrator: prompt-only cache fallback also failed, proceeding uncached", map[string]interface{}{"error": err.Error()})
	return "", false
}
