package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"

	"digital.vasic.lnmtl/internal/chapter"
)

// loadVisualCache reads visual_cache.json, the Phase-1.6 collaborator's
// pre-baked per-illustration analysis (spec §6 filesystem layout:
// "visual_cache.json ← consumed (from Phase 1.6)"). A missing file is
// not an error: multimodal guidance is simply unavailable for this
// volume.
func loadVisualCache(path string) (map[string]chapter.VisualContext, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]chapter.VisualContext{}, nil
		}
		return nil, fmt.Errorf("orchestrator: read visual cache: %w", err)
	}
	var cache map[string]chapter.VisualContext
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, fmt.Errorf("orchestrator: parse visual cache: %w", err)
	}
	if cache == nil {
		cache = map[string]chapter.VisualContext{}
	}
	return cache, nil
}
