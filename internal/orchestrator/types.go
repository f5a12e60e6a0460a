// Package orchestrator implements C6: the translator agent that owns a
// volume's translation lifecycle end to end, from loading its manifest
// through per-chapter translation to continuity-pack finalization (spec
// §4.6). It is the only component permitted to mutate the manifest, the
// translation log, or the volume cache; C5 (internal/chapter) only ever
// returns results.
package orchestrator

import (
	"sync"
	"time"

	"digital.vasic.lnmtl/internal/bible"
	"digital.vasic.lnmtl/internal/chapter"
	"digital.vasic.lnmtl/internal/config"
	"digital.vasic.lnmtl/internal/llm"
	"digital.vasic.lnmtl/internal/logging"
	"digital.vasic.lnmtl/internal/progress"
	"digital.vasic.lnmtl/internal/prompt"
	"digital.vasic.lnmtl/internal/storage"
	"digital.vasic.lnmtl/internal/vectorstore"
)

// Options is translate_volume's input (spec §4.6: "Single entry point
// translate_volume(chapters? force?)"), extended with the CLI's
// feature-toggle flags (spec §6 "CLI surface").
type Options struct {
	VolumeDir string
	Lang      string // target language code, e.g. "en", "vi"

	ChapterIDs     []string // empty selects every chapter in the manifest
	Force          bool
	ForcePreflight bool

	EnableContinuity  bool
	EnableGapAnalysis bool
	EnableMultimodal  bool
}

// Result is translate_volume's return value: enough for the CLI to pick
// an exit code (spec §6: "0 = all chapters completed, 1 = partial, 2 =
// invalid input") and for a caller to report what happened.
type Result struct {
	Status            string // "completed" | "partial"
	CompletedChapters []string
	FailedChapters    []string
	SkippedChapters   []string
}

// Orchestrator holds the long-lived handles a translation run needs:
// one LLM client, one bible registry, one prompt loader, and the RAG
// stores C5 consults. A single Orchestrator serves one process; the
// CLI constructs one per invocation.
type Orchestrator struct {
	cfg *config.Config
	log logging.Logger

	llmClient *llm.Client
	bibles    *bible.Registry
	prompts   *prompt.Loader
	processor *chapter.Processor

	stores []*vectorstore.Store // kept to Close() on shutdown

	history storage.Storage // optional; nil means run history/RAG stats are not persisted

	trackerMu sync.RWMutex
	tracker   *progress.Tracker // live progress of the run in flight, if any; nil between runs
}

// SetRunHistory attaches a storage backend that TranslateVolume writes
// run history and RecordRAGLookup stats to. Optional: a nil store (the
// default) disables persistence without changing any translation
// behavior, since storage.Storage only backs the monitor dashboard's
// history view, not C5/C6's own decisions.
func (o *Orchestrator) SetRunHistory(s storage.Storage) {
	o.history = s
}

// Progress returns the live progress of the run currently in flight, or
// nil if no run is active in this process. The monitor dashboard polls
// this to render current volume / chapter progress (SPEC_FULL.md
// MONITOR DASHBOARD section).
func (o *Orchestrator) Progress() *progress.Tracker {
	o.trackerMu.RLock()
	defer o.trackerMu.RUnlock()
	return o.tracker
}

func (o *Orchestrator) setTracker(t *progress.Tracker) {
	o.trackerMu.Lock()
	o.tracker = t
	o.trackerMu.Unlock()
}

// volumeCacheTTL is the TTL requested for the per-volume provider-side
// cache (spec §3 "Volume Cache"), derived from the configured
// cache_ttl_seconds rather than hardcoded so operators can tune it
// alongside the per-request cache TTL.
func volumeCacheTTL(cfg config.LLMConfig) time.Duration {
	if cfg.CacheTTLSeconds <= 0 {
		return time.Hour
	}
	return time.Duration(cfg.CacheTTLSeconds) * time.Second
}
