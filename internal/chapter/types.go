// Package chapter implements C5: translate_chapter, the per-chapter
// pipeline that pulls source text, runs RAG lookups, assembles the
// prompt via C4, calls the LLM with the correct cache, and writes the
// cleaned, scene-break-formatted, CJK-scrubbed output (spec §4.5).
package chapter

import (
	"context"

	"digital.vasic.lnmtl/internal/llm"
	"digital.vasic.lnmtl/internal/logging"
	"digital.vasic.lnmtl/internal/vectorstore"
)

// Generator is the narrow capability this package needs from C1.
type Generator interface {
	Generate(ctx context.Context, params llm.GenerateParams) (llm.Response, error)
}

// BulkGuidanceStore is the narrow capability this package needs from
// C2's guidance-oriented pattern-store kinds.
type BulkGuidanceStore interface {
	GetBulkGuidance(ctx context.Context, terms []string, genre, context_ string, minConfidence float64) (vectorstore.BulkGuidance, error)
}

// BadProseStore is the capability the ai_ism store contributes: it is
// consulted over the *output* during post-checks, not over the source
// during prompt assembly like the other three.
type BadProseStore interface {
	FlagBadProse(ctx context.Context, sentences []string, threshold float64) ([]vectorstore.BadProseFlag, error)
}

// VisualContext is one illustration's pre-baked analysis (spec §3
// "VisualContext"), supplied by the external Art Director collaborator
// and consumed read-only here.
type VisualContext struct {
	Composition         string   `json:"composition"`
	EmotionalDelta      string   `json:"emotional_delta"`
	KeyDetails          []string `json:"key_details"`
	NarrativeDirectives []string `json:"narrative_directives"`
	SpoilerPrevention   struct {
		DoNotRevealBeforeText []string `json:"do_not_reveal_before_text"`
	} `json:"spoiler_prevention"`
}

// Request is the input to translate_chapter (spec §4.5).
type Request struct {
	SourcePath string
	OutputPath string
	ChapterID  string
	Title      string // canonical title, or empty to omit an H1

	Model         string
	CachedContent string // the orchestrator's volume cache name, or "" to build a fresh system instruction

	// SystemInstruction is built by the caller (prompt.BuildSystemInstruction)
	// and is used only when CachedContent == "" (spec §4.5 step 6).
	SystemInstruction string

	TargetLang string
	Genre      string

	PreviousChapterBrief string

	// SceneGuidance is the Stage 1 scene plan rendered as a prompt
	// block (planner.FormatGuidance), or "" when no plan exists.
	SceneGuidance string

	// Glossary is the fully-merged JP->target map, used for canon-name
	// enforcement in injected visual text (spec §4.5 step 5).
	Glossary map[string]string

	EnableGapAnalysis bool
	EnableMultimodal  bool

	IllustrationIDs []string // extracted by caller, or left nil to auto-extract from source
	VisualCache     map[string]VisualContext

	Temperature     float32
	MaxOutputTokens int32
}

// Result is TranslationResult (spec §3).
type Result struct {
	Success      bool
	OutputPath   string
	InputTokens  int32
	OutputTokens int32
	Audit        Audit
	Error        string

	ThinkingContent string
	SafetyBlocked   bool // signals the orchestrator to try the fallback model

	// RAGStats is keyed by store kind ("sino_vietnamese", "vietnamese_grammar",
	// "english") for whichever stores this chapter actually queried (spec
	// §4.5 step 4's target-conditional RAG lookups), letting the caller
	// persist real C2 hit/miss activity instead of leaving it unobserved.
	RAGStats map[string]vectorstore.LookupStats
}

// Audit is QualityMetrics.quick_audit's contract-visible shape (spec
// §9 Open Questions: "only its passed/warnings[] shape is part of the
// contract").
type Audit struct {
	Passed   bool
	Warnings []string
}

// Stores bundles the four RAG stores a chapter may consult. Any may be
// nil, meaning that guidance category is simply unavailable (spec
// "RAG auto-rebuild failure: log warning; continue with empty store").
type Stores struct {
	SinoVietnamese     BulkGuidanceStore
	VietnameseGrammar  BulkGuidanceStore
	English            BulkGuidanceStore
	AIIsm              BadProseStore
}

// Processor is C5.
type Processor struct {
	llm    Generator
	stores Stores
	log    logging.Logger
}

// New constructs a Processor.
func New(llmClient Generator, stores Stores, log logging.Logger) *Processor {
	return &Processor{llm: llmClient, stores: stores, log: log}
}
