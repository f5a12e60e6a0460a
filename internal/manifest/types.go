// Package manifest normalizes the three schema variants (v1, v2,
// enhanced-v2.1) a volume's manifest.json may arrive in into one
// canonical in-memory shape, per spec §9's "Dynamic dispatch of schema
// versions". Every downstream component (bible, prompt, chapter,
// orchestrator) only ever sees the enhanced shape produced here.
package manifest

import "time"

// ChapterStatus mirrors the translation_status enum on a chapter
// record (spec §3 "Chapter").
type ChapterStatus string

const (
	StatusPending   ChapterStatus = "pending"
	StatusCompleted ChapterStatus = "completed"
	StatusFailed    ChapterStatus = "failed"
)

// Chapter is one chapter record (spec §3 "Chapter" / §6 "Manifest
// contract").
type Chapter struct {
	ID               string        `json:"id"`
	SourceFile       string        `json:"source_file"`
	TitleByLang      map[string]string `json:"title_by_lang,omitempty"`
	OutputFileByLang map[string]string `json:"output_file_by_lang,omitempty"`
	TranslationStatus ChapterStatus `json:"translation_status"`
	ModelOverride    string        `json:"model_override,omitempty"`
	SchemaCache      string        `json:"schema_cache,omitempty"`
	ScenePlanFile    string        `json:"scene_plan_file,omitempty"` // volume-relative, written by the Stage 1 planner
}

// RTAS is a relationship-tagging-array entry: a typed relationship
// with a score and an optional contraction-rate override (spec
// glossary "RTAS").
type RTAS struct {
	With            string  `json:"with"`
	RelationType    string  `json:"relation_type"`
	Score           float64 `json:"score"`
	ContractionRate float64 `json:"contraction_rate_override,omitempty"`
}

// CharacterProfile is the enhanced per-character semantic-metadata
// shape. Legacy v2 profiles lack RTAS/KeigoSwitch/ContractionRate/
// HowRefersToOthers; the normalizer fills them in with defaults rather
// than dropping them (spec §4.4 step 6: "previously these were
// silently dropped").
type CharacterProfile struct {
	NameJP            string            `json:"name_jp"`
	NameEN            string            `json:"name_en"`
	SpeechFingerprint string            `json:"speech_fingerprint,omitempty"`
	KeigoSwitch       map[string]string `json:"keigo_switch,omitempty"`
	ContractionRate   float64           `json:"contraction_rate,omitempty"`
	HowRefersToOthers map[string]string `json:"how_refers_to_others,omitempty"`
	RTAS              []RTAS            `json:"rtas,omitempty"`
}

// SemanticMetadata bundles the per-volume speech/scene metadata the
// prompt loader injects (spec §4.4 step 6).
type SemanticMetadata struct {
	CharacterProfiles []CharacterProfile `json:"character_profiles,omitempty"`
	SceneContexts     []string           `json:"scene_contexts,omitempty"`
	TranslationGuidelines []string       `json:"translation_guidelines,omitempty"`
}

// LanguageMetadata is the per-target-language metadata block
// (`metadata_<lang>` in the manifest contract).
type LanguageMetadata struct {
	CharacterNames map[string]string `json:"character_names,omitempty"`
	SemanticMetadata SemanticMetadata `json:"semantic_metadata,omitempty"`
}

// PipelineState is the subset of pipeline_state this system reads and
// mutates (librarian status read-only; translator and scene-planner
// state owned here).
type PipelineState struct {
	LibrarianStatus string            `json:"librarian_status,omitempty"`
	Translator      TranslatorState   `json:"translator"`
	ScenePlanner    ScenePlannerState `json:"scene_planner,omitempty"`
}

// ScenePlannerState is the Stage 1 planner's persisted run summary.
type ScenePlannerState struct {
	Status          string     `json:"status,omitempty"` // "completed" | "partial"
	GeneratedPlans  int        `json:"generated_plans,omitempty"`
	SkippedPlans    int        `json:"skipped_plans,omitempty"`
	FailedPlans     int        `json:"failed_plans,omitempty"`
	TotalSelected   int        `json:"total_selected,omitempty"`
	Model           string     `json:"model,omitempty"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
	Errors          []string   `json:"errors,omitempty"`
}

// TranslatorState is the persisted state machine (spec §4.6, §6
// "Persisted state layout").
type TranslatorState struct {
	Status         string     `json:"status"`
	TargetLanguage string     `json:"target_language,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	FailedChapters []string   `json:"failed_chapters,omitempty"`
	Model          string     `json:"model,omitempty"`
}

// Manifest is the canonical, schema-normalized in-memory shape every
// downstream component consumes (spec §6 "Manifest contract").
type Manifest struct {
	Path string `json:"-"`

	SchemaVersion  string                       `json:"schema_version"`
	VolumeID       string                       `json:"volume_id"`
	Series         string                       `json:"series"`
	Title          string                       `json:"title"`
	Genre          string                       `json:"genre"`
	PublisherID    string                       `json:"publisher_id,omitempty"`
	BibleID        string                       `json:"bible_id,omitempty"`
	LockedGlossary map[string]string            `json:"locked_glossary,omitempty"`
	LanguageMeta   map[string]LanguageMetadata   `json:"language_metadata,omitempty"`
	Chapters       []Chapter                    `json:"chapters"`
	PipelineState  PipelineState                `json:"pipeline_state"`
}
