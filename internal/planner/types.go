// Package planner implements the Stage 1 scene planner: a
// pre-translation pass that turns a chapter's Japanese text into a
// structured narrative scaffold (scene beats with emotional arc and
// pacing, chapter-local character profiles). Plans are persisted to
// PLANS/<chapter_id>_scene_plan.json under the volume directory and
// linked from the manifest; the chapter processor folds an existing
// plan into the translation prompt as scene guidance.
package planner

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// SceneBeat is one narrative beat of a chapter.
type SceneBeat struct {
	ID                 string `json:"id"`
	BeatType           string `json:"beat_type"`
	EmotionalArc       string `json:"emotional_arc"`
	DialogueRegister   string `json:"dialogue_register"`
	TargetRhythm       string `json:"target_rhythm"`
	IllustrationAnchor bool   `json:"illustration_anchor"`
	StartParagraph     int    `json:"start_paragraph,omitempty"` // 1-based; 0 means unknown
	EndParagraph       int    `json:"end_paragraph,omitempty"`   // 1-based; 0 means unknown
}

// CharacterProfile is a chapter-local profile for character speech and
// emotion, distinct from the volume-level semantic-metadata profiles:
// it captures how a character sounds in THIS chapter.
type CharacterProfile struct {
	Name                string   `json:"name"`
	EmotionalState      string   `json:"emotional_state"`
	SentenceBias        string   `json:"sentence_bias"`
	VictoryPatterns     []string `json:"victory_patterns"`
	DenialPatterns      []string `json:"denial_patterns"`
	RelationshipDynamic string   `json:"relationship_dynamic"`
}

// ScenePlan is the narrative scaffold output for one chapter.
type ScenePlan struct {
	ChapterID         string                      `json:"chapter_id"`
	Scenes            []SceneBeat                 `json:"scenes"`
	CharacterProfiles map[string]CharacterProfile `json:"character_profiles"`
	OverallTone       string                      `json:"overall_tone"`
	PacingStrategy    string                      `json:"pacing_strategy"`
}

// Config carries the planner's vocabulary: which beat types, dialogue
// registers, and rhythm targets the model may use, plus the defaults
// normalization falls back to when the model strays.
type Config struct {
	BeatTypes        []string
	DialogueRegisters []string
	// RhythmTargets maps a rhythm key to its word-range hint, e.g.
	// "short_fragments" -> "3-6 words".
	RhythmTargets   map[string]string
	DefaultRegister string
	DefaultRhythm   string

	Model           string
	Temperature     float32
	MaxOutputTokens int32
}

// DefaultConfig returns the planning vocabulary the pipeline ships
// with; deployments override it via a planning config file.
func DefaultConfig() Config {
	return Config{
		BeatTypes: []string{"setup", "escalation", "punchline", "pivot", "illustration_anchor"},
		DialogueRegisters: []string{
			"casual_teen", "flustered_defense", "smug_teasing", "formal_request", "breathless_shock",
		},
		RhythmTargets: map[string]string{
			"short_fragments": "3-6 words",
			"medium_casual":   "8-14 words",
			"long_confession": "18-30 words",
		},
		DefaultRegister: "casual_teen",
		DefaultRhythm:   "medium_casual",
		Model:           "gemini-2.5-flash",
		Temperature:     0.3,
		MaxOutputTokens: 65535,
	}
}

// LoadConfig reads a planning config file, overlaying it on the
// defaults. A missing file yields the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	var file struct {
		BeatTypes         []string          `json:"beat_types"`
		DialogueRegisters []string          `json:"dialogue_registers"`
		RhythmTargets     map[string]string `json:"rhythm_targets"`
		Model             string            `json:"model"`
		Temperature       float32           `json:"temperature"`
		MaxOutputTokens   int32             `json:"max_output_tokens"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return cfg, err
	}
	if len(file.BeatTypes) > 0 {
		cfg.BeatTypes = file.BeatTypes
	}
	if len(file.DialogueRegisters) > 0 {
		cfg.DialogueRegisters = file.DialogueRegisters
		cfg.DefaultRegister = file.DialogueRegisters[0]
	}
	if len(file.RhythmTargets) > 0 {
		cfg.RhythmTargets = file.RhythmTargets
		for _, key := range sortedKeys(file.RhythmTargets) {
			cfg.DefaultRhythm = key
			break
		}
	}
	if file.Model != "" {
		cfg.Model = file.Model
	}
	if file.Temperature != 0 {
		cfg.Temperature = file.Temperature
	}
	if file.MaxOutputTokens != 0 {
		cfg.MaxOutputTokens = file.MaxOutputTokens
	}
	return cfg, nil
}

// PlanFileName returns the volume-relative path of a chapter's plan.
func PlanFileName(chapterID string) string {
	return filepath.Join("PLANS", chapterID+"_scene_plan.json")
}

// SavePlan writes a plan atomically, creating PLANS/ as needed.
func SavePlan(plan ScenePlan, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadPlan reads a previously saved plan.
func LoadPlan(path string) (ScenePlan, error) {
	var plan ScenePlan
	data, err := os.ReadFile(path)
	if err != nil {
		return plan, err
	}
	if err := json.Unmarshal(data, &plan); err != nil {
		return plan, err
	}
	return plan, nil
}
