package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"digital.vasic.lnmtl/internal/llm"
	"digital.vasic.lnmtl/internal/logging"
)

// Generator is the narrow capability this package needs from C1.
type Generator interface {
	Generate(ctx context.Context, params llm.GenerateParams) (llm.Response, error)
}

// Agent generates scene plans from Japanese chapter text. It never
// translates; its output is structural metadata for the translation
// pass that follows.
type Agent struct {
	llm Generator
	cfg Config
	log logging.Logger
}

// NewAgent constructs a planner over an LLM client.
func NewAgent(llmClient Generator, cfg Config, log logging.Logger) *Agent {
	return &Agent{llm: llmClient, cfg: cfg, log: log}
}

// GeneratePlan produces a normalized ScenePlan for one chapter.
func (a *Agent) GeneratePlan(ctx context.Context, chapterID, japaneseText string) (ScenePlan, error) {
	if strings.TrimSpace(japaneseText) == "" {
		return ScenePlan{}, fmt.Errorf("planner: empty source text for chapter %s", chapterID)
	}

	paragraphs := splitParagraphs(japaneseText)
	resp, err := a.llm.Generate(ctx, llm.GenerateParams{
		Prompt:            buildPlanningInput(chapterID, paragraphs),
		SystemInstruction: a.planningPrompt(),
		Temperature:       a.cfg.Temperature,
		MaxOutputTokens:   a.cfg.MaxOutputTokens,
		Model:             a.cfg.Model,
		ForceNewSession:   true, // planning never reuses the translation volume cache
	})
	if err != nil {
		return ScenePlan{}, fmt.Errorf("planner: generate: %w", err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return ScenePlan{}, fmt.Errorf("planner: empty response for chapter %s (finish_reason=%s)", chapterID, resp.FinishReason)
	}

	raw, err := parsePlanJSON(resp.Content)
	if err != nil {
		return ScenePlan{}, fmt.Errorf("planner: chapter %s: %w", chapterID, err)
	}
	if strings.TrimSpace(raw.ChapterID) == "" {
		raw.ChapterID = chapterID
	}

	return a.normalizePlan(raw, len(paragraphs)), nil
}

// planningPrompt is the Stage 1 system instruction: an analyst role,
// the JSON contract, and the allowed vocabulary.
func (a *Agent) planningPrompt() string {
	var sb strings.Builder
	sb.WriteString("# SCENE PLANNING DIRECTIVE\n\n")
	sb.WriteString("You are a narrative structure analyst for Japanese light novels.\n")
	sb.WriteString("DO NOT translate text.\n")
	sb.WriteString("Output one JSON object only.\n\n")
	sb.WriteString("Required top-level keys:\n")
	sb.WriteString("- chapter_id (string)\n- scenes (array)\n- character_profiles (object)\n- overall_tone (string)\n- pacing_strategy (string)\n\n")
	sb.WriteString("Scene item keys:\n")
	sb.WriteString("- id (string)\n")
	fmt.Fprintf(&sb, "- beat_type (one of: %s)\n", strings.Join(a.cfg.BeatTypes, ", "))
	sb.WriteString("- emotional_arc (string)\n")
	fmt.Fprintf(&sb, "- dialogue_register (suggested set: %s)\n", strings.Join(a.cfg.DialogueRegisters, ", "))
	fmt.Fprintf(&sb, "- target_rhythm (one of: %s)\n", strings.Join(sortedKeys(a.cfg.RhythmTargets), ", "))
	sb.WriteString("- illustration_anchor (boolean)\n")
	sb.WriteString("- consistency rule: if beat_type is 'illustration_anchor', illustration_anchor must be true\n")
	sb.WriteString("- start_paragraph (integer or null)\n- end_paragraph (integer or null)\n\n")
	sb.WriteString("Character profile keys:\n")
	sb.WriteString("- name, emotional_state, sentence_bias, relationship_dynamic (string)\n")
	sb.WriteString("- victory_patterns, denial_patterns (array of strings)\n\n")
	sb.WriteString("Keep output compact and actionable.")
	return sb.String()
}

var paragraphSplitPattern = regexp.MustCompile(`\n\s*\n`)

func splitParagraphs(text string) []string {
	var out []string
	for _, p := range paragraphSplitPattern.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 && strings.TrimSpace(text) != "" {
		out = append(out, strings.TrimSpace(text))
	}
	return out
}

// buildPlanningInput numbers every paragraph so the model can anchor
// scene boundaries to [P<n>] references.
func buildPlanningInput(chapterID string, paragraphs []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "CHAPTER_ID: %s\n\nJAPANESE_TEXT:\n", chapterID)
	for i, p := range paragraphs {
		fmt.Fprintf(&sb, "[P%d] %s\n\n", i+1, p)
	}
	return sb.String()
}

// rawPlan is the unvalidated shape the model returns; numbers and
// booleans arrive as json.RawMessage values that normalize coerces.
type rawPlan struct {
	ChapterID         string                `json:"chapter_id"`
	Scenes            []rawScene            `json:"scenes"`
	CharacterProfiles map[string]rawProfile `json:"character_profiles"`
	OverallTone       string                `json:"overall_tone"`
	PacingStrategy    string                `json:"pacing_strategy"`
}

type rawScene struct {
	ID                 string          `json:"id"`
	BeatType           string          `json:"beat_type"`
	EmotionalArc       string          `json:"emotional_arc"`
	DialogueRegister   string          `json:"dialogue_register"`
	TargetRhythm       string          `json:"target_rhythm"`
	IllustrationAnchor json.RawMessage `json:"illustration_anchor"`
	// Alternate anchor keys some models emit instead of the canonical one.
	SceneAnchor    json.RawMessage `json:"scene_anchor"`
	VisualAnchor   json.RawMessage `json:"visual_anchor"`
	StartParagraph json.RawMessage `json:"start_paragraph"`
	EndParagraph   json.RawMessage `json:"end_paragraph"`
}

type rawProfile struct {
	Name                string   `json:"name"`
	EmotionalState      string   `json:"emotional_state"`
	SentenceBias        string   `json:"sentence_bias"`
	VictoryPatterns     []string `json:"victory_patterns"`
	DenialPatterns      []string `json:"denial_patterns"`
	RelationshipDynamic string   `json:"relationship_dynamic"`
}

var fencedJSONPattern = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)```")

// extractJSON pulls the JSON object out of a possibly fenced or
// prose-wrapped model response.
func extractJSON(text string) string {
	candidate := strings.TrimSpace(text)
	if m := fencedJSONPattern.FindStringSubmatch(candidate); m != nil {
		return strings.TrimSpace(m[1])
	}
	start := strings.Index(candidate, "{")
	end := strings.LastIndex(candidate, "}")
	if start != -1 && end > start {
		return candidate[start : end+1]
	}
	return candidate
}

func parsePlanJSON(text string) (rawPlan, error) {
	var raw rawPlan
	if err := json.Unmarshal([]byte(extractJSON(text)), &raw); err != nil {
		return raw, fmt.Errorf("parse plan json: %w", err)
	}
	return raw, nil
}
