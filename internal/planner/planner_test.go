package planner

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.lnmtl/internal/llm"
	"digital.vasic.lnmtl/internal/logging"
	"digital.vasic.lnmtl/internal/manifest"
)

// stubGenerator returns a canned planning response, recording the
// params it was called with.
type stubGenerator struct {
	content string
	err     error
	calls   []llm.GenerateParams
}

func (s *stubGenerator) Generate(ctx context.Context, params llm.GenerateParams) (llm.Response, error) {
	s.calls = append(s.calls, params)
	if s.err != nil {
		return llm.Response{}, s.err
	}
	return llm.Response{Content: s.content, FinishReason: "STOP"}, nil
}

const plannerJSON = `{
  "chapter_id": "",
  "scenes": [
    {"id": "scene_01", "beat_type": "setup", "emotional_arc": "calm_before", "dialogue_register": "casual_teen", "target_rhythm": "medium_casual", "illustration_anchor": false, "start_paragraph": 1, "end_paragraph": 3},
    {"id": "scene_02", "beat_type": "illustration_anchor", "emotional_arc": "shock_reveal", "dialogue_register": "Breathless / Shocked", "target_rhythm": "3-6 words", "start_paragraph": 6, "end_paragraph": 8}
  ],
  "character_profiles": {
    "エレン": {"name": "Elen", "emotional_state": "smug", "sentence_bias": "short jabs", "victory_patterns": ["Fufu.", ""], "denial_patterns": [], "relationship_dynamic": "teasing superior"}
  },
  "overall_tone": "playful",
  "pacing_strategy": "slow burn"
}`

func newTestAgent(gen Generator) *Agent {
	return NewAgent(gen, DefaultConfig(), logging.NewNoOp())
}

func TestGeneratePlanNormalizes(t *testing.T) {
	gen := &stubGenerator{content: "```json\n" + plannerJSON + "\n```"}
	agent := newTestAgent(gen)

	text := "一段落。\n\n二段落。\n\n三段落。\n\n四段落。\n\n五段落。\n\n六段落。\n\n七段落。\n\n八段落。\n\n九段落。"
	plan, err := agent.GeneratePlan(context.Background(), "chapter_02", text)
	require.NoError(t, err)

	// Empty chapter_id in the response is backfilled from the request.
	assert.Equal(t, "chapter_02", plan.ChapterID)
	require.Len(t, plan.Scenes, 2)

	// The anchor beat's consistency rule: beat_type implies the flag
	// when the model omits it.
	assert.True(t, plan.Scenes[1].IllustrationAnchor)
	assert.False(t, plan.Scenes[0].IllustrationAnchor)

	// Free-form register maps into the configured vocabulary.
	assert.Equal(t, "breathless_shock", plan.Scenes[1].DialogueRegister)
	// A word-range rhythm snaps to the nearest configured key.
	assert.Equal(t, "short_fragments", plan.Scenes[1].TargetRhythm)

	// The P4-P5 gap between the scenes is healed (gap of 2 <= max).
	assert.Equal(t, 5, plan.Scenes[0].EndParagraph)
	// The tail gap (P9 after scene_02's P8) is healed too.
	assert.Equal(t, 9, plan.Scenes[1].EndParagraph)

	require.Contains(t, plan.CharacterProfiles, "エレン")
	profile := plan.CharacterProfiles["エレン"]
	assert.Equal(t, "Elen", profile.Name)
	assert.Equal(t, []string{"Fufu."}, profile.VictoryPatterns)

	// Planning never reuses the translation volume cache.
	require.Len(t, gen.calls, 1)
	assert.True(t, gen.calls[0].ForceNewSession)
	assert.Contains(t, gen.calls[0].Prompt, "[P1]")
	assert.Contains(t, gen.calls[0].SystemInstruction, "DO NOT translate")
}

func TestGeneratePlanEmptySourceFails(t *testing.T) {
	agent := newTestAgent(&stubGenerator{content: "{}"})
	_, err := agent.GeneratePlan(context.Background(), "chapter_01", "   \n ")
	require.Error(t, err)
}

func TestGeneratePlanEmptySceneListGetsFallbackBeat(t *testing.T) {
	agent := newTestAgent(&stubGenerator{content: `{"chapter_id": "chapter_01", "scenes": [], "overall_tone": "", "pacing_strategy": ""}`})
	plan, err := agent.GeneratePlan(context.Background(), "chapter_01", "本文。")
	require.NoError(t, err)
	require.Len(t, plan.Scenes, 1)
	assert.Equal(t, "setup", plan.Scenes[0].BeatType)
	assert.Equal(t, "neutral", plan.OverallTone)
	assert.Equal(t, "standard", plan.PacingStrategy)
}

func TestGeneratePlanUnknownBeatTypeFallsBack(t *testing.T) {
	agent := newTestAgent(&stubGenerator{content: `{"chapter_id": "c", "scenes": [{"id": "s1", "beat_type": "crescendo"}]}`})
	plan, err := agent.GeneratePlan(context.Background(), "c", "本文。")
	require.NoError(t, err)
	assert.Equal(t, "setup", plan.Scenes[0].BeatType)
}

func TestExtractJSONVariants(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, extractJSON("Here is the plan:\n{\"a\":1}\nDone."))
	assert.Equal(t, `{"a":1}`, extractJSON(`{"a":1}`))
}

func TestMapTargetRhythmKeywords(t *testing.T) {
	agent := newTestAgent(&stubGenerator{})
	assert.Equal(t, "short_fragments", agent.mapTargetRhythm("quick banter"))
	assert.Equal(t, "long_confession", agent.mapTargetRhythm("slow tender confession"))
	assert.Equal(t, "medium_casual", agent.mapTargetRhythm("medium_casual"))
	assert.Equal(t, "medium_casual", agent.mapTargetRhythm(""))
}

func TestHealCoverageGapsSkipsLargeGaps(t *testing.T) {
	scenes := []SceneBeat{
		{ID: "s1", StartParagraph: 1, EndParagraph: 2},
		{ID: "s2", StartParagraph: 9, EndParagraph: 10},
	}
	healCoverageGaps(scenes, 10)
	assert.Equal(t, 2, scenes[0].EndParagraph) // gap of 6 is left alone
}

func TestFilterChapters(t *testing.T) {
	chapters := []manifest.Chapter{
		{ID: "chapter_01", SourceFile: "JP/CHAPTER_01_JP.md"},
		{ID: "chapter_02", SourceFile: "JP/CHAPTER_02_JP.md"},
	}

	assert.Len(t, FilterChapters(chapters, nil), 2)
	assert.Equal(t, "chapter_02", FilterChapters(chapters, []string{"chapter_02"})[0].ID)
	assert.Equal(t, "chapter_02", FilterChapters(chapters, []string{"2"})[0].ID)
	assert.Equal(t, "chapter_01", FilterChapters(chapters, []string{"CHAPTER_01_JP.md"})[0].ID)
	assert.Empty(t, FilterChapters(chapters, []string{"chapter_99"}))
}

func TestSaveAndLoadPlanRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "PLANS", "chapter_01_scene_plan.json")
	plan := ScenePlan{
		ChapterID:      "chapter_01",
		Scenes:         []SceneBeat{{ID: "scene_01", BeatType: "setup", DialogueRegister: "casual_teen", TargetRhythm: "medium_casual"}},
		OverallTone:    "neutral",
		PacingStrategy: "standard",
	}
	require.NoError(t, SavePlan(plan, path))

	loaded, err := LoadPlan(path)
	require.NoError(t, err)
	assert.Equal(t, plan.ChapterID, loaded.ChapterID)
	assert.Equal(t, plan.Scenes, loaded.Scenes)
}

func TestFormatGuidance(t *testing.T) {
	plan := ScenePlan{
		ChapterID:      "chapter_01",
		OverallTone:    "playful",
		PacingStrategy: "slow burn",
		Scenes: []SceneBeat{
			{ID: "scene_01", BeatType: "setup", EmotionalArc: "calm", DialogueRegister: "casual_teen", TargetRhythm: "medium_casual", StartParagraph: 1, EndParagraph: 4},
			{ID: "scene_02", BeatType: "illustration_anchor", EmotionalArc: "reveal", DialogueRegister: "breathless_shock", TargetRhythm: "short_fragments", IllustrationAnchor: true},
		},
		CharacterProfiles: map[string]CharacterProfile{
			"エレン": {Name: "Elen", EmotionalState: "smug", SentenceBias: "short jabs", VictoryPatterns: []string{"Fufu."}, RelationshipDynamic: "teasing"},
		},
	}
	out := FormatGuidance(plan)
	assert.Contains(t, out, "Overall tone: playful | Pacing: slow burn")
	assert.Contains(t, out, "scene_01 [setup] (P1-P4)")
	assert.Contains(t, out, "illustration anchor")
	assert.Contains(t, out, "Elen: smug; sentences short jabs; dynamic: teasing")
	assert.Contains(t, out, "victory: Fufu.")
}

func TestFormatGuidanceEmptyPlan(t *testing.T) {
	assert.Equal(t, "", FormatGuidance(ScenePlan{OverallTone: "x", PacingStrategy: "y"}))
}

const runnerManifest = `{
  "schema_version": "2.1",
  "volume_id": "vol_test_a3f2",
  "metadata": {"series": "Test Series", "title": "Test Vol 1", "genre": "romcom_school_life"},
  "chapters": [
    {"id": "chapter_01", "source_file": "JP/CHAPTER_01_JP.md", "translation_status": "pending"},
    {"id": "chapter_02", "source_file": "JP/CHAPTER_02_JP.md", "translation_status": "pending"}
  ],
  "pipeline_state": {"librarian": {"status": "complete"}, "translator": {"status": "idle"}}
}`

func writeRunnerVolume(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "JP"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(runnerManifest), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "JP", "CHAPTER_01_JP.md"), []byte("# 第一章\n\n本文一。"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "JP", "CHAPTER_02_JP.md"), []byte("# 第二章\n\n本文二。"), 0o644))
	return dir
}

func TestRunnerPlansVolumeAndUpdatesManifest(t *testing.T) {
	dir := writeRunnerVolume(t)
	gen := &stubGenerator{content: plannerJSON}
	runner := NewRunner(newTestAgent(gen), logging.NewNoOp())

	result, err := runner.Run(context.Background(), RunOptions{VolumeDir: dir})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Generated)
	assert.Equal(t, 0, result.Failed)

	for _, id := range []string{"chapter_01", "chapter_02"} {
		planPath := filepath.Join(dir, "PLANS", id+"_scene_plan.json")
		require.FileExists(t, planPath)
		plan, err := LoadPlan(planPath)
		require.NoError(t, err)
		assert.Equal(t, id, plan.ChapterID)
	}

	m, err := manifest.Load(filepath.Join(dir, "manifest.json"))
	require.NoError(t, err)
	assert.Equal(t, "completed", m.PipelineState.ScenePlanner.Status)
	assert.Equal(t, 2, m.PipelineState.ScenePlanner.GeneratedPlans)
	assert.Equal(t, filepath.Join("PLANS", "chapter_01_scene_plan.json"), m.Chapters[0].ScenePlanFile)
}

func TestRunnerSkipsExistingPlans(t *testing.T) {
	dir := writeRunnerVolume(t)
	gen := &stubGenerator{content: plannerJSON}
	runner := NewRunner(newTestAgent(gen), logging.NewNoOp())

	_, err := runner.Run(context.Background(), RunOptions{VolumeDir: dir})
	require.NoError(t, err)
	callsAfterFirst := len(gen.calls)

	result, err := runner.Run(context.Background(), RunOptions{VolumeDir: dir})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Generated)
	assert.Equal(t, 2, result.Skipped)
	assert.Len(t, gen.calls, callsAfterFirst) // no new LLM calls

	// Force regenerates.
	result, err = runner.Run(context.Background(), RunOptions{VolumeDir: dir, Force: true})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Generated)
}

func TestRunnerRecordsPartialOnFailure(t *testing.T) {
	dir := writeRunnerVolume(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "JP", "CHAPTER_02_JP.md")))

	runner := NewRunner(newTestAgent(&stubGenerator{content: plannerJSON}), logging.NewNoOp())
	result, err := runner.Run(context.Background(), RunOptions{VolumeDir: dir})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Generated)
	assert.Equal(t, 1, result.Failed)

	m, err := manifest.Load(filepath.Join(dir, "manifest.json"))
	require.NoError(t, err)
	assert.Equal(t, "partial", m.PipelineState.ScenePlanner.Status)
}

func TestLoadConfigOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "planning_config.json")
	file := map[string]interface{}{
		"beat_types":         []string{"setup", "pivot"},
		"dialogue_registers": []string{"formal_court"},
		"rhythm_targets":     map[string]string{"clipped": "2-4 words"},
		"model":              "gemini-2.5-pro",
	}
	data, err := json.Marshal(file)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"setup", "pivot"}, cfg.BeatTypes)
	assert.Equal(t, "formal_court", cfg.DefaultRegister)
	assert.Equal(t, "clipped", cfg.DefaultRhythm)
	assert.Equal(t, "gemini-2.5-pro", cfg.Model)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().BeatTypes, cfg.BeatTypes)
}
