package prompt

import (
	"strings"
	"testing"
)

func TestBuildUserPromptOrderAndOmission(t *testing.T) {
	in := UserPromptInput{
		ChapterTitle:    "Chapter 4",
		SourceBody:      "本文がここにあります。",
		GapGuidance:     "some gap guidance",
		PatternGuidance: "some pattern guidance",
	}
	out := BuildUserPrompt(in)

	for _, absent := range []string{"SINO-VIETNAMESE GUIDANCE", "DIALECT GUIDANCE", "ART DIRECTOR'S NOTES"} {
		if strings.Contains(out, absent) {
			t.Errorf("expected %q to be omitted when not set, got:\n%s", absent, out)
		}
	}

	titleIdx := strings.Index(out, "Chapter 4")
	bodyIdx := strings.Index(out, "本文がここにあります")
	gapIdx := strings.Index(out, "=== GAP GUIDANCE ===")
	patternIdx := strings.Index(out, "=== PATTERN GUIDANCE ===")
	if !(titleIdx < bodyIdx && bodyIdx < gapIdx && gapIdx < patternIdx) {
		t.Fatalf("expected title < body < gap < pattern ordering, got indices %d %d %d %d", titleIdx, bodyIdx, gapIdx, patternIdx)
	}
}

func TestBuildUserPromptVisualIncludesFidelityDirective(t *testing.T) {
	in := UserPromptInput{
		SourceBody: "本文",
		Visual: &VisualGuidance{
			Text:        "A tense standoff in the rain.",
			DoNotReveal: []string{"Sakura's scar"},
		},
	}
	out := BuildUserPrompt(in)

	for _, want := range []string{
		"=== ART DIRECTOR'S NOTES ===",
		"A tense standoff in the rain.",
		"Do not reveal (until the source text confirms it): Sakura's scar",
		"CANON EVENT FIDELITY",
		"MUST NOT add any event",
		multimodalStrictSuffix,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}

	// Fidelity directive must come after the visual text and do-not-reveal list.
	visualIdx := strings.Index(out, "A tense standoff in the rain.")
	revealIdx := strings.Index(out, "Do not reveal")
	fidelityIdx := strings.Index(out, "CANON EVENT FIDELITY")
	if !(visualIdx < revealIdx && revealIdx < fidelityIdx) {
		t.Fatalf("expected visual text < do-not-reveal < fidelity directive ordering")
	}
}

func TestBuildUserPromptOmitsVisualWhenTextEmpty(t *testing.T) {
	in := UserPromptInput{
		SourceBody: "本文",
		Visual:     &VisualGuidance{},
	}
	out := BuildUserPrompt(in)
	if strings.Contains(out, "ART DIRECTOR'S NOTES") {
		t.Fatalf("expected no visual section when Visual.Text is empty, got:\n%s", out)
	}
}

func TestBuildUserPromptPreviousChapterBriefFirst(t *testing.T) {
	in := UserPromptInput{
		PreviousChapterBrief: "Previously, Sakura confronted her rival.",
		ChapterTitle:         "Chapter 5",
		SourceBody:           "本文",
	}
	out := BuildUserPrompt(in)
	if !strings.HasPrefix(out, "Previously, Sakura confronted her rival.") {
		t.Fatalf("expected previous-chapter brief to lead the prompt, got:\n%s", out)
	}
}

func TestBuildUserPromptSceneGuidancePlacement(t *testing.T) {
	in := UserPromptInput{
		SourceBody:    "本文",
		SceneGuidance: "scene_01 [setup]: arc=calm, register=casual_teen, rhythm=medium_casual",
		GapGuidance:   "some gap guidance",
	}
	out := BuildUserPrompt(in)

	if !strings.Contains(out, "=== SCENE PLAN (narrative scaffold) ===") {
		t.Fatalf("expected scene plan block, got:\n%s", out)
	}
	if !strings.Contains(out, "they describe delivery, not content") {
		t.Error("expected the delivery-not-content rider on the scene plan block")
	}

	sceneIdx := strings.Index(out, "=== SCENE PLAN")
	gapIdx := strings.Index(out, "=== GAP GUIDANCE ===")
	bodyIdx := strings.Index(out, "本文")
	if !(bodyIdx < sceneIdx && sceneIdx < gapIdx) {
		t.Fatalf("expected body < scene plan < gap ordering, got indices %d %d %d", bodyIdx, sceneIdx, gapIdx)
	}

	if strings.Contains(BuildUserPrompt(UserPromptInput{SourceBody: "本文"}), "SCENE PLAN") {
		t.Error("expected scene plan block omitted when no plan exists")
	}
}
