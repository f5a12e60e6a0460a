package prompt

import (
	"strings"
	"testing"

	"digital.vasic.lnmtl/internal/continuity"
	"digital.vasic.lnmtl/internal/manifest"
)

func TestBuildSystemInstructionLayerOrder(t *testing.T) {
	loader, err := NewLoader(t.TempDir())
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}

	in := SystemInstructionInput{
		Genre:                 "romcom_school_life",
		BiblePromptBlock:      "=== WORLD SETTING ===\nsome bible block",
		WorldSettingDirective: "Honorifics: keep. Name order: JP.",
		Roster:                map[string]string{"サクラ": "Sakura"},
		Glossary:              map[string]string{"剣": "sword"},
		Semantic: manifest.SemanticMetadata{
			CharacterProfiles: []manifest.CharacterProfile{
				{NameJP: "サクラ", NameEN: "Sakura", SpeechFingerprint: "blunt, short sentences"},
			},
		},
		Continuity: &continuity.Pack{
			NarrativeFlags: []string{"Sakura's secret is not yet revealed"},
		},
	}

	out := BuildSystemInstruction(loader, in)

	order := []string{
		loader.MasterPrompt(),
		"=== STYLE GUIDE ===",
		"some bible block",
		"Honorifics: keep",
		"=== CHARACTER ROSTER ===",
		"=== GLOSSARY (authoritative JP -> target) ===",
		"=== CHARACTER SPEECH & SCENE METADATA ===",
		"=== CONTINUITY FROM PRIOR CHAPTERS/VOLUMES ===",
	}

	lastIdx := -1
	for _, marker := range order {
		idx := strings.Index(out, marker)
		if idx == -1 {
			t.Fatalf("expected output to contain %q; got:\n%s", marker, out)
		}
		if idx <= lastIdx {
			t.Fatalf("expected %q to appear after prior section (idx %d <= %d)", marker, idx, lastIdx)
		}
		lastIdx = idx
	}
}

func TestBuildSystemInstructionOmitsEmptySections(t *testing.T) {
	loader, err := NewLoader(t.TempDir())
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}

	out := BuildSystemInstruction(loader, SystemInstructionInput{Genre: "unknown_genre"})

	for _, marker := range []string{
		"=== CHARACTER ROSTER ===",
		"=== GLOSSARY (authoritative JP -> target) ===",
		"=== CHARACTER SPEECH & SCENE METADATA ===",
		"=== CONTINUITY FROM PRIOR CHAPTERS/VOLUMES ===",
	} {
		if strings.Contains(out, marker) {
			t.Errorf("expected empty section %q to be omitted, got:\n%s", marker, out)
		}
	}
}

func TestStyleGuideFallsBackToDefaultGenre(t *testing.T) {
	loader, err := NewLoader(t.TempDir())
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	g := loader.StyleGuideFor("some_genre_with_no_file")
	if g.Genre != defaultGenre {
		t.Fatalf("expected fallback to %q, got %q", defaultGenre, g.Genre)
	}
}

func TestFormatSemanticMetadataPreservesRichFields(t *testing.T) {
	s := manifest.SemanticMetadata{
		CharacterProfiles: []manifest.CharacterProfile{
			{
				NameJP:            "サクラ",
				NameEN:            "Sakura",
				ContractionRate:   0.8,
				KeigoSwitch:       map[string]string{"先生": "formal"},
				HowRefersToOthers: map[string]string{"先生": "sensei"},
				RTAS: []manifest.RTAS{
					{With: "Taro", RelationType: "childhood_friend", Score: 0.9, ContractionRate: 0.6},
				},
			},
		},
	}
	out := formatSemanticMetadata(s)
	for _, want := range []string{"contraction rate: 0.80", "keigo switch", "先生 -> formal", "how they refer to others", "relationship: Taro (childhood_friend, score 0.90)", "contraction override 0.60"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected formatted semantic metadata to contain %q, got:\n%s", want, out)
		}
	}
}
