package chapter

import (
	"strings"
	"testing"
)

func TestBuildVisualGuidanceCanonNameEnforcement(t *testing.T) {
	cache := map[string]VisualContext{
		"illust-001": {
			Composition:    "サクラ stands alone in the rain.",
			EmotionalDelta: "サクラ's expression hardens.",
		},
	}
	glossary := map[string]string{"サクラ": "Sakura"}

	vg := buildVisualGuidance([]string{"illust-001"}, cache, glossary)
	if vg == nil {
		t.Fatal("expected non-nil guidance")
	}
	if strings.Contains(vg.Text, "サクラ") {
		t.Fatalf("expected JP name replaced with canonical form, got: %s", vg.Text)
	}
	if !strings.Contains(vg.Text, "Sakura stands alone in the rain.") {
		t.Fatalf("expected canonical name substituted in composition, got: %s", vg.Text)
	}
}

func TestBuildVisualGuidanceDoNotRevealEnforced(t *testing.T) {
	vc := VisualContext{Composition: "A quiet room."}
	vc.SpoilerPrevention.DoNotRevealBeforeText = []string{"タロウ is her brother"}
	cache := map[string]VisualContext{"illust-002": vc}

	glossary := map[string]string{"タロウ": "Taro"}
	vg := buildVisualGuidance([]string{"illust-002"}, cache, glossary)
	if vg == nil {
		t.Fatal("expected non-nil guidance")
	}
	if len(vg.DoNotReveal) != 1 || vg.DoNotReveal[0] != "Taro is her brother" {
		t.Fatalf("expected canon-enforced do-not-reveal, got %v", vg.DoNotReveal)
	}
}

func TestBuildVisualGuidanceNilWhenNoMatchingIllustrations(t *testing.T) {
	cache := map[string]VisualContext{"illust-999": {Composition: "unused"}}
	vg := buildVisualGuidance([]string{"illust-001"}, cache, nil)
	if vg != nil {
		t.Fatalf("expected nil guidance when no illustration id matches the cache, got %+v", vg)
	}
}

func TestBuildVisualGuidanceNilWhenNoIDsOrEmptyCache(t *testing.T) {
	if vg := buildVisualGuidance(nil, map[string]VisualContext{"x": {}}, nil); vg != nil {
		t.Fatalf("expected nil guidance with no IDs, got %+v", vg)
	}
	if vg := buildVisualGuidance([]string{"illust-001"}, nil, nil); vg != nil {
		t.Fatalf("expected nil guidance with empty cache, got %+v", vg)
	}
}
