package planner

import (
	"fmt"
	"sort"
	"strings"
)

// FormatGuidance renders a scene plan as the compact prompt block the
// chapter processor injects ahead of translation. Structural hints
// only: the plan tells the translator how each beat should FEEL and
// pace, never what happens in it.
func FormatGuidance(plan ScenePlan) string {
	if len(plan.Scenes) == 0 && len(plan.CharacterProfiles) == 0 {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Overall tone: %s | Pacing: %s\n", plan.OverallTone, plan.PacingStrategy)

	for _, s := range plan.Scenes {
		fmt.Fprintf(&sb, "%s [%s]", s.ID, s.BeatType)
		if s.StartParagraph > 0 {
			if s.EndParagraph > 0 {
				fmt.Fprintf(&sb, " (P%d-P%d)", s.StartParagraph, s.EndParagraph)
			} else {
				fmt.Fprintf(&sb, " (P%d-)", s.StartParagraph)
			}
		}
		fmt.Fprintf(&sb, ": arc=%s, register=%s, rhythm=%s", s.EmotionalArc, s.DialogueRegister, s.TargetRhythm)
		if s.IllustrationAnchor {
			sb.WriteString(", illustration anchor")
		}
		sb.WriteString("\n")
	}

	names := make([]string, 0, len(plan.CharacterProfiles))
	for name := range plan.CharacterProfiles {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := plan.CharacterProfiles[name]
		fmt.Fprintf(&sb, "%s: %s; sentences %s; dynamic: %s\n", p.Name, p.EmotionalState, p.SentenceBias, p.RelationshipDynamic)
		if len(p.VictoryPatterns) > 0 {
			fmt.Fprintf(&sb, "  victory: %s\n", strings.Join(p.VictoryPatterns, " / "))
		}
		if len(p.DenialPatterns) > 0 {
			fmt.Fprintf(&sb, "  denial: %s\n", strings.Join(p.DenialPatterns, " / "))
		}
	}

	return sb.String()
}
