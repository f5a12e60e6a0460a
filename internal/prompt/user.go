package prompt

import "strings"

// VisualGuidance is the chapter-wide Art Director's Notes block the
// chapter processor assembles from VisualContext entries (spec §4.5
// step 5), already canon-name-enforced (JP names replaced with their
// canonical_en form) before it reaches this package.
type VisualGuidance struct {
	Text          string
	DoNotReveal   []string
}

// UserPromptInput bundles everything spec §4.5's per-chapter user prompt
// assembly needs, in the exact order spec §4.4 "User prompt assembly"
// specifies.
type UserPromptInput struct {
	PreviousChapterBrief string
	ChapterTitle         string
	SourceBody           string // JP H1 title already stripped

	SinoVietnameseGuidance string // only for vi/vn targets
	GapGuidance            string
	DialectGuidance        string
	PatternGuidance        string // english-pattern or vietnamese-pattern RAG guidance
	SceneGuidance          string // Stage 1 scene plan scaffold, when a plan exists for the chapter

	Visual  *VisualGuidance // nil when multimodal is disabled or chapter has no illustrations
}

// canonEventFidelityDirective is the literal prompt-contract text spec
// §4.4 requires verbatim in meaning: Art Director's Notes are stylistic
// only, never a source of new plot content.
const canonEventFidelityDirective = `CANON EVENT FIDELITY: The Art Director's Notes above describe the
illustration's mood and composition for STYLISTIC reference only. You
MUST NOT add any event, action, or detail to the translation that is
visible in the illustration but absent from the source text. You MUST
NOT describe visual details the source text does not mention. You MUST
NOT reveal information listed under "do not reveal" until the source
text itself confirms it.`

const multimodalStrictSuffix = `Do not mention the illustration, the Art Director's Notes, or that you
were given visual context. Write only the chapter translation.`

// BuildUserPrompt assembles the per-chapter user prompt in the fixed
// order spec §4.4 specifies.
func BuildUserPrompt(in UserPromptInput) string {
	var parts []string

	if in.PreviousChapterBrief != "" {
		parts = append(parts, in.PreviousChapterBrief)
	}
	if in.ChapterTitle != "" {
		parts = append(parts, in.ChapterTitle)
	}
	parts = append(parts, in.SourceBody)

	if in.SinoVietnameseGuidance != "" {
		parts = append(parts, "=== SINO-VIETNAMESE GUIDANCE ===\n"+in.SinoVietnameseGuidance)
	}
	if in.SceneGuidance != "" {
		parts = append(parts, "=== SCENE PLAN (narrative scaffold) ===\n"+in.SceneGuidance+
			"\nFollow the beat structure, registers, and rhythm targets above; they describe delivery, not content.")
	}
	if in.GapGuidance != "" {
		parts = append(parts, "=== GAP GUIDANCE ===\n"+in.GapGuidance)
	}
	if in.DialectGuidance != "" {
		parts = append(parts, "=== DIALECT GUIDANCE ===\n"+in.DialectGuidance)
	}
	if in.PatternGuidance != "" {
		parts = append(parts, "=== PATTERN GUIDANCE ===\n"+in.PatternGuidance)
	}

	if in.Visual != nil && in.Visual.Text != "" {
		visual := "=== ART DIRECTOR'S NOTES ===\n" + in.Visual.Text
		if len(in.Visual.DoNotReveal) > 0 {
			visual += "\nDo not reveal (until the source text confirms it): " + strings.Join(in.Visual.DoNotReveal, "; ")
		}
		visual += "\n\n" + canonEventFidelityDirective + "\n\n" + multimodalStrictSuffix
		parts = append(parts, visual)
	}

	return strings.Join(parts, "\n\n")
}
