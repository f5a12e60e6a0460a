package chapter

import (
	"strings"

	"digital.vasic.lnmtl/internal/prompt"
)

// buildVisualGuidance assembles the chapter-wide Art Director's Notes
// block from the pre-baked VisualContext of every illustration id in
// the chapter (spec §4.5 step 5). It applies canon-name enforcement:
// every JP glossary key appearing in the visual text is replaced with
// its canonical target-language form before injection, so the notes
// never leak an un-normalized Japanese name into the prompt.
func buildVisualGuidance(ids []string, cache map[string]VisualContext, glossary map[string]string) *prompt.VisualGuidance {
	if len(ids) == 0 || len(cache) == 0 {
		return nil
	}

	var sb strings.Builder
	var doNotReveal []string
	found := false

	for _, id := range ids {
		vc, ok := cache[id]
		if !ok {
			continue
		}
		found = true
		sb.WriteString("Illustration " + id + ":\n")
		if vc.Composition != "" {
			sb.WriteString("  Composition: " + enforceCanonNames(vc.Composition, glossary) + "\n")
		}
		if vc.EmotionalDelta != "" {
			sb.WriteString("  Emotional shift: " + enforceCanonNames(vc.EmotionalDelta, glossary) + "\n")
		}
		for _, d := range vc.KeyDetails {
			sb.WriteString("  Detail: " + enforceCanonNames(d, glossary) + "\n")
		}
		for _, n := range vc.NarrativeDirectives {
			sb.WriteString("  Directive: " + enforceCanonNames(n, glossary) + "\n")
		}
		for _, r := range vc.SpoilerPrevention.DoNotRevealBeforeText {
			doNotReveal = append(doNotReveal, enforceCanonNames(r, glossary))
		}
	}

	if !found {
		return nil
	}

	return &prompt.VisualGuidance{Text: sb.String(), DoNotReveal: doNotReveal}
}

// enforceCanonNames replaces every JP glossary key found in text with
// its resolved canonical target-language value, the "canon-name
// enforcement" spec §4.5 step 5 requires before visual text is
// injected into the prompt.
func enforceCanonNames(text string, glossary map[string]string) string {
	for jp, canonical := range glossary {
		if jp == "" || canonical == "" {
			continue
		}
		text = strings.ReplaceAll(text, jp, canonical)
	}
	return text
}
