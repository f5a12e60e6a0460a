package chapter

import (
	"regexp"
	"strings"
)

var fencePattern = regexp.MustCompile("(?s)^```[a-zA-Z]*\\n(.*)\\n```\\s*$")

// stripFences removes a single wrapping markdown code fence the model
// sometimes adds around its output (spec §4.5 step 9).
func stripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(trimmed); m != nil {
		return m[1]
	}
	return trimmed
}

var sceneBreakLine = regexp.MustCompile(`(?m)^[ \t]*(\*{1,3})[ \t]*$`)

// formatSceneBreaks replaces any line consisting solely of *, **, or ***
// with a single centered lozenge on its own line (spec §4.5 step 10).
func formatSceneBreaks(text string) string {
	return sceneBreakLine.ReplaceAllString(text, "◆")
}

// analysisLeakPattern flags phrases that betray the model describing
// the illustration/visual-context input rather than just translating
// (spec §4.5 step 8's "post-checks").
var analysisLeakPattern = regexp.MustCompile(`(?i)(i notice|the illustration shows|looking at the image|as depicted in the (illustration|image|picture))`)

// detectAnalysisLeaks returns warning strings for any analysis-leak
// phrase found in output. Only called when visual guidance was
// injected, per spec step 8.
func detectAnalysisLeaks(output string) []string {
	var warnings []string
	for _, m := range analysisLeakPattern.FindAllString(output, -1) {
		warnings = append(warnings, "possible analysis leak: \""+m+"\"")
	}
	return warnings
}

var truncationMarker = regexp.MustCompile(`(?i)(\[truncated\]|\.\.\.\s*$|to be continued in the next part)`)

// quickAudit implements spec §4.5 step 13 / §9's "QualityMetrics.
// quick_audit": non-empty, no truncation marker, output length within
// sanity bounds relative to the source. Only its {passed, warnings[]}
// shape is part of the contract (spec §9 Open Questions).
func quickAudit(sourceBody, output string, extraWarnings []string) Audit {
	var warnings []string
	warnings = append(warnings, extraWarnings...)

	passed := true
	if strings.TrimSpace(output) == "" {
		warnings = append(warnings, "output is empty")
		passed = false
	}
	if truncationMarker.MatchString(output) {
		warnings = append(warnings, "output appears truncated")
		passed = false
	}

	if len(sourceBody) > 0 && len(output) > 0 {
		ratio := float64(len(output)) / float64(len(sourceBody))
		// A JP->EN/VI rendering is typically 1.5-3x longer in bytes
		// (JP is information-dense per codepoint); well outside that
		// band suggests a dropped or runaway generation.
		if ratio < 0.3 || ratio > 6.0 {
			warnings = append(warnings, "output length is implausible relative to source")
		}
	}

	return Audit{Passed: passed, Warnings: warnings}
}
