package chapter

import (
	"strings"
	"testing"
)

func TestStripFencesRemovesWrappingFence(t *testing.T) {
	in := "```markdown\nHello, world.\n```"
	got := stripFences(in)
	if got != "Hello, world." {
		t.Fatalf("got %q", got)
	}
}

func TestStripFencesNoOpWithoutFence(t *testing.T) {
	in := "Hello, world."
	if got := stripFences(in); got != in {
		t.Fatalf("got %q, want unchanged %q", got, in)
	}
}

func TestFormatSceneBreaksReplacesStarLines(t *testing.T) {
	in := "Para one.\n\n***\n\nPara two.\n\n*\n\nPara three.\n\n**\n"
	out := formatSceneBreaks(in)
	if strings.Contains(out, "*") {
		t.Fatalf("expected all bare-star lines replaced, got:\n%s", out)
	}
	if strings.Count(out, "◆") != 3 {
		t.Fatalf("expected 3 scene breaks, got:\n%s", out)
	}
}

func TestFormatSceneBreaksIgnoresInlineAsterisks(t *testing.T) {
	in := "This is *emphasis* and **bold** text, not a scene break."
	out := formatSceneBreaks(in)
	if out != in {
		t.Fatalf("expected inline emphasis untouched, got:\n%s", out)
	}
}

func TestDetectAnalysisLeaks(t *testing.T) {
	out := detectAnalysisLeaks("I notice the tension in the room. The illustration shows her crying.")
	if len(out) != 2 {
		t.Fatalf("expected 2 leak warnings, got %d: %v", len(out), out)
	}
}

func TestDetectAnalysisLeaksCleanOutput(t *testing.T) {
	out := detectAnalysisLeaks("She looked away, unwilling to meet his eyes.")
	if len(out) != 0 {
		t.Fatalf("expected no leak warnings, got %v", out)
	}
}

func TestQuickAuditFlagsEmptyOutput(t *testing.T) {
	a := quickAudit("some source text", "", nil)
	if a.Passed {
		t.Fatal("expected empty output to fail audit")
	}
	if len(a.Warnings) == 0 {
		t.Fatal("expected a warning for empty output")
	}
}

func TestQuickAuditFlagsTruncation(t *testing.T) {
	a := quickAudit("some source text of reasonable length here", "A partial translation...", nil)
	if a.Passed {
		t.Fatal("expected truncation marker to fail audit")
	}
}

func TestQuickAuditPassesPlausibleOutput(t *testing.T) {
	source := strings.Repeat("日本語のテキスト。", 20)
	output := strings.Repeat("A reasonably long piece of translated English prose. ", 10)
	a := quickAudit(source, output, nil)
	if !a.Passed {
		t.Fatalf("expected plausible-length output to pass, got warnings: %v", a.Warnings)
	}
}

func TestQuickAuditFlagsImplausibleLength(t *testing.T) {
	source := strings.Repeat("日本語のテキストがここにたくさんあります。", 50)
	output := "Hi."
	a := quickAudit(source, output, nil)
	found := false
	for _, w := range a.Warnings {
		if strings.Contains(w, "implausible") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an implausible-length warning, got %v", a.Warnings)
	}
}
