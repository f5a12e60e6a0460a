package chapter

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"digital.vasic.lnmtl/internal/llm"
	"digital.vasic.lnmtl/internal/logging"
)

// stubGenerator is a deterministic fake standing in for C1 in chapter
// processor tests, matching spec §8's "use a stub LLM returning canned
// outputs" testing guidance.
type stubGenerator struct {
	resp llm.Response
	err  error
	reqs []llm.GenerateParams
}

func (s *stubGenerator) Generate(_ context.Context, params llm.GenerateParams) (llm.Response, error) {
	s.reqs = append(s.reqs, params)
	return s.resp, s.err
}

func writeTestSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTranslateChapterSuccessPath(t *testing.T) {
	dir := t.TempDir()
	src := writeTestSource(t, dir, "in.md", "# 第四章\n\nこれは本文です。\n\n*\n\n続きです。\n")
	outPath := filepath.Join(dir, "out.md")

	gen := &stubGenerator{resp: llm.Response{
		Content:      "```markdown\nThis is the body.\n\n*\n\nThis is the continuation.\n```",
		InputTokens:  100,
		OutputTokens: 50,
		FinishReason: "STOP",
	}}

	p := New(gen, Stores{}, logging.NewNoOp())
	result, err := p.TranslateChapter(context.Background(), Request{
		SourcePath: src,
		OutputPath: outPath,
		ChapterID:  "chapter_04",
		Title:      "Chapter 4",
		TargetLang: "en",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}

	written, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("expected output file written: %v", err)
	}
	out := string(written)
	if !strings.HasPrefix(out, "# Chapter 4\n\n") {
		t.Fatalf("expected H1 title prepended, got: %q", out)
	}
	if strings.Contains(out, "```") {
		t.Fatalf("expected markdown fence stripped, got: %q", out)
	}
	if !strings.Contains(out, "◆") {
		t.Fatalf("expected scene break formatted, got: %q", out)
	}
}

func TestTranslateChapterSafetyBlockReturnsFlag(t *testing.T) {
	dir := t.TempDir()
	src := writeTestSource(t, dir, "in.md", "本文。\n")
	outPath := filepath.Join(dir, "out.md")

	gen := &stubGenerator{resp: llm.Response{
		Content:      "",
		FinishReason: "SAFETY",
	}}

	p := New(gen, Stores{}, logging.NewNoOp())
	result, err := p.TranslateChapter(context.Background(), Request{
		SourcePath: src,
		OutputPath: outPath,
		TargetLang: "en",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success {
		t.Fatal("expected failure on safety block")
	}
	if !result.SafetyBlocked {
		t.Fatal("expected SafetyBlocked=true so the orchestrator tries the fallback model")
	}
	if _, statErr := os.Stat(outPath); statErr == nil {
		t.Fatal("expected no output file written on safety block")
	}
}

func TestTranslateChapterEmptyOutputFails(t *testing.T) {
	dir := t.TempDir()
	src := writeTestSource(t, dir, "in.md", "本文。\n")
	outPath := filepath.Join(dir, "out.md")

	gen := &stubGenerator{resp: llm.Response{Content: "   ", FinishReason: "STOP"}}

	p := New(gen, Stores{}, logging.NewNoOp())
	result, err := p.TranslateChapter(context.Background(), Request{
		SourcePath: src,
		OutputPath: outPath,
		TargetLang: "en",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success {
		t.Fatal("expected failure on empty output")
	}
	if result.SafetyBlocked {
		t.Fatal("empty-non-safety output should not set SafetyBlocked")
	}
}

func TestTranslateChapterLoadSourceFailureIsNotAGoError(t *testing.T) {
	p := New(&stubGenerator{}, Stores{}, logging.NewNoOp())
	result, err := p.TranslateChapter(context.Background(), Request{
		SourcePath: "/nonexistent/path/does/not/exist.md",
		OutputPath: filepath.Join(t.TempDir(), "out.md"),
	})
	if err != nil {
		t.Fatalf("expected the error to surface inside Result, not as a Go error: %v", err)
	}
	if result.Success {
		t.Fatal("expected failure for missing source file")
	}
}

func TestTranslateChapterUsesCachedContentOmitsSystemInstruction(t *testing.T) {
	dir := t.TempDir()
	src := writeTestSource(t, dir, "in.md", "本文。\n")
	outPath := filepath.Join(dir, "out.md")

	gen := &stubGenerator{resp: llm.Response{Content: "Translated.", FinishReason: "STOP"}}
	p := New(gen, Stores{}, logging.NewNoOp())

	_, err := p.TranslateChapter(context.Background(), Request{
		SourcePath:        src,
		OutputPath:        outPath,
		TargetLang:        "en",
		CachedContent:     "volume-cache-name",
		SystemInstruction: "should be ignored",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gen.reqs) != 1 {
		t.Fatalf("expected exactly one generate call, got %d", len(gen.reqs))
	}
	if gen.reqs[0].SystemInstruction != "" {
		t.Fatalf("expected system instruction to be omitted when a cache is used, got %q", gen.reqs[0].SystemInstruction)
	}
	if gen.reqs[0].CachedContent != "volume-cache-name" {
		t.Fatalf("expected cached content to be passed through, got %q", gen.reqs[0].CachedContent)
	}
}

func TestTranslateChapterCJKScrubOnVietnameseTarget(t *testing.T) {
	dir := t.TempDir()
	src := writeTestSource(t, dir, "in.md", "本文。\n")
	outPath := filepath.Join(dir, "out.md")

	// 這 has a table entry in cjkscrub; only scrubbed for vi/vn targets.
	gen := &stubGenerator{resp: llm.Response{Content: "這是 translated text.", FinishReason: "STOP"}}
	p := New(gen, Stores{}, logging.NewNoOp())

	result, err := p.TranslateChapter(context.Background(), Request{
		SourcePath: src,
		OutputPath: outPath,
		TargetLang: "vi",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	written, _ := os.ReadFile(outPath)
	if strings.Contains(string(written), "這") {
		t.Fatalf("expected CJK scrub to replace known hanzi for vi target, got: %q", written)
	}
}
