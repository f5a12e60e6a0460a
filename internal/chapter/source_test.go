package chapter

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSourceStripsH1Title(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chapter.md")
	content := "# 第四章\n\n本文がここにあります。\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	body, title, err := loadSource(path)
	if err != nil {
		t.Fatalf("loadSource: %v", err)
	}
	if title != "第四章" {
		t.Fatalf("expected stripped title %q, got %q", "第四章", title)
	}
	if body != "本文がここにあります。\n" {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestLoadSourceNoTitlePresent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chapter.md")
	content := "本文のみ、タイトルなし。\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	body, title, err := loadSource(path)
	if err != nil {
		t.Fatalf("loadSource: %v", err)
	}
	if title != "" {
		t.Fatalf("expected no title, got %q", title)
	}
	if body != content {
		t.Fatalf("expected body unchanged, got %q", body)
	}
}

func TestExtractIllustrationIDsDedupesAndOrders(t *testing.T) {
	text := "text [ILLUSTRATION: illust-003] more [ILLUSTRATION: illust-001] and again [ILLUSTRATION: illust-003]"
	got := extractIllustrationIDs(text)
	want := []string{"illust-003", "illust-001"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestExtractIllustrationIDsNoneFound(t *testing.T) {
	got := extractIllustrationIDs("no illustration tags here")
	if len(got) != 0 {
		t.Fatalf("expected no IDs, got %v", got)
	}
}

func TestTopKanjiCompoundsOrdersByFrequency(t *testing.T) {
	// 魔法 is extracted twice (its first occurrence is inside the run
	// 魔法使, extracted once as its own compound); 剣士 once.
	text := "魔法使いが魔法を使った。魔法は強い。剣士が現れた。"
	got := topKanjiCompounds(text, 30)
	if len(got) == 0 {
		t.Fatal("expected at least one compound")
	}
	if got[0] != "魔法" {
		t.Fatalf("expected most frequent compound first, got %v", got)
	}
}

func TestTopKanjiCompoundsRespectsLimit(t *testing.T) {
	text := "一二三四五六七八九十"
	got := topKanjiCompounds(text, 2)
	if len(got) > 2 {
		t.Fatalf("expected at most 2 compounds, got %d: %v", len(got), got)
	}
}
