package orchestrator

import (
	"testing"

	"digital.vasic.lnmtl/internal/manifest"
)

func TestRunPreflightSkippedForOlderSchema(t *testing.T) {
	m := &manifest.Manifest{SchemaVersion: "2.1"}
	if err := runPreflight(m, false); err != nil {
		t.Fatalf("expected no preflight for pre-3.6 schema, got %v", err)
	}
}

func TestRunPreflightWarnsOnlyWhenLibrarianNotComplete(t *testing.T) {
	m := &manifest.Manifest{
		SchemaVersion: "3.6",
		PipelineState: manifest.PipelineState{LibrarianStatus: "in_progress"},
		Chapters:      []manifest.Chapter{{ID: "chapter_01"}},
	}
	if err := runPreflight(m, false); err != nil {
		t.Fatalf("expected no hard stop when librarian is not complete, got %v", err)
	}
}

func TestRunPreflightBlocksOnMissingSourceFile(t *testing.T) {
	m := &manifest.Manifest{
		SchemaVersion: "3.6",
		PipelineState: manifest.PipelineState{LibrarianStatus: "complete"},
		Chapters:      []manifest.Chapter{{ID: "chapter_01", SourceFile: ""}},
	}
	if err := runPreflight(m, false); err == nil {
		t.Fatal("expected preflight to block on missing source_file")
	}
}

func TestRunPreflightForcePreflightOverrides(t *testing.T) {
	m := &manifest.Manifest{
		SchemaVersion: "3.6",
		PipelineState: manifest.PipelineState{LibrarianStatus: "complete"},
		Chapters:      []manifest.Chapter{{ID: "chapter_01", SourceFile: ""}},
	}
	if err := runPreflight(m, true); err != nil {
		t.Fatalf("expected --force-preflight to override the block, got %v", err)
	}
}

func TestRunPreflightPassesWithSourceFilesPresent(t *testing.T) {
	m := &manifest.Manifest{
		SchemaVersion: "3.6",
		PipelineState: manifest.PipelineState{LibrarianStatus: "complete"},
		Chapters:      []manifest.Chapter{{ID: "chapter_01", SourceFile: "JP/CHAPTER_01_JP.md"}},
	}
	if err := runPreflight(m, false); err != nil {
		t.Fatalf("expected no error when every chapter has a source_file, got %v", err)
	}
}
