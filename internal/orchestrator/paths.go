package orchestrator

import (
	"os"
	"path/filepath"
	"strings"
)

// deriveOutputFile computes the volume-relative <LANG>/CHAPTER_NN_<LANG>.md
// path for a chapter from its JP source file, per spec §6's filesystem
// layout (JP/CHAPTER_NN_JP.md -> <LANG>/CHAPTER_NN_<LANG>.md). Used the
// first time a chapter is translated, before manifest.Chapter.OutputFileByLang
// has an entry for this language.
func deriveOutputFile(sourceFile, lang string) string {
	langUpper := strings.ToUpper(lang)
	dir := filepath.Dir(sourceFile)
	base := filepath.Base(sourceFile)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	stem = strings.TrimSuffix(stem, "_JP")

	outDir := langUpper
	if dir != "." && dir != "JP" {
		outDir = filepath.Join(filepath.Dir(dir), langUpper)
	}
	return filepath.Join(outDir, stem+"_"+langUpper+ext)
}

// saveThinking writes a chapter's thinking trace to
// THINKING/<chapter_id>_THINKING.md under the volume directory. The
// content is opaque to the orchestrator; it is preserved verbatim for
// post-hoc inspection.
func saveThinking(volumeDir, chapterID, content string) error {
	dir := filepath.Join(volumeDir, "THINKING")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, chapterID+"_THINKING.md")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
