package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// atomicWrite writes data to a temp file in the same directory then
// renames it over path (spec §5 "Ordering guarantees": manifest
// updates must be durable before the next chapter starts).
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-manifest-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Save persists the manifest back to its original path (or to path,
// if given), mutating only the fields the translator owns (spec §6:
// "mutates only chapters[*].{translation_status, <lang>_file, model,
// schema_cache} and pipeline_state.translator.*"). Since this package
// round-trips the full normalized document, callers must not hand-edit
// any read-only field before calling Save.
func (m *Manifest) Save() error {
	path := m.Path
	if path == "" {
		return fmt.Errorf("manifest: save called with no path")
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: marshal: %w", err)
	}
	return atomicWrite(path, data)
}

// RequiresPreflight reports whether this manifest's schema version
// requires the v3.6 structural pre-flight check (spec §4.6 step 1).
func (m *Manifest) RequiresPreflight() bool {
	return m.SchemaVersion == "3.6"
}

// Chapter looks up a chapter by id.
func (m *Manifest) Chapter(id string) (*Chapter, bool) {
	for i := range m.Chapters {
		if m.Chapters[i].ID == id {
			return &m.Chapters[i], true
		}
	}
	return nil, false
}

// MarkCompleted mutates a chapter's status and output file, the only
// per-chapter fields the orchestrator owns.
func (m *Manifest) MarkCompleted(chapterID, lang, outputFile string) {
	for i := range m.Chapters {
		if m.Chapters[i].ID != chapterID {
			continue
		}
		m.Chapters[i].TranslationStatus = StatusCompleted
		if m.Chapters[i].OutputFileByLang == nil {
			m.Chapters[i].OutputFileByLang = map[string]string{}
		}
		m.Chapters[i].OutputFileByLang[lang] = outputFile
		return
	}
}

// MarkFailed mutates a chapter's status to failed.
func (m *Manifest) MarkFailed(chapterID string) {
	for i := range m.Chapters {
		if m.Chapters[i].ID == chapterID {
			m.Chapters[i].TranslationStatus = StatusFailed
			return
		}
	}
}

// SetModel records which model actually produced a chapter's output
// (relevant after a fallback-model retry, spec §4.6 per-chapter loop).
func (m *Manifest) SetModel(chapterID, model string) {
	for i := range m.Chapters {
		if m.Chapters[i].ID == chapterID {
			m.Chapters[i].ModelOverride = model
			return
		}
	}
}

// SetScenePlanFile records the Stage 1 planner's output file for a
// chapter (volume-relative path).
func (m *Manifest) SetScenePlanFile(chapterID, planFile string) {
	for i := range m.Chapters {
		if m.Chapters[i].ID == chapterID {
			m.Chapters[i].ScenePlanFile = planFile
			return
		}
	}
}

// FinishScenePlanning records the Stage 1 planner's run summary.
func (m *Manifest) FinishScenePlanning(state ScenePlannerState) {
	t := time.Now()
	state.UpdatedAt = &t
	m.PipelineState.ScenePlanner = state
}

// BeginTranslation transitions pipeline_state.translator into
// in_progress, recording the start time on first entry only.
func (m *Manifest) BeginTranslation(targetLanguage, model string) {
	if m.PipelineState.Translator.StartedAt == nil {
		t := time.Now()
		m.PipelineState.Translator.StartedAt = &t
	}
	m.PipelineState.Translator.Status = "in_progress"
	m.PipelineState.Translator.TargetLanguage = targetLanguage
	m.PipelineState.Translator.Model = model
}

// FinishTranslation transitions pipeline_state.translator into its
// terminal status (spec §4.6 "Finalization").
func (m *Manifest) FinishTranslation(allSucceeded bool, failedChapters []string) {
	t := time.Now()
	m.PipelineState.Translator.CompletedAt = &t
	m.PipelineState.Translator.FailedChapters = failedChapters
	if allSucceeded {
		m.PipelineState.Translator.Status = "completed"
	} else {
		m.PipelineState.Translator.Status = "partial"
	}
}
