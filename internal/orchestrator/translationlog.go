package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// logEntry is one row of translation_log.json (spec §6 "Persisted state
// layout": "translation_log.chapters = [{chapter_id, input_tokens,
// output_tokens, success, error?, quality?}]").
type logEntry struct {
	ChapterID    string   `json:"chapter_id"`
	InputTokens  int32    `json:"input_tokens"`
	OutputTokens int32    `json:"output_tokens"`
	Success      bool     `json:"success"`
	Error        string   `json:"error,omitempty"`
	Quality      *quality `json:"quality,omitempty"`
}

type quality struct {
	Passed   bool     `json:"passed"`
	Warnings []string `json:"warnings,omitempty"`
}

type translationLog struct {
	Chapters []logEntry `json:"chapters"`
}

func loadTranslationLog(path string) (*translationLog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &translationLog{}, nil
		}
		return nil, fmt.Errorf("orchestrator: read translation log: %w", err)
	}
	var l translationLog
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("orchestrator: parse translation log: %w", err)
	}
	return &l, nil
}

// appendTranslationLog is append-to-translation_log(atomic), the
// per-chapter-loop step spec §4.6 names immediately after each
// translate_chapter call: read-modify-write-temp-then-rename, so a
// crash mid-write never corrupts the log the prior chapters wrote.
func appendTranslationLog(path string, entry logEntry) error {
	l, err := loadTranslationLog(path)
	if err != nil {
		return err
	}
	l.Chapters = append(l.Chapters, entry)

	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("orchestrator: marshal translation log: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-translation-log-*")
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
	return os.Rename(tmpPath, path)
}
