// Package progress tracks one volume's live translation progress for
// the monitor dashboard: current chapter, completion percentage,
// elapsed/ETA, and the running item counters the orchestrator updates
// as translate_volume's per-chapter loop advances. Adapted from the
// teacher's pkg/progress.Tracker, generalized from "book/section" to
// "volume/chapter" and wired to internal/orchestrator instead of the
// teacher's ebook pipeline.
package progress

import (
	"strconv"
	"sync"
	"time"
)

// VolumeProgress is the dashboard-facing snapshot of a run in flight
// (spec's MONITOR DASHBOARD section: "current volume, chapter
// progress, token usage, cache status").
type VolumeProgress struct {
	VolumeID       string `json:"volume_id"`
	TotalChapters  int    `json:"total_chapters"`
	CurrentChapter int    `json:"current_chapter"`
	ChapterID      string `json:"chapter_id"`

	PercentComplete float64 `json:"percent_complete"`
	ChaptersDone    int     `json:"chapters_done"`
	ChaptersFailed  int     `json:"chapters_failed"`

	StartTime    time.Time `json:"start_time"`
	ElapsedTime  string    `json:"elapsed_time"`
	EstimatedETA string    `json:"estimated_eta"`

	TargetLanguage string `json:"target_language"`
	Model          string `json:"model"`

	Status      string `json:"status"` // "initializing", "translating", "completed", "partial", "error"
	CurrentTask string `json:"current_task"`

	InputTokens  int32 `json:"input_tokens"`
	OutputTokens int32 `json:"output_tokens"`
	CacheActive  bool  `json:"cache_active"`
}

// Tracker manages one volume run's live progress, safe for concurrent
// reads from the monitor's HTTP/WS handlers while the orchestrator
// writes from its single translation goroutine.
type Tracker struct {
	mu       sync.RWMutex
	progress *VolumeProgress
}

// NewTracker creates a tracker for one translate_volume invocation.
func NewTracker(volumeID string, totalChapters int, targetLanguage, model string) *Tracker {
	return &Tracker{
		progress: &VolumeProgress{
			VolumeID:       volumeID,
			TotalChapters:  totalChapters,
			TargetLanguage: targetLanguage,
			Model:          model,
			StartTime:      time.Now(),
			Status:         "initializing",
		},
	}
}

// BeginChapter records the orchestrator starting a new chapter.
func (t *Tracker) BeginChapter(chapterNum int, chapterID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.progress.CurrentChapter = chapterNum
	t.progress.ChapterID = chapterID
	t.progress.Status = "translating"
	t.progress.CurrentTask = "Translating " + chapterID
	t.updateProgress()
}

// RecordResult folds one chapter's outcome into the running totals.
func (t *Tracker) RecordResult(success bool, inputTokens, outputTokens int32, cacheActive bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if success {
		t.progress.ChaptersDone++
	} else {
		t.progress.ChaptersFailed++
	}
	t.progress.InputTokens += inputTokens
	t.progress.OutputTokens += outputTokens
	t.progress.CacheActive = cacheActive
	t.updateProgress()
}

// SetStatus updates the coarse status and a human-readable task line.
func (t *Tracker) SetStatus(status, task string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.progress.Status = status
	t.progress.CurrentTask = task
}

// Finish marks the run terminal (spec §4.6's completed/partial states).
func (t *Tracker) Finish(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.progress.Status = status
	t.progress.CurrentTask = "Run " + status
	t.progress.PercentComplete = 100.0
}

// Snapshot returns a copy of the current progress, with elapsed/ETA
// recomputed against the current time.
func (t *Tracker) Snapshot() VolumeProgress {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.progress.StartTime)
	t.progress.ElapsedTime = formatDuration(elapsed)

	if t.progress.ChaptersDone > 0 && t.progress.TotalChapters > 0 {
		avgPerChapter := elapsed / time.Duration(t.progress.ChaptersDone)
		remaining := t.progress.TotalChapters - t.progress.ChaptersDone - t.progress.ChaptersFailed
		if remaining > 0 {
			t.progress.EstimatedETA = formatDuration(avgPerChapter * time.Duration(remaining))
		} else {
			t.progress.EstimatedETA = "Completed"
		}
	}

	return *t.progress
}

// updateProgress recomputes percent_complete (must be called with the
// lock held).
func (t *Tracker) updateProgress() {
	if t.progress.TotalChapters == 0 {
		return
	}
	done := t.progress.ChaptersDone + t.progress.ChaptersFailed
	t.progress.PercentComplete = float64(done) / float64(t.progress.TotalChapters) * 100.0
	if t.progress.PercentComplete > 100.0 {
		t.progress.PercentComplete = 100.0
	}
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case hours > 0:
		return formatUnit(hours, "hour") + " " + formatUnit(minutes, "minute")
	case minutes > 0:
		return formatUnit(minutes, "minute") + " " + formatUnit(seconds, "second")
	default:
		return formatUnit(seconds, "second")
	}
}

func formatUnit(value int, unit string) string {
	if value == 0 {
		return ""
	}
	if value == 1 {
		return "1 " + unit
	}
	return strconv.Itoa(value) + " " + unit + "s"
}
