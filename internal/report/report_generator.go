// Package report builds a human-readable markdown summary of one
// translate_volume run: per-chapter quality audits, issues, and
// warnings collected as the orchestrator works through a volume.
// Adapted from the teacher's pkg/report.ReportGenerator (an SSH
// translation session reporter) to the per-volume run this engine
// actually produces; the issue/warning/log-collection shape and the
// markdown-section layout are kept, retargeted from SSH session fields
// to chapter/quality fields.
package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"digital.vasic.lnmtl/internal/logging"
)

// ReportGenerator accumulates issues/warnings/log entries over the
// course of one translate_volume run and renders them into a markdown
// report plus a stats summary for the monitor dashboard.
type ReportGenerator struct {
	destinationDir string
	log            logging.Logger
	startTime      time.Time
	issues         []Issue
	warnings       []Warning
	logs           []LogEntry
}

// Issue is a problem discovered during a volume's translation run.
type Issue struct {
	Timestamp  time.Time
	Category   string // "manifest", "bible", "rag", "llm", "output", "continuity"
	Severity   string // "critical", "error", "warning"
	Message    string
	ChapterID  string
	Resolved   bool
	Resolution string
}

// Warning is a non-fatal observation, e.g. a quick_audit warning.
type Warning struct {
	Timestamp time.Time
	Category  string
	Message   string
	ChapterID string
	Details   map[string]interface{}
}

// LogEntry mirrors one structured log line emitted during the run.
type LogEntry struct {
	Timestamp time.Time
	Level     string
	Message   string
	ChapterID string
	Details   map[string]interface{}
}

// VolumeRunSummary is the top-level shape GenerateVolumeReport renders
// (spec §4.6's translate_volume return plus timing).
type VolumeRunSummary struct {
	VolumeID         string
	TargetLanguage   string
	Model            string
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
	ChaptersTotal    int
	ChaptersDone     int
	ChaptersFailed   int
	Status           string // "completed" | "partial"
	FailedChapterIDs []string
	OutputFiles      []string
}

// NewReportGenerator creates a report generator that writes into
// destinationDir (typically the volume directory itself).
func NewReportGenerator(destinationDir string, log logging.Logger) *ReportGenerator {
	return &ReportGenerator{
		destinationDir: destinationDir,
		log:            log,
		startTime:      time.Now(),
		issues:         make([]Issue, 0),
		warnings:       make([]Warning, 0),
		logs:           make([]LogEntry, 0),
	}
}

// AddIssue records an issue discovered during the run.
func (r *ReportGenerator) AddIssue(category, severity, message, chapterID string) {
	r.issues = append(r.issues, Issue{
		Timestamp: time.Now(),
		Category:  category,
		Severity:  severity,
		Message:   message,
		ChapterID: chapterID,
	})
	r.log.Error("issue recorded", map[string]interface{}{
		"category": category, "severity": severity, "message": message, "chapter_id": chapterID,
	})
}

// ResolveIssue marks a previously recorded issue as resolved.
func (r *ReportGenerator) ResolveIssue(index int, resolution string) error {
	if index < 0 || index >= len(r.issues) {
		return fmt.Errorf("report: invalid issue index %d", index)
	}
	r.issues[index].Resolved = true
	r.issues[index].Resolution = resolution
	return nil
}

// AddWarning records a warning, e.g. one quick_audit warning string
// for a chapter.
func (r *ReportGenerator) AddWarning(category, message, chapterID string, details map[string]interface{}) {
	r.warnings = append(r.warnings, Warning{
		Timestamp: time.Now(),
		Category:  category,
		Message:   message,
		ChapterID: chapterID,
		Details:   details,
	})
	r.log.Warn("warning recorded", map[string]interface{}{
		"category": category, "message": message, "chapter_id": chapterID,
	})
}

// AddLogEntry records a structured log line for inclusion in the
// report's recent-activity section.
func (r *ReportGenerator) AddLogEntry(level, message, chapterID string, details map[string]interface{}) {
	r.logs = append(r.logs, LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
		ChapterID: chapterID,
		Details:   details,
	})
}

// GenerateVolumeReport renders a markdown report for one volume run to
// <destinationDir>/translation_report.md.
func (r *ReportGenerator) GenerateVolumeReport(summary VolumeRunSummary) error {
	var buf bytes.Buffer

	buf.WriteString("# Translation Run Report\n\n")
	fmt.Fprintf(&buf, "**Generated:** %s\n\n", time.Now().Format("2006-01-02 15:04:05"))

	buf.WriteString("## Run Overview\n\n")
	fmt.Fprintf(&buf, "- **Volume:** `%s`\n", summary.VolumeID)
	fmt.Fprintf(&buf, "- **Target language:** %s\n", summary.TargetLanguage)
	fmt.Fprintf(&buf, "- **Model:** %s\n", summary.Model)
	fmt.Fprintf(&buf, "- **Start:** %s\n", summary.StartTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&buf, "- **End:** %s\n", summary.EndTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&buf, "- **Duration:** %v\n", summary.Duration)
	fmt.Fprintf(&buf, "- **Status:** %s\n", summary.Status)
	fmt.Fprintf(&buf, "- **Chapters:** %d/%d completed, %d failed\n\n", summary.ChaptersDone, summary.ChaptersTotal, summary.ChaptersFailed)

	if len(summary.FailedChapterIDs) > 0 {
		buf.WriteString("### Failed Chapters\n\n")
		for _, id := range summary.FailedChapterIDs {
			fmt.Fprintf(&buf, "- `%s`\n", id)
		}
		buf.WriteString("\n")
	}

	if len(summary.OutputFiles) > 0 {
		buf.WriteString("### Output Files\n\n")
		for i, f := range summary.OutputFiles {
			fmt.Fprintf(&buf, "%d. `%s`\n", i+1, f)
		}
		buf.WriteString("\n")
	}

	r.writeIssuesSection(&buf)
	r.writeWarningsSection(&buf)
	r.writeRecentLogSection(&buf)

	buf.WriteString("---\n")
	fmt.Fprintf(&buf, "*Report generated at %s*\n", time.Now().Format("2006-01-02 15:04:05"))

	reportPath := filepath.Join(r.destinationDir, "translation_report.md")
	if err := os.WriteFile(reportPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("report: write report file: %w", err)
	}

	r.log.Info("translation report generated", map[string]interface{}{
		"report_path":    reportPath,
		"issues_count":   len(r.issues),
		"warnings_count": len(r.warnings),
	})
	return nil
}

func (r *ReportGenerator) writeIssuesSection(buf *bytes.Buffer) {
	if len(r.issues) == 0 {
		return
	}
	buf.WriteString("## Issues Encountered\n\n")

	var critical, errorCount, warningCount int
	for _, issue := range r.issues {
		switch issue.Severity {
		case "critical":
			critical++
		case "error":
			errorCount++
		case "warning":
			warningCount++
		}
	}
	fmt.Fprintf(buf, "- **Critical:** %d\n- **Error:** %d\n- **Warning:** %d\n\n", critical, errorCount, warningCount)

	for i, issue := range r.issues {
		status := "open"
		if issue.Resolved {
			status = "resolved"
		}
		fmt.Fprintf(buf, "### Issue #%d (%s)\n\n", i+1, status)
		fmt.Fprintf(buf, "- **Category:** %s\n- **Severity:** %s\n- **Chapter:** %s\n- **Message:** %s\n", issue.Category, issue.Severity, issue.ChapterID, issue.Message)
		if issue.Resolved {
			fmt.Fprintf(buf, "- **Resolution:** %s\n", issue.Resolution)
		}
		buf.WriteString("\n")
	}
}

func (r *ReportGenerator) writeWarningsSection(buf *bytes.Buffer) {
	if len(r.warnings) == 0 {
		return
	}
	buf.WriteString("## Warnings\n\n")
	for i, w := range r.warnings {
		fmt.Fprintf(buf, "### Warning #%d\n\n", i+1)
		fmt.Fprintf(buf, "- **Category:** %s\n- **Chapter:** %s\n- **Message:** %s\n", w.Category, w.ChapterID, w.Message)
		for k, v := range w.Details {
			fmt.Fprintf(buf, "  - %s: %v\n", k, v)
		}
		buf.WriteString("\n")
	}
}

func (r *ReportGenerator) writeRecentLogSection(buf *bytes.Buffer) {
	if len(r.logs) == 0 {
		return
	}
	buf.WriteString("## Recent Log Entries\n\n")
	start := len(r.logs) - 20
	if start < 0 {
		start = 0
	}
	for i := start; i < len(r.logs); i++ {
		l := r.logs[i]
		fmt.Fprintf(buf, "**[%s]** `%s` %s", l.Timestamp.Format("15:04:05"), strings.ToUpper(l.Level), l.Message)
		if l.ChapterID != "" {
			fmt.Fprintf(buf, " (chapter %s)", l.ChapterID)
		}
		buf.WriteString("\n")
	}
}

// Stats returns aggregate counters for the monitor dashboard's summary
// tile.
func (r *ReportGenerator) Stats() map[string]interface{} {
	severity := make(map[string]int)
	category := make(map[string]int)
	for _, issue := range r.issues {
		severity[issue.Severity]++
		category[issue.Category]++
	}
	return map[string]interface{}{
		"session_start":      r.startTime,
		"issues_count":       len(r.issues),
		"warnings_count":     len(r.warnings),
		"issues_by_severity": severity,
		"issues_by_category": category,
	}
}
