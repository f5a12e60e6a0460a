package planner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"digital.vasic.lnmtl/internal/logging"
	"digital.vasic.lnmtl/internal/manifest"
)

// RunOptions selects and scopes one Stage 1 planning run.
type RunOptions struct {
	VolumeDir string
	// ChapterSelectors match by chapter id, source file name, source
	// file stem, or bare chapter number. Empty selects every chapter.
	ChapterSelectors []string
	Force            bool
}

// RunResult summarizes a planning run for the CLI's exit code.
type RunResult struct {
	Generated int
	Skipped   int
	Failed    int
	Errors    []string
}

// Runner drives the planning agent across a volume's chapters,
// persisting each plan to PLANS/ and recording the outcome in the
// manifest (chapters[*].scene_plan_file + pipeline_state.scene_planner).
type Runner struct {
	agent *Agent
	log   logging.Logger
}

// NewRunner wraps a planning agent for volume-level runs.
func NewRunner(agent *Agent, log logging.Logger) *Runner {
	return &Runner{agent: agent, log: log}
}

// Run plans every selected chapter of one volume. Per-chapter failures
// are collected, not fatal: the manifest records a "partial" planner
// state and the CLI decides the exit code from the returned counts.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (RunResult, error) {
	m, err := manifest.Load(filepath.Join(opts.VolumeDir, "manifest.json"))
	if err != nil {
		return RunResult{}, fmt.Errorf("planner: load manifest: %w", err)
	}

	selected := FilterChapters(m.Chapters, opts.ChapterSelectors)
	if len(selected) == 0 {
		return RunResult{}, fmt.Errorf("planner: no chapters selected")
	}

	var result RunResult
	for _, ch := range selected {
		if ch.SourceFile == "" {
			r.log.Warn("planner: chapter has no source file, skipping", map[string]interface{}{"chapter_id": ch.ID})
			result.Skipped++
			continue
		}

		planFile := PlanFileName(ch.ID)
		planPath := filepath.Join(opts.VolumeDir, planFile)
		if fileExists(planPath) && !opts.Force {
			r.log.Info("planner: plan exists, skipping", map[string]interface{}{"chapter_id": ch.ID, "plan": planFile})
			m.SetScenePlanFile(ch.ID, planFile)
			result.Skipped++
			continue
		}

		body, err := os.ReadFile(filepath.Join(opts.VolumeDir, ch.SourceFile))
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", ch.ID, err))
			r.log.Error("planner: read source failed", map[string]interface{}{"chapter_id": ch.ID, "error": err.Error()})
			continue
		}

		r.log.Info("planner: planning chapter", map[string]interface{}{"chapter_id": ch.ID, "source": ch.SourceFile})
		plan, err := r.agent.GeneratePlan(ctx, ch.ID, string(body))
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", ch.ID, err))
			r.log.Error("planner: plan generation failed", map[string]interface{}{"chapter_id": ch.ID, "error": err.Error()})
			continue
		}
		if err := SavePlan(plan, planPath); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", ch.ID, err))
			continue
		}
		m.SetScenePlanFile(ch.ID, planFile)
		result.Generated++
	}

	status := "completed"
	if result.Failed > 0 {
		status = "partial"
	}
	errs := result.Errors
	if len(errs) > 20 {
		errs = errs[:20]
	}
	m.FinishScenePlanning(manifest.ScenePlannerState{
		Status:         status,
		GeneratedPlans: result.Generated,
		SkippedPlans:   result.Skipped,
		FailedPlans:    result.Failed,
		TotalSelected:  len(selected),
		Model:          r.agent.cfg.Model,
		Errors:         errs,
	})
	if err := m.Save(); err != nil {
		return result, fmt.Errorf("planner: save manifest: %w", err)
	}
	return result, nil
}

var chapterNumberPattern = regexp.MustCompile(`(\d+)`)

// FilterChapters matches chapters against selectors by id, source file
// name, source file stem, or bare chapter number ("4" selects
// chapter_04). Empty selectors select everything.
func FilterChapters(chapters []manifest.Chapter, selectors []string) []manifest.Chapter {
	if len(selectors) == 0 {
		return chapters
	}

	want := make(map[string]bool, len(selectors))
	for _, s := range selectors {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			want[s] = true
		}
	}

	var out []manifest.Chapter
	for _, ch := range chapters {
		stem := strings.TrimSuffix(filepath.Base(ch.SourceFile), filepath.Ext(ch.SourceFile))
		candidates := []string{
			strings.ToLower(ch.ID),
			strings.ToLower(ch.SourceFile),
			strings.ToLower(filepath.Base(ch.SourceFile)),
			strings.ToLower(stem),
		}
		if m := chapterNumberPattern.FindString(ch.ID); m != "" {
			if n, err := strconv.Atoi(m); err == nil {
				candidates = append(candidates, strconv.Itoa(n), fmt.Sprintf("chapter_%02d", n))
			}
		}
		for _, c := range candidates {
			if c != "" && want[c] {
				out = append(out, ch)
				break
			}
		}
	}
	return out
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
