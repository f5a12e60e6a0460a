package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"digital.vasic.lnmtl/internal/bible"
	"digital.vasic.lnmtl/internal/chapter"
	"digital.vasic.lnmtl/internal/continuity"
	"digital.vasic.lnmtl/internal/manifest"
	"digital.vasic.lnmtl/internal/planner"
	"digital.vasic.lnmtl/internal/progress"
	"digital.vasic.lnmtl/internal/prompt"
	"digital.vasic.lnmtl/internal/report"
	"digital.vasic.lnmtl/internal/storage"
)

// cachingChapterSleep and uncachedChapterSleep implement spec §4.6's
// per-chapter pacing: "sleep 5s if caching else 60s", distinct from C1's
// own per-request rate-limit delay since this sleep exists to keep the
// provider-side volume cache's TTL clock from being the bottleneck.
const (
	cachingChapterSleep  = 5 * time.Second
	uncachedChapterSleep = 60 * time.Second
)

// TranslateVolume implements spec §4.6's translate_volume: the single
// entry point that owns a volume's entire translation lifecycle.
func (o *Orchestrator) TranslateVolume(ctx context.Context, opts Options) (Result, error) {
	manifestPath := filepath.Join(opts.VolumeDir, "manifest.json")
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return Result{}, fmt.Errorf("orchestrator: load manifest: %w", err)
	}

	if err := runPreflight(m, opts.ForcePreflight); err != nil {
		return Result{}, err
	}
	if m.RequiresPreflight() && m.PipelineState.LibrarianStatus != "complete" {
		o.log.Warn("orchestrator: librarian status is not complete, structural pre-flight skipped", map[string]interface{}{"volume_id": m.VolumeID, "librarian_status": m.PipelineState.LibrarianStatus})
	}

	bibleRef := bible.ManifestRef{
		BibleID:  m.BibleID,
		VolumeID: m.VolumeID,
		Series:   m.Series,
		Title:    m.Title,
	}
	resolvedBible, err := o.bibles.Resolve(ctx, bibleRef)
	if err != nil {
		o.log.Warn("orchestrator: bible resolution failed", map[string]interface{}{"volume_id": m.VolumeID, "error": err.Error()})
	}

	continuityPath := filepath.Join(opts.VolumeDir, "continuity_pack.json")
	pack, err := continuity.Load(continuityPath)
	if err != nil {
		o.log.Warn("orchestrator: continuity pack load failed, proceeding with empty pack", map[string]interface{}{"error": err.Error()})
		pack = continuity.NewPack()
	}

	bibleFlat := map[string]string{}
	biblePromptBlock := ""
	worldSettingDirective := ""
	if resolvedBible != nil {
		bibleFlat = resolvedBible.FlatGlossary()
		biblePromptBlock = resolvedBible.PromptBlock()
		worldSettingDirective = resolvedBible.WorldSettingDirective()
	}

	langMeta := m.LanguageMeta[opts.Lang]
	glossary := pack.MergeGlossary(bibleFlat, m.LockedGlossary)
	roster := pack.MergeRoster(langMeta.CharacterNames)

	m.NormalizeTitles(opts.Lang)

	systemInstruction := prompt.BuildSystemInstruction(o.prompts, prompt.SystemInstructionInput{
		Genre:                 m.Genre,
		BiblePromptBlock:      biblePromptBlock,
		WorldSettingDirective: worldSettingDirective,
		Roster:                roster,
		Glossary:              glossary,
		Semantic:              langMeta.SemanticMetadata,
		Continuity:            pack,
	})

	targets := selectTargetChapters(m, opts.ChapterIDs)

	model := o.cfg.LLM.Model
	volumeCacheName, haveVolumeCache := o.createVolumeCache(ctx, opts.VolumeDir, m, targets, model, systemInstruction)

	m.BeginTranslation(opts.Lang, model)
	if err := m.Save(); err != nil {
		o.log.Warn("orchestrator: manifest save failed after begin_translation", map[string]interface{}{"error": err.Error()})
	}

	visualCache := map[string]chapter.VisualContext{}
	if opts.EnableMultimodal {
		visualCache, err = loadVisualCache(filepath.Join(opts.VolumeDir, "visual_cache.json"))
		if err != nil {
			o.log.Warn("orchestrator: visual cache load failed", map[string]interface{}{"error": err.Error()})
		}
	}

	logPath := filepath.Join(opts.VolumeDir, "translation_log.json")

	tracker := progress.NewTracker(m.VolumeID, len(targets), opts.Lang, model)
	o.setTracker(tracker)
	defer o.setTracker(nil)

	rep := report.NewReportGenerator(opts.VolumeDir, o.log)
	runStart := time.Now()

	var runRecord *storage.RunRecord
	if o.history != nil {
		runRecord = &storage.RunRecord{
			ID:             uuid.New().String(),
			VolumeID:       m.VolumeID,
			InputFile:      opts.VolumeDir,
			SourceLanguage: "ja",
			TargetLanguage: opts.Lang,
			Provider:       "gemini",
			Model:          model,
			Status:         "translating",
			TotalChapters:  len(targets),
			ItemsTotal:     len(targets),
			StartTime:      runStart,
			CreatedAt:      runStart,
			UpdatedAt:      runStart,
		}
		if err := o.history.CreateRun(ctx, runRecord); err != nil {
			o.log.Warn("orchestrator: create_run failed, continuing without history", map[string]interface{}{"error": err.Error()})
			runRecord = nil
		}
	}

	var completed, failed, skipped []string
	var previousBrief string

	// Chapter work is shielded from run-context cancellation: SIGINT
	// means "finish the in-flight chapter, persist, then stop", never a
	// half-written output file. Each LLM attempt still carries its own
	// timeout, so a shielded chapter cannot hang unboundedly.
	chapterCtx := context.WithoutCancel(ctx)

	for i, ch := range targets {
		if ctx.Err() != nil {
			return finalize(o, ctx, m, pack, rep, runStart, model, opts, volumeCacheName, runRecord, len(targets), completed, failed, skipped)
		}
		tracker.BeginChapter(i+1, ch.ID)
		outputFile := ch.OutputFileByLang[opts.Lang]
		if outputFile == "" {
			outputFile = deriveOutputFile(ch.SourceFile, opts.Lang)
		}
		outputPath := filepath.Join(opts.VolumeDir, outputFile)

		if ch.TranslationStatus == manifest.StatusCompleted && fileExists(outputPath) && !opts.Force {
			o.log.Info(fmt.Sprintf("Skipping completed chapter %s", ch.ID), map[string]interface{}{"output": outputFile})
			skipped = append(skipped, ch.ID)
			previousBrief = briefFromOutput(outputPath)
			continue
		}

		title := ch.TitleByLang[opts.Lang]
		sourcePath := filepath.Join(opts.VolumeDir, ch.SourceFile)

		effectiveCache := ""
		hasModelOverride := ch.ModelOverride != "" && ch.ModelOverride != model
		if haveVolumeCache && !hasModelOverride {
			effectiveCache = volumeCacheName
		}
		chapterModel := model
		if ch.ModelOverride != "" {
			chapterModel = ch.ModelOverride
		}

		req := chapter.Request{
			SourcePath:           sourcePath,
			OutputPath:           outputPath,
			ChapterID:            ch.ID,
			Title:                title,
			Model:                chapterModel,
			CachedContent:        effectiveCache,
			SystemInstruction:    systemInstruction,
			TargetLang:           opts.Lang,
			Genre:                m.Genre,
			PreviousChapterBrief: previousBrief,
			SceneGuidance:        o.sceneGuidance(opts.VolumeDir, ch),
			Glossary:             glossary,
			EnableGapAnalysis:    opts.EnableGapAnalysis,
			EnableMultimodal:     opts.EnableMultimodal,
			VisualCache:          visualCache,
			Temperature:          0.7,
			MaxOutputTokens:      8192,
		}

		result, procErr := o.processor.TranslateChapter(chapterCtx, req)
		if procErr != nil {
			o.log.Error("orchestrator: translate_chapter returned an error", map[string]interface{}{"chapter_id": ch.ID, "error": procErr.Error()})
			result = chapter.Result{Success: false, Error: procErr.Error()}
			rep.AddIssue("llm", "error", procErr.Error(), ch.ID)
		}

		if !result.Success && !hasModelOverride {
			o.log.Warn("orchestrator: chapter failed, retrying with fallback model", map[string]interface{}{"chapter_id": ch.ID, "error": result.Error})
			// Clears only the llm.Client's own internal cache slot (never
			// populated by the volume cache, which is created via
			// CreateExternalCache and lives in volumeCacheName below) so a
			// fallback request can never carry a cached_content tied to the
			// original model. The volume cache itself survives untouched
			// for the remaining chapters still using the primary model.
			if err := o.llmClient.ClearCache(chapterCtx); err != nil {
				o.log.Warn("orchestrator: clear_cache before fallback failed", map[string]interface{}{"error": err.Error()})
			}
			effectiveCache = "" // cache is model-specific; the fallback model never reuses it
			req.CachedContent = ""
			req.Model = o.cfg.LLM.FallbackModel
			fallbackResult, fallbackErr := o.processor.TranslateChapter(chapterCtx, req)
			if fallbackErr != nil {
				fallbackResult = chapter.Result{Success: false, Error: fallbackErr.Error()}
			}
			if fallbackResult.Success {
				m.SetModel(ch.ID, o.cfg.LLM.FallbackModel)
			}
			result = fallbackResult
		}

		var q *quality
		if result.Success {
			q = &quality{Passed: result.Audit.Passed, Warnings: result.Audit.Warnings}
			for _, w := range result.Audit.Warnings {
				rep.AddWarning("quick_audit", w, ch.ID, nil)
			}
		}
		if err := appendTranslationLog(logPath, logEntry{
			ChapterID:    ch.ID,
			InputTokens:  result.InputTokens,
			OutputTokens: result.OutputTokens,
			Success:      result.Success,
			Error:        result.Error,
			Quality:      q,
		}); err != nil {
			o.log.Warn("orchestrator: append translation_log failed", map[string]interface{}{"error": err.Error()})
		}

		if result.Success {
			m.MarkCompleted(ch.ID, opts.Lang, outputFile)
			completed = append(completed, ch.ID)
			previousBrief = briefFromOutput(outputPath)

			if o.cfg.LLM.ThinkingSaveFiles && result.ThinkingContent != "" {
				if err := saveThinking(opts.VolumeDir, ch.ID, result.ThinkingContent); err != nil {
					o.log.Warn("orchestrator: save thinking content failed", map[string]interface{}{"chapter_id": ch.ID, "error": err.Error()})
				}
			}

			if opts.EnableContinuity {
				pack.AddSnapshot(continuity.ChapterSnapshot{
					ChapterID:   ch.ID,
					Roster:      roster,
					Glossary:    glossary,
					ExtractedAt: time.Now(),
				})
			}
		} else {
			m.MarkFailed(ch.ID)
			failed = append(failed, ch.ID)
			rep.AddIssue("output", "error", result.Error, ch.ID)
		}

		if err := m.Save(); err != nil {
			o.log.Warn("orchestrator: manifest save failed", map[string]interface{}{"chapter_id": ch.ID, "error": err.Error()})
		}

		tracker.RecordResult(result.Success, result.InputTokens, result.OutputTokens, effectiveCache != "")

		if runRecord != nil {
			for kind, stat := range result.RAGStats {
				lookup := &storage.RAGLookupStat{
					ID:         uuid.New().String(),
					RunID:      runRecord.ID,
					ChapterID:  ch.ID,
					StoreKind:  kind,
					DirectHits: stat.DirectHits,
					VectorHits: stat.VectorHits,
					Misses:     stat.Misses,
					CreatedAt:  time.Now(),
				}
				if err := o.history.RecordRAGLookup(chapterCtx, lookup); err != nil {
					o.log.Warn("orchestrator: record_rag_lookup failed", map[string]interface{}{"chapter_id": ch.ID, "store_kind": kind, "error": err.Error()})
				}
			}

			runRecord.CurrentChapter = i + 1
			runRecord.ItemsCompleted = len(completed)
			runRecord.ItemsFailed = len(failed)
			runRecord.PercentComplete = float64(len(completed)+len(failed)+len(skipped)) / float64(len(targets)) * 100.0
			if err := o.history.UpdateRun(chapterCtx, runRecord); err != nil {
				o.log.Warn("orchestrator: update_run failed", map[string]interface{}{"error": err.Error()})
			}
		}

		if i < len(targets)-1 {
			sleepFor := uncachedChapterSleep
			if effectiveCache != "" {
				sleepFor = cachingChapterSleep
			}
			select {
			case <-ctx.Done():
				return finalize(o, ctx, m, pack, rep, runStart, model, opts, volumeCacheName, runRecord, len(targets), completed, failed, skipped)
			case <-time.After(sleepFor):
			}
		}
	}

	return finalize(o, ctx, m, pack, rep, runStart, model, opts, volumeCacheName, runRecord, len(targets), completed, failed, skipped)
}

func finalize(o *Orchestrator, ctx context.Context, m *manifest.Manifest, pack *continuity.Pack, rep *report.ReportGenerator, runStart time.Time, model string, opts Options, volumeCacheName string, runRecord *storage.RunRecord, totalTargets int, completed, failed, skipped []string) (Result, error) {
	// An interrupted run (chapters neither completed nor failed) is
	// partial even with zero failures: the state machine only reaches
	// "completed" when every targeted chapter succeeded or was skipped
	// as already done.
	allSucceeded := len(failed) == 0 && len(completed)+len(skipped) == totalTargets

	// Finalization still has provider-side and database cleanup to do
	// even when the run context was cancelled (SIGINT lands here after
	// the in-flight chapter finishes); detach so cancellation doesn't
	// leak the volume cache.
	ctx = context.WithoutCancel(ctx)

	if allSucceeded && opts.EnableContinuity {
		aggregated := continuity.Aggregate(pack.ChapterSnapshots)
		if err := aggregated.Save(filepath.Join(opts.VolumeDir, "continuity_pack.json")); err != nil {
			o.log.Warn("orchestrator: continuity pack save failed", map[string]interface{}{"error": err.Error()})
		}
	}

	// Sole delete of the volume cache created in createVolumeCache,
	// satisfying spec P3's single create_cache/delete_cache pair per
	// volume. ClearCache below is a separate, harmless tidy-up of the
	// client's own internal cache slot, which the volume cache never
	// occupies (see CreateExternalCache).
	if volumeCacheName != "" {
		if err := o.llmClient.DeleteNamedCache(ctx, volumeCacheName); err != nil {
			o.log.Warn("orchestrator: delete volume cache failed", map[string]interface{}{"error": err.Error()})
		}
	}
	if err := o.llmClient.ClearCache(ctx); err != nil {
		o.log.Warn("orchestrator: clear internal cache at finalization failed", map[string]interface{}{"error": err.Error()})
	}

	m.FinishTranslation(allSucceeded, failed)
	if err := m.Save(); err != nil {
		o.log.Warn("orchestrator: final manifest save failed", map[string]interface{}{"error": err.Error()})
	}

	status := "completed"
	if !allSucceeded {
		status = "partial"
	}
	if t := o.Progress(); t != nil {
		t.Finish(status)
	}

	if runRecord != nil {
		endTime := time.Now()
		runRecord.Status = status
		runRecord.EndTime = &endTime
		runRecord.ItemsCompleted = len(completed)
		runRecord.ItemsFailed = len(failed)
		runRecord.PercentComplete = 100.0
		if !allSucceeded {
			runRecord.ErrorMessage = fmt.Sprintf("%d chapter(s) failed: %v", len(failed), failed)
		}
		if err := o.history.UpdateRun(ctx, runRecord); err != nil {
			o.log.Warn("orchestrator: final update_run failed", map[string]interface{}{"error": err.Error()})
		}
	}

	var outputFiles []string
	completedSet := make(map[string]bool, len(completed))
	for _, id := range completed {
		completedSet[id] = true
	}
	for _, ch := range m.Chapters {
		if completedSet[ch.ID] {
			outputFiles = append(outputFiles, ch.OutputFileByLang[opts.Lang])
		}
	}
	if err := rep.GenerateVolumeReport(report.VolumeRunSummary{
		VolumeID:         m.VolumeID,
		TargetLanguage:   opts.Lang,
		Model:            model,
		StartTime:        runStart,
		EndTime:          time.Now(),
		Duration:         time.Since(runStart),
		ChaptersTotal:    len(completed) + len(failed) + len(skipped),
		ChaptersDone:     len(completed),
		ChaptersFailed:   len(failed),
		Status:           status,
		FailedChapterIDs: failed,
		OutputFiles:      outputFiles,
	}); err != nil {
		o.log.Warn("orchestrator: translation report generation failed", map[string]interface{}{"error": err.Error()})
	}

	return Result{
		Status:            status,
		CompletedChapters: completed,
		FailedChapters:    failed,
		SkippedChapters:   skipped,
	}, nil
}

// sceneGuidance loads the chapter's Stage 1 scene plan, if one was
// generated (chapters[*].scene_plan_file), and renders it for the
// prompt. Planning is a separate stage; a missing or unreadable plan
// just means the chapter translates without a scaffold.
func (o *Orchestrator) sceneGuidance(volumeDir string, ch manifest.Chapter) string {
	if ch.ScenePlanFile == "" {
		return ""
	}
	plan, err := planner.LoadPlan(filepath.Join(volumeDir, ch.ScenePlanFile))
	if err != nil {
		o.log.Warn("orchestrator: scene plan load failed", map[string]interface{}{"chapter_id": ch.ID, "error": err.Error()})
		return ""
	}
	return planner.FormatGuidance(plan)
}

func selectTargetChapters(m *manifest.Manifest, ids []string) []manifest.Chapter {
	if len(ids) == 0 {
		return m.Chapters
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []manifest.Chapter
	for _, c := range m.Chapters {
		if want[c.ID] {
			out = append(out, c)
		}
	}
	return out
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// briefFromOutput reads back a just-written chapter's output to seed
// the next chapter's PreviousChapterBrief (spec §4.4 user-prompt
// assembly's leading "previous chapter brief" slot). Truncated to a
// few hundred bytes: a pointer back to recent events, not a full
// re-send of the prior chapter.
func briefFromOutput(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	const maxBrief = 600
	text := string(data)
	if len(text) > maxBrief {
		text = text[len(text)-maxBrief:]
		// Resync to a rune boundary so the brief never opens mid-character.
		for len(text) > 0 && text[0]&0xC0 == 0x80 {
			text = text[1:]
		}
	}
	return "Continuing directly from the end of the previous chapter:\n" + text
}
