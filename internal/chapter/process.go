package chapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"digital.vasic.lnmtl/internal/cjkscrub"
	"digital.vasic.lnmtl/internal/dialect"
	"digital.vasic.lnmtl/internal/gapdetect"
	"digital.vasic.lnmtl/internal/llm"
	"digital.vasic.lnmtl/internal/prompt"
	"digital.vasic.lnmtl/internal/vectorstore"
)

const minRAGConfidence = 0.0 // bucketing (inject/log) happens inside the store; pass every match through

// TranslateChapter implements spec §4.5's translate_chapter: pull source,
// run RAG lookups, assemble the prompt, call the LLM with the correct
// cache, parse output, scene-break format, apply post-cleanup, write
// output. Every failure path returns success=false in Result rather than
// an error, matching spec's "each failure yields a structured
// TranslationResult" contract; the returned error is always nil.
func (p *Processor) TranslateChapter(ctx context.Context, req Request) (Result, error) {
	// Step 1: load source, strip JP H1 title.
	body, _, err := loadSource(req.SourcePath)
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("load source: %v", err)}, nil
	}

	// Step 2: gap detection (optional, skip quietly on failure).
	var gapGuidance string
	if req.EnableGapAnalysis {
		flags := gapdetect.Detect(body)
		gapGuidance = formatGapFlags(flags)
	}

	// Step 3: dialect detection (optional).
	dialectGuidance := dialect.Guidance(dialect.Detect(body))

	// Step 4: RAG lookups, target-conditional.
	sinoGuidance, vietnamesePatternGuidance, englishPatternGuidance, ragStats := p.runRAGLookups(ctx, req, body)

	// Step 5: visual context.
	var visual *prompt.VisualGuidance
	if req.EnableMultimodal {
		ids := req.IllustrationIDs
		if ids == nil {
			ids = extractIllustrationIDs(body)
		}
		visual = buildVisualGuidance(ids, req.VisualCache, req.Glossary)
	}

	// Step 6: system-instruction selection.
	systemInstruction := ""
	if req.CachedContent == "" {
		systemInstruction = req.SystemInstruction
	}

	userPrompt := prompt.BuildUserPrompt(prompt.UserPromptInput{
		PreviousChapterBrief:   req.PreviousChapterBrief,
		ChapterTitle:           req.Title,
		SourceBody:             body,
		SinoVietnameseGuidance: sinoGuidance,
		GapGuidance:            gapGuidance,
		DialectGuidance:        dialectGuidance,
		PatternGuidance:        coalesce(vietnamesePatternGuidance, englishPatternGuidance),
		SceneGuidance:          req.SceneGuidance,
		Visual:                 visual,
	})

	// Step 7: LLM call.
	resp, err := p.llm.Generate(ctx, llm.GenerateParams{
		Prompt:            userPrompt,
		SystemInstruction: systemInstruction,
		Temperature:       req.Temperature,
		MaxOutputTokens:   req.MaxOutputTokens,
		Model:             req.Model,
		CachedContent:     req.CachedContent,
	})
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("generate: %v", err)}, nil
	}
	if resp.IsSafetyBlock() {
		return Result{
			Success:       false,
			Error:         "safety block: " + resp.FinishReason,
			SafetyBlocked: true,
			InputTokens:   resp.InputTokens,
			OutputTokens:  resp.OutputTokens,
		}, nil
	}
	if strings.TrimSpace(resp.Content) == "" {
		return Result{
			Success:      false,
			Error:        "empty output, no safety tag",
			InputTokens:  resp.InputTokens,
			OutputTokens: resp.OutputTokens,
		}, nil
	}

	// Step 8: post-checks (analysis-leak detector), only when visual
	// guidance was injected.
	var warnings []string
	if visual != nil {
		warnings = detectAnalysisLeaks(resp.Content)
	}
	warnings = append(warnings, p.flagAIIsms(ctx, req.ChapterID, resp.Content)...)

	// Step 9: clean output.
	output := stripFences(resp.Content)
	if req.Title != "" {
		output = "# " + req.Title + "\n\n" + output
	}

	// Step 10: scene-break formatting.
	output = formatSceneBreaks(output)

	// Step 12 (scrub before write, since the write in step 11 should
	// persist the scrubbed form): target-specific CJK scrubbing.
	scrub := cjkscrub.Scrub(output, req.TargetLang)
	output = scrub.Output
	if len(scrub.LeaksFound) > 0 {
		warnings = append(warnings, fmt.Sprintf("cjk scrub: %d unresolved leak character(s)", len(scrub.LeaksFound)))
	}

	// Step 11: write output atomically.
	if err := writeAtomic(req.OutputPath, output); err != nil {
		return Result{Success: false, Error: fmt.Sprintf("write output: %v", err)}, nil
	}

	// Step 13: audit.
	audit := quickAudit(body, output, warnings)

	return Result{
		Success:         true,
		OutputPath:      req.OutputPath,
		InputTokens:     resp.InputTokens,
		OutputTokens:    resp.OutputTokens,
		Audit:           audit,
		ThinkingContent: resp.ThinkingContent,
		RAGStats:        ragStats,
	}, nil
}

// runRAGLookups implements spec §4.5 step 4's target-conditional RAG
// lookups: vi/vn targets query the Sino-Vietnamese store over kanji
// compounds plus the Vietnamese-grammar store over detected JP grammar
// patterns; en targets query only the English-pattern store. The
// returned stats map lets the caller persist which stores were
// actually consulted and whether guidance came from a direct hit, a
// vector search, or neither.
func (p *Processor) runRAGLookups(ctx context.Context, req Request, body string) (sino, viPattern, enPattern string, stats map[string]vectorstore.LookupStats) {
	isVietnamese := cjkscrub.IsVietnameseTarget(req.TargetLang)
	stats = make(map[string]vectorstore.LookupStats)

	if isVietnamese && p.stores.SinoVietnamese != nil {
		terms := topKanjiCompounds(body, 30)
		guidance, err := p.stores.SinoVietnamese.GetBulkGuidance(ctx, terms, req.Genre, "", minRAGConfidence)
		if err != nil {
			p.log.Warn("chapter: sino-vietnamese RAG lookup failed", map[string]interface{}{"chapter_id": req.ChapterID, "error": err.Error()})
		} else {
			sino = formatBulkGuidance(guidance)
			stats["sino_vietnamese"] = guidance.LookupStats
		}
	}

	if isVietnamese && p.stores.VietnameseGrammar != nil {
		terms := detectGrammarPatterns(body)
		guidance, err := p.stores.VietnameseGrammar.GetBulkGuidance(ctx, terms, req.Genre, "", minRAGConfidence)
		if err != nil {
			p.log.Warn("chapter: vietnamese-grammar RAG lookup failed", map[string]interface{}{"chapter_id": req.ChapterID, "error": err.Error()})
		} else {
			viPattern = formatBulkGuidance(guidance)
			stats["vietnamese_grammar"] = guidance.LookupStats
		}
	}

	if !isVietnamese && p.stores.English != nil {
		terms := detectGrammarPatterns(body)
		guidance, err := p.stores.English.GetBulkGuidance(ctx, terms, req.Genre, "", minRAGConfidence)
		if err != nil {
			p.log.Warn("chapter: english-pattern RAG lookup failed", map[string]interface{}{"chapter_id": req.ChapterID, "error": err.Error()})
		} else {
			enPattern = formatBulkGuidance(guidance)
			stats["english"] = guidance.LookupStats
		}
	}

	return sino, viPattern, enPattern, stats
}

// formatBulkGuidance renders only the high-confidence matches into the
// prompt, matching spec §4.4's "if high_confidence non-empty" gating;
// medium-confidence matches are logged for audit but never injected
// (spec §4.2's "signature decision").
func formatBulkGuidance(g vectorstore.BulkGuidance) string {
	if len(g.HighConfidence) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, m := range g.HighConfidence {
		fmt.Fprintf(&sb, "%s -> %s (%s, similarity %.2f)\n", m.Metadata.Source, m.Metadata.Target, m.Metadata.Category, m.Similarity)
	}
	return sb.String()
}

// aiIsmFlagThreshold is the bad-prose similarity cutoff: output
// sentences at or above it against the ai_ism index are flagged.
const aiIsmFlagThreshold = 0.80

// aiIsmSentenceCap bounds the embedding batch one chapter's post-check
// may issue.
const aiIsmSentenceCap = 60

// flagAIIsms runs the output through the ai_ism bad-prose index and
// returns audit warnings for sentences that read like known machine
// prose artifacts. Warnings only: the output is never rewritten, and a
// lookup failure degrades to no flags.
func (p *Processor) flagAIIsms(ctx context.Context, chapterID, output string) []string {
	if p.stores.AIIsm == nil {
		return nil
	}
	sentences := vectorstore.SplitSentences(output, aiIsmSentenceCap)
	flags, err := p.stores.AIIsm.FlagBadProse(ctx, sentences, aiIsmFlagThreshold)
	if err != nil {
		p.log.Warn("chapter: ai-ism post-check failed", map[string]interface{}{"chapter_id": chapterID, "error": err.Error()})
		return nil
	}
	warnings := make([]string, 0, len(flags))
	for _, f := range flags {
		warnings = append(warnings, fmt.Sprintf("ai-ism (%s, similarity %.2f): %q", f.Category, f.Similarity, f.Sentence))
	}
	return warnings
}

func formatGapFlags(flags []gapdetect.Flag) string {
	if len(flags) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, f := range flags {
		sb.WriteString(f.Guidance)
		sb.WriteString("\n")
	}
	return sb.String()
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func writeAtomic(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-chapter-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
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
