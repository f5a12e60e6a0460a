// Package cjkscrub implements spec §4.5 step 12's target-specific CJK
// scrubbing pass: for vi/vn output only, a conservative substitution runs
// over the model's output replacing known hanzi-only leftover characters
// (the kind of stray Chinese-only character an EPUB extraction or an
// under-trained model occasionally leaves behind) with their Vietnamese
// Hán-Việt equivalents. Remaining leaks are counted and logged, never
// fatal, matching the original pipeline's EnhancedCJKCleaner philosophy
// of flagging foreign-script artifacts rather than refusing output
// (original_source/pipeline/pipeline/post_processor/cjk_cleaner_v2.py)
// — but collapsed from that file's full LLM-correction/KanjiAPI pipeline
// down to the spec's cheaper table-substitution pass, since spec §4.5
// step 12 only asks for "a conservative substitution pass ... count
// remaining leaks, log them (not fatal)", not a full correction service.
package cjkscrub

import "strings"

// hanViet is a conservative table of Chinese-only (non-Japanese,
// non-Vietnamese-orthography) hanzi characters mapped to their
// Hán-Việt reading, condensed from the CHINESE_ONLY_CHARS set in
// cjk_cleaner_v2.py. Only characters with an unambiguous, widely used
// Hán-Việt equivalent are included; anything not in this table is left
// in place and counted as a leak rather than guessed at.
var hanViet = map[rune]string{
	'這': "này",
	'個': "cá",
	'們': "họ",
	'嗎': "à",
	'呢': "nhỉ",
	'啊': "a",
	'吧': "nhé",
	'誰': "ai",
	'冇': "không",
	'咁': "vậy",
	'樣': "dạng",
	'邊': "biên",
	'點': "điểm",
	'過': "quá",
	'未': "vị",
	'曾': "tằng",
	'經': "kinh",
	'緊': "khẩn",
	'住': "trú",
}

// Result is the outcome of one scrub pass.
type Result struct {
	Output       string
	Substituted  int
	LeaksFound   []rune // characters left in the output that have no table entry
}

// Scrub runs the substitution pass over text. It is a no-op (returns
// text unchanged, zero leaks) unless lang is a Vietnamese target code,
// per spec §4.5 step 12: "For vi/vn only".
func Scrub(text, lang string) Result {
	if !IsVietnameseTarget(lang) {
		return Result{Output: text}
	}

	var sb strings.Builder
	sb.Grow(len(text))
	substituted := 0
	leakSeen := make(map[rune]bool)
	var leaks []rune

	for _, r := range text {
		if repl, ok := hanViet[r]; ok {
			sb.WriteString(repl)
			substituted++
			continue
		}
		sb.WriteRune(r)
		if isHanzi(r) && !leakSeen[r] {
			leakSeen[r] = true
			leaks = append(leaks, r)
		}
	}

	return Result{Output: sb.String(), Substituted: substituted, LeaksFound: leaks}
}

// IsVietnameseTarget reports whether lang is one of the codes the spec
// treats as Vietnamese output ("vi" or "vn").
func IsVietnameseTarget(lang string) bool {
	lower := strings.ToLower(lang)
	return lower == "vi" || lower == "vn"
}

// isHanzi reports whether r falls in the CJK Unified Ideographs block.
// Vietnamese text written in the modern Latin-based quốc ngữ script
// should contain none of these, so any survivor here is a leak from
// the source script rather than legitimate target-language text.
func isHanzi(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FFF
}
