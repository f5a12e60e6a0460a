package chapter

import "regexp"

// jpSentencePattern splits chapter body into individual JP sentences,
// the unit spec §4.5 step 4 means by "detected JP grammar patterns":
// each sentence is itself the query term handed to the English/
// Vietnamese-grammar pattern stores' get_bulk_guidance.
var jpSentencePattern = regexp.MustCompile(`[^。！？\n]+[。！？]?`)

// maxGrammarTerms bounds how many sentences are sent to a single
// get_bulk_guidance call, keeping the batch-embed call proportional to
// chapter length rather than unbounded.
const maxGrammarTerms = 60

// detectGrammarPatterns splits text into sentence-level query terms for
// the pattern stores. Blank/whitespace-only fragments are dropped.
func detectGrammarPatterns(text string) []string {
	var out []string
	for _, m := range jpSentencePattern.FindAllString(text, -1) {
		trimmed := trimSpaceRunes(m)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
		if len(out) >= maxGrammarTerms {
			break
		}
	}
	return out
}

func trimSpaceRunes(s string) string {
	start, end := 0, len(s)
	for start < end && isSpaceByte(s[start]) {
		start++
	}
	for end > start && isSpaceByte(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
