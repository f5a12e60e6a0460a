package chapter

import (
	"os"
	"regexp"
	"sort"
	"strings"
)

var h1Pattern = regexp.MustCompile(`(?m)^#\s+(.+)$`)

// loadSource reads path and strips the leading H1 JP title (preserved
// for audit, spec §4.5 step 1), returning the stripped body and the
// title text that was removed (empty if none was present).
func loadSource(path string) (body string, strippedTitle string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	text := string(data)

	loc := h1Pattern.FindStringSubmatchIndex(text)
	if loc == nil || loc[0] != 0 {
		return text, "", nil
	}
	strippedTitle = text[loc[2]:loc[3]]
	rest := text[loc[1]:]
	return strings.TrimLeft(rest, "\n"), strippedTitle, nil
}

var illustrationTag = regexp.MustCompile(`\[ILLUSTRATION:\s*(illust-\d+)\]`)

// extractIllustrationIDs finds every [ILLUSTRATION: illust-NNN] tag in
// chapter source text, in order of first appearance, de-duplicated
// (spec §4.5 step 5).
func extractIllustrationIDs(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range illustrationTag.FindAllStringSubmatch(text, -1) {
		id := m[1]
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// kanjiCompoundPattern matches runs of 2-4 consecutive Han characters,
// the definition of a "kanji compound" spec §4.5 step 4 extracts for
// Sino-Vietnamese lookups.
var kanjiCompoundPattern = regexp.MustCompile(`[\p{Han}]{2,4}`)

// topKanjiCompounds extracts the top-n most frequent kanji compounds
// (length 2-4) in text, spec §4.5 step 4: "extract top-30 kanji
// compounds (length 2-4) by frequency".
func topKanjiCompounds(text string, n int) []string {
	counts := make(map[string]int)
	var order []string
	for _, m := range kanjiCompoundPattern.FindAllString(text, -1) {
		if _, ok := counts[m]; !ok {
			order = append(order, m)
		}
		counts[m]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > n {
		order = order[:n]
	}
	return order
}
