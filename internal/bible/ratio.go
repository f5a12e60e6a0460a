package bible

// sequenceMatchRatio is a Go port of the Ratcliff/Obershelp algorithm
// that Python's difflib.SequenceMatcher.ratio() implements: find the
// longest matching block, recurse on the unmatched left and right
// remainders, and return 2*M/T where M is the total number of matched
// characters and T is the combined length of both strings. No fuzzy-
// match library appears anywhere in the retrieved example pack, so
// this is a direct algorithmic port rather than a dependency.
func sequenceMatchRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 1.0
	}
	matched := matchingCharacters(ra, rb)
	total := len(ra) + len(rb)
	if total == 0 {
		return 0
	}
	return 2.0 * float64(matched) / float64(total)
}

func matchingCharacters(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	ai, bi, size := longestMatch(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingCharacters(a[:ai], b[:bi])
	total += matchingCharacters(a[ai+size:], b[bi+size:])
	return total
}

// longestMatch finds the longest contiguous run common to a and b,
// preferring the earliest such run in a, then in b (mirroring
// difflib's leftmost-match tie-breaking).
func longestMatch(a, b []rune) (aStart, bStart, size int) {
	bIndex := make(map[rune][]int, len(b))
	for j, r := range b {
		bIndex[r] = append(bIndex[r], j)
	}

	// j2len[j] = length of the match ending at b[j-1] for the current a[i].
	j2len := make(map[int]int)
	bestI, bestJ, bestSize := 0, 0, 0

	for i, ra := range a {
		newJ2len := make(map[int]int)
		for _, j := range bIndex[ra] {
			k := j2len[j-1] + 1
			newJ2len[j] = k
			if k > bestSize {
				bestSize = k
				bestI = i - k + 1
				bestJ = j - k + 1
			}
		}
		j2len = newJ2len
	}

	return bestI, bestJ, bestSize
}
