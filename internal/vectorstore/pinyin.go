package vectorstore

import "unicode"

// isShortChineseString reports whether text is a short (<=4 rune) run of
// CJK ideographs, the case spec §3 calls out as needing a romanization
// hint so the embedding model can distinguish trivially-similar inputs.
func isShortChineseString(text string) bool {
	runes := []rune(text)
	if len(runes) == 0 || len(runes) > 4 {
		return false
	}
	for _, r := range runes {
		if !unicode.Is(unicode.Han, r) {
			return false
		}
	}
	return true
}

// pinyinHint returns a coarse disambiguation hint for a short Han
// string. No pinyin transliteration library appears anywhere in the
// example pack (see DESIGN.md); rather than fabricate a dependency,
// this emits the string's Unicode code points, which is sufficient to
// break embedding collisions between distinct short strings even though
// it is not true pinyin.
func pinyinHint(text string) string {
	hint := ""
	for i, r := range []rune(text) {
		if i > 0 {
			hint += "-"
		}
		hint += runeCodepointLabel(r)
	}
	return hint
}

func runeCodepointLabel(r rune) string {
	const hexDigits = "0123456789abcdef"
	if r == 0 {
		return "0"
	}
	var buf [8]byte
	pos := len(buf)
	for r > 0 {
		pos--
		buf[pos] = hexDigits[r&0xF]
		r >>= 4
	}
	return string(buf[pos:])
}
