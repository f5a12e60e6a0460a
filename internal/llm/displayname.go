package llm

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxDisplayNameBytes is the provider's limit on cached-content display
// names (spec §4.1 "Cache creation").
const maxDisplayNameBytes = 128

// sanitizeDisplayName folds a display name to an ASCII-safe string no
// longer than 128 bytes, appending a deterministic 8-hex-char hash of the
// original (pre-fold) string so distinct inputs that fold to the same
// ASCII text remain distinguishable. Grounded on
// gemini_client.py's _sanitize_display_name.
func sanitizeDisplayName(name string) string {
	hash := sha1.Sum([]byte(name))
	suffix := "_" + hex.EncodeToString(hash[:])[:8]

	folded := foldToASCII(name)
	if folded == "" {
		folded = "cache"
	}

	maxFoldedLen := maxDisplayNameBytes - len(suffix)
	if maxFoldedLen < 0 {
		maxFoldedLen = 0
	}
	if len(folded) > maxFoldedLen {
		folded = folded[:maxFoldedLen]
	}

	return folded + suffix
}

// foldToASCII NFKD-normalizes the input, strips combining marks, and
// drops any remaining non-ASCII or unsafe-for-identifier runes.
func foldToASCII(s string) string {
	t := transform.Chain(norm.NFKD, transform.RemoveFunc(isMn))
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var sb strings.Builder
	for _, r := range folded {
		switch {
		case r > unicode.MaxASCII:
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
		case r == '-' || r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return sb.String()
}

func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}
