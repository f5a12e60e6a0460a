package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeDisplayNameASCII(t *testing.T) {
	name := sanitizeDisplayName("volume_0001_full")
	assert.True(t, strings.HasPrefix(name, "volume_0001_full_"))
	assert.LessOrEqual(t, len(name), maxDisplayNameBytes)
}

func TestSanitizeDisplayNameNonASCIIFoldsAndHashes(t *testing.T) {
	name := sanitizeDisplayName("魔弾の王と戦姫_full")
	assert.LessOrEqual(t, len(name), maxDisplayNameBytes)
	// the CJK part folds away entirely; distinct inputs still differ
	other := sanitizeDisplayName("魔弾の王と戦姫_prewarm")
	assert.NotEqual(t, name, other)
}

func TestSanitizeDisplayNameTruncatesLongInput(t *testing.T) {
	long := strings.Repeat("a", 300)
	name := sanitizeDisplayName(long)
	assert.LessOrEqual(t, len(name), maxDisplayNameBytes)
}

func TestSanitizeDisplayNameDeterministic(t *testing.T) {
	a := sanitizeDisplayName("series_bible_volume")
	b := sanitizeDisplayName("series_bible_volume")
	assert.Equal(t, a, b)
}
