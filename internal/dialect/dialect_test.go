package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectKansai(t *testing.T) {
	text := "そんなんあかんやん、ほんまにやねん。"
	assert.Equal(t, Kansai, Detect(text))
}

func TestDetectStandardWhenNoMarkers(t *testing.T) {
	text := "これは標準的な日本語の文章です。"
	assert.Equal(t, Standard, Detect(text))
}

func TestGuidanceEmptyForStandard(t *testing.T) {
	assert.Equal(t, "", Guidance(Standard))
}

func TestGuidanceNonEmptyForDetectedDialect(t *testing.T) {
	assert.NotEmpty(t, Guidance(Kansai))
}
