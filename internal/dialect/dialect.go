// Package dialect implements spec §4.5 step 3: regex-driven detection
// of Japanese regional dialect markers in chapter source text, so the
// prompt loader can inject a guidance block steering the translator
// toward a register that preserves the character's speech pattern
// instead of flattening it to standard Japanese.
//
// The marker-scoring idiom (count per-dialect character/word markers,
// pick the highest score above a floor) is adapted from the teacher's
// pkg/language detector, which scores candidate human languages the
// same way over Cyrillic/Latin marker characters; here the "languages"
// become Japanese regional dialects instead of world languages.
package dialect

import "strings"

// Dialect identifies a detected Japanese regional speech pattern.
type Dialect string

const (
	Standard Dialect = ""
	Kansai   Dialect = "kansai"
	Tohoku   Dialect = "tohoku"
	Hakata   Dialect = "hakata"
)

// marker is one dialect-specific token; weight reflects how uniquely
// it identifies the dialect (a bare particle is weaker evidence than a
// distinctive copula).
type marker struct {
	token  string
	weight int
}

var markers = map[Dialect][]marker{
	Kansai: {
		{"やねん", 10}, {"ちゃう", 8}, {"おおきに", 10}, {"あかん", 8},
		{"へん", 6}, {"せやな", 9}, {"ほんま", 7}, {"めっちゃ", 5},
	},
	Tohoku: {
		{"だべ", 10}, {"んだ", 6}, {"したっけ", 9}, {"んだべ", 10},
	},
	Hakata: {
		{"ばい", 9}, {"たい", 4}, {"やけん", 9}, {"っちゃ", 7},
	},
}

// guidance is the translator-facing note for each detected dialect.
var guidance = map[Dialect]string{
	Kansai: "This character speaks in Kansai dialect (関西弁). Render their " +
		"lines with a looser, more informal English register and occasional " +
		"colloquial contractions; do not translate the dialect markers " +
		"literally, convey them through tone instead.",
	Tohoku: "This character speaks in a Tohoku regional dialect. Render " +
		"their lines with a rustic, plain-spoken English register.",
	Hakata: "This character speaks in Hakata dialect (博多弁). Render their " +
		"lines with a warm, casual English register distinct from standard " +
		"Japanese speech in the same chapter.",
}

// Detect scans text for dialect markers and returns the highest-scoring
// dialect above a minimum evidence floor, or Standard if none clears
// it. Detection failures (none found) are not an error — spec §4.5
// step 3 says this step "produce[s] a guidance block or null".
func Detect(text string) Dialect {
	best := Standard
	bestScore := 0
	const minScore = 8

	for d, ms := range markers {
		score := 0
		for _, m := range ms {
			score += strings.Count(text, m.token) * m.weight
		}
		if score > bestScore {
			bestScore = score
			best = d
		}
	}

	if bestScore < minScore {
		return Standard
	}
	return best
}

// Guidance returns the prompt guidance block for a detected dialect,
// or empty string for Standard.
func Guidance(d Dialect) string {
	return guidance[d]
}
