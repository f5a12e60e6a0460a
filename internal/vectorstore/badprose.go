package vectorstore

import (
	"context"
	"strings"
)

// BadProseFlag marks one output sentence that resembles a known bad
// prose example in this store.
type BadProseFlag struct {
	Sentence   string
	PatternID  string
	Category   string
	Similarity float64
}

// FlagBadProse batch-embeds candidate sentences and reports the ones
// whose best match in this store meets the threshold. Used by the
// chapter processor's post-checks with an ai_ism-kind store: the index
// holds known AI prose artifacts, so a close match means the
// translation slipped into machine-flavored phrasing. Warnings only;
// the caller never rewrites the output based on these.
func (s *Store) FlagBadProse(ctx context.Context, sentences []string, threshold float64) ([]BadProseFlag, error) {
	if len(sentences) == 0 || len(s.entries) == 0 {
		return nil, nil
	}

	vectors, err := s.embedder.EmbedBatch(ctx, sentences, s.dimensions)
	if err != nil {
		return nil, err
	}

	var flags []BadProseFlag
	for i, vec := range vectors {
		matches := s.bestMatches(vec, 1, nil)
		if len(matches) == 0 {
			continue
		}
		best := matches[0]
		if best.Similarity < threshold {
			continue
		}
		flags = append(flags, BadProseFlag{
			Sentence:   sentences[i],
			PatternID:  best.PatternID,
			Category:   best.Metadata.Category,
			Similarity: best.Similarity,
		})
	}
	return flags, nil
}

// SplitSentences breaks translated prose into sentence-sized units for
// FlagBadProse, capped at limit to bound the embedding batch.
func SplitSentences(text string, limit int) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		start := 0
		for i := 0; i < len(line); i++ {
			if line[i] == '.' || line[i] == '!' || line[i] == '?' {
				sentence := strings.TrimSpace(line[start : i+1])
				if len(sentence) >= 20 {
					out = append(out, sentence)
				}
				start = i + 1
			}
		}
		if rest := strings.TrimSpace(line[start:]); len(rest) >= 20 {
			out = append(out, rest)
		}
		if limit > 0 && len(out) >= limit {
			return out[:limit]
		}
	}
	return out
}
