package vectorstore

import "context"

// SearchFilters narrows a search to a subset of the index (spec §4.2
// "Search", step 3: "Query HNSW with filters").
type SearchFilters struct {
	Category  string
	Priority  int // 0 means unfiltered
	Register  Register
	SinoOnly  bool
}

func (f SearchFilters) matches(e Entry) bool {
	if f.Category != "" && e.Metadata.Category != f.Category {
		return false
	}
	if f.Priority != 0 && e.Metadata.Priority != f.Priority {
		return false
	}
	if f.Register != "" && e.Metadata.Register != f.Register {
		return false
	}
	return true
}

// SearchWithContext implements spec §4.2's search_with_context: the
// query text is duplicated around its context to weight the current
// line, embedded once, then scored against the index with the
// negative-anchor penalty applied per match's category.
func (s *Store) SearchWithContext(ctx context.Context, current, prev, next string, filters SearchFilters, topK int) ([]Match, error) {
	query := current
	if prev != "" || next != "" {
		query = prev + " " + current + " " + next + " " + current
	} else {
		query = current + " " + current
	}

	vec, err := s.embedder.Embed(ctx, query, s.dimensions)
	if err != nil {
		return nil, err
	}

	raw := s.bestMatches(vec, topK, filters.matches)

	out := make([]Match, 0, len(raw))
	for _, m := range raw {
		negatives, err := s.negativesForCategory(ctx, m.Metadata.Category)
		if err != nil {
			// A negative-anchor lookup failure should not fail the
			// whole search; it just means this match isn't penalized.
			out = append(out, m)
			continue
		}
		penalty := negativePenalty(vec, negatives, s.cfg)
		m.Similarity = applyNegativePenalty(m.Similarity, penalty)
		out = append(out, m)
	}

	return out, nil
}
