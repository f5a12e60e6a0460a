package vectorstore

import "context"

// GetBulkGuidance implements spec §4.2's get_bulk_guidance: for each
// term, try a direct lookup first, then a batch-embedded vector search;
// genre mismatch multiplies the score by GenreMismatchFactor. Results
// are bucketed by the store's Inject/Log thresholds.
func (s *Store) GetBulkGuidance(ctx context.Context, terms []string, genre, context_ string, minConfidence float64) (BulkGuidance, error) {
	var out BulkGuidance
	if len(terms) == 0 {
		return out, nil
	}

	var stats LookupStats
	var needEmbed []string
	var needEmbedIdx []int
	resolved := make([]*Match, len(terms))

	for i, term := range terms {
		if m, ok := s.directLookup(term); ok {
			match := m
			resolved[i] = &match
			stats.DirectHits++
			continue
		}
		needEmbed = append(needEmbed, buildQueryText(term, context_))
		needEmbedIdx = append(needEmbedIdx, i)
	}

	if len(needEmbed) > 0 {
		vectors, err := s.embedder.EmbedBatch(ctx, needEmbed, s.dimensions)
		if err != nil {
			return out, err
		}
		for j, vec := range vectors {
			idx := needEmbedIdx[j]
			matches := s.bestMatches(vec, 1, nil)
			if len(matches) == 0 {
				stats.Misses++
				continue
			}
			best := matches[0]

			negatives, nerr := s.negativesForCategory(ctx, best.Metadata.Category)
			if nerr == nil {
				penalty := negativePenalty(vec, negatives, s.cfg)
				best.Similarity = applyNegativePenalty(best.Similarity, penalty)
			}

			if best.Metadata.GenreContext != "" && genre != "" && best.Metadata.GenreContext != genre {
				best.Similarity *= s.cfg.GenreMismatchFactor
			}

			stats.VectorHits++
			resolved[idx] = &best
		}
	}

	for _, m := range resolved {
		if m == nil || m.Similarity < minConfidence {
			continue
		}
		switch {
		case m.Similarity >= s.cfg.InjectThreshold:
			out.HighConfidence = append(out.HighConfidence, *m)
		case m.Similarity >= s.cfg.LogThreshold:
			out.MediumConfidence = append(out.MediumConfidence, *m)
		}
	}

	out.LookupStats = stats
	return out, nil
}

func buildQueryText(term, context_ string) string {
	if context_ == "" {
		return term
	}
	return term + " " + context_
}
