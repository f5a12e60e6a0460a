package vectorstore

import (
	"context"
	"encoding/json"
	"os"
)

// loadSourceNegatives reads just the negative_vectors section of the
// JSON source file, without re-parsing/re-embedding the pattern list.
func (s *Store) loadSourceNegatives() (map[string][]string, error) {
	if s.sourcePath == "" {
		return nil, nil
	}
	data, err := os.ReadFile(s.sourcePath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var src SourceFile
	if err := json.Unmarshal(data, &src); err != nil {
		return nil, err
	}
	return src.NegativeVectors, nil
}

// negativesForCategory lazily batch-embeds and caches the negative
// anchors for category, exactly as english_pattern_store.py's
// _build_negative_anchor_cache: built once per (store, category) on
// first lookup that needs it, not eagerly at construction.
func (s *Store) negativesForCategory(ctx context.Context, category string) ([][]float32, error) {
	s.negMu.Lock()
	if cached, ok := s.negatives[category]; ok {
		s.negMu.Unlock()
		return cached, nil
	}
	s.negMu.Unlock()

	negativeVectors, err := s.loadSourceNegatives()
	if err != nil {
		return nil, err
	}
	texts := negativeVectors[category]
	if len(texts) == 0 {
		s.negMu.Lock()
		s.negatives[category] = nil
		s.negMu.Unlock()
		return nil, nil
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts, s.dimensions)
	if err != nil {
		return nil, err
	}

	s.negMu.Lock()
	s.negatives[category] = vectors
	s.negMu.Unlock()
	return vectors, nil
}

// negativePenalty implements spec §4.2's exact formula:
//
//	neg_score = max(sim(query, neg_i) for neg_i in negatives[category])
//	if neg_score >= T:   penalty = ((neg_score - T) / (1 - T)) * P   else 0
func negativePenalty(query []float32, negatives [][]float32, cfg Config) float64 {
	if len(negatives) == 0 {
		return 0
	}

	maxSim := 0.0
	for _, neg := range negatives {
		if sim := cosineSimilarity(query, neg); sim > maxSim {
			maxSim = sim
		}
	}

	if maxSim < cfg.NegativeAnchorThreshold {
		return 0
	}
	return ((maxSim - cfg.NegativeAnchorThreshold) / (1 - cfg.NegativeAnchorThreshold)) * cfg.NegativeAnchorPenalty
}

// applyNegativePenalty subtracts the penalty and floors at zero (spec:
// "effective_sim = max(0, raw_sim - penalty)").
func applyNegativePenalty(rawSim, penalty float64) float64 {
	effective := rawSim - penalty
	if effective < 0 {
		return 0
	}
	return effective
}
