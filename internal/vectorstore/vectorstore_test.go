package vectorstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.lnmtl/internal/logging"
)

// fakeEmbedder returns deterministic vectors derived from a hash of the text so
// tests don't depend on a real embedding model.
type fakeEmbedder struct {
	dim int
	// vectors lets tests pin an exact vector for a given text.
	vectors map[string][]float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, dimensions int32) ([]float32, error) {
	vs, err := f.EmbedBatch(ctx, []string{text}, dimensions)
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string, dimensions int32) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := f.vectors[t]; ok {
			out[i] = v
			continue
		}
		out[i] = hashVector(t, f.dim)
	}
	return out, nil
}

func hashVector(s string, dim int) []float32 {
	v := make([]float32, dim)
	seed := 0
	for _, r := range s {
		seed = seed*31 + int(r)
	}
	for i := range v {
		v[i] = float32((seed+i)%97) / 97.0
	}
	return v
}

func TestNegativePenaltyFormula(t *testing.T) {
	cfg := DefaultConfig(KindEnglish)
	cfg.NegativeAnchorThreshold = 0.72
	cfg.NegativeAnchorPenalty = 0.15

	// Construct exact vectors for a controlled cosine similarity of 0.85,
	// matching spec S5's worked example.
	query := []float32{1, 0}
	neg := unitVectorAtCosine(0.85)
	penalty := negativePenalty(query, [][]float32{neg}, cfg)

	expected := ((0.85 - 0.72) / (1 - 0.72)) * 0.15
	assert.InDelta(t, expected, penalty, 0.01)
}

func unitVectorAtCosine(cos float64) []float32 {
	// query is {1,0}; a vector at angle theta from it has cosine(theta)=cos
	sin := 1 - cos*cos
	if sin < 0 {
		sin = 0
	}
	return []float32{float32(cos), float32(sqrtApprox(sin))}
}

func sqrtApprox(x float64) float64 {
	if x <= 0 {
		return 0
	}
	z := x
	for i := 0; i < 20; i++ {
		z -= (z*z - x) / (2 * z)
	}
	return z
}

func TestApplyNegativePenaltyFloorsAtZero(t *testing.T) {
	assert.Equal(t, 0.0, applyNegativePenalty(0.05, 0.2))
	assert.InDelta(t, 0.75, applyNegativePenalty(0.90, 0.15), 0.001)
}

func TestIsShortChineseString(t *testing.T) {
	assert.True(t, isShortChineseString("中文"))
	assert.False(t, isShortChineseString("hello"))
	assert.False(t, isShortChineseString("一二三四五"))
}

func TestOpenAutoRebuildsFromSourceWhenEmpty(t *testing.T) {
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "english_patterns.json")
	writeJSONFile(t, sourcePath, `{
		"patterns": [
			{"pattern_id": "p1", "structure": "S1", "indicators": ["a"], "example": "彼女", "natural": "she", "category": "pronoun", "register": "neutral"}
		],
		"negative_vectors": {"pronoun": ["他"]}
	}`)

	embedder := &fakeEmbedder{dim: 8}
	cfg := DefaultConfig(KindEnglish)

	store, err := Open(context.Background(), cfg, filepath.Join(dir, "index.db"), sourcePath, 8, embedder, logging.NewNoOp())
	require.NoError(t, err)
	defer store.Close()

	store.mu.RLock()
	count := len(store.entries)
	store.mu.RUnlock()
	assert.Equal(t, 1, count)
}

func TestBulkGuidanceDirectHitConfidenceOne(t *testing.T) {
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "patterns.json")
	writeJSONFile(t, sourcePath, `{
		"patterns": [
			{"pattern_id": "p1", "structure": "S1", "indicators": [], "example": "存在", "natural": "exist", "category": "verb", "register": "neutral"}
		],
		"negative_vectors": {}
	}`)

	embedder := &fakeEmbedder{dim: 4}
	cfg := DefaultConfig(KindEnglish)
	cfg.InjectThreshold = 0.9

	store, err := Open(context.Background(), cfg, filepath.Join(dir, "idx.db"), sourcePath, 4, embedder, logging.NewNoOp())
	require.NoError(t, err)
	defer store.Close()

	guidance, err := store.GetBulkGuidance(context.Background(), []string{"存在"}, "", "", 0.5)
	require.NoError(t, err)
	require.Len(t, guidance.HighConfidence, 1)
	assert.Equal(t, 1.0, guidance.HighConfidence[0].Similarity)
	assert.Equal(t, 1, guidance.LookupStats.DirectHits)
}

func writeJSONFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}
