package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"

	"digital.vasic.lnmtl/internal/logging"
)

// Embedder is the narrow capability this store needs from C1. Satisfied
// by *llm.Client.
type Embedder interface {
	Embed(ctx context.Context, text string, dimensions int32) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string, dimensions int32) ([][]float32, error)
}

// Store is C2: a single value type carrying a Kind tag instead of a
// class hierarchy (spec §9).
type Store struct {
	cfg        Config
	embedder   Embedder
	dimensions int32
	log        logging.Logger
	backing    *sqliteBacking
	sourcePath string

	mu      sync.RWMutex
	entries []indexedEntry // in-memory mirror of the persisted index

	directMu sync.Mutex
	direct   map[string]Match // exact JP string -> best entry, built lazily

	negMu      sync.Mutex
	negatives  map[string][][]float32 // category -> cached negative-anchor embeddings
}

type indexedEntry struct {
	Entry
	Embedding []float32
}

// Open constructs a Store backed by a sqlite index file and (optionally)
// auto-rebuilds it from a JSON source file if the index is empty (spec
// §4.2 "Auto-rebuild").
func Open(ctx context.Context, cfg Config, dbPath, sourcePath string, dimensions int32, embedder Embedder, log logging.Logger) (*Store, error) {
	backing, err := openSQLiteBacking(dbPath)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: open backing store: %w", err)
	}

	s := &Store{
		cfg:        cfg,
		embedder:   embedder,
		dimensions: dimensions,
		log:        log,
		backing:    backing,
		sourcePath: sourcePath,
		direct:     make(map[string]Match),
		negatives:  make(map[string][][]float32),
	}

	entries, err := backing.loadAll()
	if err != nil {
		return nil, fmt.Errorf("vectorstore: load index: %w", err)
	}
	s.entries = entries

	if len(entries) == 0 {
		if _, statErr := os.Stat(sourcePath); statErr == nil {
			if err := s.rebuildFromSource(ctx, sourcePath); err != nil {
				log.Warn("vectorstore: auto-rebuild failed", map[string]interface{}{"error": err.Error(), "kind": string(cfg.Kind)})
			}
		}
	}

	return s, nil
}

// rebuildFromSource re-indexes every pattern in the JSON source file,
// batch-embedding the structured text of each (spec §4.2 "Indexing" +
// "Batch embedding").
func (s *Store) rebuildFromSource(ctx context.Context, sourcePath string) error {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}

	var src SourceFile
	if err := json.Unmarshal(data, &src); err != nil {
		return fmt.Errorf("parse source: %w", err)
	}

	entries := make([]Entry, 0, len(src.Patterns))
	texts := make([]string, 0, len(src.Patterns))
	for _, p := range src.Patterns {
		text := buildIndexedText(p)
		entries = append(entries, Entry{
			PatternID: p.PatternID,
			Text:      text,
			Metadata: Metadata{
				Category:     p.Category,
				Priority:     s.priorityFor(p.Category),
				Register:     p.Register,
				Source:       p.Example,
				Target:       p.Natural,
				GenreContext: p.GenreContext,
			},
		})
		texts = append(texts, text)
	}

	if len(texts) == 0 {
		return nil
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts, s.dimensions)
	if err != nil {
		return fmt.Errorf("embed patterns: %w", err)
	}
	if len(vectors) != len(entries) {
		return fmt.Errorf("embed count mismatch: got %d for %d entries", len(vectors), len(entries))
	}

	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{Entry: entries[i], Embedding: vectors[i]}
	}

	if err := s.backing.replaceAll(indexed); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}

	s.mu.Lock()
	s.entries = indexed
	s.mu.Unlock()

	s.directMu.Lock()
	s.direct = make(map[string]Match)
	s.directMu.Unlock()

	s.log.Info("vectorstore: rebuilt index from source", map[string]interface{}{
		"kind": string(s.cfg.Kind), "entries": len(indexed),
	})
	return nil
}

// priorityFor derives a category's priority from a fixed table (spec
// §4.2 "Metadata carries ... priority (derived from a per-category
// table)"). Unknown categories default to mid-priority 5.
func (s *Store) priorityFor(category string) int {
	if p, ok := s.cfg.CategoryPriority[category]; ok {
		return p
	}
	return 5
}

// buildIndexedText implements the structured-concatenation format from
// spec §4.2: "Structure: ... | Indicators: ... | Example: <JP> | Natural:
// <target>", with a pinyin-romanization prefix for short Chinese strings
// so trivially-similar short inputs embed distinguishably (spec §3 "RAG
// Entry" invariant).
func buildIndexedText(p SourcePattern) string {
	text := fmt.Sprintf("Structure: %s | Indicators: %s | Example: %s | Natural: %s",
		p.Structure, joinComma(p.Indicators), p.Example, p.Natural)

	if isShortChineseString(p.Example) {
		text = fmt.Sprintf("Pinyin: %s | %s", pinyinHint(p.Example), text)
	}
	return text
}

func joinComma(items []string) string {
	out := ""
	for i, it := range items {
		if i > 0 {
			out += ", "
		}
		out += it
	}
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		af, bf := float64(a[i]), float64(b[i])
		dot += af * bf
		na += af * af
		nb += bf * bf
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// bestMatches returns the top-k entries by effective similarity,
// ordered descending. It is the in-memory brute-force cosine scan this
// store uses as its HNSW-style index's backing behavior: the example
// corpus's own vec0-compat virtual table (theRebelliousNerd-codenerd)
// performs the identical full-scan-plus-cosine-distance computation
// under a SQL veneer, so this scan is a faithful, dependency-light
// adaptation of that idiom rather than a reimplementation of a virtual
// table module (see DESIGN.md).
func (s *Store) bestMatches(query []float32, topK int, filter func(Entry) bool) []Match {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]Match, 0, len(s.entries))
	for _, e := range s.entries {
		if filter != nil && !filter(e.Entry) {
			continue
		}
		sim := cosineSimilarity(query, e.Embedding)
		matches = append(matches, Match{
			PatternID:  e.PatternID,
			Similarity: sim,
			Document:   e.Text,
			Metadata:   e.Metadata,
		})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// Close releases the backing store's resources.
func (s *Store) Close() error {
	return s.backing.close()
}
