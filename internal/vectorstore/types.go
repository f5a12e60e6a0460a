// Package vectorstore implements C2: a persistent semantic index of
// JP -> target-language patterns with category/priority/register
// metadata, negative-anchor penalty scoring, batch embedding, and a
// direct-lookup cache for exact JP-string hits.
//
// The source hierarchy (PatternVectorStore -> EnglishPatternStore /
// SinoVietnameseStore / VietnamesePatternStore) collapses into a single
// Store value carrying a Kind tag, per spec §9 "Inheritance -> variants":
// all per-subclass behavior becomes a switch on Kind against a small
// per-kind Config.
package vectorstore

// Kind identifies which of the four pattern stores this instance is.
type Kind string

const (
	KindEnglish         Kind = "english"
	KindSinoVietnamese  Kind = "sino_vietnamese"
	KindVietnameseGrammar Kind = "vietnamese_grammar"
	KindAIIsm           Kind = "ai_ism"
)

// Register is the formality register of a pattern.
type Register string

const (
	RegisterFormal   Register = "formal"
	RegisterCasual   Register = "casual"
	RegisterLiterary Register = "literary"
	RegisterNeutral  Register = "neutral"
)

// Config holds the per-Kind thresholds and priorities the source
// expressed as subclass constants (vector_search.py).
type Config struct {
	Kind Kind

	InjectThreshold float64
	LogThreshold    float64

	NegativeAnchorThreshold float64
	NegativeAnchorPenalty   float64

	GenreMismatchFactor float64

	// CategoryPriority maps a pattern category name to its priority
	// 1..10, used to break ties and to weight bulk-guidance ordering.
	CategoryPriority map[string]int
}

// DefaultConfig returns the threshold table recovered from
// original_source/pipeline/modules/vector_search.py's four concrete
// subclasses.
func DefaultConfig(kind Kind) Config {
	cfg := Config{
		Kind:                    kind,
		LogThreshold:            0.65,
		NegativeAnchorThreshold: 0.72,
		NegativeAnchorPenalty:   0.15,
		GenreMismatchFactor:     0.85,
		CategoryPriority:        map[string]int{},
	}

	switch kind {
	case KindEnglish:
		cfg.InjectThreshold = 0.78
	case KindSinoVietnamese:
		cfg.InjectThreshold = 0.85
	case KindVietnameseGrammar:
		cfg.InjectThreshold = 0.70
	case KindAIIsm:
		cfg.InjectThreshold = 0.82
	default:
		cfg.InjectThreshold = 0.82
	}

	return cfg
}

// Metadata describes one RAG entry (spec §3 "RAG Entry").
type Metadata struct {
	Category       string   `json:"category"`
	Priority       int      `json:"priority"` // 1..10
	Register       Register `json:"register"`
	Source         string   `json:"source"`
	Target         string   `json:"target"`
	GenreContext   string   `json:"genre_context,omitempty"`
	Negative       bool     `json:"negative,omitempty"`
	ZhIndicators   []string `json:"zh_indicators,omitempty"`
}

// Entry is one indexed RAG pattern, with its embedding kept separately
// in the persisted index (see sqlitestore.go) to keep this struct cheap
// to pass around.
type Entry struct {
	PatternID string   `json:"pattern_id"`
	Text      string   `json:"text"` // the structured indexed text
	Metadata  Metadata `json:"metadata"`
}

// SourcePattern is one entry as authored in the JSON RAG source file,
// before indexing. "Context × example" decomposition (spec §4.2) turns
// each SourcePattern into one or more Entry values.
type SourcePattern struct {
	PatternID   string   `json:"pattern_id"`
	Structure   string   `json:"structure"`
	Indicators  []string `json:"indicators"`
	Example     string   `json:"example"`      // JP
	Natural     string   `json:"natural"`      // target-language rendering
	Category    string   `json:"category"`
	Register    Register `json:"register"`
	GenreContext string  `json:"genre_context,omitempty"`
}

// SourceFile is the on-disk shape of the RAG source (spec §4.2,
// grounded on english_pattern_store.py's pattern_categories /
// advanced_patterns / negative_vectors shape).
type SourceFile struct {
	Patterns         []SourcePattern            `json:"patterns"`
	NegativeVectors  map[string][]string        `json:"negative_vectors"` // category -> example texts
}

// Match is one search result (spec §4.2 "Search").
type Match struct {
	PatternID  string
	Similarity float64
	Document   string
	Metadata   Metadata
}

// BulkGuidance is the return shape of get_bulk_guidance (spec §4.2).
type BulkGuidance struct {
	HighConfidence []Match
	MediumConfidence []Match
	LookupStats    LookupStats
}

// LookupStats records where each bulk-guidance term was resolved from,
// for audit purposes.
type LookupStats struct {
	DirectHits   int
	VectorHits   int
	Misses       int
}
