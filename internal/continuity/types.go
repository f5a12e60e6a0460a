// Package continuity implements the cross-volume ContinuityPack (spec
// §3 "ContinuityPack", §4.6 "Finalization"): per-chapter snapshots
// extracted as a volume completes, aggregated into one pack consumed
// by the next volume's Prompt Loader. The multi-pass aggregation idiom
// is grounded on the teacher's pkg/preparation.PreparationCoordinator,
// which consolidates N independent analysis passes into one final
// ContentAnalysis the same way this package consolidates N chapter
// snapshots into one pack.
package continuity

import "time"

// Relationship is a narrative relationship fact extracted from a
// chapter (e.g. "Tigre and Elen are childhood friends").
type Relationship struct {
	Subject string `json:"subject"`
	Object  string `json:"object"`
	Kind    string `json:"kind"`
	Chapter string `json:"chapter_id"`
}

// ChapterSnapshot is what one completed chapter contributes to the
// pack: its own roster/glossary deltas plus any narrative flags it
// raised.
type ChapterSnapshot struct {
	ChapterID      string            `json:"chapter_id"`
	Roster         map[string]string `json:"roster"`
	Glossary       map[string]string `json:"glossary"`
	Relationships  []Relationship    `json:"relationships"`
	NarrativeFlags []string          `json:"narrative_flags"`
	ExtractedAt    time.Time         `json:"extracted_at"`
}

// Pack is the aggregated cross-volume state (spec §3
// "ContinuityPack").
type Pack struct {
	Roster           map[string]string `json:"roster"`
	Glossary         map[string]string `json:"glossary"`
	Relationships    []Relationship    `json:"relationships"`
	NarrativeFlags   []string          `json:"narrative_flags"`
	ChapterSnapshots []ChapterSnapshot `json:"chapter_snapshots"`
}

// NewPack returns an empty, ready-to-merge pack.
func NewPack() *Pack {
	return &Pack{
		Roster:   make(map[string]string),
		Glossary: make(map[string]string),
	}
}
