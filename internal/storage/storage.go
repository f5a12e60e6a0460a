// Package storage persists volume run history and per-chapter RAG
// lookup statistics for the monitor dashboard: every translate_volume
// invocation's outcome (status, chapter counters, timing) survives the
// process so the dashboard can list past runs, not just the one in
// flight. Adapted from the teacher's pkg/storage, retargeted from
// per-book sessions to per-volume runs.
package storage

import (
	"context"
	"time"
)

// RunRecord is one translate_volume invocation's persisted outcome.
type RunRecord struct {
	ID              string     `json:"id"`
	VolumeID        string     `json:"volume_id"`
	InputFile       string     `json:"input_file"`
	OutputFile      string     `json:"output_file"`
	SourceLanguage  string     `json:"source_language"`
	TargetLanguage  string     `json:"target_language"`
	Provider        string     `json:"provider"`
	Model           string     `json:"model"`
	Status          string     `json:"status"`
	PercentComplete float64    `json:"percent_complete"`
	CurrentChapter  int        `json:"current_chapter"`
	TotalChapters   int        `json:"total_chapters"`
	ItemsCompleted  int        `json:"items_completed"`
	ItemsFailed     int        `json:"items_failed"`
	ItemsTotal      int        `json:"items_total"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// RAGLookupStat is one chapter's RAG guidance pull outcome (spec §4.2's
// get_bulk_guidance, internal/vectorstore.LookupStats), persisted so the
// monitor dashboard's cache_hit_rate tile reflects real C2 direct-lookup
// and vector-search activity instead of a chapter-text memoization table
// nothing in this pipeline can safely use (continuity/glossary context
// makes the same source text translate differently across chapters).
type RAGLookupStat struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id"`
	ChapterID  string    `json:"chapter_id"`
	StoreKind  string    `json:"store_kind"` // "sino_vietnamese", "vietnamese_grammar", "english"
	DirectHits int       `json:"direct_hits"`
	VectorHits int       `json:"vector_hits"`
	Misses     int       `json:"misses"`
	CreatedAt  time.Time `json:"created_at"`
}

// Storage is the persistence backend the monitor dashboard reads from
// and the orchestrator writes run history and RAG lookup stats to.
type Storage interface {
	CreateRun(ctx context.Context, run *RunRecord) error
	GetRun(ctx context.Context, runID string) (*RunRecord, error)
	UpdateRun(ctx context.Context, run *RunRecord) error
	ListRuns(ctx context.Context, limit, offset int) ([]*RunRecord, error)
	DeleteRun(ctx context.Context, runID string) error

	RecordRAGLookup(ctx context.Context, stat *RAGLookupStat) error
	CleanupOldCache(ctx context.Context, olderThan time.Duration) error

	GetStatistics(ctx context.Context) (*Statistics, error)

	Ping(ctx context.Context) error
	Close() error
}

// Statistics summarizes run history and RAG lookup activity for the
// dashboard's overview tile.
type Statistics struct {
	TotalRuns       int64   `json:"total_runs"`
	CompletedRuns   int64   `json:"completed_runs"`
	FailedRuns      int64   `json:"failed_runs"`
	InProgressRuns  int64   `json:"in_progress_runs"`
	TotalRAGLookups int64   `json:"total_rag_lookups"`
	CacheHitRate    float64 `json:"cache_hit_rate"` // percentage (0-100) of looked-up terms resolved by direct/vector hit, not miss
	AverageDuration float64 `json:"average_duration_seconds"`
}

// Config selects and configures a storage backend.
type Config struct {
	Type     string `json:"type"` // "sqlite", "postgres", "redis"
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	Username string `json:"username"`
	Password string `json:"password"`
	SSLMode  string `json:"ssl_mode"`

	EncryptionKey string `json:"encryption_key,omitempty"`

	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
}
