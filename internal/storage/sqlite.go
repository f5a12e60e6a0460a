package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStorage implements Storage over SQLite, the default backend
// for a single-operator deployment of the monitor dashboard.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (creating if absent) a SQLite-backed store.
func NewSQLiteStorage(config *Config) (*SQLiteStorage, error) {
	dsn := config.Database
	if config.EncryptionKey != "" {
		dsn += fmt.Sprintf("?_pragma_key=%s&_pragma_cipher_page_size=4096", config.EncryptionKey)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite database: %w", err)
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	s := &SQLiteStorage{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: init schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStorage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS run_history (
		id TEXT PRIMARY KEY,
		volume_id TEXT NOT NULL,
		input_file TEXT NOT NULL,
		output_file TEXT,
		source_language TEXT NOT NULL,
		target_language TEXT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		status TEXT NOT NULL,
		percent_complete REAL DEFAULT 0,
		current_chapter INTEGER DEFAULT 0,
		total_chapters INTEGER DEFAULT 0,
		items_completed INTEGER DEFAULT 0,
		items_failed INTEGER DEFAULT 0,
		items_total INTEGER DEFAULT 0,
		start_time DATETIME NOT NULL,
		end_time DATETIME,
		error_message TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_run_history_status ON run_history(status);
	CREATE INDEX IF NOT EXISTS idx_run_history_created_at ON run_history(created_at DESC);

	CREATE TABLE IF NOT EXISTS rag_lookups (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		chapter_id TEXT NOT NULL,
		store_kind TEXT NOT NULL,
		direct_hits INTEGER DEFAULT 0,
		vector_hits INTEGER DEFAULT 0,
		misses INTEGER DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rag_lookups_run ON rag_lookups(run_id);
	CREATE INDEX IF NOT EXISTS idx_rag_lookups_created_at ON rag_lookups(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateRun inserts a new run record.
func (s *SQLiteStorage) CreateRun(ctx context.Context, run *RunRecord) error {
	query := `
		INSERT INTO run_history (
			id, volume_id, input_file, output_file, source_language, target_language,
			provider, model, status, percent_complete, current_chapter, total_chapters,
			items_completed, items_failed, items_total, start_time, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		run.ID, run.VolumeID, run.InputFile, run.OutputFile,
		run.SourceLanguage, run.TargetLanguage, run.Provider, run.Model,
		run.Status, run.PercentComplete, run.CurrentChapter, run.TotalChapters,
		run.ItemsCompleted, run.ItemsFailed, run.ItemsTotal,
		run.StartTime, run.CreatedAt, run.UpdatedAt,
	)
	return err
}

// GetRun retrieves a run record by ID.
func (s *SQLiteStorage) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	query := `
		SELECT id, volume_id, input_file, output_file, source_language, target_language,
			provider, model, status, percent_complete, current_chapter, total_chapters,
			items_completed, items_failed, items_total, start_time, end_time, error_message,
			created_at, updated_at
		FROM run_history
		WHERE id = ?
	`
	run := &RunRecord{}
	var endTime sql.NullTime
	var errorMessage sql.NullString

	err := s.db.QueryRowContext(ctx, query, runID).Scan(
		&run.ID, &run.VolumeID, &run.InputFile, &run.OutputFile,
		&run.SourceLanguage, &run.TargetLanguage, &run.Provider, &run.Model,
		&run.Status, &run.PercentComplete, &run.CurrentChapter, &run.TotalChapters,
		&run.ItemsCompleted, &run.ItemsFailed, &run.ItemsTotal,
		&run.StartTime, &endTime, &errorMessage, &run.CreatedAt, &run.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("storage: run not found: %s", runID)
	}
	if err != nil {
		return nil, err
	}
	if endTime.Valid {
		run.EndTime = &endTime.Time
	}
	if errorMessage.Valid {
		run.ErrorMessage = errorMessage.String
	}
	return run, nil
}

// UpdateRun updates an existing run record.
func (s *SQLiteStorage) UpdateRun(ctx context.Context, run *RunRecord) error {
	query := `
		UPDATE run_history
		SET volume_id = ?, output_file = ?, status = ?, percent_complete = ?,
			current_chapter = ?, total_chapters = ?, items_completed = ?, items_failed = ?,
			items_total = ?, end_time = ?, error_message = ?, updated_at = ?
		WHERE id = ?
	`
	_, err := s.db.ExecContext(ctx, query,
		run.VolumeID, run.OutputFile, run.Status, run.PercentComplete,
		run.CurrentChapter, run.TotalChapters, run.ItemsCompleted, run.ItemsFailed,
		run.ItemsTotal, run.EndTime, run.ErrorMessage, time.Now(), run.ID,
	)
	return err
}

// ListRuns lists run records newest first.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit, offset int) ([]*RunRecord, error) {
	query := `
		SELECT id, volume_id, input_file, output_file, source_language, target_language,
			provider, model, status, percent_complete, current_chapter, total_chapters,
			items_completed, items_failed, items_total, start_time, end_time, error_message,
			created_at, updated_at
		FROM run_history
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*RunRecord
	for rows.Next() {
		run := &RunRecord{}
		var endTime sql.NullTime
		var errorMessage sql.NullString

		if err := rows.Scan(
			&run.ID, &run.VolumeID, &run.InputFile, &run.OutputFile,
			&run.SourceLanguage, &run.TargetLanguage, &run.Provider, &run.Model,
			&run.Status, &run.PercentComplete, &run.CurrentChapter, &run.TotalChapters,
			&run.ItemsCompleted, &run.ItemsFailed, &run.ItemsTotal,
			&run.StartTime, &endTime, &errorMessage, &run.CreatedAt, &run.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if endTime.Valid {
			run.EndTime = &endTime.Time
		}
		if errorMessage.Valid {
			run.ErrorMessage = errorMessage.String
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run record.
func (s *SQLiteStorage) DeleteRun(ctx context.Context, runID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM run_history WHERE id = ?", runID)
	return err
}

// RecordRAGLookup persists one chapter's RAG guidance pull outcome.
func (s *SQLiteStorage) RecordRAGLookup(ctx context.Context, stat *RAGLookupStat) error {
	query := `
		INSERT INTO rag_lookups (
			id, run_id, chapter_id, store_kind, direct_hits, vector_hits, misses, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		stat.ID, stat.RunID, stat.ChapterID, stat.StoreKind,
		stat.DirectHits, stat.VectorHits, stat.Misses, stat.CreatedAt,
	)
	return err
}

// CleanupOldCache removes RAG lookup records older than olderThan.
func (s *SQLiteStorage) CleanupOldCache(ctx context.Context, olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	_, err := s.db.ExecContext(ctx, "DELETE FROM rag_lookups WHERE created_at < ?", cutoff)
	return err
}

// GetStatistics aggregates run history and cache counters.
func (s *SQLiteStorage) GetStatistics(ctx context.Context) (*Statistics, error) {
	stats := &Statistics{}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM run_history").Scan(&stats.TotalRuns); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM run_history WHERE status = 'completed'").Scan(&stats.CompletedRuns); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM run_history WHERE status = 'partial'").Scan(&stats.FailedRuns); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM run_history WHERE status IN ('initializing', 'translating')").Scan(&stats.InProgressRuns); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rag_lookups").Scan(&stats.TotalRAGLookups); err != nil {
		return nil, err
	}

	var avgDuration sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT AVG(CAST((julianday(end_time) - julianday(start_time)) * 86400 AS REAL))
		FROM run_history
		WHERE status = 'completed' AND end_time IS NOT NULL
	`).Scan(&avgDuration)
	if err != nil {
		return nil, err
	}
	if avgDuration.Valid {
		stats.AverageDuration = avgDuration.Float64
	}

	var hits, misses sql.NullInt64
	err = s.db.QueryRowContext(ctx, "SELECT SUM(direct_hits + vector_hits), SUM(misses) FROM rag_lookups").Scan(&hits, &misses)
	if err == nil && hits.Valid {
		total := hits.Int64 + misses.Int64
		if total > 0 {
			stats.CacheHitRate = float64(hits.Int64) / float64(total) * 100.0
		}
	}

	return stats, nil
}

// Ping checks the database connection.
func (s *SQLiteStorage) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close closes the database connection.
func (s *SQLiteStorage) Close() error { return s.db.Close() }
