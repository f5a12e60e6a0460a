package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage implements Storage over Redis: a fast, TTL-expiring
// view of run history and the RAG lookup statistics, for
// deployments that want the dashboard backed by something already in
// their infrastructure rather than a dedicated database.
type RedisStorage struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStorage connects to Redis and verifies the connection.
func NewRedisStorage(config *Config, ttl time.Duration) (*RedisStorage, error) {
	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: config.Password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("storage: connect to redis: %w", err)
	}

	return &RedisStorage{client: client, ttl: ttl}, nil
}

// CreateRun stores a run record.
func (r *RedisStorage) CreateRun(ctx context.Context, run *RunRecord) error {
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("run:%s", run.ID)
	return r.client.Set(ctx, key, data, r.ttl).Err()
}

// GetRun retrieves a run record by ID.
func (r *RedisStorage) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	key := fmt.Sprintf("run:%s", runID)
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("storage: run not found: %s", runID)
	}
	if err != nil {
		return nil, err
	}

	run := &RunRecord{}
	if err := json.Unmarshal(data, run); err != nil {
		return nil, err
	}
	return run, nil
}

// UpdateRun overwrites a run record (Redis SET has no partial update).
func (r *RedisStorage) UpdateRun(ctx context.Context, run *RunRecord) error {
	run.UpdatedAt = time.Now()
	return r.CreateRun(ctx, run)
}

// ListRuns scans for run records with pagination.
func (r *RedisStorage) ListRuns(ctx context.Context, limit, offset int) ([]*RunRecord, error) {
	pattern := "run:*"
	var cursor uint64
	var runs []*RunRecord
	count := 0

	for {
		keys, nextCursor, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}

		for _, key := range keys {
			if count < offset {
				count++
				continue
			}
			if len(runs) >= limit {
				return runs, nil
			}

			data, err := r.client.Get(ctx, key).Bytes()
			if err != nil {
				continue
			}

			run := &RunRecord{}
			if err := json.Unmarshal(data, run); err != nil {
				continue
			}
			runs = append(runs, run)
			count++
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return runs, nil
}

// DeleteRun removes a run record.
func (r *RedisStorage) DeleteRun(ctx context.Context, runID string) error {
	key := fmt.Sprintf("run:%s", runID)
	return r.client.Del(ctx, key).Err()
}

// RecordRAGLookup persists one chapter's RAG guidance pull outcome.
func (r *RedisStorage) RecordRAGLookup(ctx context.Context, stat *RAGLookupStat) error {
	key := fmt.Sprintf("rag:%s:%s:%s", stat.RunID, stat.ChapterID, stat.StoreKind)
	data, err := json.Marshal(stat)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, r.ttl).Err()
}

// CleanupOldCache is a no-op: Redis expires entries via TTL on its own.
func (r *RedisStorage) CleanupOldCache(ctx context.Context, olderThan time.Duration) error {
	return nil
}

// GetStatistics scans run and cache keys to compute aggregate counters.
func (r *RedisStorage) GetStatistics(ctx context.Context) (*Statistics, error) {
	stats := &Statistics{}

	pattern := "run:*"
	var cursor uint64

	for {
		keys, nextCursor, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}

		for _, key := range keys {
			data, err := r.client.Get(ctx, key).Bytes()
			if err != nil {
				continue
			}

			run := &RunRecord{}
			if err := json.Unmarshal(data, run); err != nil {
				continue
			}

			stats.TotalRuns++
			switch run.Status {
			case "completed":
				stats.CompletedRuns++
			case "partial":
				stats.FailedRuns++
			case "initializing", "translating":
				stats.InProgressRuns++
			}

			if run.Status == "completed" && run.EndTime != nil {
				duration := run.EndTime.Sub(run.StartTime).Seconds()
				stats.AverageDuration = (stats.AverageDuration*float64(stats.CompletedRuns-1) + duration) / float64(stats.CompletedRuns)
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	ragPattern := "rag:*"
	cursor = 0
	var hits, misses int64

	for {
		keys, nextCursor, err := r.client.Scan(ctx, cursor, ragPattern, 100).Result()
		if err != nil {
			return nil, err
		}

		for _, key := range keys {
			data, err := r.client.Get(ctx, key).Bytes()
			if err != nil {
				continue
			}

			stat := &RAGLookupStat{}
			if err := json.Unmarshal(data, stat); err != nil {
				continue
			}

			stats.TotalRAGLookups++
			hits += int64(stat.DirectHits + stat.VectorHits)
			misses += int64(stat.Misses)
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	if total := hits + misses; total > 0 {
		stats.CacheHitRate = float64(hits) / float64(total) * 100.0
	}

	return stats, nil
}

// Ping checks the Redis connection.
func (r *RedisStorage) Ping(ctx context.Context) error { return r.client.Ping(ctx).Err() }

// Close closes the Redis connection.
func (r *RedisStorage) Close() error { return r.client.Close() }
