// Package jobstore persists job and batch records as JSON blobs in a
// TTL-capable key-value cache. Records expire after a retention window; a
// read after expiry is indistinguishable from a read of a record that never
// existed, and callers must treat it as a permanent failure.
package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dkathuria/taskpipe/internal/cache"
	"github.com/dkathuria/taskpipe/pkg/models"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a job or batch record is missing or expired.
var ErrNotFound = errors.New("job record not found")

const (
	// DefaultJobTTL is the retention window for single-job records.
	DefaultJobTTL = 2 * time.Hour
	// DefaultBatchTTL is the retention window for batch records. Batches are
	// polled more aggressively, so they get a shorter window.
	DefaultBatchTTL = 1 * time.Hour
	// DefaultMaxLogEntries caps the progress log on a record; older entries
	// are dropped first.
	DefaultMaxLogEntries = 200
)

// Config tunes record retention and log growth.
type Config struct {
	JobTTL        time.Duration
	BatchTTL      time.Duration
	MaxLogEntries int
}

// Store reads and writes job/batch records through a Cache. Every successful
// write refreshes updated_at and re-applies the full TTL, so an active record's
// retention window restarts on each mutation.
//
// Writes are last-writer-wins: the cache offers no transactions, so concurrent
// mutators of the same id interleave. Single ownership of an in-flight job by
// one worker is the caller's responsibility.
type Store struct {
	cache         cache.Cache
	jobTTL        time.Duration
	batchTTL      time.Duration
	maxLogEntries int
	now           func() time.Time
}

// NewStore creates a Store over the given cache. Zero Config fields fall back
// to the package defaults.
func NewStore(c cache.Cache, cfg Config) *Store {
	return NewStoreWithClock(c, cfg, time.Now)
}

// NewStoreWithClock creates a Store using the given clock for timestamps.
func NewStoreWithClock(c cache.Cache, cfg Config, now func() time.Time) *Store {
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = DefaultJobTTL
	}
	if cfg.BatchTTL <= 0 {
		cfg.BatchTTL = DefaultBatchTTL
	}
	if cfg.MaxLogEntries <= 0 {
		cfg.MaxLogEntries = DefaultMaxLogEntries
	}
	return &Store{
		cache:         c,
		jobTTL:        cfg.JobTTL,
		batchTTL:      cfg.BatchTTL,
		maxLogEntries: cfg.MaxLogEntries,
		now:           now,
	}
}

// --- Jobs ---

// CreateJob inserts a fresh job record under the job TTL.
func (s *Store) CreateJob(ctx context.Context, job *models.Job) error {
	now := s.now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	return s.write(ctx, cache.JobKey(job.ID), job, s.jobTTL)
}

// GetJob loads a job record. Returns ErrNotFound if the record is missing or
// its TTL elapsed.
func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var job models.Job
	if err := s.read(ctx, cache.JobKey(id), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateJob merges partial fields into an existing job record. The merge is a
// shallow key merge: nested objects such as metadata are replaced wholesale,
// so callers must pass the complete sub-object they want persisted.
//
// Returns (false, nil) when the record is missing, and also when the update
// would move the record's status out of a terminal state; terminal records
// never transition again.
func (s *Store) UpdateJob(ctx context.Context, id uuid.UUID, fields map[string]any) (bool, error) {
	return s.update(ctx, cache.JobKey(id), fields, s.jobTTL)
}

// DeleteJob removes a job record. Returns false if it was already gone.
func (s *Store) DeleteJob(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.cache.Delete(ctx, cache.JobKey(id))
}

// --- Batches ---

// CreateBatch inserts a fresh batch record under the batch TTL.
func (s *Store) CreateBatch(ctx context.Context, batch *models.BatchJob) error {
	now := s.now().UTC()
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = now
	}
	batch.UpdatedAt = now
	return s.write(ctx, cache.BatchKey(batch.ID), batch, s.batchTTL)
}

// GetBatch loads a batch record. Returns ErrNotFound if missing or expired.
func (s *Store) GetBatch(ctx context.Context, id uuid.UUID) (*models.BatchJob, error) {
	var batch models.BatchJob
	if err := s.read(ctx, cache.BatchKey(id), &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

// UpdateBatch merges partial fields into an existing batch record with the
// same shallow-merge and terminal-state semantics as UpdateJob.
func (s *Store) UpdateBatch(ctx context.Context, id uuid.UUID, fields map[string]any) (bool, error) {
	return s.update(ctx, cache.BatchKey(id), fields, s.batchTTL)
}

// DeleteBatch removes a batch record. Returns false if it was already gone.
func (s *Store) DeleteBatch(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.cache.Delete(ctx, cache.BatchKey(id))
}

// --- record plumbing ---

func (s *Store) write(ctx context.Context, key string, record any, ttl time.Duration) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := s.cache.Set(ctx, key, raw, ttl); err != nil {
		return fmt.Errorf("store record %s: %w", key, err)
	}
	return nil
}

func (s *Store) read(ctx context.Context, key string, record any) error {
	raw, found, err := s.cache.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("load record %s: %w", key, err)
	}
	if !found {
		return ErrNotFound
	}
	if err := json.Unmarshal(raw, record); err != nil {
		return fmt.Errorf("unmarshal record %s: %w", key, err)
	}
	return nil
}

func (s *Store) update(ctx context.Context, key string, fields map[string]any, ttl time.Duration) (bool, error) {
	raw, found, err := s.cache.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("load record %s: %w", key, err)
	}
	if !found {
		return false, nil
	}

	var record map[string]any
	if err := json.Unmarshal(raw, &record); err != nil {
		return false, fmt.Errorf("unmarshal record %s: %w", key, err)
	}

	if !transitionAllowed(record, fields) {
		return false, nil
	}

	for k, v := range fields {
		record[k] = v
	}
	record["updated_at"] = s.now().UTC()

	merged, err := json.Marshal(record)
	if err != nil {
		return false, fmt.Errorf("marshal record %s: %w", key, err)
	}
	if err := s.cache.Set(ctx, key, merged, ttl); err != nil {
		return false, fmt.Errorf("store record %s: %w", key, err)
	}
	return true, nil
}

// transitionAllowed rejects status changes out of a terminal state. Updates
// that leave status untouched (log appends, metadata refreshes) stay legal on
// terminal records.
func transitionAllowed(record map[string]any, fields map[string]any) bool {
	next, ok := fields["status"].(string)
	if !ok {
		return true
	}
	current, _ := record["status"].(string)
	if models.IsTerminalStatus(current) && next != current {
		return false
	}
	return true
}
