// Package batch fans one tool type out over many files. A batch completes
// once every file has been attempted exactly once; per-file failures are
// recorded on the batch and never abort the remaining items.
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dkathuria/taskpipe/internal/jobstore"
	"github.com/dkathuria/taskpipe/internal/metrics"
	"github.com/dkathuria/taskpipe/pkg/models"
	"github.com/google/uuid"
)

const (
	// DefaultConcurrency processes batch items one at a time. Raising it
	// bounds the number of concurrent remote file-processing calls.
	DefaultConcurrency = 1
)

// Processor is the remote file service the coordinator dispatches items to.
type Processor interface {
	ProcessFile(ctx context.Context, fileID string, toolType models.ToolType, opts map[string]any) (*models.FileResult, error)
	Upload(ctx context.Context, fileName, source string) (string, error)
}

// Config tunes the coordinator.
type Config struct {
	Concurrency int
}

// Coordinator runs batch jobs. Like the pipeline executor it owns no state;
// batch records live in the job store.
type Coordinator struct {
	store       *jobstore.Store
	files       Processor
	sink        metrics.Sink
	concurrency int
}

// NewCoordinator creates a Coordinator. A nil sink disables metrics; a zero
// or negative concurrency falls back to DefaultConcurrency.
func NewCoordinator(store *jobstore.Store, files Processor, sink metrics.Sink, cfg Config) *Coordinator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Coordinator{
		store:       store,
		files:       files,
		sink:        sink,
		concurrency: cfg.Concurrency,
	}
}

// CreateBatchParams describes a new batch.
type CreateBatchParams struct {
	ToolType string
	Files    []models.BatchFile
	Options  map[string]any
	OwnerID  uuid.UUID
}

// CreateBatchJob validates the tool type and file list and inserts a pending
// batch record.
func (c *Coordinator) CreateBatchJob(ctx context.Context, p CreateBatchParams) (*models.BatchJob, error) {
	tool, err := models.ParseToolType(p.ToolType)
	if err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}
	if len(p.Files) == 0 {
		return nil, fmt.Errorf("create batch: file list is empty")
	}
	for i, f := range p.Files {
		if f.FileID == "" && f.Source == "" {
			return nil, fmt.Errorf("create batch: file %d (%s) has neither a file_id nor a source", i, f.FileName)
		}
	}

	batch := &models.BatchJob{
		ID:       uuid.New(),
		ToolType: tool,
		Files:    p.Files,
		Options:  p.Options,
		OwnerID:  p.OwnerID,
		Status:   models.JobStatusPending,
		Stage:    "created",
		Metadata: models.BatchMetadata{TotalFiles: len(p.Files)},
	}
	if err := c.store.CreateBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}
	_, _ = c.store.AddBatchLog(ctx, batch.ID, "batch created", "info", map[string]any{
		"tool_type":   string(tool),
		"total_files": len(p.Files),
	})
	return batch, nil
}

// GetBatchJob loads a batch from the store.
func (c *Coordinator) GetBatchJob(ctx context.Context, id uuid.UUID) (*models.BatchJob, error) {
	return c.store.GetBatch(ctx, id)
}

// UpdateBatchJob merges partial fields into a batch record.
func (c *Coordinator) UpdateBatchJob(ctx context.Context, id uuid.UUID, fields map[string]any) (bool, error) {
	return c.store.UpdateBatch(ctx, id, fields)
}

// AddBatchLog appends a progress log entry to a batch record.
func (c *Coordinator) AddBatchLog(ctx context.Context, id uuid.UUID, message, level string, data map[string]any) (bool, error) {
	return c.store.AddBatchLog(ctx, id, message, level, data)
}

// itemOutcome is the result of one file attempt, tagged with its input index
// so the collected results and errors preserve input order.
type itemOutcome struct {
	index   int
	result  *models.BatchItemResult
	failure *models.BatchItemError
}

// progressState is the shared accounting updated as item outcomes land.
// Counters satisfy processed == successful + failed and processed <= total
// on every persisted write.
type progressState struct {
	mu       sync.Mutex
	meta     models.BatchMetadata
	results  []*models.BatchItemResult
	failures []*models.BatchItemError
}

// ProcessBatchJob drives one pending batch to a terminal state. Items run on
// a worker pool of the configured concurrency; a cancellation request is
// honored between item dispatches, skipping everything not yet started. Only
// infrastructure errors (store unreachable, record expired mid-run) are
// returned; per-item failures land in the batch record's errors list.
func (c *Coordinator) ProcessBatchJob(ctx context.Context, batchID uuid.UUID) error {
	batch, err := c.store.GetBatch(ctx, batchID)
	if err != nil {
		return fmt.Errorf("batch %s: %w", batchID, err)
	}
	if batch.IsTerminal() {
		return fmt.Errorf("batch %s is already %s", batchID, batch.Status)
	}

	started := time.Now().UTC()
	meta := batch.Metadata
	meta.ProcessingStartedAt = &started
	ok, err := c.store.UpdateBatch(ctx, batchID, map[string]any{
		"status":   models.JobStatusRunning,
		"stage":    "processing_files",
		"progress": 0,
		"metadata": meta,
	})
	if err != nil {
		return fmt.Errorf("batch %s: mark running: %w", batchID, err)
	}
	if !ok {
		return fmt.Errorf("batch %s: record gone or already terminal", batchID)
	}
	_, _ = c.store.AddBatchLog(ctx, batchID, "batch processing started", "info", map[string]any{
		"total_files": meta.TotalFiles,
	})

	state := &progressState{
		meta:     meta,
		results:  make([]*models.BatchItemResult, len(batch.Files)),
		failures: make([]*models.BatchItemError, len(batch.Files)),
	}

	sem := make(chan struct{}, c.concurrency)
	var wg sync.WaitGroup
	cancelled := false

	for i, file := range batch.Files {
		// Wait for a worker slot first, then honor any cancellation request
		// before starting the next item; items already in flight run to
		// completion.
		sem <- struct{}{}
		stop, err := c.isCancelled(ctx, batchID)
		if err != nil {
			<-sem
			wg.Wait()
			ferr := c.failBatchJob(ctx, batchID, state, started, err.Error())
			if ferr != nil {
				return fmt.Errorf("batch %s: %w (additionally failed to record: %v)", batchID, err, ferr)
			}
			return fmt.Errorf("batch %s: %w", batchID, err)
		}
		if stop {
			<-sem
			cancelled = true
			break
		}

		wg.Add(1)
		go func(i int, file models.BatchFile) {
			defer wg.Done()
			defer func() { <-sem }()
			out := c.processItem(ctx, batch.ToolType, batch.Options, i, file)
			c.recordOutcome(ctx, batchID, batch.ToolType, state, out, file)
		}(i, file)
	}
	wg.Wait()

	if cancelled {
		_, _ = c.store.AddBatchLog(ctx, batchID, "batch cancelled, remaining items skipped", "warn", map[string]any{
			"processed_files": state.meta.ProcessedFiles,
			"total_files":     state.meta.TotalFiles,
		})
		return nil
	}

	return c.completeBatchJob(ctx, batchID, state, started)
}

// processItem attempts one file: upload first when it only has a source, then
// run it through the file processor. Every error becomes a per-item failure.
func (c *Coordinator) processItem(ctx context.Context, tool models.ToolType, opts map[string]any, index int, file models.BatchFile) itemOutcome {
	itemStart := time.Now()
	elapsed := func() float64 { return time.Since(itemStart).Seconds() }

	fileID := file.FileID
	if fileID == "" {
		id, err := c.files.Upload(ctx, file.FileName, file.Source)
		if err != nil {
			return itemOutcome{index: index, failure: &models.BatchItemError{
				FileName:       file.FileName,
				Error:          fmt.Sprintf("upload: %v", err),
				ProcessingTime: elapsed(),
			}}
		}
		fileID = id
	}

	fr, err := c.files.ProcessFile(ctx, fileID, tool, opts)
	if err != nil {
		return itemOutcome{index: index, failure: &models.BatchItemError{
			FileID:         fileID,
			FileName:       file.FileName,
			Error:          err.Error(),
			ProcessingTime: elapsed(),
		}}
	}
	return itemOutcome{index: index, result: &models.BatchItemResult{
		FileID:         fileID,
		FileName:       file.FileName,
		Result:         fr.Result,
		ProcessingTime: elapsed(),
	}}
}

// recordOutcome folds one item outcome into the shared accounting, persists
// the refreshed counters and progress, and emits a metrics sample.
func (c *Coordinator) recordOutcome(ctx context.Context, batchID uuid.UUID, tool models.ToolType, state *progressState, out itemOutcome, file models.BatchFile) {
	state.mu.Lock()
	defer state.mu.Unlock()

	state.meta.ProcessedFiles++
	var duration time.Duration
	if out.result != nil {
		state.results[out.index] = out.result
		state.meta.SuccessfulFiles++
		duration = time.Duration(out.result.ProcessingTime * float64(time.Second))
	} else {
		state.failures[out.index] = out.failure
		state.meta.FailedFiles++
		duration = time.Duration(out.failure.ProcessingTime * float64(time.Second))
	}

	progress := 0
	if state.meta.TotalFiles > 0 {
		progress = state.meta.ProcessedFiles * 100 / state.meta.TotalFiles
	}
	_, _ = c.store.UpdateBatch(ctx, batchID, map[string]any{
		"progress": progress,
		"results":  compactResults(state.results),
		"errors":   compactFailures(state.failures),
		"metadata": state.meta,
	})
	if out.failure != nil {
		_, _ = c.store.AddBatchLog(ctx, batchID, "file processing failed", "error", map[string]any{
			"file_name": file.FileName,
			"error":     out.failure.Error,
		})
	}

	c.sink.Record(ctx, metrics.Sample{
		ToolType: string(tool),
		FileType: file.FileType,
		Duration: duration,
		Success:  out.result != nil,
	})
}

// completeBatchJob marks the batch completed. Completion means every file was
// attempted exactly once, even when all of them failed; callers inspect the
// failed counter.
func (c *Coordinator) completeBatchJob(ctx context.Context, batchID uuid.UUID, state *progressState, started time.Time) error {
	completed := time.Now().UTC()
	state.mu.Lock()
	meta := state.meta
	results := compactResults(state.results)
	failures := compactFailures(state.failures)
	state.mu.Unlock()

	if meta.ProcessingCompletedAt == nil {
		meta.ProcessingCompletedAt = &completed
		meta.TotalProcessingTime = int(completed.Sub(started).Seconds())
	}

	ok, err := c.store.UpdateBatch(ctx, batchID, map[string]any{
		"status":   models.JobStatusCompleted,
		"stage":    "completed",
		"progress": 100,
		"results":  results,
		"errors":   failures,
		"metadata": meta,
	})
	if err != nil {
		return fmt.Errorf("complete batch: %w", err)
	}
	if !ok {
		return fmt.Errorf("complete batch: record gone or already terminal")
	}
	_, _ = c.store.AddBatchLog(ctx, batchID, "batch processing completed", "info", map[string]any{
		"successful_files": meta.SuccessfulFiles,
		"failed_files":     meta.FailedFiles,
		"total_files":      meta.TotalFiles,
	})
	return nil
}

// failBatchJob marks the batch failed after a structural error. Per-item
// failures never land here.
func (c *Coordinator) failBatchJob(ctx context.Context, batchID uuid.UUID, state *progressState, started time.Time, errMsg string) error {
	completed := time.Now().UTC()
	state.mu.Lock()
	meta := state.meta
	results := compactResults(state.results)
	failures := compactFailures(state.failures)
	state.mu.Unlock()

	if meta.ProcessingCompletedAt == nil {
		meta.ProcessingCompletedAt = &completed
		meta.TotalProcessingTime = int(completed.Sub(started).Seconds())
	}

	if _, err := c.store.UpdateBatch(ctx, batchID, map[string]any{
		"status":   models.JobStatusFailed,
		"stage":    "failed",
		"error":    errMsg,
		"results":  results,
		"errors":   failures,
		"metadata": meta,
	}); err != nil {
		return fmt.Errorf("fail batch: %w", err)
	}
	_, _ = c.store.AddBatchLog(ctx, batchID, "batch processing failed", "error", map[string]any{
		"error": errMsg,
	})
	return nil
}

// CancelBatchJob requests cancellation of a running batch. The processing
// loop honors it before dispatching each remaining item.
func (c *Coordinator) CancelBatchJob(ctx context.Context, id uuid.UUID) (*models.BatchJob, error) {
	batch, err := c.store.GetBatch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cancel batch %s: %w", id, err)
	}
	if batch.Status != models.JobStatusRunning {
		return nil, fmt.Errorf("cancel batch %s: only running batches can be cancelled (status %s)", id, batch.Status)
	}

	ok, err := c.store.UpdateBatch(ctx, id, map[string]any{
		"status": models.JobStatusCancelled,
		"stage":  "cancelled",
	})
	if err != nil {
		return nil, fmt.Errorf("cancel batch %s: %w", id, err)
	}
	if !ok {
		return nil, fmt.Errorf("cancel batch %s: record gone or already terminal", id)
	}
	_, _ = c.store.AddBatchLog(ctx, id, "batch cancellation requested", "warn", nil)
	return c.store.GetBatch(ctx, id)
}

// RetryBatchJob resets a failed batch back to pending so it can be processed
// again. Prior results, errors, and counters are cleared; stale partial
// results never leak into the retried run. The reset rewrites the whole
// record because the merge path deliberately refuses to move a record out of
// a terminal status.
func (c *Coordinator) RetryBatchJob(ctx context.Context, id uuid.UUID) (*models.BatchJob, error) {
	batch, err := c.store.GetBatch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("retry batch %s: %w", id, err)
	}
	if batch.Status != models.JobStatusFailed {
		return nil, fmt.Errorf("retry batch %s: only failed batches can be retried (status %s)", id, batch.Status)
	}

	batch.Status = models.JobStatusPending
	batch.Stage = "created"
	batch.Progress = 0
	batch.Results = nil
	batch.Errors = nil
	batch.Error = ""
	batch.Metadata = models.BatchMetadata{TotalFiles: len(batch.Files)}
	if err := c.store.CreateBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("retry batch %s: %w", id, err)
	}
	_, _ = c.store.AddBatchLog(ctx, id, "batch retry requested", "info", map[string]any{
		"total_files": len(batch.Files),
	})
	return batch, nil
}

func (c *Coordinator) isCancelled(ctx context.Context, id uuid.UUID) (bool, error) {
	batch, err := c.store.GetBatch(ctx, id)
	if err != nil {
		return false, err
	}
	return batch.Status == models.JobStatusCancelled, nil
}

func compactResults(items []*models.BatchItemResult) []models.BatchItemResult {
	out := make([]models.BatchItemResult, 0, len(items))
	for _, it := range items {
		if it != nil {
			out = append(out, *it)
		}
	}
	return out
}

func compactFailures(items []*models.BatchItemError) []models.BatchItemError {
	out := make([]models.BatchItemError, 0, len(items))
	for _, it := range items {
		if it != nil {
			out = append(out, *it)
		}
	}
	return out
}
