// Package pipeline drives jobs from pending to a terminal state through an
// ordered, tool-type-specific sequence of named stages. Each stage updates the
// job record (stage name, progress percentage), appends a progress log entry,
// and delegates the actual work to a remote processing collaborator.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dkathuria/taskpipe/internal/jobstore"
	"github.com/dkathuria/taskpipe/internal/metrics"
	"github.com/dkathuria/taskpipe/pkg/models"
	"github.com/google/uuid"
)

// Stage names shared across tool handlers. Stages are free-text labels for
// progress reporting, not a closed enum; each tool type walks its own
// sequence.
const (
	StageInitializing      = "initializing"
	StageAnalyzingContent  = "analyzing_content"
	StageProcessingText    = "processing_text"
	StageProcessingFile    = "processing_file"
	StageProcessingVideo   = "processing_video"
	StageTranscribing      = "transcribing"
	StageScrapingContent   = "scraping_content"
	StageExtractingContent = "extracting_content"
	StageAIProcessing      = "ai_processing"
	StageProcessingImage   = "processing_image"
	StageSolvingProblem    = "solving_problem"
	StageGeneratingCards   = "generating_flashcards"
	StageGeneratingOutline = "generating_outline"
	StageAwaitingRemote    = "awaiting_remote"
	StageFinalizing        = "finalizing"
	StageCompleted         = "completed"
	StageFailed            = "failed"
)

const (
	// DefaultBudget bounds the total wall-clock lifetime of one job run. The
	// run context carries this as a deadline, so a stuck remote call is
	// actually cancelled rather than merely having its late result rejected.
	DefaultBudget = 15 * time.Minute
	// DefaultPollInterval and DefaultMaxPollAttempts bound the nested polling
	// of remote async operations: 5s x 60 attempts = 5 minutes.
	DefaultPollInterval    = 5 * time.Second
	DefaultMaxPollAttempts = 60
)

// Config tunes the executor's time budgets.
type Config struct {
	Budget          time.Duration
	PollInterval    time.Duration
	MaxPollAttempts int
}

// Executor runs jobs. It owns no state beyond its collaborators; all job
// state lives in the job store.
type Executor struct {
	store           *jobstore.Store
	procs           Processors
	sink            metrics.Sink
	archive         Archiver
	budget          time.Duration
	pollInterval    time.Duration
	maxPollAttempts int
}

// NewExecutor creates an Executor. A nil sink disables metrics; a nil
// archiver disables terminal-record archiving. Zero Config fields fall back
// to the package defaults.
func NewExecutor(store *jobstore.Store, procs Processors, sink metrics.Sink, archive Archiver, cfg Config) *Executor {
	if cfg.Budget <= 0 {
		cfg.Budget = DefaultBudget
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxPollAttempts <= 0 {
		cfg.MaxPollAttempts = DefaultMaxPollAttempts
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Executor{
		store:           store,
		procs:           procs,
		sink:            sink,
		archive:         archive,
		budget:          cfg.Budget,
		pollInterval:    cfg.PollInterval,
		maxPollAttempts: cfg.MaxPollAttempts,
	}
}

// CreateJobParams describes a new job.
type CreateJobParams struct {
	ToolType string
	Input    models.JobInput
	Options  map[string]any
	OwnerID  uuid.UUID
}

// CreateJob validates the tool type and input shape and inserts a pending
// job. An unsupported tool type never produces a job record.
func (e *Executor) CreateJob(ctx context.Context, p CreateJobParams) (*models.Job, error) {
	tool, err := models.ParseToolType(p.ToolType)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedToolType, p.ToolType)
	}
	if !validContentType(p.Input.ContentType) {
		return nil, fmt.Errorf("%w: unknown content type %q", ErrValidation, p.Input.ContentType)
	}

	job := &models.Job{
		ID:       uuid.New(),
		ToolType: tool,
		Input:    p.Input,
		Options:  p.Options,
		OwnerID:  p.OwnerID,
		Status:   models.JobStatusPending,
		Stage:    "created",
	}
	if err := e.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	_, _ = e.store.AddJobLog(ctx, job.ID, "job created", "info", map[string]any{
		"tool_type":    string(tool),
		"content_type": p.Input.ContentType,
	})
	return job, nil
}

// GetJob loads a job from the store.
func (e *Executor) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return e.store.GetJob(ctx, id)
}

// DeleteJob removes a job record before its TTL elapses.
func (e *Executor) DeleteJob(ctx context.Context, id uuid.UUID) (bool, error) {
	return e.store.DeleteJob(ctx, id)
}

// ProcessJob drives one pending job to a terminal state. Handler failures are
// recorded on the job via failJob and then returned to the caller, so the
// record reflects the failure even though the caller also sees the error.
// Only infrastructure errors (store unreachable) can leave the job in a
// non-terminal state.
func (e *Executor) ProcessJob(ctx context.Context, jobID uuid.UUID) error {
	job, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("job %s: %w", jobID, err)
	}
	if job.IsTerminal() {
		return fmt.Errorf("job %s is already %s", jobID, job.Status)
	}
	// Checked before the running transition: an unsupported tool must never
	// put a job into a running state.
	if _, err := models.ParseToolType(string(job.ToolType)); err != nil {
		return fmt.Errorf("job %s: %w: %q", jobID, ErrUnsupportedToolType, job.ToolType)
	}

	started := time.Now().UTC()
	meta := job.Metadata
	meta.ProcessingStartedAt = &started
	if _, err := e.store.UpdateJob(ctx, jobID, map[string]any{
		"status":   models.JobStatusRunning,
		"stage":    StageInitializing,
		"progress": 5,
		"metadata": meta,
	}); err != nil {
		return fmt.Errorf("job %s: mark running: %w", jobID, err)
	}
	_, _ = e.store.AddJobLog(ctx, jobID, "processing started", "info", map[string]any{
		"tool_type":    string(job.ToolType),
		"content_type": job.Input.ContentType,
	})

	r := &run{exec: e, job: job, meta: meta, started: started}

	runCtx, cancel := context.WithTimeout(ctx, e.budget)
	defer cancel()

	result, err := r.safeDispatch(runCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && runCtx.Err() != nil {
			err = fmt.Errorf("processing timed out after %s", e.budget)
		}
		if ferr := e.failJob(ctx, r, err.Error()); ferr != nil {
			return fmt.Errorf("job %s: %w (additionally failed to record: %v)", jobID, err, ferr)
		}
		return fmt.Errorf("job %s: %w", jobID, err)
	}
	if cerr := e.completeJob(ctx, r, result); cerr != nil {
		return fmt.Errorf("job %s: %w", jobID, cerr)
	}
	return nil
}

// run carries the working state of one ProcessJob call: the trail of
// traversed stages and the metadata working copy that is re-merged into the
// record on every stage write (the store's merge is shallow, so partial
// metadata writes would clobber sibling counters).
type run struct {
	exec    *Executor
	job     *models.Job
	meta    models.JobMetadata
	stages  []string
	started time.Time
}

// safeDispatch converts handler panics into plain errors so a buggy handler
// still lands the job in a terminal, inspectable state.
func (r *run) safeDispatch(ctx context.Context) (result map[string]any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("panic in job handler", "job_id", r.job.ID, "tool_type", r.job.ToolType, "error", rec)
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return r.dispatch(ctx)
}

func (r *run) dispatch(ctx context.Context) (map[string]any, error) {
	switch r.job.ToolType {
	case models.ToolSummarize:
		return r.summarize(ctx)
	case models.ToolMath:
		return r.solveMath(ctx)
	case models.ToolFlashcards:
		return r.generateFlashcards(ctx)
	case models.ToolPresentations:
		return r.generatePresentation(ctx)
	case models.ToolDocumentChat:
		return r.documentChat(ctx)
	case models.ToolDocumentConversion:
		return r.runOperation(ctx, r.exec.procs.Converter, "converting_document")
	case models.ToolContentExtraction:
		return r.runOperation(ctx, r.exec.procs.Extractor, "extracting_web_content")
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedToolType, r.job.ToolType)
	}
}

// stage advances the job to a named checkpoint: record the stage in the
// traversal trail, persist stage/progress/metadata, and append a log entry.
// Store errors here are intentionally dropped; a missed intermediate write
// must not abort a run that the remote side is already executing.
func (r *run) stage(ctx context.Context, name string, progress int, message string) {
	r.stages = append(r.stages, name)
	r.meta.ProcessingStages = r.stages
	_, _ = r.exec.store.UpdateJob(ctx, r.job.ID, map[string]any{
		"stage":    name,
		"progress": progress,
		"metadata": r.meta,
	})
	_, _ = r.exec.store.AddJobLog(ctx, r.job.ID, message, "info", map[string]any{
		"stage":    name,
		"progress": progress,
	})
}

// completeJob finalizes a successful run: progress 100, result payload,
// completion timestamp (set exactly once), total duration, success log,
// metrics sample, archive record.
func (e *Executor) completeJob(ctx context.Context, r *run, result map[string]any) error {
	completed := time.Now().UTC()
	meta := r.meta
	meta.ProcessingStages = r.stages
	if meta.ProcessingCompletedAt == nil {
		meta.ProcessingCompletedAt = &completed
		if meta.ProcessingStartedAt != nil {
			meta.TotalProcessingTime = int(completed.Sub(*meta.ProcessingStartedAt).Seconds())
		}
	}

	ok, err := e.store.UpdateJob(ctx, r.job.ID, map[string]any{
		"status":   models.JobStatusCompleted,
		"stage":    StageCompleted,
		"progress": 100,
		"result":   result,
		"metadata": meta,
	})
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	if !ok {
		return fmt.Errorf("complete job: record gone or already terminal")
	}
	_, _ = e.store.AddJobLog(ctx, r.job.ID, "processing completed", "info", map[string]any{
		"total_processing_time": meta.TotalProcessingTime,
	})

	e.sink.Record(ctx, metrics.Sample{
		ToolType: string(r.job.ToolType),
		FileType: r.job.Input.ContentType,
		Duration: completed.Sub(r.started),
		Success:  true,
	})
	e.archiveTerminal(ctx, r, models.JobStatusCompleted, result, "", meta, completed)
	return nil
}

// failJob is the failure twin of completeJob. Progress is left where it was;
// it is meaningless on a failed job.
func (e *Executor) failJob(ctx context.Context, r *run, errMsg string) error {
	completed := time.Now().UTC()
	meta := r.meta
	meta.ProcessingStages = r.stages
	if meta.ProcessingCompletedAt == nil {
		meta.ProcessingCompletedAt = &completed
		if meta.ProcessingStartedAt != nil {
			meta.TotalProcessingTime = int(completed.Sub(*meta.ProcessingStartedAt).Seconds())
		}
	}

	if _, err := e.store.UpdateJob(ctx, r.job.ID, map[string]any{
		"status":   models.JobStatusFailed,
		"stage":    StageFailed,
		"error":    errMsg,
		"metadata": meta,
	}); err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	_, _ = e.store.AddJobLog(ctx, r.job.ID, "processing failed", "error", map[string]any{
		"error": errMsg,
	})

	e.sink.Record(ctx, metrics.Sample{
		ToolType: string(r.job.ToolType),
		FileType: r.job.Input.ContentType,
		Duration: completed.Sub(r.started),
		Success:  false,
	})
	e.archiveTerminal(ctx, r, models.JobStatusFailed, nil, errMsg, meta, completed)
	return nil
}

func (e *Executor) archiveTerminal(ctx context.Context, r *run, status string, result map[string]any, errMsg string, meta models.JobMetadata, completed time.Time) {
	if e.archive == nil {
		return
	}
	rec := &models.ArchivedJob{
		ID:          r.job.ID,
		OwnerID:     r.job.OwnerID,
		Kind:        models.ArchiveKindJob,
		ToolType:    r.job.ToolType,
		Status:      status,
		Result:      result,
		Error:       errMsg,
		Metadata:    metadataMap(meta),
		CreatedAt:   r.job.CreatedAt,
		CompletedAt: completed,
		ArchivedAt:  time.Now().UTC(),
	}
	if err := e.archive.ArchiveJob(ctx, rec); err != nil {
		slog.Warn("job archive failed", "job_id", r.job.ID, "error", err)
	}
}

func metadataMap(meta models.JobMetadata) map[string]any {
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

func validContentType(ct string) bool {
	switch ct {
	case models.ContentTypeText, models.ContentTypeLink, models.ContentTypePDF,
		models.ContentTypeImage, models.ContentTypeAudio, models.ContentTypeVideo:
		return true
	}
	return false
}
