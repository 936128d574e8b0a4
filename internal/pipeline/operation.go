package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dkathuria/taskpipe/pkg/models"
)

// runOperation handles the two tools that wrap a remote async job (document
// conversion and content extraction): start the operation, then poll its
// status on a fixed interval until it completes, fails, or the attempt budget
// runs out. The poll budget is separate from, and nested inside, the overall
// processing budget carried by ctx.
func (r *run) runOperation(ctx context.Context, op AsyncOperator, stageName string) (map[string]any, error) {
	in := r.job.Input
	if in.FileID == "" && in.URL == "" {
		return nil, fmt.Errorf("%w: a file_id or url is required", ErrValidation)
	}

	r.stage(ctx, stageName, 20, "dispatching remote operation")
	opID, err := op.StartOperation(ctx, in, r.job.Options)
	if err != nil {
		return nil, fmt.Errorf("start remote operation: %w", err)
	}
	_, _ = r.exec.store.AddJobLog(ctx, r.job.ID, "remote operation started", "info", map[string]any{
		"operation_id": opID,
	})

	r.stage(ctx, StageAwaitingRemote, 30, "waiting for remote operation")
	for attempt := 1; attempt <= r.exec.maxPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.exec.pollInterval):
		}

		status, err := op.CheckStatus(ctx, opID)
		if err != nil {
			return nil, fmt.Errorf("poll remote operation %s: %w", opID, err)
		}

		switch status.Status {
		case models.OperationCompleted:
			result, err := op.GetResult(ctx, opID)
			if err != nil {
				return nil, fmt.Errorf("fetch remote result %s: %w", opID, err)
			}
			r.stage(ctx, StageFinalizing, 90, "finalizing remote result")
			out := map[string]any{}
			if result.Content != "" {
				out["content"] = result.Content
			}
			if len(result.FilePaths) > 0 {
				out["file_paths"] = result.FilePaths
			}
			if len(result.Metadata) > 0 {
				out["metadata"] = result.Metadata
			}
			return out, nil
		case models.OperationFailed:
			return nil, fmt.Errorf("remote operation %s failed: %s", opID, status.Error)
		}

		// Still pending or processing; ratchet progress toward the finalize
		// mark without recording a new stage per poll.
		progress := 30 + attempt
		if progress > 85 {
			progress = 85
		}
		_, _ = r.exec.store.UpdateJob(ctx, r.job.ID, map[string]any{"progress": progress})
	}

	return nil, fmt.Errorf("%w after %d attempts", ErrPollTimeout, r.exec.maxPollAttempts)
}
