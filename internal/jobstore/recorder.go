package jobstore

import (
	"context"
	"log/slog"

	"github.com/dkathuria/taskpipe/pkg/models"
	"github.com/google/uuid"
)

// AddJobLog appends a structured entry to a job's progress log and persists it.
// The entry is mirrored to the process log sink. Returns false when the job no
// longer exists; an expired record is not an error, just a missed log line.
func (s *Store) AddJobLog(ctx context.Context, id uuid.UUID, message, level string, data map[string]any) (bool, error) {
	job, err := s.GetJob(ctx, id)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	logs := s.appendLog(job.Logs, message, level, data)
	ok, err := s.UpdateJob(ctx, id, map[string]any{"logs": logs})
	if err != nil {
		return false, err
	}
	s.mirror(level, message, "job_id", id, data)
	return ok, nil
}

// AddBatchLog is AddJobLog for batch records.
func (s *Store) AddBatchLog(ctx context.Context, id uuid.UUID, message, level string, data map[string]any) (bool, error) {
	batch, err := s.GetBatch(ctx, id)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	logs := s.appendLog(batch.Logs, message, level, data)
	ok, err := s.UpdateBatch(ctx, id, map[string]any{"logs": logs})
	if err != nil {
		return false, err
	}
	s.mirror(level, message, "batch_id", id, data)
	return ok, nil
}

// appendLog appends an entry and drops the oldest entries beyond the cap.
// The source system let logs grow without bound; the cap is a deliberate
// hardening deviation.
func (s *Store) appendLog(logs []models.LogEntry, message, level string, data map[string]any) []models.LogEntry {
	if level == "" {
		level = "info"
	}
	logs = append(logs, models.LogEntry{
		Timestamp: s.now().UTC(),
		Level:     level,
		Message:   message,
		Data:      data,
	})
	if len(logs) > s.maxLogEntries {
		logs = logs[len(logs)-s.maxLogEntries:]
	}
	return logs
}

func (s *Store) mirror(level, message, idKey string, id uuid.UUID, data map[string]any) {
	attrs := []any{idKey, id}
	if len(data) > 0 {
		attrs = append(attrs, "data", data)
	}
	switch level {
	case "error":
		slog.Error(message, attrs...)
	case "warning", "warn":
		slog.Warn(message, attrs...)
	default:
		slog.Info(message, attrs...)
	}
}
