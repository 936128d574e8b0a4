package models

import (
	"time"

	"github.com/google/uuid"
)

// BatchFile is one item descriptor inside a batch. Either FileID references an
// already-uploaded file, or Source carries the raw location to upload first.
type BatchFile struct {
	FileID   string `json:"file_id,omitempty"`
	FileName string `json:"file_name"`
	FileType string `json:"file_type,omitempty"`
	Source   string `json:"source,omitempty"`
}

// BatchItemResult is a per-file success payload, in input order.
type BatchItemResult struct {
	FileID         string         `json:"file_id"`
	FileName       string         `json:"file_name"`
	Result         map[string]any `json:"result"`
	ProcessingTime float64        `json:"processing_time"`
}

// BatchItemError is a per-file failure payload, in input order.
type BatchItemError struct {
	FileID         string  `json:"file_id,omitempty"`
	FileName       string  `json:"file_name"`
	Error          string  `json:"error"`
	ProcessingTime float64 `json:"processing_time"`
}

// BatchMetadata carries the batch accounting counters. At all times
// ProcessedFiles == SuccessfulFiles + FailedFiles and ProcessedFiles <= TotalFiles.
type BatchMetadata struct {
	TotalFiles            int        `json:"total_files"`
	ProcessedFiles        int        `json:"processed_files"`
	SuccessfulFiles       int        `json:"successful_files"`
	FailedFiles           int        `json:"failed_files"`
	ProcessingStartedAt   *time.Time `json:"processing_started_at,omitempty"`
	ProcessingCompletedAt *time.Time `json:"processing_completed_at,omitempty"`
	TotalProcessingTime   int        `json:"total_processing_time,omitempty"`
}

// BatchJob fans a tool out over N independent file-processing attempts.
// A batch completes once every file has been attempted exactly once, even when
// some (or all) items failed; callers must inspect Metadata.FailedFiles.
type BatchJob struct {
	ID        uuid.UUID         `json:"id"`
	ToolType  ToolType          `json:"tool_type"`
	Files     []BatchFile       `json:"files"`
	Options   map[string]any    `json:"options,omitempty"`
	OwnerID   uuid.UUID         `json:"owner_id,omitempty"`
	Status    string            `json:"status"`
	Stage     string            `json:"stage"`
	Progress  int               `json:"progress"`
	Logs      []LogEntry        `json:"logs,omitempty"`
	Results   []BatchItemResult `json:"results,omitempty"`
	Errors    []BatchItemError  `json:"errors,omitempty"`
	Error     string            `json:"error,omitempty"`
	Metadata  BatchMetadata     `json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// IsTerminal reports whether the batch reached a terminal status.
func (b *BatchJob) IsTerminal() bool { return IsTerminalStatus(b.Status) }
