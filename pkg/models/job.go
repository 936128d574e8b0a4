// Package models contains shared data models used across the TaskPipe codebase.
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Job statuses. Transitions only move forward: pending -> running -> terminal.
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
	JobStatusCancelled = "cancelled"
)

// IsTerminalStatus reports whether a status permits no further transitions.
func IsTerminalStatus(status string) bool {
	return status == JobStatusCompleted || status == JobStatusFailed || status == JobStatusCancelled
}

// ToolType selects which stage sequence and remote handler a job runs through.
type ToolType string

const (
	ToolSummarize          ToolType = "summarize"
	ToolMath               ToolType = "math"
	ToolFlashcards         ToolType = "flashcards"
	ToolPresentations      ToolType = "presentations"
	ToolDocumentChat       ToolType = "document_chat"
	ToolDocumentConversion ToolType = "document_conversion"
	ToolContentExtraction  ToolType = "content_extraction"
)

// ParseToolType validates a raw tool type string.
func ParseToolType(s string) (ToolType, error) {
	switch t := ToolType(s); t {
	case ToolSummarize, ToolMath, ToolFlashcards, ToolPresentations,
		ToolDocumentChat, ToolDocumentConversion, ToolContentExtraction:
		return t, nil
	}
	return "", fmt.Errorf("unsupported tool type %q", s)
}

// Content types accepted in JobInput.
const (
	ContentTypeText  = "text"
	ContentTypeLink  = "link"
	ContentTypePDF   = "pdf"
	ContentTypeImage = "image"
	ContentTypeAudio = "audio"
	ContentTypeVideo = "video"
)

// JobInput describes what a job processes. Exactly one of Text, URL, or FileID
// carries the source, selected by ContentType.
type JobInput struct {
	ContentType string `json:"content_type"`
	Text        string `json:"text,omitempty"`
	URL         string `json:"url,omitempty"`
	FileID      string `json:"file_id,omitempty"`
	FileName    string `json:"file_name,omitempty"`
}

// FileBacked reports whether the input references an uploaded file.
func (in JobInput) FileBacked() bool {
	switch in.ContentType {
	case ContentTypePDF, ContentTypeImage, ContentTypeAudio, ContentTypeVideo:
		return true
	}
	return false
}

// LogEntry is one structured, append-only progress log line on a job.
type LogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
}

// JobMetadata carries counters and timings aggregated over a job's run.
// ProcessingStages records which named stages were actually traversed.
type JobMetadata struct {
	ProcessingStartedAt   *time.Time `json:"processing_started_at,omitempty"`
	ProcessingCompletedAt *time.Time `json:"processing_completed_at,omitempty"`
	TotalProcessingTime   int        `json:"total_processing_time,omitempty"`
	FileCount             int        `json:"file_count,omitempty"`
	TokensUsed            int        `json:"tokens_used,omitempty"`
	ConfidenceScore       float64    `json:"confidence_score,omitempty"`
	FlashcardCount        int        `json:"flashcard_count,omitempty"`
	SlideCount            int        `json:"slide_count,omitempty"`
	ProcessingStages      []string   `json:"processing_stages,omitempty"`
}

// Job tracks one unit of asynchronous work. The API returns a job id on
// POST /api/v1/jobs; the client polls GET /api/v1/jobs/{id} until the status
// is terminal. Records live in the cache-backed job store under a TTL.
type Job struct {
	ID        uuid.UUID      `json:"id"`
	ToolType  ToolType       `json:"tool_type"`
	Input     JobInput       `json:"input"`
	Options   map[string]any `json:"options,omitempty"`
	OwnerID   uuid.UUID      `json:"owner_id,omitempty"`
	Status    string         `json:"status"`
	Stage     string         `json:"stage"`
	Progress  int            `json:"progress"`
	Logs      []LogEntry     `json:"logs,omitempty"`
	Result    map[string]any `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	Metadata  JobMetadata    `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// IsTerminal reports whether the job reached a terminal status.
func (j *Job) IsTerminal() bool { return IsTerminalStatus(j.Status) }
