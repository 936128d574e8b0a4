package models

import (
	"time"

	"github.com/google/uuid"
)

// ArchivedJob is the durable record written to Postgres when a job or batch
// reaches a terminal state. Cache records expire after their TTL; the archive
// is what remains for history and audit queries.
type ArchivedJob struct {
	ID          uuid.UUID      `db:"id"           json:"id"`
	OwnerID     uuid.UUID      `db:"owner_id"     json:"owner_id"`
	Kind        string         `db:"kind"         json:"kind"` // "job" or "batch"
	ToolType    ToolType       `db:"tool_type"    json:"tool_type"`
	Status      string         `db:"status"       json:"status"`
	Result      map[string]any `db:"result"       json:"result,omitempty"`
	Error       string         `db:"error"        json:"error,omitempty"`
	Metadata    map[string]any `db:"metadata"     json:"metadata,omitempty"`
	CreatedAt   time.Time      `db:"created_at"   json:"created_at"`
	CompletedAt time.Time      `db:"completed_at" json:"completed_at"`
	ArchivedAt  time.Time      `db:"archived_at"  json:"archived_at"`
}

// Archive kinds.
const (
	ArchiveKindJob   = "job"
	ArchiveKindBatch = "batch"
)
