// Package store is the durable Postgres layer: API keys for authentication
// and the archive of terminal job records. Live job state never lives here;
// it stays in the TTL cache until it expires.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/dkathuria/taskpipe/pkg/models"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context, ownerID uuid.UUID) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) error

	ArchiveJob(ctx context.Context, rec *models.ArchivedJob) error
	GetArchivedJob(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) (*models.ArchivedJob, error)
	ListArchivedJobs(ctx context.Context, filter ArchiveFilter) ([]*models.ArchivedJob, int, error)
}

// ArchiveFilter narrows and paginates archive listings. OwnerID is required;
// everything else is optional.
type ArchiveFilter struct {
	OwnerID  uuid.UUID
	Kind     string
	ToolType string
	Status   string
	Since    time.Time
	Page     int
	Limit    int
}
