package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dkathuria/taskpipe/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, owner_id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.OwnerID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, owner_id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		key.ID, key.OwnerID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAPIKeys(ctx context.Context, ownerID uuid.UUID) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, owner_id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE owner_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.OwnerID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL`, id, ownerID)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Job Archive ---

// ArchiveJob upserts a terminal job record. Re-archiving the same id (a retry
// that failed again, say) replaces the previous row.
func (s *PostgresStore) ArchiveJob(ctx context.Context, rec *models.ArchivedJob) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO archived_jobs (id, owner_id, kind, tool_type, status, result, error, metadata, created_at, completed_at, archived_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO UPDATE SET
		   status = EXCLUDED.status,
		   result = EXCLUDED.result,
		   error = EXCLUDED.error,
		   metadata = EXCLUDED.metadata,
		   completed_at = EXCLUDED.completed_at,
		   archived_at = EXCLUDED.archived_at`,
		rec.ID, rec.OwnerID, rec.Kind, rec.ToolType, rec.Status, rec.Result, rec.Error,
		rec.Metadata, rec.CreatedAt, rec.CompletedAt, rec.ArchivedAt)
	if err != nil {
		return fmt.Errorf("archive job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetArchivedJob(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) (*models.ArchivedJob, error) {
	var rec models.ArchivedJob
	err := s.pool.QueryRow(ctx,
		`SELECT id, owner_id, kind, tool_type, status, result, error, metadata, created_at, completed_at, archived_at
		 FROM archived_jobs WHERE id = $1 AND owner_id = $2`, id, ownerID,
	).Scan(&rec.ID, &rec.OwnerID, &rec.Kind, &rec.ToolType, &rec.Status, &rec.Result, &rec.Error,
		&rec.Metadata, &rec.CreatedAt, &rec.CompletedAt, &rec.ArchivedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get archived job: %w", err)
	}
	return &rec, nil
}

func (s *PostgresStore) ListArchivedJobs(ctx context.Context, filter ArchiveFilter) ([]*models.ArchivedJob, int, error) {
	conditions := []string{"owner_id = $1"}
	args := []any{filter.OwnerID}
	argIdx := 2

	if filter.Kind != "" {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", argIdx))
		args = append(args, filter.Kind)
		argIdx++
	}
	if filter.ToolType != "" {
		conditions = append(conditions, fmt.Sprintf("tool_type = $%d", argIdx))
		args = append(args, filter.ToolType)
		argIdx++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, fmt.Sprintf("completed_at >= $%d", argIdx))
		args = append(args, filter.Since)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM archived_jobs WHERE " + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count archived jobs: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	query := fmt.Sprintf(
		`SELECT id, owner_id, kind, tool_type, status, result, error, metadata, created_at, completed_at, archived_at
		 FROM archived_jobs WHERE %s ORDER BY completed_at DESC LIMIT $%d OFFSET $%d`,
		where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list archived jobs: %w", err)
	}
	defer rows.Close()

	var recs []*models.ArchivedJob
	for rows.Next() {
		var rec models.ArchivedJob
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.Kind, &rec.ToolType, &rec.Status, &rec.Result,
			&rec.Error, &rec.Metadata, &rec.CreatedAt, &rec.CompletedAt, &rec.ArchivedAt); err != nil {
			return nil, 0, fmt.Errorf("scan archived job: %w", err)
		}
		recs = append(recs, &rec)
	}
	return recs, total, rows.Err()
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
