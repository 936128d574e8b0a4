package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dkathuria/taskpipe/internal/batch"
	"github.com/dkathuria/taskpipe/internal/jobstore"
	"github.com/dkathuria/taskpipe/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fake BatchService ---

type fakeBatchService struct {
	mu        sync.Mutex
	createFn  func(ctx context.Context, p batch.CreateBatchParams) (*models.BatchJob, error)
	getFn     func(ctx context.Context, id uuid.UUID) (*models.BatchJob, error)
	cancelFn  func(ctx context.Context, id uuid.UUID) (*models.BatchJob, error)
	retryFn   func(ctx context.Context, id uuid.UUID) (*models.BatchJob, error)
	processed []uuid.UUID
}

func (f *fakeBatchService) CreateBatchJob(ctx context.Context, p batch.CreateBatchParams) (*models.BatchJob, error) {
	return f.createFn(ctx, p)
}

func (f *fakeBatchService) GetBatchJob(ctx context.Context, id uuid.UUID) (*models.BatchJob, error) {
	return f.getFn(ctx, id)
}

func (f *fakeBatchService) ProcessBatchJob(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed = append(f.processed, id)
	return nil
}

func (f *fakeBatchService) CancelBatchJob(ctx context.Context, id uuid.UUID) (*models.BatchJob, error) {
	return f.cancelFn(ctx, id)
}

func (f *fakeBatchService) RetryBatchJob(ctx context.Context, id uuid.UUID) (*models.BatchJob, error) {
	return f.retryFn(ctx, id)
}

func (f *fakeBatchService) processedIDs() []uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uuid.UUID(nil), f.processed...)
}

// --- tests ---

func TestCreateBatchHandler_Accepted(t *testing.T) {
	batchID := uuid.New()
	ownerID := uuid.New()
	var captured batch.CreateBatchParams

	svc := &fakeBatchService{
		createFn: func(_ context.Context, p batch.CreateBatchParams) (*models.BatchJob, error) {
			captured = p
			return &models.BatchJob{
				ID:       batchID,
				OwnerID:  p.OwnerID,
				Status:   models.JobStatusPending,
				Metadata: models.BatchMetadata{TotalFiles: len(p.Files)},
			}, nil
		},
	}
	h := NewCreateBatchHandler(svc)
	rec := httptest.NewRecorder()

	body := map[string]any{
		"tool_type": "flashcards",
		"files": []map[string]any{
			{"file_id": "f1", "file_name": "a.pdf", "file_type": "pdf"},
			{"source": "https://example.com/b.pdf", "file_name": "b.pdf", "file_type": "pdf"},
		},
	}
	h.ServeHTTP(rec, ownedRequest(http.MethodPost, "/api/v1/batches", body, ownerID))

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	data := decodeData(t, rec)
	assert.Equal(t, batchID.String(), data["batch_id"])
	assert.Equal(t, models.JobStatusPending, data["status"])
	assert.Equal(t, float64(2), data["total_files"])
	assert.Equal(t, ownerID, captured.OwnerID)
	assert.Equal(t, "https://example.com/b.pdf", captured.Files[1].Source)

	assert.Eventually(t, func() bool {
		ids := svc.processedIDs()
		return len(ids) == 1 && ids[0] == batchID
	}, time.Second, 5*time.Millisecond)
}

func TestCreateBatchHandler_ValidationError(t *testing.T) {
	svc := &fakeBatchService{
		createFn: func(_ context.Context, _ batch.CreateBatchParams) (*models.BatchJob, error) {
			return nil, errors.New("batch requires at least one file")
		},
	}
	h := NewCreateBatchHandler(svc)
	rec := httptest.NewRecorder()

	body := map[string]any{"tool_type": "flashcards", "files": []map[string]any{}}
	h.ServeHTTP(rec, ownedRequest(http.MethodPost, "/api/v1/batches", body, uuid.New()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_REQUEST", decodeErrorCode(t, rec))
	assert.Empty(t, svc.processedIDs())
}

func TestCreateBatchHandler_MissingOwner(t *testing.T) {
	h := NewCreateBatchHandler(&fakeBatchService{})
	rec := httptest.NewRecorder()

	r := httptest.NewRequest(http.MethodPost, "/api/v1/batches", nil)
	h.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetBatchHandler_Found(t *testing.T) {
	batchID := uuid.New()
	ownerID := uuid.New()
	svc := &fakeBatchService{
		getFn: func(_ context.Context, id uuid.UUID) (*models.BatchJob, error) {
			return &models.BatchJob{ID: id, OwnerID: ownerID, Status: models.JobStatusRunning, Progress: 33}, nil
		},
	}
	h := NewGetBatchHandler(svc)
	rec := httptest.NewRecorder()

	r := ownedRequest(http.MethodGet, "/api/v1/batches/"+batchID.String(), nil, ownerID)
	h.ServeHTTP(rec, withURLParam(r, "batchID", batchID.String()))

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	assert.Equal(t, models.JobStatusRunning, data["status"])
	assert.Equal(t, float64(33), data["progress"])
}

func TestGetBatchHandler_NotFound(t *testing.T) {
	svc := &fakeBatchService{
		getFn: func(_ context.Context, _ uuid.UUID) (*models.BatchJob, error) {
			return nil, jobstore.ErrNotFound
		},
	}
	h := NewGetBatchHandler(svc)
	rec := httptest.NewRecorder()

	id := uuid.New()
	r := ownedRequest(http.MethodGet, "/api/v1/batches/"+id.String(), nil, uuid.New())
	h.ServeHTTP(rec, withURLParam(r, "batchID", id.String()))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeErrorCode(t, rec))
}

func TestGetBatchHandler_OtherOwnerLooksLikeNotFound(t *testing.T) {
	batchID := uuid.New()
	svc := &fakeBatchService{
		getFn: func(_ context.Context, id uuid.UUID) (*models.BatchJob, error) {
			return &models.BatchJob{ID: id, OwnerID: uuid.New()}, nil
		},
	}
	h := NewGetBatchHandler(svc)
	rec := httptest.NewRecorder()

	r := ownedRequest(http.MethodGet, "/api/v1/batches/"+batchID.String(), nil, uuid.New())
	h.ServeHTTP(rec, withURLParam(r, "batchID", batchID.String()))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelBatchHandler_Cancelled(t *testing.T) {
	batchID := uuid.New()
	ownerID := uuid.New()
	svc := &fakeBatchService{
		getFn: func(_ context.Context, id uuid.UUID) (*models.BatchJob, error) {
			return &models.BatchJob{ID: id, OwnerID: ownerID, Status: models.JobStatusRunning}, nil
		},
		cancelFn: func(_ context.Context, id uuid.UUID) (*models.BatchJob, error) {
			return &models.BatchJob{ID: id, OwnerID: ownerID, Status: models.JobStatusCancelled}, nil
		},
	}
	h := NewCancelBatchHandler(svc)
	rec := httptest.NewRecorder()

	r := ownedRequest(http.MethodPost, "/api/v1/batches/"+batchID.String()+"/cancel", nil, ownerID)
	h.ServeHTTP(rec, withURLParam(r, "batchID", batchID.String()))

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	assert.Equal(t, models.JobStatusCancelled, data["status"])
}

func TestCancelBatchHandler_NotRunning(t *testing.T) {
	batchID := uuid.New()
	ownerID := uuid.New()
	svc := &fakeBatchService{
		getFn: func(_ context.Context, id uuid.UUID) (*models.BatchJob, error) {
			return &models.BatchJob{ID: id, OwnerID: ownerID, Status: models.JobStatusCompleted}, nil
		},
		cancelFn: func(_ context.Context, _ uuid.UUID) (*models.BatchJob, error) {
			return nil, errors.New("only running batches can be cancelled")
		},
	}
	h := NewCancelBatchHandler(svc)
	rec := httptest.NewRecorder()

	r := ownedRequest(http.MethodPost, "/api/v1/batches/"+batchID.String()+"/cancel", nil, ownerID)
	h.ServeHTTP(rec, withURLParam(r, "batchID", batchID.String()))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INVALID_STATE", decodeErrorCode(t, rec))
}

func TestRetryBatchHandler_Accepted(t *testing.T) {
	batchID := uuid.New()
	ownerID := uuid.New()
	svc := &fakeBatchService{
		getFn: func(_ context.Context, id uuid.UUID) (*models.BatchJob, error) {
			return &models.BatchJob{ID: id, OwnerID: ownerID, Status: models.JobStatusFailed}, nil
		},
		retryFn: func(_ context.Context, id uuid.UUID) (*models.BatchJob, error) {
			return &models.BatchJob{ID: id, OwnerID: ownerID, Status: models.JobStatusPending}, nil
		},
	}
	h := NewRetryBatchHandler(svc)
	rec := httptest.NewRecorder()

	r := ownedRequest(http.MethodPost, "/api/v1/batches/"+batchID.String()+"/retry", nil, ownerID)
	h.ServeHTTP(rec, withURLParam(r, "batchID", batchID.String()))

	require.Equal(t, http.StatusAccepted, rec.Code)
	data := decodeData(t, rec)
	assert.Equal(t, models.JobStatusPending, data["status"])

	assert.Eventually(t, func() bool {
		ids := svc.processedIDs()
		return len(ids) == 1 && ids[0] == batchID
	}, time.Second, 5*time.Millisecond)
}

func TestRetryBatchHandler_NotFailed(t *testing.T) {
	batchID := uuid.New()
	ownerID := uuid.New()
	svc := &fakeBatchService{
		getFn: func(_ context.Context, id uuid.UUID) (*models.BatchJob, error) {
			return &models.BatchJob{ID: id, OwnerID: ownerID, Status: models.JobStatusCompleted}, nil
		},
		retryFn: func(_ context.Context, _ uuid.UUID) (*models.BatchJob, error) {
			return nil, errors.New("only failed batches can be retried")
		},
	}
	h := NewRetryBatchHandler(svc)
	rec := httptest.NewRecorder()

	r := ownedRequest(http.MethodPost, "/api/v1/batches/"+batchID.String()+"/retry", nil, ownerID)
	h.ServeHTTP(rec, withURLParam(r, "batchID", batchID.String()))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INVALID_STATE", decodeErrorCode(t, rec))
	assert.Empty(t, svc.processedIDs())
}

func TestCancelBatchHandler_InvalidUUID(t *testing.T) {
	h := NewCancelBatchHandler(&fakeBatchService{})
	rec := httptest.NewRecorder()

	r := ownedRequest(http.MethodPost, "/api/v1/batches/nope/cancel", nil, uuid.New())
	h.ServeHTTP(rec, withURLParam(r, "batchID", "nope"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
