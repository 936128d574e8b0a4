package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	mw "github.com/dkathuria/taskpipe/internal/api/middleware"
	"github.com/dkathuria/taskpipe/internal/api/response"
	"github.com/dkathuria/taskpipe/internal/batch"
	"github.com/dkathuria/taskpipe/internal/jobstore"
	"github.com/dkathuria/taskpipe/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// BatchService is the coordinator surface the batch handlers depend on.
type BatchService interface {
	CreateBatchJob(ctx context.Context, p batch.CreateBatchParams) (*models.BatchJob, error)
	GetBatchJob(ctx context.Context, id uuid.UUID) (*models.BatchJob, error)
	ProcessBatchJob(ctx context.Context, id uuid.UUID) error
	CancelBatchJob(ctx context.Context, id uuid.UUID) (*models.BatchJob, error)
	RetryBatchJob(ctx context.Context, id uuid.UUID) (*models.BatchJob, error)
}

type batchFileRequest struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
	Source   string `json:"source"`
}

type createBatchRequest struct {
	ToolType string             `json:"tool_type"`
	Files    []batchFileRequest `json:"files"`
	Options  map[string]any     `json:"options"`
}

// NewCreateBatchHandler returns an http.HandlerFunc for POST /api/v1/batches.
func NewCreateBatchHandler(svc BatchService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := mw.GetOwnerID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing owner", nil)
			return
		}

		var req createBatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		files := make([]models.BatchFile, len(req.Files))
		for i, f := range req.Files {
			files[i] = models.BatchFile{
				FileID:   f.FileID,
				FileName: f.FileName,
				FileType: f.FileType,
				Source:   f.Source,
			}
		}

		b, err := svc.CreateBatchJob(r.Context(), batch.CreateBatchParams{
			ToolType: req.ToolType,
			Files:    files,
			Options:  req.Options,
			OwnerID:  ownerID,
		})
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return
		}

		go func() {
			if err := svc.ProcessBatchJob(context.Background(), b.ID); err != nil {
				slog.Error("batch processing failed", "batch_id", b.ID, "error", err)
			}
		}()

		response.Accepted(w, map[string]any{
			"batch_id":    b.ID,
			"status":      b.Status,
			"total_files": b.Metadata.TotalFiles,
		})
	}
}

// NewGetBatchHandler returns an http.HandlerFunc for GET /api/v1/batches/{batchID}.
func NewGetBatchHandler(svc BatchService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, ok := loadOwnedBatch(w, r, svc)
		if !ok {
			return
		}
		response.JSON(w, b)
	}
}

// NewCancelBatchHandler returns an http.HandlerFunc for POST /api/v1/batches/{batchID}/cancel.
func NewCancelBatchHandler(svc BatchService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, ok := loadOwnedBatch(w, r, svc)
		if !ok {
			return
		}

		cancelled, err := svc.CancelBatchJob(r.Context(), b.ID)
		if err != nil {
			if strings.Contains(err.Error(), "only running batches") {
				response.Error(w, http.StatusConflict, "INVALID_STATE",
					"Only running batches can be cancelled", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		response.JSON(w, cancelled)
	}
}

// NewRetryBatchHandler returns an http.HandlerFunc for POST /api/v1/batches/{batchID}/retry.
// A successful retry re-dispatches processing in the background.
func NewRetryBatchHandler(svc BatchService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, ok := loadOwnedBatch(w, r, svc)
		if !ok {
			return
		}

		retried, err := svc.RetryBatchJob(r.Context(), b.ID)
		if err != nil {
			if strings.Contains(err.Error(), "only failed batches") {
				response.Error(w, http.StatusConflict, "INVALID_STATE",
					"Only failed batches can be retried", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		go func() {
			if err := svc.ProcessBatchJob(context.Background(), retried.ID); err != nil {
				slog.Error("batch retry processing failed", "batch_id", retried.ID, "error", err)
			}
		}()

		response.Accepted(w, map[string]any{
			"batch_id": retried.ID,
			"status":   retried.Status,
		})
	}
}

// loadOwnedBatch parses the batch id, loads the record, and enforces owner
// scoping. It writes the error response itself and reports ok=false.
func loadOwnedBatch(w http.ResponseWriter, r *http.Request, svc BatchService) (*models.BatchJob, bool) {
	ownerID, _ := mw.GetOwnerID(r)

	id, err := uuid.Parse(chi.URLParam(r, "batchID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "batchID must be a valid UUID", nil)
		return nil, false
	}

	b, err := svc.GetBatchJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, jobstore.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Batch not found or expired", nil)
			return nil, false
		}
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
		return nil, false
	}
	if b.OwnerID != ownerID {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Batch not found or expired", nil)
		return nil, false
	}
	return b, true
}
