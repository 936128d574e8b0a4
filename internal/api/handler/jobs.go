// Package handler contains the HTTP handlers for the TaskPipe API. Handlers
// depend on small interfaces so tests can swap in fakes without a store or
// any remote services.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	mw "github.com/dkathuria/taskpipe/internal/api/middleware"
	"github.com/dkathuria/taskpipe/internal/api/response"
	"github.com/dkathuria/taskpipe/internal/jobstore"
	"github.com/dkathuria/taskpipe/internal/pipeline"
	"github.com/dkathuria/taskpipe/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// JobService is the pipeline surface the job handlers depend on.
type JobService interface {
	CreateJob(ctx context.Context, p pipeline.CreateJobParams) (*models.Job, error)
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	DeleteJob(ctx context.Context, id uuid.UUID) (bool, error)
	ProcessJob(ctx context.Context, id uuid.UUID) error
}

type jobInputRequest struct {
	ContentType string `json:"content_type"`
	Text        string `json:"text"`
	URL         string `json:"url"`
	FileID      string `json:"file_id"`
	FileName    string `json:"file_name"`
}

type createJobRequest struct {
	ToolType string          `json:"tool_type"`
	Input    jobInputRequest `json:"input"`
	Options  map[string]any  `json:"options"`
}

// NewCreateJobHandler returns an http.HandlerFunc for POST /api/v1/jobs.
// The job is created pending and processed on a background goroutine; the
// response is 202 with the id to poll.
func NewCreateJobHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := mw.GetOwnerID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing owner", nil)
			return
		}

		var req createJobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.ToolType == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "tool_type is required", nil)
			return
		}

		job, err := svc.CreateJob(r.Context(), pipeline.CreateJobParams{
			ToolType: req.ToolType,
			Input: models.JobInput{
				ContentType: req.Input.ContentType,
				Text:        req.Input.Text,
				URL:         req.Input.URL,
				FileID:      req.Input.FileID,
				FileName:    req.Input.FileName,
			},
			Options: req.Options,
			OwnerID: ownerID,
		})
		if err != nil {
			switch {
			case errors.Is(err, pipeline.ErrUnsupportedToolType):
				response.Error(w, http.StatusBadRequest, "UNSUPPORTED_TOOL_TYPE",
					"The requested tool type is not supported", nil)
			case errors.Is(err, pipeline.ErrValidation):
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"An unexpected error occurred", nil)
			}
			return
		}

		// The request context dies with the response; processing gets its own.
		go func() {
			if err := svc.ProcessJob(context.Background(), job.ID); err != nil {
				slog.Error("job processing failed", "job_id", job.ID, "error", err)
			}
		}()

		response.Accepted(w, map[string]any{
			"job_id": job.ID,
			"status": job.Status,
		})
	}
}

// NewGetJobHandler returns an http.HandlerFunc for GET /api/v1/jobs/{jobID}.
func NewGetJobHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, _ := mw.GetOwnerID(r)

		id, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a valid UUID", nil)
			return
		}

		job, err := svc.GetJob(r.Context(), id)
		if err != nil {
			if errors.Is(err, jobstore.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Job not found or expired", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		if job.OwnerID != ownerID {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Job not found or expired", nil)
			return
		}

		response.JSON(w, job)
	}
}

// NewDeleteJobHandler returns an http.HandlerFunc for DELETE /api/v1/jobs/{jobID}.
func NewDeleteJobHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, _ := mw.GetOwnerID(r)

		id, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a valid UUID", nil)
			return
		}

		job, err := svc.GetJob(r.Context(), id)
		if err != nil || job.OwnerID != ownerID {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Job not found or expired", nil)
			return
		}

		deleted, err := svc.DeleteJob(r.Context(), id)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		response.JSON(w, map[string]any{"deleted": deleted})
	}
}
