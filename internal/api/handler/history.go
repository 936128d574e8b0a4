package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	mw "github.com/dkathuria/taskpipe/internal/api/middleware"
	"github.com/dkathuria/taskpipe/internal/api/response"
	"github.com/dkathuria/taskpipe/internal/store"
	"github.com/dkathuria/taskpipe/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// NewListHistoryHandler returns an http.HandlerFunc for GET /api/v1/history:
// the archive of terminal jobs and batches that outlives the cache TTL.
func NewListHistoryHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := mw.GetOwnerID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing owner", nil)
			return
		}

		q := r.URL.Query()
		filter := store.ArchiveFilter{
			OwnerID:  ownerID,
			Kind:     q.Get("kind"),
			ToolType: q.Get("tool_type"),
			Status:   q.Get("status"),
			Page:     queryInt(q.Get("page"), 1),
			Limit:    queryInt(q.Get("limit"), 20),
		}
		if since := q.Get("since"); since != "" {
			ts, err := time.Parse(time.RFC3339, since)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"since must be a valid RFC3339 timestamp", nil)
				return
			}
			filter.Since = ts
		}

		recs, total, err := s.ListArchivedJobs(r.Context(), filter)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		if recs == nil {
			recs = []*models.ArchivedJob{}
		}

		response.Collection(w, recs, response.PaginationMeta{
			Page:    filter.Page,
			Limit:   filter.Limit,
			Total:   total,
			HasNext: filter.Page*filter.Limit < total,
		})
	}
}

// NewGetHistoryHandler returns an http.HandlerFunc for GET /api/v1/history/{jobID}.
func NewGetHistoryHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, _ := mw.GetOwnerID(r)

		id, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a valid UUID", nil)
			return
		}

		rec, err := s.GetArchivedJob(r.Context(), id, ownerID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Archived job not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		response.JSON(w, rec)
	}
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
