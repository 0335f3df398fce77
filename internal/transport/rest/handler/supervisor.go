package handler

import (
	"context"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"formgate/internal/cache"
	"formgate/internal/model"
)

// Supervisor is the read-only response browsing surface
type Supervisor interface {
	List(ctx context.Context, filter model.ResponseFilter) (*model.ResponsePage, error)
	Get(ctx context.Context, id string) (*model.ResponseDetail, error)
	OpenFile(ctx context.Context, fileID string) (io.ReadCloser, string, error)
	Stats(ctx context.Context, limit int) ([]cache.FormStats, error)
}

// SupervisorHandler handles supervisor endpoints
type SupervisorHandler struct {
	supervisorSvc Supervisor
}

// NewSupervisorHandler creates a new supervisor handler
func NewSupervisorHandler(supervisorSvc Supervisor) *SupervisorHandler {
	return &SupervisorHandler{supervisorSvc: supervisorSvc}
}

const dateLayout = "2006-01-02"

// parseDate accepts a calendar date or an RFC 3339 timestamp. A bare end
// date covers the whole day.
func parseDate(s string, endOfDay bool) (*time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// parseFilter reads ?formId&submitted&startDate&endDate&page
func parseFilter(r *http.Request) (model.ResponseFilter, string) {
	q := r.URL.Query()
	filter := model.ResponseFilter{FormID: q.Get("formId"), Page: 1}

	if v := q.Get("submitted"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return filter, "submitted must be a boolean"
		}
		filter.Submitted = &b
	}
	if v := q.Get("startDate"); v != "" {
		t, err := parseDate(v, false)
		if err != nil {
			return filter, "startDate must be YYYY-MM-DD or RFC 3339"
		}
		filter.StartDate = t
	}
	if v := q.Get("endDate"); v != "" {
		t, err := parseDate(v, true)
		if err != nil {
			return filter, "endDate must be YYYY-MM-DD or RFC 3339"
		}
		filter.EndDate = t
	}
	if v := q.Get("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p < 1 {
			return filter, "page must be a positive integer"
		}
		filter.Page = p
	}
	return filter, ""
}

// List handles GET /v1/supervisor/responses
func (h *SupervisorHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, problem := parseFilter(r)
	if problem != "" {
		writeError(w, http.StatusBadRequest, problem)
		return
	}

	page, err := h.supervisorSvc.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Get handles GET /v1/supervisor/responses/{id}
func (h *SupervisorHandler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.supervisorSvc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// File handles GET /v1/supervisor/files/{fileId}
func (h *SupervisorHandler) File(w http.ResponseWriter, r *http.Request) {
	rc, contentType, err := h.supervisorSvc.OpenFile(r.Context(), mux.Vars(r)["fileId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		log.Printf("File download interrupted: %v", err)
	}
}

// Stats handles GET /v1/supervisor/stats
func (h *SupervisorHandler) Stats(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	stats, err := h.supervisorSvc.Stats(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
