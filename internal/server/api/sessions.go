package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ayusman/formcheck/internal/exercise"
	"github.com/ayusman/formcheck/internal/session"
	"github.com/ayusman/formcheck/internal/store"
)

// defaultListLimit caps GET /api/sessions when no limit is given.
const defaultListLimit = 50

// SessionHandler handles HTTP requests for the session log.
type SessionHandler struct {
	store *store.Store
}

// NewSessionHandler creates a new SessionHandler with the given store.
func NewSessionHandler(s *store.Store) *SessionHandler {
	return &SessionHandler{store: s}
}

// ServeHTTP routes /api/sessions and /api/sessions/{id}.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		h.list(w, r)
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodDelete)
	}
}

type sessionResponse struct {
	ID             string                    `json:"id"`
	Exercise       string                    `json:"exercise"`
	Origin         string                    `json:"origin"`
	StartedAt      string                    `json:"started_at"`
	EndedAt        string                    `json:"ended_at"`
	DurationMS     int64                     `json:"duration_ms"`
	Frames         int                       `json:"frames"`
	DegradedFrames int                       `json:"degraded_frames"`
	Reps           uint32                    `json:"reps"`
	AvgFormScore   float64                   `json:"avg_form_score"`
	BestGrade      string                    `json:"best_grade,omitempty"`
	Corrections    []session.CorrectionCount `json:"corrections,omitempty"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse     `json:"sessions"`
	Totals   []store.ExerciseTotal `json:"totals"`
}

func toResponse(rec *session.Record) sessionResponse {
	return sessionResponse{
		ID:             rec.ID,
		Exercise:       string(rec.Exercise),
		Origin:         string(rec.Origin),
		StartedAt:      rec.StartedAt.Format(time.RFC3339),
		EndedAt:        rec.EndedAt.Format(time.RFC3339),
		DurationMS:     rec.Duration().Milliseconds(),
		Frames:         rec.Frames,
		DegradedFrames: rec.DegradedFrames,
		Reps:           rec.Reps,
		AvgFormScore:   rec.AvgFormScore,
		BestGrade:      string(rec.BestGrade),
		Corrections:    rec.Corrections,
	}
}

// list handles GET /api/sessions?exercise=&limit= and returns the newest
// sessions together with per-exercise totals.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	opts := store.ListOptions{Limit: defaultListLimit}

	if v := r.URL.Query().Get("exercise"); v != "" {
		t, err := exercise.Parse(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Unknown exercise")
			return
		}
		opts.Exercise = t
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		opts.Limit = n
	}

	recs, err := h.store.Sessions().List(opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}
	totals, err := h.store.Sessions().Totals()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load totals")
		return
	}

	response := listSessionsResponse{
		Sessions: make([]sessionResponse, 0, len(recs)),
		Totals:   totals,
	}
	if response.Totals == nil {
		response.Totals = []store.ExerciseTotal{}
	}
	for _, rec := range recs {
		response.Sessions = append(response.Sessions, toResponse(rec))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/sessions/{id}.
func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(rec))
}

// delete handles DELETE /api/sessions/{id}.
func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Sessions().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
