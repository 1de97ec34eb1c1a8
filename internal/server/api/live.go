package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/formcheck/internal/analysis"
	"github.com/ayusman/formcheck/internal/exercise"
)

// LiveController is the camera session the live endpoints act on.
type LiveController interface {
	Exercise() exercise.Type
	SetExercise(t exercise.Type) error
	Reset()
	Stats() analysis.Stats
}

// LiveHandler handles the live session controls under /api/live/.
type LiveHandler struct {
	live LiveController
}

// NewLiveHandler creates a new LiveHandler for the given session.
func NewLiveHandler(l LiveController) *LiveHandler {
	return &LiveHandler{live: l}
}

type exerciseRequest struct {
	Exercise string `json:"exercise"`
}

type currentExerciseResponse struct {
	Exercise string `json:"exercise"`
}

// ServeHTTP routes /api/live/exercise, /api/live/reset and /api/live/stats.
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch strings.TrimPrefix(r.URL.Path, "/api/live/") {
	case "exercise":
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, currentExerciseResponse{Exercise: string(h.live.Exercise())})
		case http.MethodPost:
			h.setExercise(w, r)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
	case "reset":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		h.live.Reset()
		writeJSON(w, http.StatusOK, h.live.Stats())
	case "stats":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		writeJSON(w, http.StatusOK, h.live.Stats())
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// setExercise handles POST /api/live/exercise.
func (h *LiveHandler) setExercise(w http.ResponseWriter, r *http.Request) {
	var req exerciseRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Exercise == "" {
		writeError(w, http.StatusBadRequest, "Exercise is required")
		return
	}

	t, err := exercise.Parse(req.Exercise)
	if err == nil {
		err = h.live.SetExercise(t)
	}
	if err != nil {
		if errors.Is(err, exercise.ErrUnknownExercise) {
			writeError(w, http.StatusBadRequest, "Unknown exercise")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to set exercise")
		return
	}

	writeJSON(w, http.StatusOK, currentExerciseResponse{Exercise: string(t)})
}
