package api

import (
	"net/http"

	"github.com/ayusman/formcheck/internal/exercise"
)

type exerciseResponse struct {
	Type   string                `json:"type"`
	Name   string                `json:"name"`
	Groups []exercise.JointGroup `json:"groups"`
	Rep    exercise.RepSpec      `json:"rep"`
}

type listExercisesResponse struct {
	Exercises []exerciseResponse `json:"exercises"`
}

// ExerciseHandler serves the exercise catalog.
type ExerciseHandler struct{}

// NewExerciseHandler creates a new ExerciseHandler.
func NewExerciseHandler() *ExerciseHandler {
	return &ExerciseHandler{}
}

// ServeHTTP handles GET /api/exercises.
func (h *ExerciseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	response := listExercisesResponse{Exercises: []exerciseResponse{}}
	for _, t := range exercise.All() {
		def, err := exercise.Lookup(t)
		if err != nil {
			continue
		}
		response.Exercises = append(response.Exercises, exerciseResponse{
			Type:   string(def.Type),
			Name:   def.Name,
			Groups: def.Groups,
			Rep:    def.Rep,
		})
	}

	writeJSON(w, http.StatusOK, response)
}
