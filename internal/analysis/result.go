package analysis

import "github.com/ayusman/formcheck/internal/exercise"

// Grade is the discrete form rating for one frame.
type Grade string

const (
	GradeS Grade = "S"
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
)

// GroupScore is the consistency of one joint group in one frame.
type GroupScore struct {
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	Spatial  float64 `json:"spatial"`
	Temporal float64 `json:"temporal"`
	Weight   float64 `json:"weight"` // base weight times adaptive multiplier
	// Sufficient is false when fewer than two joints were confident enough to score;
	// Score is then a neutral 0.5.
	Sufficient bool `json:"sufficient"`
}

// Result is the analysis of one frame.
type Result struct {
	Timestamp    int64          `json:"timestamp"`
	Exercise     exercise.Type  `json:"exercise"`
	Consistency  float64        `json:"consistency"`
	Groups       []GroupScore   `json:"groups"`
	Stability    float64        `json:"stability"`
	Coordination float64        `json:"coordination"`
	Symmetry     float64        `json:"symmetry"`
	Synchrony    float64        `json:"synchrony"`
	Confidence   float64        `json:"confidence"`
	// Tracking is the share of landmarks the smoother had a confident sample for.
	Tracking     float64        `json:"tracking"`
	FormScore    float64        `json:"form_score"`
	Grade        Grade          `json:"grade"`
	Corrections  []string       `json:"corrections"`
	Reps         uint32         `json:"reps"`
	Phase        exercise.Phase `json:"phase"`
	RepCompleted bool           `json:"rep_completed"`
	// Degraded is set when the result comes from the fallback path rather than a
	// full analysis of this frame.
	Degraded bool `json:"degraded"`
}

// Clone returns a deep copy safe to hand to another goroutine.
func (r Result) Clone() Result {
	out := r
	out.Groups = append([]GroupScore(nil), r.Groups...)
	out.Corrections = append([]string(nil), r.Corrections...)
	return out
}

// Stats is a diagnostic snapshot of analyzer state.
type Stats struct {
	Exercise          exercise.Type  `json:"exercise"`
	FallbackActive    bool           `json:"fallback_active"`
	ConsecutiveErrors uint32         `json:"consecutive_errors"`
	HistoryDepth      int            `json:"history_depth"`
	HistoryCapacity   int            `json:"history_capacity"`
	SmoothingDepth    int            `json:"smoothing_depth"`
	Reps              uint32         `json:"reps"`
	Phase             exercise.Phase `json:"phase"`
	FramesAnalyzed    uint64         `json:"frames_analyzed"`
	FramesFailed      uint64         `json:"frames_failed"`
}

// FallbackCorrection is the only cue given while in fallback mode.
const FallbackCorrection = "Step back so your whole body is visible to the camera"

// fallbackScore is the fixed mid-range score reported in fallback mode.
const fallbackScore = 0.65

// fallbackResult is the constant-cost result used when analysis keeps failing.
func fallbackResult(ex exercise.Type, ts int64, reps exercise.State) Result {
	return Result{
		Timestamp:    ts,
		Exercise:     ex,
		Consistency:  fallbackScore,
		Stability:    fallbackScore,
		Coordination: fallbackScore,
		Symmetry:     fallbackScore,
		Synchrony:    fallbackScore,
		Confidence:   0.5,
		FormScore:    fallbackScore,
		Grade:        GradeC,
		Corrections:  []string{FallbackCorrection},
		Reps:         reps.Count,
		Phase:        reps.Phase,
		Degraded:     true,
	}
}
