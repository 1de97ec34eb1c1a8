package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/formcheck/internal/exercise"
	"github.com/ayusman/formcheck/internal/pose"
)

// symmetryPairs are the left/right joints compared for height.
var symmetryPairs = [][2]int{
	{pose.LeftShoulder, pose.RightShoulder},
	{pose.LeftHip, pose.RightHip},
	{pose.LeftKnee, pose.RightKnee},
	{pose.LeftAnkle, pose.RightAnkle},
}

// stability scores how steady each group stayed over the last StabilityFrames
// frames, weighted like consistency.
func stability(groups []exercise.JointGroup, scores []GroupScore, recent []pose.Frame, cfg Config) float64 {
	if len(recent) < minHistoryFrames {
		return defaultStability
	}
	window := recent
	if len(window) > cfg.StabilityFrames {
		window = window[len(window)-cfg.StabilityFrames:]
	}

	var vals, weights []float64
	for i, g := range groups {
		var disp []float64
		for _, step := range displacements(window, g.Indices, len(window)-1, cfg.JointConfidence) {
			disp = append(disp, step...)
		}
		if len(disp) == 0 {
			continue
		}
		avg := stat.Mean(disp, nil)
		vals = append(vals, clamp01(1-avg/cfg.StabilityThreshold))
		weights = append(weights, scores[i].Weight)
	}
	if len(vals) == 0 {
		return defaultStability
	}
	return clamp01(stat.Mean(vals, weights))
}

// symmetry compares the height of paired left/right joints in f.
func symmetry(f *pose.Frame, cfg Config) float64 {
	var vals []float64
	for _, pair := range symmetryPairs {
		l, r := f.Points[pair[0]], f.Points[pair[1]]
		if !l.Valid(cfg.JointConfidence) || !r.Valid(cfg.JointConfidence) {
			continue
		}
		vals = append(vals, math.Max(0, 1-math.Abs(l.Y-r.Y)/cfg.SymmetryScale))
	}
	if len(vals) == 0 {
		return defaultSymmetry
	}
	return stat.Mean(vals, nil)
}

// synchrony rewards joints of a group moving by similar amounts in the same
// transition.
func synchrony(groups []exercise.JointGroup, recent []pose.Frame, cfg Config) float64 {
	var vals []float64
	for _, g := range groups {
		for _, step := range displacements(recent, g.Indices, cfg.TemporalTransitions, cfg.JointConfidence) {
			if len(step) < 2 {
				continue
			}
			sd := stat.PopStdDev(step, nil)
			vals = append(vals, math.Max(0, 1-sd/cfg.SynchronyScale))
		}
	}
	if len(vals) == 0 {
		return defaultSynchrony
	}
	return stat.Mean(vals, nil)
}

// coordination combines left/right symmetry with in-group movement synchrony.
func coordination(sym, sync float64) float64 {
	return clamp01(0.6*sym + 0.4*sync)
}
