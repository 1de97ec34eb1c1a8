package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/formcheck/internal/exercise"
	"github.com/ayusman/formcheck/internal/pose"
)

// Scores reported when there is not enough data to measure.
const (
	neutralGroupScore = 0.5
	defaultTemporal   = 0.7
	defaultStability  = 0.6
	defaultSymmetry   = 0.6
	defaultSynchrony  = 0.6
	minHistoryFrames  = 3
)

// scoreGroups scores every group of def against the newest frame of recent.
// recent is ordered oldest to newest and already includes the current frame.
func scoreGroups(def *exercise.Definition, recent []pose.Frame, w *Weights, cfg Config) []GroupScore {
	out := make([]GroupScore, len(def.Groups))
	for i, g := range def.Groups {
		s := scoreGroup(g, recent, cfg)
		s.Weight = g.Weight * w.Multiplier(def.Type, g.Name)
		out[i] = s
	}
	return out
}

// scoreGroup blends temporal and spatial consistency with cfg.TemporalBlend.
func scoreGroup(g exercise.JointGroup, recent []pose.Frame, cfg Config) GroupScore {
	current := &recent[len(recent)-1]

	valid := make([]int, 0, len(g.Indices))
	for _, idx := range g.Indices {
		if current.Points[idx].Valid(cfg.JointConfidence) {
			valid = append(valid, idx)
		}
	}
	if len(valid) < 2 {
		return GroupScore{
			Name:     g.Name,
			Score:    neutralGroupScore,
			Spatial:  neutralGroupScore,
			Temporal: neutralGroupScore,
		}
	}

	spatial := spatialConsistency(current, valid, g.Optimal)
	temporal := temporalConsistency(recent, g.Indices, cfg)
	return GroupScore{
		Name:       g.Name,
		Score:      clamp01(cfg.TemporalBlend*temporal + (1-cfg.TemporalBlend)*spatial),
		Spatial:    spatial,
		Temporal:   temporal,
		Sufficient: true,
	}
}

// spatialConsistency averages the range score of every joint pair in idx.
func spatialConsistency(f *pose.Frame, idx []int, r exercise.Range) float64 {
	scores := make([]float64, 0, len(idx)*(len(idx)-1)/2)
	for i := 0; i < len(idx); i++ {
		for j := i + 1; j < len(idx); j++ {
			d := pose.Distance(f.Points[idx[i]], f.Points[idx[j]])
			scores = append(scores, rangeScore(d, r))
		}
	}
	return stat.Mean(scores, nil)
}

// rangeScore is 1 inside r and decays linearly to 0 outside it.
func rangeScore(d float64, r exercise.Range) float64 {
	switch {
	case d < r.Min:
		return d / r.Min
	case d > r.Max:
		return math.Max(0, 1-(d-r.Max)/r.Max)
	}
	return 1
}

// temporalConsistency rewards small frame-to-frame displacement over the most
// recent transitions.
func temporalConsistency(recent []pose.Frame, idx []int, cfg Config) float64 {
	if len(recent) < minHistoryFrames {
		return defaultTemporal
	}
	var scores []float64
	for _, step := range displacements(recent, idx, cfg.TemporalTransitions, cfg.JointConfidence) {
		for _, d := range step {
			scores = append(scores, math.Max(0, 1-d/cfg.DisplacementScale))
		}
	}
	if len(scores) == 0 {
		return defaultTemporal
	}
	return stat.Mean(scores, nil)
}

// displacements returns, for each of the last n transitions in frames, the
// displacement of every joint in idx that was confident at both ends.
func displacements(frames []pose.Frame, idx []int, n int, minConf float64) [][]float64 {
	start := len(frames) - n
	if start < 1 {
		start = 1
	}
	var out [][]float64
	for i := start; i < len(frames); i++ {
		prev, cur := &frames[i-1], &frames[i]
		step := make([]float64, 0, len(idx))
		for _, j := range idx {
			a, b := prev.Points[j], cur.Points[j]
			if !a.Valid(minConf) || !b.Valid(minConf) {
				continue
			}
			step = append(step, pose.Distance(a, b))
		}
		out = append(out, step)
	}
	return out
}

// overallConsistency is the weight-normalized mean of the group scores.
func overallConsistency(scores []GroupScore) float64 {
	if len(scores) == 0 {
		return neutralGroupScore
	}
	vals := make([]float64, len(scores))
	weights := make([]float64, len(scores))
	for i, s := range scores {
		vals[i] = s.Score
		weights[i] = s.Weight
	}
	return clamp01(stat.Mean(vals, weights))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
