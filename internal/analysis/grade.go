package analysis

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/formcheck/internal/exercise"
)

// formScore is the composite used for grading.
func formScore(consistency, stability, coordination float64) float64 {
	return clamp01(0.5*consistency + 0.3*stability + 0.2*coordination)
}

// gradeFor maps a composite score to a letter grade.
func gradeFor(score float64) Grade {
	switch {
	case score >= 0.90:
		return GradeS
	case score >= 0.80:
		return GradeA
	case score >= 0.70:
		return GradeB
	case score >= 0.60:
		return GradeC
	}
	return GradeD
}

// blendConfidence mixes the current frame's confidence with the rolling mean of
// prior frames. The rolling share grows with the number of prior samples.
func blendConfidence(instant float64, prior []float64) float64 {
	m := len(prior)
	if m == 0 {
		return clamp01(instant)
	}
	all := append(append(make([]float64, 0, m+1), prior...), instant)
	rolling := stat.Mean(all, nil)
	w := float64(m) / float64(m+1)
	return clamp01((1-w)*instant + w*rolling)
}

// corrections returns cues for the weakest groups below threshold, weakest first,
// without duplicates and at most limit long. Groups without enough evidence are
// never corrected.
func corrections(def *exercise.Definition, scores []GroupScore, threshold float64, limit int) []string {
	weak := make([]GroupScore, 0, len(scores))
	for _, s := range scores {
		if s.Sufficient && s.Score < threshold {
			weak = append(weak, s)
		}
	}
	sort.SliceStable(weak, func(i, j int) bool { return weak[i].Score < weak[j].Score })

	out := make([]string, 0, limit)
	seen := make(map[string]bool, len(weak))
	for _, s := range weak {
		if len(out) == limit {
			break
		}
		c := def.Correction(s.Name)
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
