package analysis

import (
	"math"

	"github.com/ayusman/formcheck/internal/exercise"
)

// WeightKey identifies one adaptive weight.
type WeightKey struct {
	Exercise exercise.Type `json:"exercise"`
	Group    string        `json:"group"`
}

// Weights is the adaptive multiplier table. Groups that keep scoring well lose
// emphasis and groups that keep scoring poorly gain it, within [min, max].
type Weights struct {
	rate     float64
	min, max float64
	strong   float64
	weak     float64
	table    map[WeightKey]float64
}

// NewWeights creates an empty table from cfg. Unseen keys have multiplier 1.
func NewWeights(cfg Config) *Weights {
	cfg = cfg.withDefaults()
	return &Weights{
		rate:   cfg.AdaptationRate,
		min:    cfg.WeightMin,
		max:    cfg.WeightMax,
		strong: cfg.StrongScore,
		weak:   cfg.WeakScore,
		table:  make(map[WeightKey]float64),
	}
}

// Multiplier returns the current multiplier for a group.
func (w *Weights) Multiplier(ex exercise.Type, group string) float64 {
	if v, ok := w.table[WeightKey{ex, group}]; ok {
		return v
	}
	return w.clamp(1)
}

// Update nudges the multiplier of every scored group with sufficient evidence.
func (w *Weights) Update(ex exercise.Type, scores []GroupScore) {
	for _, s := range scores {
		if !s.Sufficient {
			continue
		}
		key := WeightKey{ex, s.Name}
		v := w.Multiplier(ex, s.Name)
		switch {
		case s.Score > w.strong:
			v -= w.rate
		case s.Score < w.weak:
			v += w.rate
		}
		w.table[key] = w.clamp(v)
	}
}

// Snapshot returns a copy of every stored multiplier.
func (w *Weights) Snapshot() map[WeightKey]float64 {
	out := make(map[WeightKey]float64, len(w.table))
	for k, v := range w.table {
		out[k] = v
	}
	return out
}

func (w *Weights) clamp(v float64) float64 {
	return math.Max(w.min, math.Min(w.max, v))
}
