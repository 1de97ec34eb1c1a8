// Package analysis implements the per-frame motion-quality engine: temporal smoothing,
// joint-group consistency, adaptive weighting, stability and coordination scoring,
// grading, repetition counting and fault fallback.
package analysis

import "github.com/ayusman/formcheck/internal/exercise"

// Level is the user's training experience, used to pick the correction threshold.
type Level string

const (
	Beginner     Level = "beginner"
	Intermediate Level = "intermediate"
	Advanced     Level = "advanced"
)

// Config holds every tunable of the analyzer. The numeric defaults are empirical and
// exposed so they can be overridden from the config file.
type Config struct {
	// Exercise is the exercise selected when the analyzer is created.
	Exercise exercise.Type
	// Level selects the correction threshold.
	Level Level

	// HistorySize is the number of smoothed frames kept for temporal scoring.
	HistorySize int
	// SmoothingWindow is the number of raw frames averaged by the smoother.
	SmoothingWindow int
	// SmoothingConfidence is the minimum confidence for a raw landmark to be averaged.
	SmoothingConfidence float64
	// JointConfidence is the minimum confidence for a joint to be scored.
	JointConfidence float64

	// TemporalBlend is the weight given to temporal consistency over spatial.
	TemporalBlend float64
	// TemporalTransitions is the number of recent frame transitions inspected.
	TemporalTransitions int
	// DisplacementScale is the per-transition displacement that scores 0.
	DisplacementScale float64

	// AdaptationRate is the step applied to a group weight per frame.
	AdaptationRate float64
	// WeightMin and WeightMax bound adaptive multipliers.
	WeightMin float64
	WeightMax float64
	// StrongScore and WeakScore are the group score bounds that move weights.
	StrongScore float64
	WeakScore   float64

	// StabilityFrames is the number of History frames used for stability.
	StabilityFrames int
	// StabilityThreshold is the average displacement that scores 0 stability.
	StabilityThreshold float64
	// SymmetryScale is the left/right height gap that scores 0 symmetry.
	SymmetryScale float64
	// SynchronyScale is the displacement spread that scores 0 synchrony.
	SynchronyScale float64

	// BeginnerCorrectionThreshold and CorrectionThreshold select groups needing a cue.
	BeginnerCorrectionThreshold float64
	CorrectionThreshold         float64
	// MaxCorrections caps the cues returned per frame.
	MaxCorrections int

	// FaultThreshold is the number of consecutive faults that activates fallback.
	FaultThreshold int
}

// DefaultConfig returns a Config with the reference thresholds.
func DefaultConfig() Config {
	return Config{
		Exercise:                    exercise.Squat,
		Level:                       Intermediate,
		HistorySize:                 10,
		SmoothingWindow:             5,
		SmoothingConfidence:         0.7,
		JointConfidence:             0.3,
		TemporalBlend:               0.6,
		TemporalTransitions:         5,
		DisplacementScale:           0.1,
		AdaptationRate:              0.1,
		WeightMin:                   0.1,
		WeightMax:                   2.0,
		StrongScore:                 0.8,
		WeakScore:                   0.6,
		StabilityFrames:             7,
		StabilityThreshold:          0.06,
		SymmetryScale:               0.12,
		SynchronyScale:              0.05,
		BeginnerCorrectionThreshold: 0.7,
		CorrectionThreshold:         0.6,
		MaxCorrections:              3,
		FaultThreshold:              3,
	}
}

// withDefaults completes c. A Config with no tunable set takes every default.
// Otherwise only fields for which zero is meaningless are defaulted; a zero
// confidence, blend, score bound or correction threshold is kept as given.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Exercise == "" {
		c.Exercise = d.Exercise
	}
	if c.Level == "" {
		c.Level = d.Level
	}
	if c.tunablesUnset() {
		d.Exercise, d.Level = c.Exercise, c.Level
		return d
	}

	setInt := func(v *int, def int) {
		if *v <= 0 {
			*v = def
		}
	}
	setFloat := func(v *float64, def float64) {
		if *v <= 0 {
			*v = def
		}
	}
	setInt(&c.HistorySize, d.HistorySize)
	setInt(&c.SmoothingWindow, d.SmoothingWindow)
	setInt(&c.TemporalTransitions, d.TemporalTransitions)
	setInt(&c.StabilityFrames, d.StabilityFrames)
	setInt(&c.MaxCorrections, d.MaxCorrections)
	setInt(&c.FaultThreshold, d.FaultThreshold)
	setFloat(&c.DisplacementScale, d.DisplacementScale)
	setFloat(&c.AdaptationRate, d.AdaptationRate)
	setFloat(&c.WeightMin, d.WeightMin)
	setFloat(&c.WeightMax, d.WeightMax)
	setFloat(&c.StabilityThreshold, d.StabilityThreshold)
	setFloat(&c.SymmetryScale, d.SymmetryScale)
	setFloat(&c.SynchronyScale, d.SynchronyScale)

	for _, v := range []*float64{
		&c.SmoothingConfidence, &c.JointConfidence, &c.TemporalBlend,
		&c.StrongScore, &c.WeakScore,
		&c.BeginnerCorrectionThreshold, &c.CorrectionThreshold,
	} {
		*v = clamp01(*v)
	}
	if c.WeightMin > c.WeightMax {
		c.WeightMin, c.WeightMax = d.WeightMin, d.WeightMax
	}
	return c
}

func (c Config) tunablesUnset() bool {
	c.Exercise, c.Level = "", ""
	return c == Config{}
}

// correctionThreshold returns the score below which a group earns a cue.
func (c Config) correctionThreshold() float64 {
	if c.Level == Beginner {
		return c.BeginnerCorrectionThreshold
	}
	return c.CorrectionThreshold
}
