package config

import (
	"errors"
	"fmt"

	"github.com/ayusman/formcheck/internal/analysis"
	"github.com/ayusman/formcheck/internal/exercise"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCamera(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateFeedback(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateCamera() error {
	if c.Camera.DeviceID < 0 {
		return errors.New("camera.device_id must be non-negative")
	}
	if c.Camera.FPS < 1 || c.Camera.FPS > 60 {
		return errors.New("camera.fps must be between 1 and 60")
	}
	if c.Camera.Width < 0 || c.Camera.Height < 0 {
		return errors.New("camera.width and camera.height must be non-negative")
	}
	if c.Camera.IdleThreshold < 0 || c.Camera.IdleThreshold > 100 {
		return errors.New("camera.idle_threshold must be between 0 and 100")
	}
	if c.Camera.IdleAfter < 0 {
		return errors.New("camera.idle_after_seconds must be non-negative")
	}
	if c.Source.IdleTimeout < 0 {
		return errors.New("source.idle_timeout_seconds must be non-negative")
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	a := c.Analysis
	if _, err := exercise.Parse(a.Exercise); err != nil {
		return fmt.Errorf("analysis.exercise: %w", err)
	}
	switch analysis.Level(a.Level) {
	case analysis.Beginner, analysis.Intermediate, analysis.Advanced:
	default:
		return fmt.Errorf("analysis.level: unsupported value %q", a.Level)
	}

	counts := []struct {
		name  string
		value int
	}{
		{"history_size", a.HistorySize},
		{"smoothing_window", a.SmoothingWindow},
		{"temporal_transitions", a.TemporalTransitions},
		{"stability_frames", a.StabilityFrames},
		{"max_corrections", a.MaxCorrections},
		{"fault_threshold", a.FaultThreshold},
	}
	for _, f := range counts {
		if f.value < 0 {
			return fmt.Errorf("analysis.%s must be non-negative", f.name)
		}
	}
	if a.StabilityFrames > a.HistorySize && a.HistorySize > 0 {
		return errors.New("analysis.stability_frames must not exceed analysis.history_size")
	}

	unit := []struct {
		name  string
		value float64
	}{
		{"smoothing_confidence", a.SmoothingConfidence},
		{"joint_confidence", a.JointConfidence},
		{"temporal_blend", a.TemporalBlend},
		{"strong_score", a.StrongScore},
		{"weak_score", a.WeakScore},
		{"beginner_correction_threshold", a.BeginnerCorrectionThreshold},
		{"correction_threshold", a.CorrectionThreshold},
	}
	for _, f := range unit {
		if f.value < 0 || f.value > 1 {
			return fmt.Errorf("analysis.%s must be between 0 and 1", f.name)
		}
	}

	positive := []struct {
		name  string
		value float64
	}{
		{"displacement_scale", a.DisplacementScale},
		{"adaptation_rate", a.AdaptationRate},
		{"weight_min", a.WeightMin},
		{"weight_max", a.WeightMax},
		{"stability_threshold", a.StabilityThreshold},
		{"symmetry_scale", a.SymmetryScale},
		{"synchrony_scale", a.SynchronyScale},
	}
	for _, f := range positive {
		if f.value < 0 {
			return fmt.Errorf("analysis.%s must be non-negative", f.name)
		}
	}
	if a.WeightMin > 0 && a.WeightMax > 0 && a.WeightMin > a.WeightMax {
		return errors.New("analysis.weight_min must not exceed analysis.weight_max")
	}
	if a.WeakScore > 0 && a.StrongScore > 0 && a.WeakScore > a.StrongScore {
		return errors.New("analysis.weak_score must not exceed analysis.strong_score")
	}
	return nil
}

func (c *Config) validateFeedback() error {
	if c.Feedback.MinIntervalMS < 0 {
		return errors.New("feedback.min_interval_ms must be non-negative")
	}
	if c.Feedback.TimeoutMS < 0 {
		return errors.New("feedback.timeout_ms must be non-negative")
	}
	if c.Feedback.Enabled && len(c.Feedback.Plugins) == 0 {
		return errors.New("feedback.plugins must name at least one plugin when feedback.enabled is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
