// Package config loads, normalizes, and validates formcheck configuration.
//
// Settings come from a TOML file overlaid on Default. Paths are expanded
// (including ~), formats are canonicalized and every analysis threshold is
// range-checked before any component sees it.
package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/ayusman/formcheck/internal/analysis"
	"github.com/ayusman/formcheck/internal/exercise"
)

//go:embed sample_config.toml
var sampleConfig string

// Server contains the HTTP listener configuration.
type Server struct {
	Bind      string `toml:"bind"`
	StaticDir string `toml:"static_dir"`
}

// Paths contains data and plugin directories.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	PluginDir string `toml:"plugin_dir"`
}

// Camera contains local capture settings.
type Camera struct {
	Enabled  bool `toml:"enabled"`
	DeviceID int  `toml:"device_id"`
	FPS      int  `toml:"fps"`
	Width    int  `toml:"width"`
	Height   int  `toml:"height"`
	// IdleThreshold is the changed-pixel percentage that counts as motion; 0 disables idle detection.
	IdleThreshold float64 `toml:"idle_threshold"`
	IdleAfter     int     `toml:"idle_after_seconds"`
}

// Source contains pose landmarker settings.
type Source struct {
	Script      string `toml:"script"`
	Python      string `toml:"python"`
	IdleTimeout int    `toml:"idle_timeout_seconds"`
}

// Analysis mirrors analysis.Config. Zero values take the engine defaults.
type Analysis struct {
	Exercise string `toml:"exercise"`
	Level    string `toml:"level"`

	HistorySize         int     `toml:"history_size"`
	SmoothingWindow     int     `toml:"smoothing_window"`
	SmoothingConfidence float64 `toml:"smoothing_confidence"`
	JointConfidence     float64 `toml:"joint_confidence"`

	TemporalBlend       float64 `toml:"temporal_blend"`
	TemporalTransitions int     `toml:"temporal_transitions"`
	DisplacementScale   float64 `toml:"displacement_scale"`

	AdaptationRate float64 `toml:"adaptation_rate"`
	WeightMin      float64 `toml:"weight_min"`
	WeightMax      float64 `toml:"weight_max"`
	StrongScore    float64 `toml:"strong_score"`
	WeakScore      float64 `toml:"weak_score"`

	StabilityFrames    int     `toml:"stability_frames"`
	StabilityThreshold float64 `toml:"stability_threshold"`
	SymmetryScale      float64 `toml:"symmetry_scale"`
	SynchronyScale     float64 `toml:"synchrony_scale"`

	BeginnerCorrectionThreshold float64 `toml:"beginner_correction_threshold"`
	CorrectionThreshold         float64 `toml:"correction_threshold"`
	MaxCorrections              int     `toml:"max_corrections"`

	FaultThreshold int `toml:"fault_threshold"`
}

// Feedback contains plugin feedback settings.
type Feedback struct {
	Enabled       bool     `toml:"enabled"`
	Plugins       []string `toml:"plugins"`
	MinIntervalMS int      `toml:"min_interval_ms"`
	TimeoutMS     int      `toml:"timeout_ms"`
	// PluginConfig holds a table per plugin, passed on as JSON.
	PluginConfig map[string]map[string]any `toml:"plugin_config"`
}

// Logging contains log output settings.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config encapsulates all configuration values for formcheck.
type Config struct {
	Server   Server   `toml:"server"`
	Paths    Paths    `toml:"paths"`
	Camera   Camera   `toml:"camera"`
	Source   Source   `toml:"source"`
	Analysis Analysis `toml:"analysis"`
	Feedback Feedback `toml:"feedback"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path of the default configuration file.
func DefaultConfigPath() (string, error) {
	return ExpandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. An empty path
// looks in the default location and then ./formcheck.toml. A missing file is
// not an error: defaults are returned and exists is false.
func Load(path string) (cfg *Config, resolved string, exists bool, err error) {
	c := Default()

	resolved, exists, err = resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&c); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := c.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := c.Validate(); err != nil {
		return nil, "", false, err
	}
	return &c, resolved, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := ExpandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("formcheck.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the data directory.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.DataDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.DataDir, err)
	}
	return nil
}

// DatabasePath returns the session log location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "formcheck.db")
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "formcheck.lock")
}

// AnalysisConfig converts the [analysis] section for the engine.
func (c *Config) AnalysisConfig() analysis.Config {
	a := c.Analysis
	return analysis.Config{
		Exercise:                    exercise.Type(a.Exercise),
		Level:                       analysis.Level(a.Level),
		HistorySize:                 a.HistorySize,
		SmoothingWindow:             a.SmoothingWindow,
		SmoothingConfidence:         a.SmoothingConfidence,
		JointConfidence:             a.JointConfidence,
		TemporalBlend:               a.TemporalBlend,
		TemporalTransitions:         a.TemporalTransitions,
		DisplacementScale:           a.DisplacementScale,
		AdaptationRate:              a.AdaptationRate,
		WeightMin:                   a.WeightMin,
		WeightMax:                   a.WeightMax,
		StrongScore:                 a.StrongScore,
		WeakScore:                   a.WeakScore,
		StabilityFrames:             a.StabilityFrames,
		StabilityThreshold:          a.StabilityThreshold,
		SymmetryScale:               a.SymmetryScale,
		SynchronyScale:              a.SynchronyScale,
		BeginnerCorrectionThreshold: a.BeginnerCorrectionThreshold,
		CorrectionThreshold:         a.CorrectionThreshold,
		MaxCorrections:              a.MaxCorrections,
		FaultThreshold:              a.FaultThreshold,
	}
}

// IdleAfter returns how long the scene must be still before capture idles.
func (c *Config) IdleAfter() time.Duration {
	return time.Duration(c.Camera.IdleAfter) * time.Second
}

// SourceIdleTimeout returns how long the landmarker may sit unused before it is stopped.
func (c *Config) SourceIdleTimeout() time.Duration {
	return time.Duration(c.Source.IdleTimeout) * time.Second
}

// FeedbackMinInterval returns the shortest gap between correction cues.
func (c *Config) FeedbackMinInterval() time.Duration {
	return time.Duration(c.Feedback.MinIntervalMS) * time.Millisecond
}

// PluginTimeout bounds one plugin execution.
func (c *Config) PluginTimeout() time.Duration {
	return time.Duration(c.Feedback.TimeoutMS) * time.Millisecond
}

// PluginConfigJSON returns each plugin table encoded as JSON.
func (c *Config) PluginConfigJSON() (map[string]json.RawMessage, error) {
	if len(c.Feedback.PluginConfig) == 0 {
		return nil, nil
	}
	out := make(map[string]json.RawMessage, len(c.Feedback.PluginConfig))
	for name, table := range c.Feedback.PluginConfig {
		data, err := json.Marshal(table)
		if err != nil {
			return nil, fmt.Errorf("feedback.plugin_config.%s: %w", name, err)
		}
		out[name] = data
	}
	return out, nil
}

// ExpandPath resolves a leading ~ and returns the absolute path.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// SampleConfig returns the annotated sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes the sample configuration file to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
