package config

import (
	"github.com/ayusman/formcheck/internal/analysis"
	"github.com/ayusman/formcheck/internal/exercise"
)

const (
	defaultConfigPath         = "~/.config/formcheck/config.toml"
	defaultBind               = "127.0.0.1:8090"
	defaultDataDir            = "~/.formcheck"
	defaultPluginDir          = "~/.formcheck/plugins"
	defaultCameraFPS          = 15
	defaultCameraWidth        = 640
	defaultCameraHeight       = 480
	defaultIdleAfterSeconds   = 10
	defaultSourceIdleSeconds  = 30
	defaultFeedbackIntervalMS = 3000
	defaultPluginTimeoutMS    = 5000
	defaultLogFormat          = "text"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	a := analysis.DefaultConfig()
	return Config{
		Server: Server{
			Bind: defaultBind,
		},
		Paths: Paths{
			DataDir:   defaultDataDir,
			PluginDir: defaultPluginDir,
		},
		Camera: Camera{
			Enabled:   true,
			FPS:       defaultCameraFPS,
			Width:     defaultCameraWidth,
			Height:    defaultCameraHeight,
			IdleAfter: defaultIdleAfterSeconds,
		},
		Source: Source{
			IdleTimeout: defaultSourceIdleSeconds,
		},
		Analysis: Analysis{
			Exercise:                    string(exercise.Squat),
			Level:                       string(analysis.Intermediate),
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
		},
		Feedback: Feedback{
			Enabled:       true,
			Plugins:       []string{"speak"},
			MinIntervalMS: defaultFeedbackIntervalMS,
			TimeoutMS:     defaultPluginTimeoutMS,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
