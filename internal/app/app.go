// Package app runs the live camera session: frames from the camera go through the
// landmark source into the analyzer, results are published for the dashboard and
// tray, feedback goes out through plugins and finished sessions are logged.
package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ayusman/formcheck/internal/analysis"
	"github.com/ayusman/formcheck/internal/capture"
	"github.com/ayusman/formcheck/internal/exercise"
	"github.com/ayusman/formcheck/internal/landmarker"
	"github.com/ayusman/formcheck/internal/plugin"
	"github.com/ayusman/formcheck/internal/pose"
	"github.com/ayusman/formcheck/internal/session"
	"github.com/ayusman/formcheck/internal/store"
)

// IdleFPS is the capture rate while the scene is idle.
const IdleFPS = 5

// Config holds configuration options for the application.
type Config struct {
	Store     *store.Store
	PluginDir string
	Camera    capture.Config
	Source    landmarker.Config
	Analysis  analysis.Config
	Feedback  FeedbackConfig

	// IdleThreshold is the percentage of changed pixels that counts as motion.
	// Zero disables idle detection.
	IdleThreshold float64
	// IdleAfter is how long the scene must be still before it counts as idle.
	IdleAfter time.Duration

	// PluginTimeout bounds one plugin execution.
	PluginTimeout time.Duration

	Logger *slog.Logger
}

// App is the live session orchestrator.
type App struct {
	config    Config
	logger    *slog.Logger
	camera    capture.Camera
	idle      *capture.IdleGate
	source    landmarker.Source
	pluginMgr *plugin.Manager
	feedback  *Feedback

	mu      sync.RWMutex
	enabled bool
	cancel  context.CancelFunc
	done    chan struct{}

	// engineMu guards the analyzer and the running session summary.
	engineMu sync.Mutex
	analyzer *analysis.Analyzer
	tracker  *session.Tracker

	latestMu sync.RWMutex
	latest   *analysis.Result
}

// New creates a new App instance with the given configuration.
func New(config Config) (*App, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.PluginTimeout <= 0 {
		config.PluginTimeout = 5 * time.Second
	}
	if config.IdleAfter <= 0 {
		config.IdleAfter = 10 * time.Second
	}

	if config.Store != nil {
		saved, err := config.Store.Settings().Get(store.SettingExercise)
		switch {
		case err == nil:
			if t, perr := exercise.Parse(saved); perr == nil {
				config.Analysis.Exercise = t
			}
		case !errors.Is(err, store.ErrNotFound):
			logger.Warn("failed to load saved exercise", "error", err)
		}
	}

	analyzer, err := analysis.New(config.Analysis, logger.With("component", "analysis"))
	if err != nil {
		return nil, err
	}

	a := &App{
		config:    config,
		logger:    logger,
		camera:    capture.NewCamera(config.Camera),
		pluginMgr: plugin.NewManager(config.PluginDir, logger),
		analyzer:  analyzer,
		tracker:   session.NewTracker(analyzer.Exercise(), session.OriginCamera, nil),
	}
	a.feedback = NewFeedback(config.Feedback, a.pluginMgr, plugin.NewExecutor(config.PluginTimeout), logger)

	if config.IdleThreshold > 0 {
		a.idle = capture.NewIdleGate(config.IdleThreshold, config.IdleAfter)
	}

	// Try MediaPipe first, fall back to the mock source
	if mp, err := landmarker.NewMediaPipeSource(config.Source, logger); err == nil {
		a.source = mp
		logger.Info("using MediaPipe pose landmarker")
	} else {
		logger.Warn("MediaPipe not available, using mock landmark source", "error", err)
		a.source = landmarker.NewMockSource()
	}

	return a, nil
}

// SetEnabled enables or disables analysis of camera frames.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether analysis is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetSource sets the landmark source implementation to use.
func (a *App) SetSource(s landmarker.Source) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.source = s
}

// SetCamera replaces the camera. It must be called before Start.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// DiscoverPlugins scans the plugin directory and loads available plugins.
func (a *App) DiscoverPlugins() error {
	return a.pluginMgr.Discover()
}

// Start opens the camera and begins the analysis pipeline.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = make(chan struct{})

	go a.feedback.Run(ctx)
	go func() {
		defer close(a.done)
		a.runPipeline(ctx)
	}()

	a.logger.Info("analysis pipeline started", "fps", a.camera.FPS(), "exercise", a.Exercise())
	return nil
}

// Stop halts the pipeline, logs the running session and releases resources.
func (a *App) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	a.engineMu.Lock()
	a.rotateSession()
	a.engineMu.Unlock()

	if err := a.camera.Close(); err != nil {
		a.logger.Error("error closing camera", "error", err)
	}
	if a.idle != nil {
		a.idle.Close()
	}
	if a.source != nil {
		if err := a.source.Close(); err != nil {
			a.logger.Error("error closing landmark source", "error", err)
		}
	}

	a.logger.Info("analysis pipeline stopped")
}

// Process analyzes one set of landmarks as part of the live session. Nil or
// incomplete landmarks count as a failed frame.
func (a *App) Process(points []pose.Landmark, timestamp int64) analysis.Result {
	a.engineMu.Lock()
	res := a.analyzer.AnalyzePoints(points, timestamp)
	a.tracker.Add(res)
	// latest is published under engineMu; Reset and SetExercise clear it under the same lock.
	stored := res.Clone()
	a.latestMu.Lock()
	a.latest = &stored
	a.latestMu.Unlock()
	a.engineMu.Unlock()

	a.feedback.Observe(res)
	return res
}

// Latest returns a copy of the most recent result.
func (a *App) Latest() (analysis.Result, bool) {
	a.latestMu.RLock()
	defer a.latestMu.RUnlock()
	if a.latest == nil {
		return analysis.Result{}, false
	}
	return a.latest.Clone(), true
}

// SetExercise switches the live exercise. The running session is logged and a
// new one starts. Selecting the current exercise is a no-op.
func (a *App) SetExercise(t exercise.Type) error {
	a.engineMu.Lock()
	defer a.engineMu.Unlock()

	if t == a.analyzer.Exercise() {
		return nil
	}
	if err := a.analyzer.SetExercise(t); err != nil {
		return err
	}
	a.rotateSession()
	a.clearLatest()

	if a.config.Store != nil {
		if err := a.config.Store.Settings().Set(store.SettingExercise, string(t)); err != nil {
			a.logger.Warn("failed to save exercise", "error", err)
		}
	}
	return nil
}

// Reset ends the running session and starts a fresh one for the same exercise.
func (a *App) Reset() {
	a.engineMu.Lock()
	defer a.engineMu.Unlock()

	a.analyzer.Reset()
	a.rotateSession()
	a.clearLatest()
}

// Stats returns the analyzer's diagnostic snapshot.
func (a *App) Stats() analysis.Stats {
	a.engineMu.Lock()
	defer a.engineMu.Unlock()
	return a.analyzer.Stats()
}

// Exercise returns the live exercise.
func (a *App) Exercise() exercise.Type {
	a.engineMu.Lock()
	defer a.engineMu.Unlock()
	return a.analyzer.Exercise()
}

// Summary returns the running session's summary without ending it.
func (a *App) Summary() *session.Record {
	a.engineMu.Lock()
	defer a.engineMu.Unlock()
	return a.tracker.Finish()
}

// rotateSession logs the running session and starts a new one. engineMu must be held.
func (a *App) rotateSession() {
	rec := a.tracker.Finish()
	a.tracker = session.NewTracker(a.analyzer.Exercise(), session.OriginCamera, nil)

	if rec.Frames == 0 {
		return
	}
	a.feedback.Summary(rec)
	if a.config.Store == nil {
		return
	}
	if err := a.config.Store.Sessions().Create(rec); err != nil {
		a.logger.Error("failed to save session", "id", rec.ID, "error", err)
		return
	}
	a.logger.Info("session saved", "id", rec.ID, "exercise", rec.Exercise, "reps", rec.Reps, "frames", rec.Frames)
}

func (a *App) clearLatest() {
	a.latestMu.Lock()
	a.latest = nil
	a.latestMu.Unlock()
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.camera
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// Source returns the landmark source.
func (a *App) Source() landmarker.Source {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.source
}
