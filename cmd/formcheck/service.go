package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/ayusman/formcheck/internal/app"
	"github.com/ayusman/formcheck/internal/capture"
	"github.com/ayusman/formcheck/internal/config"
	"github.com/ayusman/formcheck/internal/landmarker"
	"github.com/ayusman/formcheck/internal/server"
	"github.com/ayusman/formcheck/internal/store"
)

// service is the long-running process behind serve and tray: it holds the
// data directory lock, the session log, the optional camera session and the
// HTTP server.
type service struct {
	cfg    *config.Config
	logger *slog.Logger
	lock   *flock.Flock
	store  *store.Store
	// app is nil when the camera pipeline is not running.
	app    *app.App
	server *server.Server
}

// startService acquires the instance lock and starts every component. With
// camera unset only the browser-driven endpoints are served.
func startService(cfg *config.Config, logger *slog.Logger, camera bool) (svc *service, err error) {
	svc = &service{
		cfg:    cfg,
		logger: logger,
		lock:   flock.New(cfg.LockPath()),
	}
	defer func() {
		if err != nil {
			svc.close()
			svc = nil
		}
	}()

	ok, err := svc.lock.TryLock()
	if err != nil {
		return svc, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return svc, fmt.Errorf("another formcheck instance is using %s", cfg.Paths.DataDir)
	}

	svc.store, err = store.New(cfg.DatabasePath())
	if err != nil {
		return svc, fmt.Errorf("open session log: %w", err)
	}

	if camera {
		svc.app, err = newApp(cfg, svc.store, logger)
		if err != nil {
			return svc, err
		}
		if err := svc.app.DiscoverPlugins(); err != nil {
			logger.Warn("plugin discovery failed", "dir", cfg.Paths.PluginDir, "error", err)
		}
		if err := svc.app.Start(); err != nil {
			return svc, fmt.Errorf("start camera: %w", err)
		}
		svc.app.SetEnabled(true)
	}

	serverCfg := server.Config{
		StaticDir: staticDir(cfg),
		Store:     svc.store,
		Analysis:  cfg.AnalysisConfig(),
		Logger:    logger.With("component", "server"),
	}
	if svc.app != nil {
		serverCfg.Live = svc.app
	}
	if serverCfg.StaticDir != "" {
		logger.Info("serving static files", "dir", serverCfg.StaticDir)
	}
	svc.server = server.New(serverCfg)

	logger.Info("formcheck started",
		"lock", cfg.LockPath(),
		"database", cfg.DatabasePath(),
		"camera", svc.app != nil)
	return svc, nil
}

func newApp(cfg *config.Config, st *store.Store, logger *slog.Logger) (*app.App, error) {
	pluginConfig, err := cfg.PluginConfigJSON()
	if err != nil {
		return nil, err
	}
	return app.New(app.Config{
		Store:     st,
		PluginDir: cfg.Paths.PluginDir,
		Camera: capture.Config{
			DeviceID: cfg.Camera.DeviceID,
			FPS:      cfg.Camera.FPS,
			Width:    cfg.Camera.Width,
			Height:   cfg.Camera.Height,
		},
		Source: landmarker.Config{
			Script:      cfg.Source.Script,
			Python:      cfg.Source.Python,
			IdleTimeout: cfg.SourceIdleTimeout(),
		},
		Analysis: cfg.AnalysisConfig(),
		Feedback: app.FeedbackConfig{
			Enabled:      cfg.Feedback.Enabled,
			Plugins:      cfg.Feedback.Plugins,
			MinInterval:  cfg.FeedbackMinInterval(),
			PluginConfig: pluginConfig,
		},
		IdleThreshold: cfg.Camera.IdleThreshold,
		IdleAfter:     cfg.IdleAfter(),
		PluginTimeout: cfg.PluginTimeout(),
		Logger:        logger.With("component", "app"),
	})
}

// close stops the camera session, which logs it, then releases the session
// log and the lock. The server is shut down by ListenAndServe.
func (s *service) close() {
	if s.app != nil {
		s.app.Stop()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("failed to close session log", "error", err)
		}
	}
	if s.lock != nil && s.lock.Locked() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("failed to release lock", "error", err)
		}
	}
}

// staticDir returns server.static_dir, or else the first web directory found
// next to the working directory or in the data directory.
func staticDir(cfg *config.Config) string {
	if cfg.Server.StaticDir != "" {
		return cfg.Server.StaticDir
	}
	candidates := []string{"web", "../web", "../../web", filepath.Join(cfg.Paths.DataDir, "web")}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
