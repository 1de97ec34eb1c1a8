package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCamera()
	c.normalizeAnalysis()
	c.normalizeFeedback()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = ExpandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.PluginDir) == "" {
		c.Paths.PluginDir = defaultPluginDir
	}
	if c.Paths.PluginDir, err = ExpandPath(c.Paths.PluginDir); err != nil {
		return fmt.Errorf("paths.plugin_dir: %w", err)
	}
	if c.Server.StaticDir, err = ExpandPath(strings.TrimSpace(c.Server.StaticDir)); err != nil {
		return fmt.Errorf("server.static_dir: %w", err)
	}
	if c.Source.Script, err = ExpandPath(strings.TrimSpace(c.Source.Script)); err != nil {
		return fmt.Errorf("source.script: %w", err)
	}
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultBind
	}
	c.Source.Python = strings.TrimSpace(c.Source.Python)
	return nil
}

func (c *Config) normalizeCamera() {
	if c.Camera.FPS == 0 {
		c.Camera.FPS = defaultCameraFPS
	}
	if c.Camera.Width == 0 {
		c.Camera.Width = defaultCameraWidth
	}
	if c.Camera.Height == 0 {
		c.Camera.Height = defaultCameraHeight
	}
	if c.Camera.IdleAfter == 0 {
		c.Camera.IdleAfter = defaultIdleAfterSeconds
	}
	if c.Source.IdleTimeout == 0 {
		c.Source.IdleTimeout = defaultSourceIdleSeconds
	}
}

func (c *Config) normalizeAnalysis() {
	c.Analysis.Exercise = strings.ToLower(strings.TrimSpace(c.Analysis.Exercise))
	c.Analysis.Level = strings.ToLower(strings.TrimSpace(c.Analysis.Level))
	if c.Analysis.Level == "" {
		c.Analysis.Level = "intermediate"
	}
}

func (c *Config) normalizeFeedback() {
	plugins := c.Feedback.Plugins[:0]
	for _, name := range c.Feedback.Plugins {
		if name = strings.TrimSpace(name); name != "" {
			plugins = append(plugins, name)
		}
	}
	c.Feedback.Plugins = plugins
	if c.Feedback.TimeoutMS == 0 {
		c.Feedback.TimeoutMS = defaultPluginTimeoutMS
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "text", "console":
		c.Logging.Format = "text"
	case "json":
	default:
		c.Logging.Format = "text"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
