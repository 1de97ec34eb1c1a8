package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
)

// ManifestFile is the name of the manifest inside each plugin directory.
const ManifestFile = "plugin.json"

var (
	// ErrPluginNotFound is returned when a requested plugin cannot be found.
	ErrPluginNotFound = errors.New("plugin not found")

	errNoManifest = errors.New("no manifest")
)

var knownActions = []string{ActionCue, ActionRep, ActionSummary}

// Manager discovers feedback plugins and hands them out by name.
type Manager struct {
	pluginDir string
	logger    *slog.Logger
	plugins   map[string]*Plugin
	mu        sync.RWMutex
}

// NewManager creates a new plugin Manager with the given plugin directory.
func NewManager(pluginDir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		pluginDir: pluginDir,
		logger:    logger,
		plugins:   make(map[string]*Plugin),
	}
}

// Discover replaces the known plugins with those found in the plugin
// directory, one per subdirectory holding a manifest. Invalid plugins are
// logged and skipped; a missing directory yields no plugins.
func (m *Manager) Discover() error {
	found := make(map[string]*Plugin)

	entries, err := os.ReadDir(m.pluginDir)
	switch {
	case m.pluginDir == "" || errors.Is(err, os.ErrNotExist):
		entries = nil
	case err != nil:
		return fmt.Errorf("read plugin directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(m.pluginDir, entry.Name())
		p, err := m.load(dir)
		if errors.Is(err, errNoManifest) {
			continue
		}
		if err != nil {
			m.logger.Warn("skipping plugin", "path", dir, "error", err)
			continue
		}
		if prev, ok := found[p.Manifest.Name]; ok {
			m.logger.Warn("duplicate plugin name, keeping the first",
				"name", p.Manifest.Name, "kept", prev.Path, "skipped", dir)
			continue
		}
		found[p.Manifest.Name] = p
		m.logger.Debug("plugin discovered", "name", p.Manifest.Name, "actions", p.Manifest.Actions)
	}

	m.mu.Lock()
	m.plugins = found
	m.mu.Unlock()
	return nil
}

// load reads and checks the manifest in dir. Actions this version does not
// send are dropped; a plugin left with none is rejected.
func (m *Manager) load(dir string) (*Plugin, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, errNoManifest
	}
	if err != nil {
		return nil, err
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	if manifest.Name == "" || manifest.Executable == "" {
		return nil, errors.New("manifest needs a name and an executable")
	}

	actions := manifest.Actions[:0:0]
	for _, a := range manifest.Actions {
		if slices.Contains(knownActions, a) {
			actions = append(actions, a)
		} else {
			m.logger.Warn("ignoring unknown plugin action", "name", manifest.Name, "action", a)
		}
	}
	if len(actions) == 0 {
		return nil, fmt.Errorf("plugin %s declares none of %v", manifest.Name, knownActions)
	}
	manifest.Actions = actions

	return &Plugin{
		Manifest:   manifest,
		Path:       dir,
		Executable: filepath.Join(dir, manifest.Executable),
	}, nil
}

// Get returns a plugin by name.
// Returns ErrPluginNotFound if the plugin does not exist.
func (m *Manager) Get(name string) (*Plugin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plugin, ok := m.plugins[name]
	if !ok {
		return nil, ErrPluginNotFound
	}

	return plugin, nil
}

// List returns all discovered plugins sorted by name.
func (m *Manager) List() []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plugins := make([]*Plugin, 0, len(m.plugins))
	for _, plugin := range m.plugins {
		plugins = append(plugins, plugin)
	}
	sort.Slice(plugins, func(i, j int) bool {
		return plugins[i].Manifest.Name < plugins[j].Manifest.Name
	})

	return plugins
}

// PluginDir returns the plugin directory path.
func (m *Manager) PluginDir() string {
	return m.pluginDir
}
