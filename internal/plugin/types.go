// Package plugin discovers and runs external feedback plugins. A plugin is an
// executable that reads one JSON Request on stdin and writes one JSON Response
// on stdout.
package plugin

import (
	"encoding/json"
	"slices"
)

// Feedback actions a plugin may support.
const (
	ActionCue     = "cue"     // speak or record a form correction
	ActionRep     = "rep"     // a repetition was completed
	ActionSummary = "summary" // a session ended
)

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Supports reports whether the plugin declares action.
func (m *Manifest) Supports(action string) bool {
	return slices.Contains(m.Actions, action)
}

// Request represents a request sent to a plugin for execution.
type Request struct {
	Action   string          `json:"action"`
	Exercise string          `json:"exercise"`
	Text     string          `json:"text,omitempty"`
	Reps     uint32          `json:"reps"`
	Grade    string          `json:"grade,omitempty"`
	Config   json.RawMessage `json:"config,omitempty"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
