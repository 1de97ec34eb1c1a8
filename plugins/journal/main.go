// Package main provides a feedback plugin that appends every cue, rep and
// session summary to a plain-text training journal.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action   string          `json:"action"`
	Exercise string          `json:"exercise"`
	Text     string          `json:"text"`
	Reps     uint32          `json:"reps"`
	Grade    string          `json:"grade"`
	Config   json.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config is the optional plugin configuration.
type Config struct {
	Path string `json:"path"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(Response{Error: fmt.Sprintf("failed to decode request: %v", err)})
		return
	}

	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeResponse(Response{Error: fmt.Sprintf("failed to parse config: %v", err)})
			return
		}
	}
	if cfg.Path == "" {
		home, _ := os.UserHomeDir()
		cfg.Path = filepath.Join(home, ".formcheck", "journal.log")
	}

	line, err := entry(req, time.Now())
	if err != nil {
		writeResponse(Response{Error: err.Error()})
		return
	}

	if err := appendLine(cfg.Path, line); err != nil {
		writeResponse(Response{Error: err.Error()})
		return
	}

	data, _ := json.Marshal(map[string]string{"path": cfg.Path})
	writeResponse(Response{Success: true, Data: data})
}

// entry formats one journal line.
func entry(req Request, now time.Time) (string, error) {
	prefix := now.Format(time.DateTime) + " " + req.Exercise
	switch req.Action {
	case "cue":
		return fmt.Sprintf("%s cue: %s", prefix, req.Text), nil
	case "rep":
		return fmt.Sprintf("%s rep %d (grade %s)", prefix, req.Reps, req.Grade), nil
	case "summary":
		return fmt.Sprintf("%s session: %d reps, best grade %s", prefix, req.Reps, req.Grade), nil
	}
	return "", fmt.Errorf("unknown action: %s", req.Action)
}

func appendLine(path, line string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create journal dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	_, err = fmt.Fprintln(f, line)
	return err
}

func writeResponse(resp Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}
