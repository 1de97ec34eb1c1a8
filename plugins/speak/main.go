// Package main provides a text-to-speech feedback plugin. It uses say on macOS
// and espeak or spd-say elsewhere.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
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
	Voice string `json:"voice"`
	Rate  int    `json:"rate"` // words per minute
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(Response{Error: fmt.Sprintf("failed to decode request: %v", err)})
		return
	}

	text, err := phrase(req)
	if err != nil {
		writeResponse(Response{Error: err.Error()})
		return
	}

	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeResponse(Response{Error: fmt.Sprintf("failed to parse config: %v", err)})
			return
		}
	}

	if err := speak(text, cfg); err != nil {
		writeResponse(Response{Error: err.Error()})
		return
	}

	data, _ := json.Marshal(map[string]string{"spoken": text})
	writeResponse(Response{Success: true, Data: data})
}

// phrase builds the sentence to speak for req.
func phrase(req Request) (string, error) {
	switch req.Action {
	case "cue":
		if req.Text == "" {
			return "", errors.New("text is required")
		}
		return req.Text, nil
	case "rep":
		return strconv.FormatUint(uint64(req.Reps), 10), nil
	case "summary":
		return fmt.Sprintf("Session complete. %d reps, best grade %s.", req.Reps, req.Grade), nil
	}
	return "", fmt.Errorf("unknown action: %s", req.Action)
}

func speak(text string, cfg Config) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		args := []string{}
		if cfg.Voice != "" {
			args = append(args, "-v", cfg.Voice)
		}
		if cfg.Rate > 0 {
			args = append(args, "-r", strconv.Itoa(cfg.Rate))
		}
		cmd = exec.Command("say", append(args, text)...)
	default:
		bin, err := exec.LookPath("espeak")
		if err != nil {
			bin, err = exec.LookPath("spd-say")
			if err != nil {
				return errors.New("no speech engine found (install espeak)")
			}
			return exec.Command(bin, "--wait", text).Run()
		}
		args := []string{}
		if cfg.Voice != "" {
			args = append(args, "-v", cfg.Voice)
		}
		if cfg.Rate > 0 {
			args = append(args, "-s", strconv.Itoa(cfg.Rate))
		}
		cmd = exec.Command(bin, append(args, text)...)
	}

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", cmd.Path, err, out)
	}
	return nil
}

func writeResponse(resp Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}
