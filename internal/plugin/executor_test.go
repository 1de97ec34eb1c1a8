package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

// scriptPlugin writes a shell script plugin into a temp dir.
func scriptPlugin(t *testing.T, name, script string) *Plugin {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, name+".sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	return &Plugin{
		Manifest: Manifest{
			Name:       name,
			Version:    "1.0.0",
			Executable: name + ".sh",
			Actions:    []string{ActionCue},
		},
		Path:       dir,
		Executable: path,
	}
}

func TestExecutor_Execute(t *testing.T) {
	plugin := scriptPlugin(t, "ok", `echo '{"success":true,"data":{"spoken":true}}'`)

	response, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, &Request{
		Action:   ActionCue,
		Exercise: "squat",
		Text:     "Keep your chest up",
	})
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	if !response.Success {
		t.Errorf("expected success=true, got false")
	}
	if response.Error != "" {
		t.Errorf("expected empty error, got %q", response.Error)
	}
	if string(response.Data) != `{"spoken":true}` {
		t.Errorf("unexpected data %s", response.Data)
	}
}

func TestExecutor_Execute_ReadsStdin(t *testing.T) {
	plugin := scriptPlugin(t, "echo", `INPUT=$(cat)
echo "{\"success\":true,\"data\":$INPUT}"
`)

	response, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, &Request{
		Action:   ActionRep,
		Exercise: "pushup",
		Reps:     7,
		Grade:    "A",
	})
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	var received Request
	if err := json.Unmarshal(response.Data, &received); err != nil {
		t.Fatalf("failed to unmarshal echoed request: %v", err)
	}
	if received.Action != ActionRep || received.Exercise != "pushup" || received.Reps != 7 || received.Grade != "A" {
		t.Errorf("plugin received %+v", received)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	plugin := scriptPlugin(t, "slow", "sleep 10\necho '{\"success\":true}'\n")

	_, err := NewExecutor(100*time.Millisecond).Execute(context.Background(), plugin, &Request{Action: ActionCue})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestExecutor_CallerCancel(t *testing.T) {
	plugin := scriptPlugin(t, "slow", "sleep 10\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewExecutor(5*time.Second).Execute(ctx, plugin, &Request{Action: ActionCue}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestExecutor_Execute_Failures(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		wantErr bool
		wantMsg string
	}{
		{
			name:    "error response",
			script:  `echo '{"success":false,"error":"no speech engine"}'`,
			wantMsg: "no speech engine",
		},
		{
			name:    "invalid json",
			script:  `echo 'not valid json'`,
			wantErr: true,
		},
		{
			name:    "non-zero exit",
			script:  "echo 'Error: something failed' >&2\nexit 1\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plugin := scriptPlugin(t, "p", tt.script)
			response, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, &Request{Action: ActionCue})

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Execute() failed: %v", err)
			}
			if response.Success {
				t.Error("expected success=false")
			}
			if response.Error != tt.wantMsg {
				t.Errorf("expected error %q, got %q", tt.wantMsg, response.Error)
			}
		})
	}
}

func TestExecutor_ExecErrorCarriesStderr(t *testing.T) {
	plugin := scriptPlugin(t, "broken", "echo 'no audio device' >&2\nexit 3\n")

	_, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, &Request{Action: ActionCue})
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected *ExecError, got %v", err)
	}
	if execErr.Stderr != "no audio device" {
		t.Errorf("Stderr = %q, want %q", execErr.Stderr, "no audio device")
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 3 {
		t.Errorf("expected exit code 3, got %v", err)
	}
}
