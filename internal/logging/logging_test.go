package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/ayusman/formcheck/internal/config"
)

func TestNew(t *testing.T) {
	t.Run("text format has no colour off a terminal", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New(config.Logging{Level: "info", Format: "text"}, &buf)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		logger.Info("fallback entered", "exercise", "squat")
		out := buf.String()
		if !strings.Contains(out, "fallback entered") || !strings.Contains(out, "exercise=squat") {
			t.Fatalf("unexpected output %q", out)
		}
		if strings.Contains(out, "\x1b[") {
			t.Fatalf("expected no ANSI escapes, got %q", out)
		}
	})

	t.Run("json format", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New(config.Logging{Level: "warn", Format: "json"}, &buf)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		logger.Info("dropped")
		logger.Warn("kept", "reps", 3)

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 1 {
			t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if entry["msg"] != "kept" || entry["reps"] != float64(3) {
			t.Fatalf("unexpected entry %v", entry)
		}
	})

	t.Run("unsupported format", func(t *testing.T) {
		if _, err := New(config.Logging{Format: "xml"}, &bytes.Buffer{}); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"", slog.LevelInfo, false},
		{" INFO ", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
