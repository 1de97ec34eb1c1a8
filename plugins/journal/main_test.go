package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestEntry(t *testing.T) {
	now := time.Date(2026, 4, 2, 18, 30, 0, 0, time.UTC)

	tests := []struct {
		req  Request
		want string
	}{
		{Request{Action: "cue", Exercise: "squat", Text: "Keep your chest up"}, "2026-04-02 18:30:00 squat cue: Keep your chest up"},
		{Request{Action: "rep", Exercise: "squat", Reps: 3, Grade: "A"}, "2026-04-02 18:30:00 squat rep 3 (grade A)"},
		{Request{Action: "summary", Exercise: "lunge", Reps: 12, Grade: "B"}, "2026-04-02 18:30:00 lunge session: 12 reps, best grade B"},
	}
	for _, tt := range tests {
		got, err := entry(tt.req, now)
		if err != nil {
			t.Fatalf("entry(%s) error = %v", tt.req.Action, err)
		}
		if got != tt.want {
			t.Errorf("entry(%s) = %q, want %q", tt.req.Action, got, tt.want)
		}
	}

	if _, err := entry(Request{Action: "dance"}, now); err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestAppendLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.log")

	for _, line := range []string{"first", "second"} {
		if err := appendLine(path, line); err != nil {
			t.Fatalf("appendLine: %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read journal: %v", err)
	}
	if got := strings.Split(strings.TrimSpace(string(data)), "\n"); len(got) != 2 || got[1] != "second" {
		t.Errorf("unexpected journal contents %q", data)
	}
}
