// Package testdata embeds recorded landmark sessions for tests.
package testdata

import (
	"bytes"
	"embed"
	"fmt"
	"io"
)

//go:embed sequences/*.jsonl
var sequencesFS embed.FS

// Recorded sessions, in the /api/analyze message format.
const (
	// SquatTwoReps is two clean squats with eight-frame holds at 30 fps.
	SquatTwoReps = "squat_two_reps.jsonl"
	// Dropout is a standing pose interrupted by four frames without landmarks.
	Dropout = "dropout.jsonl"
)

// Sequence returns the raw contents of a recorded session.
func Sequence(name string) ([]byte, error) {
	data, err := sequencesFS.ReadFile("sequences/" + name)
	if err != nil {
		return nil, fmt.Errorf("load sequence %s: %w", name, err)
	}
	return data, nil
}

// OpenSequence returns a reader over a recorded session.
func OpenSequence(name string) (io.Reader, error) {
	data, err := Sequence(name)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}
