// Package landmarker turns camera frames into body landmarks using an external
// pose-estimation model.
package landmarker

import (
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/formcheck/internal/pose"
)

// Source extracts the body landmarks of the person in a frame.
type Source interface {
	// Landmarks returns the landmarks for the most prominent person in frame, in
	// index order. Returns an empty slice if nobody is visible.
	Landmarks(frame *gocv.Mat) ([]pose.Landmark, error)

	// Close releases any resources held by the source.
	Close() error
}

// Config holds options for the MediaPipe source.
type Config struct {
	// Script is the path to the pose service script. Empty searches default locations.
	Script string

	// Python is the interpreter used to run Script. Empty prefers a local venv.
	Python string

	// IdleTimeout stops the service after this long without frames.
	IdleTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{IdleTimeout: 30 * time.Second}
}
