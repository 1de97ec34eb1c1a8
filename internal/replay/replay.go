// Package replay runs recorded landmark sessions through the analyzer.
//
// A recording is JSON lines in the /api/analyze client message format: frame
// messages carry landmarks, and set_exercise, reset and end messages split the
// recording into sessions the same way they do on a live connection.
package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ayusman/formcheck/internal/analysis"
	"github.com/ayusman/formcheck/internal/exercise"
	"github.com/ayusman/formcheck/internal/session"
)

// Message types understood in a recording.
const (
	TypeFrame       = "frame"
	TypeSetExercise = "set_exercise"
	TypeReset       = "reset"
	TypeEnd         = "end"
)

// maxLine bounds one recording line. A frame with 33 landmarks is a few KB.
const maxLine = 1 << 20

// Message is one line of a recording.
type Message struct {
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp,omitempty"`
	Landmarks json.RawMessage `json:"landmarks,omitempty"`
	Exercise  string          `json:"exercise,omitempty"`
}

// Read parses a recording. Blank lines are skipped; a line that is not valid
// JSON or has an unknown type fails with its line number.
func Read(r io.Reader) ([]Message, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	var out []Message
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var msg Message
		if err := json.Unmarshal([]byte(text), &msg); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		switch msg.Type {
		case TypeFrame, TypeSetExercise, TypeReset, TypeEnd:
		default:
			return nil, fmt.Errorf("line %d: unknown message type %q", line, msg.Type)
		}
		out = append(out, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}
	return out, nil
}

// Frame is the analysis of one recorded frame.
type Frame struct {
	Index  int
	Result analysis.Result
}

// Report is the outcome of a replay.
type Report struct {
	Frames []Frame
	// Sessions holds every session that analyzed at least one frame, in order.
	Sessions []*session.Record
	Stats    analysis.Stats
}

// Run replays msgs through a fresh analyzer built from cfg. Session times follow
// the recorded timestamps rather than the wall clock.
func Run(ctx context.Context, cfg analysis.Config, msgs []Message, logger *slog.Logger) (*Report, error) {
	if logger == nil {
		logger = slog.Default()
	}
	analyzer, err := analysis.New(cfg, logger.With("component", "analysis"))
	if err != nil {
		return nil, err
	}

	p := &player{analyzer: analyzer, report: &Report{}}

	for i, msg := range msgs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := p.handle(i, msg); err != nil {
			return nil, fmt.Errorf("message %d: %w", i+1, err)
		}
	}
	p.rotate()
	p.report.Stats = analyzer.Stats()
	return p.report, nil
}

type player struct {
	analyzer *analysis.Analyzer
	// tracker is nil between sessions.
	tracker  *session.Tracker
	report   *Report
	clock    int64
}

func (p *player) handle(i int, msg Message) error {
	switch msg.Type {
	case TypeFrame:
		ts := msg.Timestamp
		if ts == 0 {
			// Untimed recordings advance at 30 fps.
			ts = p.clock + 33
		}
		p.clock = ts
		if p.tracker == nil {
			p.tracker = session.NewTracker(p.analyzer.Exercise(), session.OriginReplay, p.now)
		}
		res := p.analyzer.Analyze(msg.Landmarks, ts)
		p.tracker.Add(res)
		p.report.Frames = append(p.report.Frames, Frame{Index: i, Result: res})
	case TypeSetExercise:
		t, err := exercise.Parse(msg.Exercise)
		if err != nil {
			return err
		}
		if t == p.analyzer.Exercise() {
			return nil
		}
		if err := p.analyzer.SetExercise(t); err != nil {
			return err
		}
		p.rotate()
	case TypeReset, TypeEnd:
		p.analyzer.Reset()
		p.rotate()
	}
	return nil
}

// rotate closes the running session. The next frame starts a new one, so a
// session starts at its first recorded timestamp.
func (p *player) rotate() {
	if p.tracker == nil {
		return
	}
	p.report.Sessions = append(p.report.Sessions, p.tracker.Finish())
	p.tracker = nil
}

func (p *player) now() time.Time {
	return time.UnixMilli(p.clock)
}
