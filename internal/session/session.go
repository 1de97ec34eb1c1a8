// Package session summarizes one workout from its per-frame analysis results.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/formcheck/internal/analysis"
	"github.com/ayusman/formcheck/internal/exercise"
)

// Origin names where a session's frames came from.
type Origin string

const (
	OriginCamera  Origin = "camera"
	OriginBrowser Origin = "browser"
	OriginReplay  Origin = "replay"
)

// CorrectionCount is how often one cue was given during a session.
type CorrectionCount struct {
	Text  string `json:"text"`
	Count int    `json:"count"`
}

// Record is the persisted summary of one workout.
type Record struct {
	ID             string            `json:"id"`
	Exercise       exercise.Type     `json:"exercise"`
	Origin         Origin            `json:"origin"`
	StartedAt      time.Time         `json:"started_at"`
	EndedAt        time.Time         `json:"ended_at"`
	Frames         int               `json:"frames"`
	DegradedFrames int               `json:"degraded_frames"`
	Reps           uint32            `json:"reps"`
	AvgFormScore   float64           `json:"avg_form_score"`
	BestGrade      analysis.Grade    `json:"best_grade,omitempty"`
	Corrections    []CorrectionCount `json:"corrections"`
}

// Duration is the wall time between the first and last frame.
func (r *Record) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

var gradeRank = map[analysis.Grade]int{
	analysis.GradeD: 1,
	analysis.GradeC: 2,
	analysis.GradeB: 3,
	analysis.GradeA: 4,
	analysis.GradeS: 5,
}

// Tracker accumulates results for one exercise. It is not safe for concurrent use.
type Tracker struct {
	id       string
	exercise exercise.Type
	origin   Origin
	now      func() time.Time

	started  time.Time
	last     time.Time
	frames   int
	degraded int
	scoreSum float64
	reps     uint32
	best     analysis.Grade

	counts map[string]int
	order  []string
}

// NewTracker starts a session. now defaults to time.Now.
func NewTracker(ex exercise.Type, origin Origin, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	start := now()
	return &Tracker{
		id:       uuid.NewString(),
		exercise: ex,
		origin:   origin,
		now:      now,
		started:  start,
		last:     start,
		counts:   make(map[string]int),
	}
}

// ID returns the session ID assigned at start.
func (t *Tracker) ID() string {
	return t.id
}

// Exercise returns the tracked exercise.
func (t *Tracker) Exercise() exercise.Type {
	return t.exercise
}

// Add records one frame result. Degraded results only count towards the frame
// totals.
func (t *Tracker) Add(r analysis.Result) {
	t.frames++
	t.last = t.now()
	if r.Reps > t.reps {
		t.reps = r.Reps
	}
	if r.Degraded {
		t.degraded++
		return
	}

	t.scoreSum += r.FormScore
	if gradeRank[r.Grade] > gradeRank[t.best] {
		t.best = r.Grade
	}
	for _, c := range r.Corrections {
		if t.counts[c] == 0 {
			t.order = append(t.order, c)
		}
		t.counts[c]++
	}
}

// Frames returns the number of results recorded.
func (t *Tracker) Frames() int {
	return t.frames
}

// Reps returns the highest rep count seen.
func (t *Tracker) Reps() uint32 {
	return t.reps
}

// Finish returns the summary. The tracker may keep accumulating afterwards.
func (t *Tracker) Finish() *Record {
	rec := &Record{
		ID:             t.id,
		Exercise:       t.exercise,
		Origin:         t.origin,
		StartedAt:      t.started,
		EndedAt:        t.last,
		Frames:         t.frames,
		DegradedFrames: t.degraded,
		Reps:           t.reps,
		BestGrade:      t.best,
		Corrections:    make([]CorrectionCount, 0, len(t.order)),
	}
	if scored := t.frames - t.degraded; scored > 0 {
		rec.AvgFormScore = t.scoreSum / float64(scored)
	}
	for _, c := range t.order {
		rec.Corrections = append(rec.Corrections, CorrectionCount{Text: c, Count: t.counts[c]})
	}
	return rec
}
