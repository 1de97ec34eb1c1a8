package exercise

import (
	"math"

	"github.com/ayusman/formcheck/internal/pose"
)

// Phase is the position within a repetition.
type Phase string

const (
	PhaseUp   Phase = "up"
	PhaseDown Phase = "down"
)

// State is the repetition progress of one exercise session.
type State struct {
	Phase Phase  `json:"phase"`
	Count uint32 `json:"count"`
}

// InitialState is the state at the start of every session.
func InitialState() State {
	return State{Phase: PhaseUp}
}

// RepSpec selects the joint angle that drives counting and its hysteresis band.
// Values between Low and High never cause a transition.
type RepSpec struct {
	Left  [3]int  `json:"left"`  // outer, vertex, outer
	Right [3]int  `json:"right"`
	Low   float64 `json:"low"`  // enter Down below this
	High  float64 `json:"high"` // return Up (and count) above this
}

// Measure returns the driving angle in degrees, averaging the sides whose three
// landmarks are all above minConf. ok is false when neither side is usable.
func (s RepSpec) Measure(f *pose.Frame, minConf float64) (float64, bool) {
	var sum float64
	var n int
	for _, side := range [][3]int{s.Left, s.Right} {
		a, b, c := f.Points[side[0]], f.Points[side[1]], f.Points[side[2]]
		if !a.Valid(minConf) || !b.Valid(minConf) || !c.Valid(minConf) {
			continue
		}
		sum += Angle(a, b, c)
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// Angle returns the interior angle ABC in degrees, in [0,180].
func Angle(a, b, c pose.Landmark) float64 {
	rad := math.Atan2(c.Y-b.Y, c.X-b.X) - math.Atan2(a.Y-b.Y, a.X-b.X)
	deg := math.Abs(rad * 180 / math.Pi)
	if deg > 180 {
		deg = 360 - deg
	}
	return deg
}

// RepCounter is a two-state hysteresis machine over a scalar such as a joint angle.
type RepCounter struct {
	low, high float64
	state     State
}

// NewRepCounter creates a counter in the initial Up state.
func NewRepCounter(low, high float64) *RepCounter {
	return &RepCounter{low: low, high: high, state: InitialState()}
}

// Next computes the state that value would produce without applying it.
// completed is true when the transition finishes a repetition.
func (c *RepCounter) Next(value float64) (next State, completed bool) {
	next = c.state
	switch c.state.Phase {
	case PhaseUp:
		if value < c.low {
			next.Phase = PhaseDown
		}
	case PhaseDown:
		if value > c.high {
			next.Phase = PhaseUp
			next.Count++
			completed = true
		}
	}
	return next, completed
}

// Update applies value and reports whether a repetition just completed.
func (c *RepCounter) Update(value float64) bool {
	next, completed := c.Next(value)
	c.state = next
	return completed
}

// Set replaces the current state.
func (c *RepCounter) Set(s State) {
	c.state = s
}

// State returns the current state.
func (c *RepCounter) State() State {
	return c.state
}

// Reset returns the counter to the initial state.
func (c *RepCounter) Reset() {
	c.state = InitialState()
}
