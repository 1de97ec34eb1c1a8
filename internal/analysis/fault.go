package analysis

import "fmt"

// ProcessingFault is an unexpected failure inside the scoring pipeline.
type ProcessingFault struct {
	Stage string
	Cause any
}

func (e *ProcessingFault) Error() string {
	return fmt.Sprintf("processing fault in %s: %v", e.Stage, e.Cause)
}

// FaultState tracks consecutive failures within a session.
type FaultState struct {
	ConsecutiveErrors uint32 `json:"consecutive_errors"`
	FallbackActive    bool   `json:"fallback_active"`
}

// FaultController switches the pipeline into fallback after threshold consecutive
// failures and back out after the first clean frame.
type FaultController struct {
	threshold uint32
	state     FaultState
}

// NewFaultController creates a controller tripping after threshold failures.
func NewFaultController(threshold int) *FaultController {
	if threshold < 1 {
		threshold = 1
	}
	return &FaultController{threshold: uint32(threshold)}
}

// Failure records a failed frame and reports whether fallback just became active.
func (c *FaultController) Failure() (entered bool) {
	c.state.ConsecutiveErrors++
	if !c.state.FallbackActive && c.state.ConsecutiveErrors >= c.threshold {
		c.state.FallbackActive = true
		return true
	}
	return false
}

// Success records a clean frame and reports whether fallback was just cleared.
func (c *FaultController) Success() (cleared bool) {
	cleared = c.state.FallbackActive
	c.state = FaultState{}
	return cleared
}

// State returns the current fault state.
func (c *FaultController) State() FaultState {
	return c.state
}

// Reset clears all fault tracking.
func (c *FaultController) Reset() {
	c.state = FaultState{}
}
