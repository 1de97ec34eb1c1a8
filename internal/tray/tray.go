// Package tray provides the system tray interface for the formcheck live session.
package tray

import (
	"fmt"
	"strings"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/formcheck/internal/analysis"
	"github.com/ayusman/formcheck/internal/exercise"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle    func(enabled bool)
	onExercise  func(t exercise.Type) error
	onReset     func()
	onDashboard func()
	onQuit      func()
	enabled     bool
	exercise    exercise.Type
	exercises   []exercise.Type
	mu          sync.RWMutex

	// Menu items stored for later updates
	menuToggle    *systray.MenuItem
	menuStatus    *systray.MenuItem
	menuExercises map[exercise.Type]*systray.MenuItem
}

// New creates a Tray for the given starting exercise with analysis enabled.
func New(current exercise.Type) *Tray {
	return &Tray{
		enabled:   true,
		exercise:  current,
		exercises: exercise.All(),
	}
}

// OnToggle sets the callback function to be called when the enabled state is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnExercise sets the callback called when an exercise is picked from the menu.
// A non-nil error keeps the previous selection.
func (t *Tray) OnExercise(fn func(t exercise.Type) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onExercise = fn
}

// OnReset sets the callback called when the session is reset from the menu.
func (t *Tray) OnReset(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReset = fn
}

// OnDashboard sets the callback function to be called when the dashboard menu item is clicked.
func (t *Tray) OnDashboard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDashboard = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit stops the tray, making Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("formcheck")
	systray.SetTooltip("formcheck motion analysis")

	t.mu.Lock()
	current := t.exercise
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle motion analysis")
	systray.AddSeparator()

	t.menuStatus = systray.AddMenuItem(statusLine(current, 0, ""), "Current session")
	t.menuStatus.Disable()
	systray.AddSeparator()

	menuExercise := systray.AddMenuItem("Exercise", "Choose the exercise to analyze")
	t.menuExercises = make(map[exercise.Type]*systray.MenuItem, len(t.exercises))
	for _, ex := range t.exercises {
		item := menuExercise.AddSubMenuItem(displayName(ex), "Analyze "+displayName(ex))
		if ex == current {
			item.Check()
		}
		t.menuExercises[ex] = item
	}
	items := t.menuExercises
	t.mu.Unlock()

	menuReset := systray.AddMenuItem("Reset Session", "Log the current session and start a new one")
	menuDashboard := systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit formcheck")

	for ex, item := range items {
		go func() {
			for range item.ClickedCh {
				t.handleExercise(ex)
			}
		}()
	}

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuReset.ClickedCh:
				t.handleReset()
			case <-menuDashboard.ClickedCh:
				t.handleDashboard()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled

	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// handleExercise switches to ex and moves the check mark.
func (t *Tray) handleExercise(ex exercise.Type) {
	t.mu.RLock()
	callback := t.onExercise
	t.mu.RUnlock()

	if callback != nil {
		if err := callback(ex); err != nil {
			return
		}
	}
	t.SetExercise(ex)
}

// handleReset handles the reset menu item click.
func (t *Tray) handleReset() {
	t.mu.RLock()
	callback := t.onReset
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleDashboard handles the dashboard menu item click.
func (t *Tray) handleDashboard() {
	t.mu.RLock()
	callback := t.onDashboard
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetExercise records the active exercise and updates the check marks.
func (t *Tray) SetExercise(ex exercise.Type) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.exercise = ex
	for other, item := range t.menuExercises {
		if other == ex {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
	if t.menuStatus != nil {
		t.menuStatus.SetTitle(statusLine(ex, 0, ""))
	}
}

// SetResult updates the status line from the latest analysis.
func (t *Tray) SetResult(r analysis.Result) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuStatus != nil {
		t.menuStatus.SetTitle(statusLine(r.Exercise, r.Reps, r.Grade))
	}
}

// Exercise returns the exercise shown as selected.
func (t *Tray) Exercise() exercise.Type {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.exercise
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Analyzing"
	}
	return "○ Paused"
}

// statusLine renders "Squat: 3 reps, grade B".
func statusLine(ex exercise.Type, reps uint32, grade analysis.Grade) string {
	unit := "reps"
	if reps == 1 {
		unit = "rep"
	}
	line := fmt.Sprintf("%s: %d %s", displayName(ex), reps, unit)
	if grade != "" {
		line += ", grade " + string(grade)
	}
	return line
}

func displayName(ex exercise.Type) string {
	if def, err := exercise.Lookup(ex); err == nil {
		return def.Name
	}
	return strings.ReplaceAll(string(ex), "_", " ")
}
