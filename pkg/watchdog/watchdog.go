// Package watchdog tracks liveness of a data link by counting failed polls.
package watchdog

import "fmt"

// DefaultThreshold is the number of consecutive failed polls before reset.
const DefaultThreshold = 20

// Phase is the link phase.
type Phase int

// Phases.
const (
	PhaseConnected Phase = iota
	PhaseStalled
	PhaseResetting
)

func (p Phase) String() string {
	switch p {
	case PhaseConnected:
		return "connected"
	case PhaseStalled:
		return "stalled"
	case PhaseResetting:
		return "resetting"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// State is a snapshot of the watchdog.
type State struct {
	Phase    Phase
	Failures int
}

// Notifier is notified on phase changes.
type Notifier interface {
	PhaseChanged(from, to Phase)
}

// PhaseChangedFunc is func type of Notifier.
type PhaseChangedFunc func(from, to Phase)

// PhaseChanged implements Notifier.
func (f PhaseChangedFunc) PhaseChanged(from, to Phase) {
	f(from, to)
}

// Watchdog is the link state machine. It's owned by a single loop
// and not safe for concurrent use.
type Watchdog struct {
	Threshold int
	Notifier  Notifier

	phase    Phase
	failures int
}

// New creates a Watchdog. A non-positive threshold selects DefaultThreshold.
func New(threshold int) *Watchdog {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Watchdog{Threshold: threshold}
}

// Success records a decoded frame.
func (w *Watchdog) Success() {
	w.failures = 0
	w.transit(PhaseConnected)
}

// Failure records an empty or failed poll. It returns true exactly once,
// when the failure count reaches the threshold, and the caller must reset
// the link and call Reconnected.
func (w *Watchdog) Failure() bool {
	if w.phase == PhaseResetting {
		return false
	}
	w.failures++
	if w.failures >= w.threshold() {
		w.transit(PhaseResetting)
		return true
	}
	w.transit(PhaseStalled)
	return false
}

// Reconnected records a fresh link after reset.
func (w *Watchdog) Reconnected() {
	w.failures = 0
	w.transit(PhaseConnected)
}

// State returns the current state.
func (w *Watchdog) State() State {
	return State{Phase: w.phase, Failures: w.failures}
}

func (w *Watchdog) threshold() int {
	if w.Threshold <= 0 {
		return DefaultThreshold
	}
	return w.Threshold
}

func (w *Watchdog) transit(to Phase) {
	from := w.phase
	w.phase = to
	if from != to && w.Notifier != nil {
		w.Notifier.PhaseChanged(from, to)
	}
}
