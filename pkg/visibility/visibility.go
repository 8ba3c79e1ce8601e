// Package visibility reports whether anyone is currently looking at the
// unread counts, so background polling can pause while nobody is.
package visibility

import (
	"fmt"
	"sync/atomic"
)

// State is the visibility of the consumer surface.
type State string

const (
	Visible State = "visible"
	Hidden  State = "hidden"
)

// Parse converts a string into a State.
func Parse(s string) (State, error) {
	switch State(s) {
	case Visible, Hidden:
		return State(s), nil
	}
	return "", fmt.Errorf("unknown visibility %q (want %q or %q)", s, Visible, Hidden)
}

// Signal reports whether the consumer surface is visible.
type Signal interface {
	Visible() bool
}

// Tracker is a Signal whose state is set explicitly by consumers.
// It is safe for concurrent use.
type Tracker struct {
	hidden atomic.Bool
}

// NewTracker creates a Tracker in the given initial state.
func NewTracker(initial State) *Tracker {
	t := &Tracker{}
	t.Set(initial)
	return t
}

// Set changes the state and reports whether it differed from the previous one.
func (t *Tracker) Set(s State) bool {
	hidden := s == Hidden
	return t.hidden.Swap(hidden) != hidden
}

// State returns the current state.
func (t *Tracker) State() State {
	if t.hidden.Load() {
		return Hidden
	}
	return Visible
}

// Visible implements Signal.
func (t *Tracker) Visible() bool { return !t.hidden.Load() }

// Always is a Signal that is always visible.
type Always struct{}

// Visible implements Signal.
func (Always) Visible() bool { return true }
