// Package drag reschedules lessons in response to drag-and-drop gestures.
package drag

import (
	"fmt"
	"strings"
)

// State of the drag lifecycle.
type State string

const (
	StateIdle             State = "idle"
	StateDragging         State = "dragging"
	StateDroppedSame      State = "dropped_same"
	StateDroppedDifferent State = "dropped_different"
)

// FSM holds the allowed drag transitions.
type FSM struct {
	transitions map[State][]State
}

// NewFSM creates the drag state machine. Dragging may fall back to Idle when
// the gesture is cancelled outside any day cell.
func NewFSM() *FSM {
	return &FSM{
		transitions: map[State][]State{
			StateIdle:             {StateDragging},
			StateDragging:         {StateDroppedSame, StateDroppedDifferent, StateIdle},
			StateDroppedSame:      {StateIdle},
			StateDroppedDifferent: {StateIdle},
		},
	}
}

// CanTransition checks if transition is allowed.
func (f *FSM) CanTransition(from, to State) bool {
	for _, s := range f.transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition validates from -> to against the table and returns to.
func (f *FSM) Transition(from, to State) (State, error) {
	if !f.CanTransition(from, to) {
		return from, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return to, nil
}

// PeriodPolicy decides what happens to a lesson's period when the target day
// does not schedule it.
type PeriodPolicy string

const (
	// PolicyKeep leaves the period unchanged even if the new day lacks it.
	PolicyKeep PeriodPolicy = "keep"
	// PolicyClear drops the period so the lesson becomes unperiodized.
	PolicyClear PeriodPolicy = "clear"
	// PolicyNearest moves the lesson to the closest scheduled period.
	PolicyNearest PeriodPolicy = "nearest"
)

// ParsePeriodPolicy parses a policy name; empty means keep.
func ParsePeriodPolicy(s string) (PeriodPolicy, error) {
	switch p := PeriodPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyKeep, nil
	case PolicyKeep, PolicyClear, PolicyNearest:
		return p, nil
	default:
		return "", fmt.Errorf("unknown period policy %q", s)
	}
}
