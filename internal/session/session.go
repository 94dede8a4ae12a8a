// Package session holds the single mutable capture state shared by the
// front end, the capture state machine and the tracker status command.
package session

import (
	"errors"
	"fmt"

	"github.com/OCAP2/position-tracker/pkg/core"
)

// ErrInvalidTransition is returned for a transition the capture lifecycle does not allow.
var ErrInvalidTransition = errors.New("invalid capture state transition")

// CaptureState is the capture lifecycle phase.
type CaptureState int

const (
	Idle CaptureState = iota
	Capturing
	AwaitingInput
)

func (s CaptureState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Capturing:
		return "capturing"
	case AwaitingInput:
		return "awaiting_input"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Active reports whether a capture is in flight.
func (s CaptureState) Active() bool {
	return s == Capturing || s == AwaitingInput
}

var transitions = map[CaptureState][]CaptureState{
	Idle:          {Capturing},
	Capturing:     {AwaitingInput, Idle},
	AwaitingInput: {Idle},
}

// State is owned by the tracker and handed to each component at construction.
// It is not safe for concurrent use; callers run inside the dispatcher's
// serialized scheduling domain.
type State struct {
	capture     CaptureState
	snapshot    core.Snapshot
	menuVisible bool
}

// New returns an idle session with the menu hidden.
func New() *State {
	return &State{}
}

// Capture returns the current capture phase.
func (s *State) Capture() CaptureState {
	return s.capture
}

// Transition moves from one phase to another. It fails without changing
// anything if the session is not in from, or if from→to is not allowed.
func (s *State) Transition(from, to CaptureState) error {
	if s.capture != from {
		return fmt.Errorf("%w: in %s, expected %s", ErrInvalidTransition, s.capture, from)
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			s.capture = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// Snapshot returns the pending snapshot, zero when none is held.
func (s *State) Snapshot() core.Snapshot {
	return s.snapshot
}

// SetSnapshot replaces the pending snapshot.
func (s *State) SetSnapshot(snap core.Snapshot) {
	s.snapshot = snap
}

// ClearSnapshot drops the pending snapshot.
func (s *State) ClearSnapshot() {
	s.snapshot = core.Snapshot{}
}

// MenuVisible reports the menu visibility toggle.
func (s *State) MenuVisible() bool {
	return s.menuVisible
}

// SetMenuVisible sets the menu visibility toggle.
func (s *State) SetMenuVisible(v bool) {
	s.menuVisible = v
}
