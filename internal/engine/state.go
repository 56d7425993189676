package engine

import (
	"errors"
	"fmt"
)

// State is the lifecycle position of the current activity.
type State int

const (
	Uninitialized State = iota
	Created
	InProgress
	Paused
	Stopped
	Orphaned
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Created:
		return "created"
	case InProgress:
		return "in_progress"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	case Orphaned:
		return "orphaned"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Started reports whether readings are accepted in this state.
func (s State) Started() bool { return s == InProgress || s == Paused }

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

var (
	// ErrInvalidState is returned when an operation is not allowed in the
	// current state. Nothing is mutated.
	ErrInvalidState = errors.New("invalid activity state")

	// ErrStorage wraps persistence failures. In-memory state stays intact
	// and the engine keeps accepting readings.
	ErrStorage = errors.New("activity storage failure")
)

func invalidState(op string, s State) error {
	return fmt.Errorf("%s: %w: activity is %s", op, ErrInvalidState, s)
}

func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
