package statemachine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when a transition definition is incomplete.
	ErrInvalidTransition = errors.New("statemachine: from, to, and event must be non-empty")
)

// NoTransitionError indicates no transition exists for the given state/event pair.
type NoTransitionError struct {
	State string
	Event string
}

func (e *NoTransitionError) Error() string {
	return fmt.Sprintf("no transition from state %q for event %q", e.State, e.Event)
}

// TransitionRejectedError indicates every candidate transition was blocked by a guard.
type TransitionRejectedError struct {
	State string
	Event string
}

func (e *TransitionRejectedError) Error() string {
	return fmt.Sprintf("transition from state %q for event %q rejected by guard", e.State, e.Event)
}

func IsNoTransitionError(err error) bool {
	var e *NoTransitionError
	return errors.As(err, &e)
}

func IsTransitionRejectedError(err error) bool {
	var e *TransitionRejectedError
	return errors.As(err, &e)
}
