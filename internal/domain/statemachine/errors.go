package statemachine

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidTransition is returned when a state transition is not in the table.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrGuardFailed is returned when every candidate transition's guard refuses.
	ErrGuardFailed = errors.New("guard condition failed")
)

// TransitionError reports a refused transition together with the full set of
// states the table allows from the current state, so callers can surface
// "tried X, allowed are [Y Z]" without re-reading the table.
type TransitionError struct {
	From    State
	Trigger Trigger
	Allowed []State
}

func (e *TransitionError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = s.String()
	}
	return fmt.Sprintf("invalid state transition: trigger %s from state %s (allowed next states: [%s])",
		e.Trigger, e.From, strings.Join(allowed, " "))
}

// Unwrap lets errors.Is match ErrInvalidTransition.
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
