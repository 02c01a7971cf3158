package statemachine

import "context"

// State is a status value of a gated business object.
type State string

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// Trigger is an event that can cause a state transition.
type Trigger string

// String returns the string representation of the trigger.
func (t Trigger) String() string {
	return string(t)
}

// Machine tracks a current state and validates transitions against an
// explicit transition table.
type Machine interface {
	// State returns the current state.
	State() State

	// CanFire returns true if the trigger is permitted in the current state.
	CanFire(trigger Trigger) bool

	// Fire attempts to execute the trigger, transitioning to the new state
	// if the table allows it. On refusal it returns a *TransitionError
	// carrying the allowed target states.
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers returns all triggers that can fire from the current state.
	PermittedTriggers() []Trigger

	// AllowedStates returns every state reachable from the current state,
	// across all triggers. Terminal states return an empty slice.
	AllowedStates() []State
}
