package statemachine

import (
	"context"
	"fmt"
	"sort"
)

// GuardFunc evaluates whether a candidate transition should be allowed.
type GuardFunc func(ctx context.Context) bool

// Builder assembles a transition table and mints machine instances from it.
// The table is domain-agnostic: any State/Trigger strings the caller
// configures are legal, and Build'ing does not consume the builder.
type Builder interface {
	// Configure returns a configuration handle for the given source state.
	Configure(state State) StateConfiguration

	// Build creates a machine positioned at the given initial state.
	// It panics if the initial state was never configured as a source or
	// target, which indicates a programming error in the table.
	Build(initialState State) Machine
}

// StateConfiguration configures the outgoing transitions of one state.
type StateConfiguration interface {
	// Permit allows a trigger to transition to the target state.
	Permit(trigger Trigger, toState State) StateConfiguration

	// PermitIf allows the transition only when the guard passes at fire time.
	PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration
}

type transition struct {
	toState State
	guard   GuardFunc
}

type stateConfig struct {
	fromState   State
	transitions map[Trigger][]transition
}

type builder struct {
	configurations map[State]*stateConfig
	known          map[State]bool
}

// NewBuilder creates an empty transition-table builder.
func NewBuilder() Builder {
	return &builder{
		configurations: make(map[State]*stateConfig),
		known:          make(map[State]bool),
	}
}

func (b *builder) Configure(state State) StateConfiguration {
	b.known[state] = true

	config, exists := b.configurations[state]
	if !exists {
		config = &stateConfig{
			fromState:   state,
			transitions: make(map[Trigger][]transition),
		}
		b.configurations[state] = config
	}

	return &configHandle{builder: b, config: config}
}

func (b *builder) Build(initialState State) Machine {
	if !b.known[initialState] {
		panic(fmt.Sprintf("statemachine: initial state %q is not part of the configured table", initialState))
	}

	// Copy the table so machines stay valid if the builder is reconfigured.
	configsCopy := make(map[State]*stateConfig, len(b.configurations))
	for state, config := range b.configurations {
		transitionsCopy := make(map[Trigger][]transition, len(config.transitions))
		for trigger, ts := range config.transitions {
			transitionsCopy[trigger] = append([]transition(nil), ts...)
		}
		configsCopy[state] = &stateConfig{
			fromState:   state,
			transitions: transitionsCopy,
		}
	}

	return &machine{
		currentState:   initialState,
		configurations: configsCopy,
	}
}

type configHandle struct {
	builder *builder
	config  *stateConfig
}

func (h *configHandle) Permit(trigger Trigger, toState State) StateConfiguration {
	return h.PermitIf(trigger, toState, nil)
}

func (h *configHandle) PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration {
	h.builder.known[toState] = true
	h.config.transitions[trigger] = append(h.config.transitions[trigger], transition{
		toState: toState,
		guard:   guard,
	})
	return h
}

type machine struct {
	currentState   State
	configurations map[State]*stateConfig
}

func (m *machine) State() State {
	return m.currentState
}

func (m *machine) CanFire(trigger Trigger) bool {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return false
	}
	return len(config.transitions[trigger]) > 0
}

func (m *machine) Fire(ctx context.Context, trigger Trigger) error {
	config, exists := m.configurations[m.currentState]
	if !exists || len(config.transitions[trigger]) == 0 {
		return &TransitionError{
			From:    m.currentState,
			Trigger: trigger,
			Allowed: m.AllowedStates(),
		}
	}

	// Candidate transitions are tried in declaration order; the first one
	// whose guard passes wins.
	for _, t := range config.transitions[trigger] {
		if t.guard == nil || t.guard(ctx) {
			m.currentState = t.toState
			return nil
		}
	}

	return fmt.Errorf("%w: trigger %s from state %s", ErrGuardFailed, trigger, m.currentState)
}

func (m *machine) PermittedTriggers() []Trigger {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return []Trigger{}
	}

	triggers := make([]Trigger, 0, len(config.transitions))
	for trigger := range config.transitions {
		triggers = append(triggers, trigger)
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })
	return triggers
}

func (m *machine) AllowedStates() []State {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return []State{}
	}

	seen := make(map[State]bool)
	states := make([]State, 0)
	for _, ts := range config.transitions {
		for _, t := range ts {
			if !seen[t.toState] {
				seen[t.toState] = true
				states = append(states, t.toState)
			}
		}
	}
	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })
	return states
}
