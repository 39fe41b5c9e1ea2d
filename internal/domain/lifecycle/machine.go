// Package lifecycle drives an expense through its approval and payment
// phases. Transitions are declared through a builder; the configured machine
// validates each trigger against the current state and any guard conditions.
package lifecycle

import (
	"context"
	"fmt"
	"sort"
)

// GuardFunc decides whether a candidate transition may fire.
type GuardFunc func(ctx context.Context) bool

// Machine tracks the current state and validates transitions.
type Machine struct {
	current     State
	transitions map[State]map[Trigger][]transition
}

type transition struct {
	to    State
	guard GuardFunc
}

// Builder accumulates transition declarations before a machine is built.
type Builder struct {
	transitions map[State]map[Trigger][]transition
}

// NewBuilder creates an empty state machine builder.
func NewBuilder() *Builder {
	return &Builder{transitions: make(map[State]map[Trigger][]transition)}
}

// StateConfig declares transitions out of a single state.
type StateConfig struct {
	builder *Builder
	from    State
}

// Configure returns the transition configuration for the given state.
func (b *Builder) Configure(state State) *StateConfig {
	if !state.IsValid() {
		panic(fmt.Sprintf("lifecycle: invalid state %q", state))
	}
	if _, ok := b.transitions[state]; !ok {
		b.transitions[state] = make(map[Trigger][]transition)
	}
	return &StateConfig{builder: b, from: state}
}

// Permit allows trigger to move from this state to the target state.
func (c *StateConfig) Permit(trigger Trigger, to State) *StateConfig {
	return c.PermitIf(trigger, to, nil)
}

// PermitIf allows the transition only when the guard passes. Multiple
// transitions for the same trigger are tried in declaration order.
func (c *StateConfig) PermitIf(trigger Trigger, to State, guard GuardFunc) *StateConfig {
	if !to.IsValid() {
		panic(fmt.Sprintf("lifecycle: invalid target state %q", to))
	}
	c.builder.transitions[c.from][trigger] = append(c.builder.transitions[c.from][trigger], transition{to: to, guard: guard})
	return c
}

// Build creates a machine in the given initial state. The builder's
// configuration is copied so later builder mutation cannot affect it.
func (b *Builder) Build(initial State) *Machine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("lifecycle: invalid initial state %q", initial))
	}

	copied := make(map[State]map[Trigger][]transition, len(b.transitions))
	for state, byTrigger := range b.transitions {
		inner := make(map[Trigger][]transition, len(byTrigger))
		for trigger, ts := range byTrigger {
			inner[trigger] = append([]transition(nil), ts...)
		}
		copied[state] = inner
	}

	return &Machine{current: initial, transitions: copied}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.current
}

// CanFire reports whether at least one transition is declared for the
// trigger in the current state. Guards are not evaluated here.
func (m *Machine) CanFire(trigger Trigger) bool {
	return len(m.transitions[m.current][trigger]) > 0
}

// Fire executes the trigger, moving to the first declared target whose guard
// passes. Returns ErrInvalidTransition if the trigger is not declared for
// the current state, or ErrGuardFailed if all guards reject it.
func (m *Machine) Fire(ctx context.Context, trigger Trigger) error {
	candidates := m.transitions[m.current][trigger]
	if len(candidates) == 0 {
		return fmt.Errorf("%w: trigger %s from state %s", ErrInvalidTransition, trigger, m.current)
	}

	for _, t := range candidates {
		if t.guard == nil || t.guard(ctx) {
			m.current = t.to
			return nil
		}
	}

	return fmt.Errorf("%w: trigger %s from state %s", ErrGuardFailed, trigger, m.current)
}

// PermittedTriggers returns the triggers declared for the current state,
// sorted for deterministic output.
func (m *Machine) PermittedTriggers() []Trigger {
	byTrigger := m.transitions[m.current]
	triggers := make([]Trigger, 0, len(byTrigger))
	for trigger := range byTrigger {
		triggers = append(triggers, trigger)
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })
	return triggers
}
