package statemachine

import (
	"context"
	"sync"
)

// State is a named state in the machine.
type State string

// Event is a named trigger that may move one state to another.
type Event string

// Guard evaluates whether a transition should be allowed at runtime.
type Guard func(ctx context.Context, from State, event Event, data any) bool

type transition struct {
	to     State
	guards []Guard
}

// Machine is a stateless transition table.
// Lookup is O(1) on a nested [from][event] map; multiple transitions per
// state/event pair are allowed, with the first guard-passing one winning.
type Machine struct {
	mu          sync.RWMutex
	transitions map[State]map[Event][]transition
}

// New creates an empty machine.
func New() *Machine {
	return &Machine{
		transitions: make(map[State]map[Event][]transition),
	}
}

// AddTransition registers an allowed move. Guards are optional; all attached
// guards must pass for the transition to fire.
func (m *Machine) AddTransition(from, to State, event Event, guards ...Guard) error {
	if from == "" || to == "" || event == "" {
		return ErrInvalidTransition
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.transitions[from]; !ok {
		m.transitions[from] = make(map[Event][]transition)
	}
	m.transitions[from][event] = append(m.transitions[from][event], transition{to: to, guards: guards})
	return nil
}

// Next returns the state an event moves the given state to.
// Returns NoTransitionError when the pair is undefined and
// TransitionRejectedError when guards blocked every candidate.
func (m *Machine) Next(ctx context.Context, from State, event Event, data any) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	candidates, ok := m.transitions[from][event]
	if !ok || len(candidates) == 0 {
		return "", &NoTransitionError{State: string(from), Event: string(event)}
	}

	for _, t := range candidates {
		if guardsPass(ctx, t.guards, from, event, data) {
			return t.to, nil
		}
	}
	return "", &TransitionRejectedError{State: string(from), Event: string(event)}
}

// Can reports whether the event may fire from the given state.
func (m *Machine) Can(ctx context.Context, from State, event Event, data any) bool {
	_, err := m.Next(ctx, from, event, data)
	return err == nil
}

// CanReach reports whether any single event moves from one state to another.
// Guards are evaluated with the provided data.
func (m *Machine) CanReach(ctx context.Context, from, to State, data any) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for event, candidates := range m.transitions[from] {
		for _, t := range candidates {
			if t.to == to && guardsPass(ctx, t.guards, from, event, data) {
				return true
			}
		}
	}
	return false
}

func guardsPass(ctx context.Context, guards []Guard, from State, event Event, data any) bool {
	for _, g := range guards {
		if g != nil && !g(ctx, from, event, data) {
			return false
		}
	}
	return true
}
