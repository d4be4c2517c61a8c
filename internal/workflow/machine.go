// Package workflow holds the state machines that gate distributions and
// project listings. A Machine is a static transition table: a state change
// is legal only if the table names it, and terminal states accept nothing.
package workflow

import (
	"fmt"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/apperrors"
)

// Machine is a transition table over states S driven by events E.
// It is immutable after construction and safe for concurrent use.
type Machine[S ~string, E ~string] struct {
	name        string
	transitions map[S]map[E]S
	terminal    map[S]bool
}

// Transition is one row of a transition table.
type Transition[S ~string, E ~string] struct {
	From  S
	Event E
	To    S
}

// NewMachine builds a machine from its transition rows and terminal states.
// It panics if a row leaves a terminal state, since that table can never be valid.
func NewMachine[S ~string, E ~string](name string, rows []Transition[S, E], terminal ...S) *Machine[S, E] {
	m := &Machine[S, E]{
		name:        name,
		transitions: make(map[S]map[E]S),
		terminal:    make(map[S]bool, len(terminal)),
	}
	for _, s := range terminal {
		m.terminal[s] = true
	}
	for _, r := range rows {
		if m.terminal[r.From] {
			panic(fmt.Sprintf("workflow %s: transition out of terminal state %s", name, r.From))
		}
		if m.transitions[r.From] == nil {
			m.transitions[r.From] = make(map[E]S)
		}
		m.transitions[r.From][r.Event] = r.To
	}
	return m
}

// Next returns the state reached by applying event in state from.
// Illegal moves return an error wrapping apperrors.ErrInvalidTransition.
func (m *Machine[S, E]) Next(from S, event E) (S, error) {
	if to, ok := m.transitions[from][event]; ok {
		return to, nil
	}
	return from, fmt.Errorf("%w: %s cannot %s while %s", apperrors.ErrInvalidTransition, m.name, event, from)
}

// Can reports whether event is legal in state from.
func (m *Machine[S, E]) Can(from S, event E) bool {
	_, ok := m.transitions[from][event]
	return ok
}

// IsTerminal reports whether s accepts no further events.
func (m *Machine[S, E]) IsTerminal(s S) bool {
	return m.terminal[s]
}
