// Package workflow defines the status state machines for posts and jobs.
//
// Every status change in the system goes through a Machine, whether it is
// triggered by a dashboard action or reported back by the external automation.
package workflow

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidTransition is matched by every *TransitionError.
var ErrInvalidTransition = errors.New("invalid status transition")

// TransitionError reports an event that is not allowed from the current state.
type TransitionError struct {
	Machine string
	From    string
	Event   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot apply %q while status is %q", e.Machine, e.Event, e.From)
}

// Is reports whether target is ErrInvalidTransition.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// Transition is a single row of a transition table.
type Transition[S ~string, E ~string] struct {
	From  S
	Event E
	To    S
}

// Machine is a transition table keyed by (state, event).
type Machine[S ~string, E ~string] struct {
	name  string
	table map[S]map[E]S
}

// NewMachine builds a machine from its transition rows.
// Later rows for the same (state, event) pair replace earlier ones.
func NewMachine[S ~string, E ~string](name string, rows []Transition[S, E]) *Machine[S, E] {
	m := &Machine[S, E]{
		name:  name,
		table: make(map[S]map[E]S),
	}
	for _, row := range rows {
		if m.table[row.From] == nil {
			m.table[row.From] = make(map[E]S)
		}
		m.table[row.From][row.Event] = row.To
	}
	return m
}

// Next returns the state reached by applying event in state from.
func (m *Machine[S, E]) Next(from S, event E) (S, error) {
	if to, ok := m.table[from][event]; ok {
		return to, nil
	}
	var zero S
	return zero, &TransitionError{Machine: m.name, From: string(from), Event: string(event)}
}

// Can reports whether event is allowed in state from.
func (m *Machine[S, E]) Can(from S, event E) bool {
	_, ok := m.table[from][event]
	return ok
}

// Events lists the events allowed in state from, sorted by name.
func (m *Machine[S, E]) Events(from S) []E {
	events := make([]E, 0, len(m.table[from]))
	for event := range m.table[from] {
		events = append(events, event)
	}
	sort.Slice(events, func(i, j int) bool { return events[i] < events[j] })
	return events
}

// Terminal reports whether no event leaves state s.
func (m *Machine[S, E]) Terminal(s S) bool {
	return len(m.table[s]) == 0
}
