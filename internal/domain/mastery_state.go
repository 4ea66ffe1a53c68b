package domain

import (
	"encoding"
	"fmt"
)

// MasteryState is the study bucket of a card.
//
// States only advance: StateLocked -> StateNew -> StateKnown. StateUnset marks a
// card read from the store that carries no mastery marker yet; it never counts
// as known.
type MasteryState int

const (
	StateUnset  MasteryState = iota // No mastery marker on the card.
	StateLocked                     // Hidden until every dependency is known.
	StateNew                        // Visible and studiable.
	StateKnown                      // Mastered; satisfies dependents.
)

var (
	stateNames = [...]string{
		StateUnset:  "unset",
		StateLocked: "locked",
		StateNew:    "new",
		StateKnown:  "known",
	}
	stateByName = map[string]MasteryState{
		"locked": StateLocked,
		"new":    StateNew,
		"known":  StateKnown,
	}
)

// Compile-time interface checks.
var (
	_ fmt.Stringer             = MasteryState(0)
	_ encoding.TextMarshaler   = MasteryState(0)
	_ encoding.TextUnmarshaler = (*MasteryState)(nil)
)

func (s MasteryState) isValid() bool {
	return s >= StateUnset && s <= StateKnown
}

// IsSet reports whether s is one of locked, new or known.
func (s MasteryState) IsSet() bool {
	return s >= StateLocked && s <= StateKnown
}

// String returns the state name ("locked", "new", "known", "unset").
func (s MasteryState) String() string {
	if s.isValid() {
		return stateNames[s]
	}
	return fmt.Sprintf("MasteryState(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s MasteryState) MarshalText() ([]byte, error) {
	if !s.isValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMasteryState, int(s))
	}
	return []byte(stateNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *MasteryState) UnmarshalText(text []byte) error {
	if string(text) == stateNames[StateUnset] {
		*s = StateUnset
		return nil
	}
	v, err := ParseMasteryState(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseMasteryState converts "locked", "new" or "known" into a MasteryState.
func ParseMasteryState(name string) (MasteryState, error) {
	v, ok := stateByName[name]
	if !ok {
		return StateUnset, fmt.Errorf("%w: %q", ErrInvalidMasteryState, name)
	}
	return v, nil
}

// MasteryStates returns the settable states in lifecycle order.
func MasteryStates() []MasteryState {
	return []MasteryState{StateLocked, StateNew, StateKnown}
}
