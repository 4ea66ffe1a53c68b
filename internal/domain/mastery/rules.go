// Package mastery holds the pure rules of the mastery state machine: the
// initial state of a new card, promotion on review interval, unlocking on
// known dependencies, and the soundness check over a whole collection.
//
// Nothing here talks to the flashcard store. The service layer gathers the
// signals and applies the decisions.
package mastery

import (
	"errors"
	"fmt"

	"github.com/phrazzld/kanjigate/internal/domain"
)

// ErrIllegalTransition is returned when an event does not apply to a state.
var ErrIllegalTransition = errors.New("illegal mastery transition")

// Event drives a mastery transition.
type Event int

const (
	EventUnlock  Event = iota + 1 // locked -> new
	EventPromote                  // new -> known
)

// String returns the event name.
func (e Event) String() string {
	switch e {
	case EventUnlock:
		return "unlock"
	case EventPromote:
		return "promote"
	default:
		return fmt.Sprintf("Event(%d)", int(e))
	}
}

// Next returns the state reached from the given state by applying event.
// Only locked -> new on unlock and new -> known on promote are legal.
func Next(from domain.MasteryState, event Event) (domain.MasteryState, error) {
	switch {
	case from == domain.StateLocked && event == EventUnlock:
		return domain.StateNew, nil
	case from == domain.StateNew && event == EventPromote:
		return domain.StateKnown, nil
	default:
		return from, fmt.Errorf("%w: %s on %s", ErrIllegalTransition, event, from)
	}
}

// IsRegression reports whether moving from one state to another goes
// backwards in the locked -> new -> known lifecycle.
func IsRegression(from, to domain.MasteryState) bool {
	return from.IsSet() && to < from
}

// InitialState returns the state a freshly created card starts in.
// A known hint wins; otherwise dependent cards start locked and cards with no
// dependencies start new.
func InitialState(hasDependencies, knownHint bool) domain.MasteryState {
	switch {
	case knownHint:
		return domain.StateKnown
	case hasDependencies:
		return domain.StateLocked
	default:
		return domain.StateNew
	}
}

// CanPromote reports whether a note whose cards have the given intervals
// (in days) may be promoted from new to known. Every interval must reach the
// threshold; an empty interval list never promotes. Negative intervals are
// learning steps measured in seconds and are always below threshold.
func CanPromote(intervals []int, thresholdDays int) bool {
	if len(intervals) == 0 || thresholdDays <= 0 {
		return false
	}
	for _, ivl := range intervals {
		if ivl < thresholdDays {
			return false
		}
	}
	return true
}

// KnownSet is a snapshot of the identities currently in the known state.
type KnownSet map[string]struct{}

// NewKnownSet builds a snapshot from known cards. Cards without an identity
// are ignored.
func NewKnownSet(cards []*domain.Card) KnownSet {
	set := make(KnownSet, len(cards))
	for _, c := range cards {
		if c == nil || c.Identity == "" || c.State != domain.StateKnown {
			continue
		}
		set[c.Identity] = struct{}{}
	}
	return set
}

// Has reports whether identity is known.
func (k KnownSet) Has(identity string) bool {
	_, ok := k[identity]
	return ok
}

// Missing returns the dependencies not present in the known set, in order.
func (k KnownSet) Missing(deps []string) []string {
	var missing []string
	for _, d := range deps {
		if !k.Has(d) {
			missing = append(missing, d)
		}
	}
	return missing
}

// CanUnlock reports whether a locked card may move to new against the given
// known snapshot. A card whose dependency annotation could not be read stays
// locked. A card with no dependencies is always unlockable.
func CanUnlock(card *domain.Card, known KnownSet) bool {
	if card == nil || card.State != domain.StateLocked || !card.Annotated {
		return false
	}
	return len(known.Missing(card.Dependencies)) == 0
}
