package store

import (
	"context"

	"github.com/phrazzld/kanjigate/internal/domain"
)

// CardStore defines the command interface to the external flashcard store.
//
// The store owns card persistence and review scheduling; this interface only
// reads cards, creates missing ones and moves them between mastery states.
// Implementations return ErrUnavailable for transport failures,
// ErrMalformedResponse for responses of the wrong shape and ErrRejected when
// the store refuses a single command.
type CardStore interface {
	// FindUnannotated returns dependent cards whose dependency annotation has
	// not been computed yet. Only vocabulary notes carry a computable
	// annotation in the store, so these are vocabulary cards.
	FindUnannotated(ctx context.Context) ([]*domain.Card, error)

	// FindByState returns the cards in the given state, restricted to the
	// given tiers (all tiers when none are given).
	FindByState(ctx context.Context, state domain.MasteryState, tiers ...domain.Tier) ([]*domain.Card, error)

	// Exists reports whether a card with the natural key (identity, tier)
	// is already present.
	Exists(ctx context.Context, identity string, tier domain.Tier) (bool, error)

	// Create adds a new card. card.State must be set. The returned card carries
	// the store's note id.
	Create(ctx context.Context, card *domain.Card) (*domain.Card, error)

	// Annotate writes the dependency list of an existing card and, when state
	// is set, marks the card with it.
	Annotate(ctx context.Context, card *domain.Card, dependencies []string, state domain.MasteryState) error

	// Transition moves the notes of cards from one state to another.
	Transition(ctx context.Context, cards []*domain.Card, from, to domain.MasteryState) error

	// Intervals returns the current review interval, in days, of each card id.
	// Results correspond positionally to ids. Negative values are learning
	// steps in seconds.
	Intervals(ctx context.Context, cardIDs []int64) ([]int, error)

	// Suspend removes the cards from the study rotation.
	Suspend(ctx context.Context, cardIDs []int64) error

	// Unsuspend returns the cards to the study rotation.
	Unsuspend(ctx context.Context, cardIDs []int64) error

	// FindUnsuspendedLocked returns locked cards still in the study rotation.
	FindUnsuspendedLocked(ctx context.Context) ([]*domain.Card, error)
}
