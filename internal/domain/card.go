package domain

import (
	"errors"
	"fmt"
	"slices"
)

// Card-specific validation errors
var (
	// ErrCardIdentityEmpty is returned when a card has no natural key.
	ErrCardIdentityEmpty = errors.New("card identity cannot be empty")

	// ErrCardSelfDependency is returned when a card lists itself as a dependency.
	ErrCardSelfDependency = errors.New("card cannot depend on itself")

	// ErrCardLeafDependencies is returned when a sub-component card declares dependencies.
	ErrCardLeafDependencies = errors.New("sub-component card cannot have dependencies")
)

// Card is one study item in the flashcard store: a vocabulary expression, a
// character or a sub-component.
//
// Identity is the natural key (expression text or glyph) and is unique per tier.
// Dependencies are the identities of the cards this one is gated on; they are
// a pure function of the identity and the decomposition table.
type Card struct {
	// NoteID is the store's note identifier; zero until the card is created.
	NoteID int64 `json:"note_id,omitempty"`

	// CardIDs are the store's per-template card identifiers for the note.
	CardIDs []int64 `json:"card_ids,omitempty"`

	Identity     string       `json:"identity"`
	Tier         Tier         `json:"tier"`
	State        MasteryState `json:"state"`
	Dependencies []string     `json:"dependencies,omitempty"`

	// Annotated is false when the store copy of the card lacks a readable
	// dependency annotation. Such cards are never unlocked.
	Annotated bool `json:"annotated"`

	// Reading is the kana reading of a vocabulary card, when the store has one.
	Reading string `json:"reading,omitempty"`

	Keyword string `json:"keyword,omitempty"`
	Text    string `json:"text,omitempty"`
}

// NewCard creates a validated card for the given identity and tier.
// Dependencies are copied, so later changes by the caller do not leak in.
func NewCard(identity string, tier Tier, dependencies []string) (*Card, error) {
	card := &Card{
		Identity:     identity,
		Tier:         tier,
		State:        StateUnset,
		Dependencies: slices.Clone(dependencies),
		Annotated:    true,
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}

// Validate checks if the Card has valid data.
// Returns an error if any field fails validation.
func (c *Card) Validate() error {
	if c.Identity == "" {
		return ErrCardIdentityEmpty
	}

	if !c.Tier.IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidTier, int(c.Tier))
	}

	if c.Tier == TierSubcomponent && len(c.Dependencies) > 0 {
		return ErrCardLeafDependencies
	}

	// A one-glyph word depends on the character of the same spelling in
	// the tier below, which is not a self reference.
	if c.Tier != TierVocabulary && slices.Contains(c.Dependencies, c.Identity) {
		return ErrCardSelfDependency
	}

	return nil
}

// HasDependencies reports whether the card is gated on other cards.
func (c *Card) HasDependencies() bool {
	return len(c.Dependencies) > 0
}

// Key returns the natural key of the card within its tier.
func (c *Card) Key() CardKey {
	return CardKey{Identity: c.Identity, Tier: c.Tier}
}

// CardKey is the (identity, tier) pair that identifies a card uniquely.
type CardKey struct {
	Identity string
	Tier     Tier
}

// String renders the key as "tier:identity".
func (k CardKey) String() string {
	return k.Tier.String() + ":" + k.Identity
}
