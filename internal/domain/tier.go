package domain

import (
	"encoding"
	"fmt"
)

// Tier places a card in the prerequisite hierarchy.
// Vocabulary depends on characters, characters depend on sub-components.
type Tier int

const (
	TierVocabulary   Tier = iota + 1 // Word or expression.
	TierCharacter                    // Character with known sub-components.
	TierSubcomponent                 // Leaf: radical or undecomposable character.
)

var (
	tierNames = [...]string{
		TierVocabulary:   "vocabulary",
		TierCharacter:    "character",
		TierSubcomponent: "subcomponent",
	}
	tierByName = map[string]Tier{
		"vocabulary":   TierVocabulary,
		"character":    TierCharacter,
		"subcomponent": TierSubcomponent,
	}
)

// Compile-time interface checks.
var (
	_ fmt.Stringer             = Tier(0)
	_ encoding.TextMarshaler   = Tier(0)
	_ encoding.TextUnmarshaler = (*Tier)(nil)
)

// IsValid reports whether t is one of the defined tiers.
func (t Tier) IsValid() bool {
	return t >= TierVocabulary && t <= TierSubcomponent
}

// String returns the lower-case tier name, or "Tier(n)" for invalid values.
func (t Tier) String() string {
	if t.IsValid() {
		return tierNames[t]
	}
	return fmt.Sprintf("Tier(%d)", int(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t Tier) MarshalText() ([]byte, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTier, int(t))
	}
	return []byte(tierNames[t]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tier) UnmarshalText(text []byte) error {
	v, err := ParseTier(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ParseTier converts a tier name into a Tier.
func ParseTier(name string) (Tier, error) {
	v, ok := tierByName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTier, name)
	}
	return v, nil
}

// Tiers returns all tiers from the top of the hierarchy to the bottom.
func Tiers() []Tier {
	return []Tier{TierVocabulary, TierCharacter, TierSubcomponent}
}
