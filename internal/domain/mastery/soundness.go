package mastery

import (
	"sort"

	"github.com/phrazzld/kanjigate/internal/domain"
)

// Violation is a known card with at least one dependency that is not known.
type Violation struct {
	Card    domain.CardKey
	Missing []string
}

// CheckSoundness returns every known card in cards whose dependencies are not
// all known. Dependencies resolve against the character and sub-component
// tiers. The result is sorted by card key.
func CheckSoundness(cards []*domain.Card) []Violation {
	var components []*domain.Card
	for _, c := range cards {
		if c != nil && c.Tier != domain.TierVocabulary {
			components = append(components, c)
		}
	}
	known := NewKnownSet(components)

	var out []Violation
	for _, c := range cards {
		if c == nil || c.State != domain.StateKnown {
			continue
		}
		if missing := known.Missing(c.Dependencies); len(missing) > 0 {
			out = append(out, Violation{Card: c.Key(), Missing: missing})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Card.String() < out[j].Card.String() })
	return out
}
