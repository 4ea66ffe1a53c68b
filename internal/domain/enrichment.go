package domain

import (
	"fmt"
	"time"
)

// EnrichmentKind selects which lookup is performed for a key.
type EnrichmentKind string

// Supported enrichment kinds
const (
	// EnrichmentCharacter looks up a keyword and mnemonic for a glyph.
	EnrichmentCharacter EnrichmentKind = "character"

	// EnrichmentVocabulary looks up a dictionary description for an expression.
	EnrichmentVocabulary EnrichmentKind = "vocabulary"
)

// Validate checks that the kind is supported.
func (k EnrichmentKind) Validate() error {
	switch k {
	case EnrichmentCharacter, EnrichmentVocabulary:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidEnrichmentKind, string(k))
	}
}

// EnrichmentKindFor maps a card tier onto the lookup that enriches it.
func EnrichmentKindFor(tier Tier) EnrichmentKind {
	if tier == TierVocabulary {
		return EnrichmentVocabulary
	}
	return EnrichmentCharacter
}

// Enrichment is the human-readable text attached to a new card: a keyword and
// a mnemonic for characters, a description for vocabulary (stored in Text).
type Enrichment struct {
	Kind      EnrichmentKind `json:"kind"`
	Key       string         `json:"key"`
	Keyword   string         `json:"keyword"`
	Text      string         `json:"text"`
	Source    string         `json:"source"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// IsEmpty reports whether the enrichment carries no usable text.
func (e *Enrichment) IsEmpty() bool {
	return e == nil || (e.Keyword == "" && e.Text == "")
}
