package domain

// Component is an atomic unit of the writing system: a character or one of
// its sub-parts. Keyword and Mnemonic are filled lazily when the component is
// first materialized as a card.
type Component struct {
	Identity      string   `json:"identity"`
	Prerequisites []string `json:"prerequisites,omitempty"`
	Keyword       string   `json:"keyword,omitempty"`
	Mnemonic      string   `json:"mnemonic,omitempty"`
}

// IsTerminal reports whether the component has no further decomposition.
func (c Component) IsTerminal() bool {
	return len(c.Prerequisites) == 0
}

// Target is a curriculum entry that must exist in the collection, either a
// vocabulary expression or a single character. Known carries a mastery hint
// from an external source (for example a review history export).
type Target struct {
	Text  string `json:"text" yaml:"text"`
	Tier  Tier   `json:"tier" yaml:"tier"`
	Known bool   `json:"known,omitempty" yaml:"known,omitempty"`
}
