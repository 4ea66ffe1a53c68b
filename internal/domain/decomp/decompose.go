// Package decomp splits text into script components and builds the
// prerequisite graph between characters and their sub-components.
//
// Everything in this package is a pure function of its inputs and the
// decomposition Table; nothing here talks to the flashcard store.
package decomp

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// IsScriptGlyph reports whether r belongs to the target logographic script.
func IsScriptGlyph(r rune) bool {
	return unicode.Is(unicode.Han, r)
}

// Normalize returns the NFC form of s with surrounding whitespace removed.
// Identities are always compared in this form.
func Normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Decompose extracts the script glyphs of text in order of first appearance.
// Kana, latin letters, punctuation and whitespace are dropped. Repeated glyphs
// are reported once.
func Decompose(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, r := range Normalize(text) {
		if !IsScriptGlyph(r) {
			continue
		}
		glyph := string(r)
		if _, dup := seen[glyph]; dup {
			continue
		}
		seen[glyph] = struct{}{}
		out = append(out, glyph)
	}
	return out
}

// IsSingleGlyph reports whether text consists of exactly one script glyph and
// nothing else.
func IsSingleGlyph(text string) bool {
	runes := []rune(Normalize(text))
	return len(runes) == 1 && IsScriptGlyph(runes[0])
}

// Table is the static component decomposition table. It is immutable once
// constructed and safe to share.
type Table struct {
	entries map[string][]string
}

// NewTable builds a Table from a component -> prerequisites mapping. Keys and
// values are normalized, blank entries dropped and duplicates removed while
// preserving order. The input map is not retained.
func NewTable(mapping map[string][]string) Table {
	entries := make(map[string][]string, len(mapping))
	for component, prereqs := range mapping {
		key := Normalize(component)
		if key == "" {
			continue
		}
		// Raw keys that normalize alike share one entry.
		for _, p := range prereqs {
			p = Normalize(p)
			if p == "" || slices.Contains(entries[key], p) {
				continue
			}
			entries[key] = append(entries[key], p)
		}
		if _, ok := entries[key]; !ok {
			entries[key] = []string{}
		}
	}
	return Table{entries: entries}
}

// Len returns the number of components in the table.
func (t Table) Len() int {
	return len(t.entries)
}

// Contains reports whether component has an entry in the table.
func (t Table) Contains(component string) bool {
	_, ok := t.entries[Normalize(component)]
	return ok
}

// Expand returns the prerequisites of component. A component absent from the
// table yields an empty result and is treated as terminal. The returned slice
// is a copy.
func (t Table) Expand(component string) []string {
	return slices.Clone(t.entries[Normalize(component)])
}
