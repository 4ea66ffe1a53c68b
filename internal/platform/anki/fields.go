package anki

import (
	"slices"
	"strings"
	"unicode"

	"github.com/phrazzld/kanjigate/internal/domain/decomp"
)

// dependencySeparator is used when writing dependency fields.
const dependencySeparator = ", "

// ParseDependencies splits a dependency field on commas, ideographic commas
// and whitespace. Entries are normalized and deduplicated in order.
func ParseDependencies(value string) []string {
	parts := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == '、' || unicode.IsSpace(r)
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = decomp.Normalize(p)
		if p == "" || slices.Contains(out, p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// FormatDependencies renders a dependency list for a note field.
func FormatDependencies(deps []string) string {
	return strings.Join(deps, dependencySeparator)
}
