package ankiconnect

import "strings"

// Query is an Anki search expression.
type Query string

// String returns the search text.
func (q Query) String() string { return string(q) }

var searchEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, `*`, `\*`, `_`, `\_`)

func quote(s string) string {
	return `"` + searchEscaper.Replace(s) + `"`
}

// Tag matches notes carrying tag.
func Tag(tag string) Query {
	return Query(quote("tag:" + tag))
}

// NoteType matches notes of the given note type.
func NoteType(model string) Query {
	return Query(quote("note:" + model))
}

// Deck matches cards in the given deck.
func Deck(name string) Query {
	return Query(quote("deck:" + name))
}

// Field matches notes whose field equals value exactly.
func Field(name, value string) Query {
	return Query(quote(name + ":" + value))
}

// FieldEmpty matches notes whose field is empty.
func FieldEmpty(name string) Query {
	return Query(quote(name + ":"))
}

// Suspended matches suspended cards.
func Suspended() Query {
	return "is:suspended"
}

// Not negates q.
func Not(q Query) Query {
	return Query("-" + group(q))
}

// And matches when every query matches. Empty queries are skipped.
func And(qs ...Query) Query {
	return join(qs, " ")
}

// Or matches when any query matches. Empty queries are skipped.
func Or(qs ...Query) Query {
	q := join(qs, " OR ")
	if strings.Contains(string(q), " OR ") {
		return Query("(" + string(q) + ")")
	}
	return q
}

func join(qs []Query, sep string) Query {
	parts := make([]string, 0, len(qs))
	for _, q := range qs {
		if q == "" {
			continue
		}
		parts = append(parts, string(group(q)))
	}
	return Query(strings.Join(parts, sep))
}

// group wraps compound queries in parentheses. Quoted atoms and already
// grouped queries are returned as is.
func group(q Query) Query {
	s := string(q)
	if !strings.ContainsRune(s, ' ') || isQuotedAtom(s) || isGrouped(s) {
		return q
	}
	return Query("(" + s + ")")
}

func isQuotedAtom(s string) bool {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return false
	}
	inner := s[1 : len(s)-1]
	for i := 0; i < len(inner); i++ {
		switch inner[i] {
		case '\\':
			i++
		case '"':
			return false
		}
	}
	return true
}

func isGrouped(s string) bool {
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return false
	}
	depth := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(s)-1 {
				return false
			}
		}
	}
	return true
}
