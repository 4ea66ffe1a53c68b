package curriculum

import "errors"

var (
	// ErrMalformedTable is returned when a decomposition table cannot be parsed.
	ErrMalformedTable = errors.New("malformed decomposition table")

	// ErrMalformedTargets is returned when a target list cannot be parsed.
	ErrMalformedTargets = errors.New("malformed target list")

	// ErrMalformedExport is returned when a review export cannot be parsed.
	ErrMalformedExport = errors.New("malformed review export")

	// ErrMalformedVocabList is returned when a JLPT vocabulary list cannot be parsed.
	ErrMalformedVocabList = errors.New("malformed vocabulary list")
)
