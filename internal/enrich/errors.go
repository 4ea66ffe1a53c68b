package enrich

import "errors"

// Common errors returned by enrichers
var (
	// ErrNoResult is returned when a lookup finds nothing usable for the key.
	ErrNoResult = errors.New("no enrichment found")

	// ErrLookupFailed is returned when the lookup service answers with a
	// non-success status or cannot be reached.
	ErrLookupFailed = errors.New("enrichment lookup failed")

	// ErrInvalidResponse is returned when the service response cannot be parsed.
	ErrInvalidResponse = errors.New("invalid enrichment response")

	// ErrContentBlocked is returned when a language model refuses the prompt.
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrTransientFailure is returned for temporary errors that might resolve on retry
	ErrTransientFailure = errors.New("transient error during enrichment")

	// ErrInvalidConfig is returned when an enricher configuration is invalid
	ErrInvalidConfig = errors.New("invalid enricher configuration")
)
