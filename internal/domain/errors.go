// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidFormat is returned when data is not in the expected format.
	ErrInvalidFormat = errors.New("invalid format")

	// ErrEmptyContent is returned when required content is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidTier is returned when a tier value is not one of the known tiers.
	ErrInvalidTier = errors.New("invalid tier")

	// ErrInvalidMasteryState is returned when a mastery state value is unknown.
	ErrInvalidMasteryState = errors.New("invalid mastery state")

	// ErrInvalidEnrichmentKind is returned when an enrichment kind is unknown.
	ErrInvalidEnrichmentKind = errors.New("invalid enrichment kind")
)
