// Package enrich defines the boundary between card creation and the
// external services that supply human-readable text for a card: a keyword
// and mnemonic for characters, a dictionary description for vocabulary.
//
// Enrichment is best-effort. Callers treat every error as "no text" and
// carry on.
package enrich
