// Package mocks provides shared test doubles.
//
// MemoryCardStore is an in-memory flashcard store that behaves like the
// AnkiConnect adapter: lowest-state-wins tagging, natural-key duplicate
// rejection, per-card suspension and review intervals. Faults can be
// injected per operation and per card.
//
// MockEnricher is a function-field mock of enrich.Enricher:
//
//	e := &mocks.MockEnricher{
//	    Results: map[string]*domain.Enrichment{"語": {Keyword: "language"}},
//	}
package mocks
