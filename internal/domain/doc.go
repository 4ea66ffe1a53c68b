// Package domain contains the core entities of the kanji curriculum: cards and
// their tiers, mastery states, decomposition components, enrichment records and
// sync run bookkeeping. It is independent of the flashcard store, the
// enrichment services and any persistence details.
package domain
