// Package store defines interfaces for data persistence operations: the
// external flashcard store the sync engine drives, and the local SQL store
// that caches enrichment lookups and records sync runs.
//
// These interfaces keep the mastery rules independent of AnkiConnect and of
// the SQL backend in use.
package store
