// Package anki implements store.CardStore on top of AnkiConnect.
//
// It is the only place that knows how tiers map onto Anki note types, how
// mastery states are encoded as tags and how dependency lists are written
// into note fields.
package anki
