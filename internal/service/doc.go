// Package service implements the curriculum synchronizer on top of the card
// store: creating missing cards, moving cards between mastery states and
// running the full sync in a fixed phase order.
//
// Everything runs on the caller's goroutine with one blocking store call at
// a time. Every phase is idempotent; a run that stops part way is recovered
// by running again.
package service
