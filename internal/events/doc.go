// Package events carries sync progress from the orchestrator to whoever
// is watching: the console, the log, tests.
//
// The orchestrator reports the start of each phase, the outcome of every
// item and a summary when the phase ends. Observers never influence the run.
package events
