package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// SyncRunStatus is the lifecycle status of a recorded sync run.
type SyncRunStatus string

// Possible sync run statuses
const (
	SyncRunRunning   SyncRunStatus = "running"
	SyncRunCompleted SyncRunStatus = "completed"
	SyncRunFailed    SyncRunStatus = "failed"
)

// ErrSyncRunIDEmpty is returned when a sync run has no ID.
var ErrSyncRunIDEmpty = errors.New("sync run ID cannot be empty")

// PhaseCounts are the per-phase counters persisted for a run.
type PhaseCounts struct {
	Phase     string `json:"phase"`
	Processed int    `json:"processed"`
	Changed   int    `json:"changed"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}

// SyncRun records one invocation of the sync orchestrator.
type SyncRun struct {
	ID         uuid.UUID     `json:"id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Status     SyncRunStatus `json:"status"`
	Error      string        `json:"error,omitempty"`
	Phases     []PhaseCounts `json:"phases,omitempty"`
}

// NewSyncRun creates a running sync run started at now.
func NewSyncRun(now time.Time) *SyncRun {
	return &SyncRun{
		ID:        uuid.New(),
		StartedAt: now.UTC(),
		Status:    SyncRunRunning,
	}
}

// Validate checks if the SyncRun has valid data.
func (r *SyncRun) Validate() error {
	if r.ID == uuid.Nil {
		return ErrSyncRunIDEmpty
	}
	switch r.Status {
	case SyncRunRunning, SyncRunCompleted, SyncRunFailed:
		return nil
	default:
		return ErrValidation
	}
}

// Finish marks the run as completed, or failed when runErr is non-nil.
func (r *SyncRun) Finish(now time.Time, phases []PhaseCounts, runErr error) {
	r.FinishedAt = now.UTC()
	r.Phases = phases
	if runErr != nil {
		r.Status = SyncRunFailed
		r.Error = runErr.Error()
		return
	}
	r.Status = SyncRunCompleted
}

// Duration returns how long the run took, or zero while it is running.
func (r *SyncRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
