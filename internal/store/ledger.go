package store

import (
	"context"

	"github.com/phrazzld/kanjigate/internal/domain"
)

// RunLedger records sync runs and their per-phase counters.
type RunLedger interface {
	// Start records a run in the running state.
	Start(ctx context.Context, run *domain.SyncRun) error

	// Finish records the final status and phase counters of a started run.
	// Returns ErrSyncRunNotFound if the run was never started.
	Finish(ctx context.Context, run *domain.SyncRun) error

	// Recent returns up to limit runs, newest first.
	Recent(ctx context.Context, limit int) ([]*domain.SyncRun, error)
}
