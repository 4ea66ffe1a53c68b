package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/kanjigate/internal/domain"
	"github.com/phrazzld/kanjigate/internal/platform/logger"
	"github.com/phrazzld/kanjigate/internal/store"
)

// DefaultRecentLimit caps Recent when a non-positive limit is passed.
const DefaultRecentLimit = 20

// RunStore implements store.RunLedger.
type RunStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewRunStore creates a RunStore on db.
func NewRunStore(db *sql.DB, dialect Dialect) *RunStore {
	return &RunStore{db: db, dialect: dialect}
}

var _ store.RunLedger = (*RunStore)(nil)

// Start implements store.RunLedger.
func (s *RunStore) Start(ctx context.Context, run *domain.SyncRun) error {
	if run == nil {
		return store.NewStoreError("sync_run", "start", "run is nil", store.ErrInvalidEntity)
	}
	if err := run.Validate(); err != nil {
		return store.NewStoreError("sync_run", "start", "invalid run", fmt.Errorf("%w: %w", store.ErrInvalidEntity, err))
	}

	query := s.dialect.Rebind(`
		INSERT INTO sync_runs (id, started_at, status, error)
		VALUES (?, ?, ?, ?)
	`)
	if _, err := s.db.ExecContext(ctx, query,
		run.ID.String(), run.StartedAt.UTC(), string(run.Status), run.Error); err != nil {
		logger.FromContext(ctx).ErrorContext(ctx, "failed to record sync run start",
			slog.String("run_id", run.ID.String()),
			slog.String("error", err.Error()))
		return store.NewStoreError("sync_run", "start", "failed to insert run", MapError(err))
	}
	return nil
}

// Finish implements store.RunLedger. The run row and its phase rows are
// written in one transaction.
func (s *RunStore) Finish(ctx context.Context, run *domain.SyncRun) error {
	if run == nil {
		return store.NewStoreError("sync_run", "finish", "run is nil", store.ErrInvalidEntity)
	}

	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.dialect.Rebind(`
			UPDATE sync_runs
			SET finished_at = ?, status = ?, error = ?
			WHERE id = ?
		`), nullTime(run), string(run.Status), run.Error, run.ID.String())
		if err != nil {
			return store.NewStoreError("sync_run", "finish", "failed to update run", MapError(err))
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return store.NewStoreError("sync_run", "finish", "failed to get rows affected", err)
		}
		if affected == 0 {
			return store.ErrSyncRunNotFound
		}

		if _, err := tx.ExecContext(ctx, s.dialect.Rebind(
			`DELETE FROM sync_run_phases WHERE run_id = ?`), run.ID.String()); err != nil {
			return store.NewStoreError("sync_run", "finish", "failed to clear phases", MapError(err))
		}

		insert := s.dialect.Rebind(`
			INSERT INTO sync_run_phases (run_id, position, phase, processed, changed, skipped, failed)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		for i, p := range run.Phases {
			if _, err := tx.ExecContext(ctx, insert,
				run.ID.String(), i, p.Phase, p.Processed, p.Changed, p.Skipped, p.Failed); err != nil {
				return store.NewStoreError("sync_run", "finish", "failed to insert phase "+p.Phase, MapError(err))
			}
		}
		return nil
	})
}

// Recent implements store.RunLedger.
func (s *RunStore) Recent(ctx context.Context, limit int) ([]*domain.SyncRun, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(`
		SELECT id, started_at, finished_at, status, error
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, store.NewStoreError("sync_run", "recent", "failed to query runs", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var runs []*domain.SyncRun
	for rows.Next() {
		var (
			id       string
			status   string
			finished sql.NullTime
			run      domain.SyncRun
		)
		if err := rows.Scan(&id, &run.StartedAt, &finished, &status, &run.Error); err != nil {
			return nil, store.NewStoreError("sync_run", "recent", "failed to scan run", err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, store.NewStoreError("sync_run", "recent", "invalid run id", fmt.Errorf("%w: %w", store.ErrInvalidEntity, err))
		}
		run.ID = parsed
		run.Status = domain.SyncRunStatus(status)
		if finished.Valid {
			run.FinishedAt = finished.Time
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("sync_run", "recent", "failed to iterate runs", err)
	}
	// Phases are read after the run cursor is closed; SQLite runs with a
	// single connection.
	_ = rows.Close()

	for _, run := range runs {
		phases, err := s.phases(ctx, run.ID)
		if err != nil {
			return nil, err
		}
		run.Phases = phases
	}
	return runs, nil
}

func (s *RunStore) phases(ctx context.Context, runID uuid.UUID) ([]domain.PhaseCounts, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(`
		SELECT phase, processed, changed, skipped, failed
		FROM sync_run_phases
		WHERE run_id = ?
		ORDER BY position
	`), runID.String())
	if err != nil {
		return nil, store.NewStoreError("sync_run", "recent", "failed to query phases", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var phases []domain.PhaseCounts
	for rows.Next() {
		var p domain.PhaseCounts
		if err := rows.Scan(&p.Phase, &p.Processed, &p.Changed, &p.Skipped, &p.Failed); err != nil {
			return nil, store.NewStoreError("sync_run", "recent", "failed to scan phase", err)
		}
		phases = append(phases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("sync_run", "recent", "failed to iterate phases", err)
	}
	return phases, nil
}

func nullTime(run *domain.SyncRun) sql.NullTime {
	if run.FinishedAt.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: run.FinishedAt.UTC(), Valid: true}
}
