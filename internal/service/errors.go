package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/phrazzld/kanjigate/internal/events"
	"github.com/phrazzld/kanjigate/internal/store"
)

// ErrInconsistentCard is reported for a locked card whose stored dependency
// list disagrees with its decomposition. The card stays locked.
var ErrInconsistentCard = errors.New("card dependencies do not match its decomposition")

// PhaseError reports the phase in which a run was aborted.
type PhaseError struct {
	Phase events.Phase
	Err   error
}

// Error implements the error interface for PhaseError.
func (e *PhaseError) Error() string {
	return fmt.Sprintf("sync aborted in %s phase: %v", e.Phase, e.Err)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *PhaseError) Unwrap() error {
	return e.Err
}

// isFatal reports whether err must stop the whole run: the store is gone or
// the caller gave up.
func isFatal(err error) bool {
	return store.IsFatal(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
