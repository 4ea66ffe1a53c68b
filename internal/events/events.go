package events

import (
	"context"
	"time"

	"github.com/phrazzld/kanjigate/internal/domain"
)

// Phase names one step of a sync run.
type Phase string

// Sync phases in execution order
const (
	PhaseAnnotate         Phase = "annotate"
	PhaseMaterialize      Phase = "materialize"
	PhasePromote          Phase = "promote"
	PhaseUnlockCharacters Phase = "unlock-characters"
	PhaseUnlockVocabulary Phase = "unlock-vocabulary"
	PhaseSuspend          Phase = "suspend"
)

// Phases returns every phase in execution order.
func Phases() []Phase {
	return []Phase{
		PhaseAnnotate,
		PhaseMaterialize,
		PhasePromote,
		PhaseUnlockCharacters,
		PhaseUnlockVocabulary,
		PhaseSuspend,
	}
}

// Outcome is the result of processing one item.
type Outcome string

// Item outcomes
const (
	OutcomeChanged Outcome = "changed" // created, annotated, promoted, unlocked or suspended
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// ItemEvent reports the outcome for a single item of a phase.
type ItemEvent struct {
	Phase   Phase
	Key     domain.CardKey
	Outcome Outcome
	// Detail is a short human-readable note, e.g. the new state.
	Detail string
	Err    error
}

// PhaseSummary closes a phase.
type PhaseSummary struct {
	Phase     Phase
	Processed int
	Changed   int
	Skipped   int
	Failed    int
	Duration  time.Duration
	// Err is set when the phase was aborted.
	Err error
}

// Record counts one item outcome.
func (s *PhaseSummary) Record(o Outcome) {
	s.Processed++
	switch o {
	case OutcomeChanged:
		s.Changed++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	}
}

// Counts converts the summary into the persisted ledger form.
func (s PhaseSummary) Counts() domain.PhaseCounts {
	return domain.PhaseCounts{
		Phase:     string(s.Phase),
		Processed: s.Processed,
		Changed:   s.Changed,
		Skipped:   s.Skipped,
		Failed:    s.Failed,
	}
}

// Observer receives sync progress. Implementations must not block for long;
// they run on the orchestrator goroutine.
type Observer interface {
	OnPhaseStart(ctx context.Context, phase Phase, total int)
	OnItem(ctx context.Context, event ItemEvent)
	OnPhaseEnd(ctx context.Context, summary PhaseSummary)
}

// Nop ignores every event.
type Nop struct{}

func (Nop) OnPhaseStart(context.Context, Phase, int) {}
func (Nop) OnItem(context.Context, ItemEvent) {}
func (Nop) OnPhaseEnd(context.Context, PhaseSummary) {}
