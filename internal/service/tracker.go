package service

import (
	"context"
	"time"

	"github.com/phrazzld/kanjigate/internal/domain"
	"github.com/phrazzld/kanjigate/internal/events"
)

// tracker counts item outcomes of one phase and forwards them to the
// observer.
type tracker struct {
	ctx     context.Context
	obs     events.Observer
	summary events.PhaseSummary
	started time.Time
}

func startPhase(ctx context.Context, obs events.Observer, phase events.Phase, total int) *tracker {
	if obs == nil {
		obs = events.Nop{}
	}
	obs.OnPhaseStart(ctx, phase, total)
	return &tracker{
		ctx:     ctx,
		obs:     obs,
		summary: events.PhaseSummary{Phase: phase},
		started: time.Now(),
	}
}

func (t *tracker) item(key domain.CardKey, outcome events.Outcome, detail string, err error) {
	t.summary.Record(outcome)
	t.obs.OnItem(t.ctx, events.ItemEvent{
		Phase:   t.summary.Phase,
		Key:     key,
		Outcome: outcome,
		Detail:  detail,
		Err:     err,
	})
}

// finish closes the phase. A non-nil err marks the phase as aborted.
func (t *tracker) finish(err error) events.PhaseSummary {
	t.summary.Duration = time.Since(t.started)
	t.summary.Err = err
	t.obs.OnPhaseEnd(t.ctx, t.summary)
	return t.summary
}
