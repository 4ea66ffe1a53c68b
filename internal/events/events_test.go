package events_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/phrazzld/kanjigate/internal/domain"
	"github.com/phrazzld/kanjigate/internal/events"
	"github.com/phrazzld/kanjigate/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseSummaryRecord(t *testing.T) {
	t.Parallel()

	s := events.PhaseSummary{Phase: events.PhasePromote}
	for _, o := range []events.Outcome{
		events.OutcomeChanged,
		events.OutcomeSkipped,
		events.OutcomeSkipped,
		events.OutcomeFailed,
	} {
		s.Record(o)
	}

	assert.Equal(t, domain.PhaseCounts{
		Phase: "promote", Processed: 4, Changed: 1, Skipped: 2, Failed: 1,
	}, s.Counts())
}

func TestPhasesOrder(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []events.Phase{
		"annotate", "materialize", "promote", "unlock-characters", "unlock-vocabulary", "suspend",
	}, events.Phases())
}

func TestMultiFansOut(t *testing.T) {
	t.Parallel()

	first, second := &events.Recorder{}, &events.Recorder{}
	m := events.NewMulti(first, nil)
	m.Register(second)
	m.Register(nil)

	ctx := context.Background()
	key := domain.CardKey{Identity: "語", Tier: domain.TierCharacter}
	m.OnPhaseStart(ctx, events.PhaseMaterialize, 1)
	m.OnItem(ctx, events.ItemEvent{Phase: events.PhaseMaterialize, Key: key, Outcome: events.OutcomeChanged})
	m.OnPhaseEnd(ctx, events.PhaseSummary{Phase: events.PhaseMaterialize, Processed: 1, Changed: 1})

	for _, r := range []*events.Recorder{first, second} {
		assert.Equal(t, []events.Phase{events.PhaseMaterialize}, r.Started)
		require.Len(t, r.ItemsFor(events.PhaseMaterialize), 1)
		assert.Equal(t, key, r.Items[0].Key)
		require.Len(t, r.Summaries, 1)
		assert.Equal(t, 1, r.Summaries[0].Changed)
	}
}

func TestLogObserver(t *testing.T) {
	t.Parallel()

	log, buf := logger.NewTestLogger(t)
	o := events.NewLogObserver(log)
	ctx := context.Background()
	key := domain.CardKey{Identity: "学", Tier: domain.TierCharacter}

	o.OnPhaseStart(ctx, events.PhaseUnlockCharacters, 2)
	o.OnItem(ctx, events.ItemEvent{Phase: events.PhaseUnlockCharacters, Key: key, Outcome: events.OutcomeChanged, Detail: "new"})
	o.OnItem(ctx, events.ItemEvent{Phase: events.PhaseUnlockCharacters, Key: key, Outcome: events.OutcomeFailed, Err: errors.New("rejected")})
	o.OnPhaseEnd(ctx, events.PhaseSummary{Phase: events.PhaseUnlockCharacters, Processed: 2, Changed: 1, Failed: 1, Duration: time.Second})
	o.OnPhaseEnd(ctx, events.PhaseSummary{Phase: events.PhaseSuspend, Err: errors.New("listing failed")})

	entries, err := buf.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 5)

	assert.Equal(t, "phase started", entries[0]["msg"])
	assert.Equal(t, "sync_progress", entries[0]["component"])
	assert.Equal(t, "item processed", entries[1]["msg"])
	assert.Equal(t, "character:学", entries[1]["card"])
	assert.Equal(t, "new", entries[1]["detail"])
	assert.Equal(t, "WARN", entries[2]["level"])
	assert.Equal(t, "rejected", entries[2]["error"])
	assert.Equal(t, "phase finished", entries[3]["msg"])
	assert.EqualValues(t, 1, entries[3]["failed"])
	assert.Equal(t, "phase aborted", entries[4]["msg"])
	assert.Equal(t, "ERROR", entries[4]["level"])
}

func TestNopIsObserver(t *testing.T) {
	t.Parallel()

	var o events.Observer = events.Nop{}
	ctx := context.Background()
	assert.NotPanics(t, func() {
		o.OnPhaseStart(ctx, events.PhaseSuspend, 0)
		o.OnItem(ctx, events.ItemEvent{})
		o.OnPhaseEnd(ctx, events.PhaseSummary{})
	})
}
