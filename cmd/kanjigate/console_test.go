package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/kanjigate/internal/domain"
	"github.com/phrazzld/kanjigate/internal/domain/mastery"
	"github.com/phrazzld/kanjigate/internal/events"
	"github.com/phrazzld/kanjigate/internal/service"
	"github.com/stretchr/testify/assert"
)

func TestConsoleObserver(t *testing.T) {
	ctx := context.Background()
	key := domain.CardKey{Identity: "語", Tier: domain.TierCharacter}

	testCases := []struct {
		name    string
		verbose bool
		emit    func(o *consoleObserver)
		want    []string
		absent  []string
	}{
		{
			name: "empty phase",
			emit: func(o *consoleObserver) {
				o.OnPhaseStart(ctx, events.PhasePromote, 0)
				o.OnPhaseEnd(ctx, events.PhaseSummary{Phase: events.PhasePromote})
			},
			want: []string{"promote", "(0)", "nothing to do"},
		},
		{
			name: "quiet mode shows only failures",
			emit: func(o *consoleObserver) {
				o.OnItem(ctx, events.ItemEvent{Phase: events.PhaseUnlockCharacters, Key: key, Outcome: events.OutcomeChanged, Detail: "locked -> new"})
				o.OnItem(ctx, events.ItemEvent{Phase: events.PhaseUnlockCharacters, Key: key, Outcome: events.OutcomeFailed, Err: errors.New("rejected")})
			},
			want:   []string{"rejected", "character"},
			absent: []string{"locked -> new"},
		},
		{
			name:    "verbose mode shows every item",
			verbose: true,
			emit: func(o *consoleObserver) {
				o.OnItem(ctx, events.ItemEvent{Phase: events.PhaseUnlockCharacters, Key: key, Outcome: events.OutcomeChanged, Detail: "locked -> new"})
			},
			want: []string{"語", "locked -> new"},
		},
		{
			name: "summary counts",
			emit: func(o *consoleObserver) {
				o.OnPhaseEnd(ctx, events.PhaseSummary{Phase: events.PhaseMaterialize, Processed: 4, Changed: 2, Skipped: 1, Failed: 1})
			},
			want: []string{"2 changed, 1 skipped", "1 failed"},
		},
		{
			name: "aborted phase",
			emit: func(o *consoleObserver) {
				o.OnPhaseEnd(ctx, events.PhaseSummary{Phase: events.PhaseAnnotate, Err: errors.New("store unavailable")})
			},
			want:   []string{"aborted:", "store unavailable"},
			absent: []string{"nothing to do"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			tc.emit(newConsoleObserver(&buf, tc.verbose))
			for _, s := range tc.want {
				assert.Contains(t, buf.String(), s)
			}
			for _, s := range tc.absent {
				assert.NotContains(t, buf.String(), s)
			}
		})
	}
}

func TestPrintReport(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	run := domain.NewSyncRun(start)
	run.Finish(start.Add(2*time.Second), nil, nil)

	report := &service.RunReport{
		Run:      run,
		Phases:   []events.PhaseSummary{{Phase: events.PhaseMaterialize, Processed: 3, Changed: 3}},
		Observed: []string{"口", "言"},
		Violations: []mastery.Violation{
			{Card: domain.CardKey{Identity: "語", Tier: domain.TierCharacter}, Missing: []string{"五"}},
		},
	}

	var buf bytes.Buffer
	printReport(&buf, report)
	out := buf.String()
	assert.Contains(t, out, "口 言")
	assert.Contains(t, out, "needs 五")
	assert.Contains(t, out, "sync finished")
	assert.Contains(t, out, "3 changed, 0 failed in 2s")

	failed := domain.NewSyncRun(start)
	failed.Finish(start, nil, errors.New("boom"))
	buf.Reset()
	printReport(&buf, &service.RunReport{Run: failed})
	assert.Contains(t, buf.String(), "sync failed")

	buf.Reset()
	printReport(&buf, nil)
	assert.Empty(t, buf.String())
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	printHistory(&buf, nil)
	assert.Contains(t, buf.String(), "no sync runs recorded")

	id := uuid.MustParse("0b5c1f3e-7a2d-4c1e-9f00-123456789abc")
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	runs := []*domain.SyncRun{
		{
			ID: id, StartedAt: start, FinishedAt: start.Add(time.Second), Status: domain.SyncRunFailed,
			Error:  "sync aborted in promote phase: store unavailable",
			Phases: []domain.PhaseCounts{{Phase: "annotate"}, {Phase: "materialize", Processed: 5, Changed: 4, Failed: 1}},
		},
		{ID: uuid.New(), StartedAt: start, FinishedAt: start, Status: domain.SyncRunCompleted},
	}

	buf.Reset()
	printHistory(&buf, runs)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[0], "0b5c1f3e")
	assert.Contains(t, lines[0], "materialize +4/!1")
	assert.NotContains(t, lines[0], "annotate")
	assert.Contains(t, lines[1], "store unavailable")
	assert.Contains(t, lines[2], "no changes")
}
