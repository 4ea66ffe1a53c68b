package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/kanjigate/internal/domain"
	"github.com/phrazzld/kanjigate/internal/domain/decomp"
	"github.com/phrazzld/kanjigate/internal/domain/mastery"
	"github.com/phrazzld/kanjigate/internal/events"
	"github.com/phrazzld/kanjigate/internal/mocks"
	"github.com/phrazzld/kanjigate/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRunLedger is a mock implementation of store.RunLedger
type MockRunLedger struct {
	mock.Mock
}

func (m *MockRunLedger) Start(ctx context.Context, run *domain.SyncRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRunLedger) Finish(ctx context.Context, run *domain.SyncRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRunLedger) Recent(ctx context.Context, limit int) ([]*domain.SyncRun, error) {
	args := m.Called(ctx, limit)
	runs, _ := args.Get(0).([]*domain.SyncRun)
	return runs, args.Error(1)
}

func compoundTable() decomp.Table {
	return decomp.NewTable(map[string][]string{
		"語": {"言", "口", "五"},
		"学": {"子", "尚", "冖"},
	})
}

var compoundParts = []string{"言", "口", "五", "子", "尚", "冖"}

func newSyncService(t *testing.T, cards store.CardStore, table decomp.Table, opts ...SyncOption) *SyncService {
	t.Helper()
	m, err := NewMaterializer(cards, &mocks.MockEnricher{}, nil)
	require.NoError(t, err)
	svc, err := NewSyncService(cards, table, m, newMasteryService(t, cards, table), nil, opts...)
	require.NoError(t, err)
	return svc
}

func setInterval(t *testing.T, cards *mocks.MemoryCardStore, identity string, tier domain.Tier, days int) {
	t.Helper()
	card, ok := cards.Get(identity, tier)
	require.True(t, ok, "missing card %s", identity)
	for _, id := range card.CardIDs {
		cards.SetInterval(id, days)
	}
}

func assertSound(t *testing.T, cards *mocks.MemoryCardStore) {
	t.Helper()
	assert.Empty(t, mastery.CheckSoundness(cards.Cards()))
}

func TestNewSyncServiceValidation(t *testing.T) {
	t.Parallel()

	cards := mocks.NewMemoryCardStore()
	m, err := NewMaterializer(cards, nil, nil)
	require.NoError(t, err)
	ms := newMasteryService(t, cards, decomp.Table{})

	_, err = NewSyncService(nil, decomp.Table{}, m, ms, nil)
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = NewSyncService(cards, decomp.Table{}, nil, ms, nil)
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = NewSyncService(cards, decomp.Table{}, m, nil, nil)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestSyncCompoundScenario(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cards := mocks.NewMemoryCardStore()
	svc := newSyncService(t, cards, compoundTable())
	opts := RunOptions{Targets: []domain.Target{{Text: "語学"}}}

	rec := &events.Recorder{}
	opts.Observer = rec
	report, err := svc.Run(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, events.Phases(), rec.Started)

	for _, id := range compoundParts {
		assert.Equal(t, domain.StateNew, stateOf(t, cards, id, domain.TierSubcomponent), id)
	}
	for _, id := range []string{"語", "学"} {
		assert.Equal(t, domain.StateLocked, stateOf(t, cards, id, domain.TierCharacter), id)
		assert.True(t, cards.IsSuspended(id, domain.TierCharacter), id)
	}
	assert.Equal(t, domain.StateLocked, stateOf(t, cards, "語学", domain.TierVocabulary))
	assert.Len(t, cards.Cards(), 9)

	assert.ElementsMatch(t, append([]string{"語", "学"}, compoundParts...), report.Observed)
	assert.True(t, sort.StringsAreSorted(report.Observed))
	materialize, ok := report.Phase(events.PhaseMaterialize)
	require.True(t, ok)
	assert.Equal(t, 9, materialize.Changed)
	assert.Equal(t, domain.SyncRunCompleted, report.Run.Status)
	assertSound(t, cards)

	// A second run over the same input creates nothing.
	report, err = svc.Run(ctx, RunOptions{Targets: opts.Targets})
	require.NoError(t, err)
	materialize, _ = report.Phase(events.PhaseMaterialize)
	assert.Equal(t, 0, materialize.Changed)
	assert.Empty(t, report.Observed)
	assert.Len(t, cards.Cards(), 9)

	// Once every sub-component is mastered both characters unlock.
	for _, id := range compoundParts {
		setInterval(t, cards, id, domain.TierSubcomponent, 21)
	}
	_, err = svc.Run(ctx, RunOptions{})
	require.NoError(t, err)

	for _, id := range compoundParts {
		assert.Equal(t, domain.StateKnown, stateOf(t, cards, id, domain.TierSubcomponent), id)
	}
	for _, id := range []string{"語", "学"} {
		assert.Equal(t, domain.StateNew, stateOf(t, cards, id, domain.TierCharacter), id)
		assert.False(t, cards.IsSuspended(id, domain.TierCharacter), id)
	}
	assert.Equal(t, domain.StateLocked, stateOf(t, cards, "語学", domain.TierVocabulary))
	assertSound(t, cards)
}

func TestSyncUnlocksVocabularyInSameRun(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		state    domain.MasteryState
		interval int
	}{
		{"characters known from a prior run", domain.StateKnown, 30},
		{"characters promoted in this run", domain.StateNew, 25},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cards := mocks.NewMemoryCardStore()
			seed(cards, "日", domain.TierSubcomponent, tc.state, nil, tc.interval)
			seed(cards, "本", domain.TierSubcomponent, tc.state, nil, tc.interval)
			vocab := seed(cards, "日本", domain.TierVocabulary, domain.StateLocked, []string{"日", "本"})
			cards.SetSuspended(vocab.CardIDs[0], true)

			_, err := newSyncService(t, cards, decomp.Table{}).Run(context.Background(), RunOptions{})
			require.NoError(t, err)

			assert.Equal(t, domain.StateNew, stateOf(t, cards, "日本", domain.TierVocabulary))
			assert.False(t, cards.IsSuspended("日本", domain.TierVocabulary))
			assertSound(t, cards)
		})
	}
}

func TestSyncIntervalBelowThreshold(t *testing.T) {
	t.Parallel()

	cards := mocks.NewMemoryCardStore()
	seed(cards, "本", domain.TierSubcomponent, domain.StateNew, nil, 10)

	_, err := newSyncService(t, cards, decomp.Table{}).Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.StateNew, stateOf(t, cards, "本", domain.TierSubcomponent))
}

func TestSyncAnnotatesExistingVocabulary(t *testing.T) {
	t.Parallel()

	cards := mocks.NewMemoryCardStore()
	cards.Seed(domain.Card{Identity: "食べ物", Tier: domain.TierVocabulary})
	cards.Seed(domain.Card{Identity: "ありがとう", Tier: domain.TierVocabulary})
	seed(cards, "すし", domain.TierVocabulary, domain.StateNew, nil)

	rec := &events.Recorder{}
	_, err := newSyncService(t, cards, decomp.Table{}).Run(context.Background(), RunOptions{Observer: rec})
	require.NoError(t, err)

	food, ok := cards.Get("食べ物", domain.TierVocabulary)
	require.True(t, ok)
	assert.Equal(t, []string{"食", "物"}, food.Dependencies)
	assert.Equal(t, domain.StateLocked, food.State)
	assert.True(t, cards.IsSuspended("食べ物", domain.TierVocabulary))

	assert.Equal(t, domain.StateNew, stateOf(t, cards, "ありがとう", domain.TierVocabulary))
	assert.Equal(t, domain.StateNew, stateOf(t, cards, "食", domain.TierSubcomponent))
	assert.Equal(t, domain.StateNew, stateOf(t, cards, "物", domain.TierSubcomponent))

	var outcomes []events.Outcome
	for _, item := range rec.ItemsFor(events.PhaseAnnotate) {
		outcomes = append(outcomes, item.Outcome)
	}
	assert.Equal(t, []events.Outcome{events.OutcomeChanged, events.OutcomeChanged, events.OutcomeSkipped}, outcomes)
}

func TestSyncTerminalReclassification(t *testing.T) {
	t.Parallel()

	table := decomp.NewTable(map[string][]string{"本": {}, "口": {"口"}})
	cards := mocks.NewMemoryCardStore()

	_, err := newSyncService(t, cards, table).Run(context.Background(), RunOptions{Targets: []domain.Target{
		{Text: "未", Tier: domain.TierCharacter},
		{Text: "本"},
		{Text: "口"},
	}})
	require.NoError(t, err)

	for _, id := range []string{"未", "本", "口"} {
		assert.Equal(t, domain.StateNew, stateOf(t, cards, id, domain.TierSubcomponent), id)
		_, isCharacter := cards.Get(id, domain.TierCharacter)
		assert.False(t, isCharacter, id)
	}
}

func TestSyncKnownHint(t *testing.T) {
	t.Parallel()

	t.Run("hint honored", func(t *testing.T) {
		t.Parallel()

		cards := mocks.NewMemoryCardStore()
		_, err := newSyncService(t, cards, compoundTable()).Run(context.Background(), RunOptions{
			Targets: []domain.Target{{Text: "語学", Known: true}},
		})
		require.NoError(t, err)

		for _, c := range cards.Cards() {
			assert.Equal(t, domain.StateKnown, c.State, c.Key().String())
		}
		assertSound(t, cards)
	})

	t.Run("hint dropped when a dependency is not known", func(t *testing.T) {
		t.Parallel()

		cards := mocks.NewMemoryCardStore()
		seed(cards, "言", domain.TierSubcomponent, domain.StateNew, nil, 1)

		_, err := newSyncService(t, cards, compoundTable()).Run(context.Background(), RunOptions{
			Targets: []domain.Target{{Text: "語学", Known: true}},
		})
		require.NoError(t, err)

		assert.Equal(t, domain.StateLocked, stateOf(t, cards, "語", domain.TierCharacter))
		assert.Equal(t, domain.StateLocked, stateOf(t, cards, "語学", domain.TierVocabulary))
		assert.Equal(t, domain.StateKnown, stateOf(t, cards, "学", domain.TierCharacter))
		assert.Equal(t, domain.StateNew, stateOf(t, cards, "言", domain.TierSubcomponent))
		assertSound(t, cards)
	})
}

func TestSyncMonotonicAndSoundAcrossRuns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cards := mocks.NewMemoryCardStore()
	svc := newSyncService(t, cards, compoundTable())
	targets := []domain.Target{{Text: "語学"}, {Text: "学"}, {Text: "五"}}

	previous := make(map[domain.CardKey]domain.MasteryState)
	for run := 0; run < 5; run++ {
		_, err := svc.Run(ctx, RunOptions{Targets: targets})
		require.NoError(t, err)
		assertSound(t, cards)

		for _, c := range cards.Cards() {
			if before, ok := previous[c.Key()]; ok {
				assert.False(t, mastery.IsRegression(before, c.State),
					"run %d: %s went from %s to %s", run, c.Key(), before, c.State)
			}
			previous[c.Key()] = c.State
			if c.State == domain.StateNew {
				setInterval(t, cards, c.Identity, c.Tier, 30)
			}
		}
	}

	for _, c := range cards.Cards() {
		assert.Equal(t, domain.StateKnown, c.State, c.Key().String())
	}
}

func TestSyncPartialFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cards := mocks.NewMemoryCardStore()
	cards.FailFn = func(op string, card *domain.Card) error {
		if op == mocks.OpCreate && card != nil && card.Identity == "口" {
			return store.NewStoreError("card", "create", "refused", store.ErrRejected)
		}
		return nil
	}
	svc := newSyncService(t, cards, compoundTable())

	report, err := svc.Run(ctx, RunOptions{Targets: []domain.Target{{Text: "語"}}})
	require.NoError(t, err)

	materialize, _ := report.Phase(events.PhaseMaterialize)
	assert.Equal(t, 1, materialize.Failed)
	assert.Equal(t, 3, materialize.Changed)
	assert.Equal(t, 1, report.Failed())
	_, ok := cards.Get("口", domain.TierSubcomponent)
	assert.False(t, ok)
	assert.Equal(t, domain.StateLocked, stateOf(t, cards, "語", domain.TierCharacter))

	// Running again picks up the card that failed.
	cards.FailFn = nil
	report, err = svc.Run(ctx, RunOptions{Targets: []domain.Target{{Text: "語"}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"口"}, report.Observed)
}

func TestSyncRepairsExistingCharacters(t *testing.T) {
	t.Parallel()

	t.Run("missing components are recreated", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		cards := mocks.NewMemoryCardStore()
		seed(cards, "語", domain.TierCharacter, domain.StateLocked, []string{"言", "口", "五"})
		svc := newSyncService(t, cards, compoundTable())

		report, err := svc.Run(ctx, RunOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"五", "口", "言"}, report.Observed)
		for _, id := range []string{"言", "口", "五"} {
			assert.Equal(t, domain.StateNew, stateOf(t, cards, id, domain.TierSubcomponent), id)
		}
		assert.Equal(t, domain.StateLocked, stateOf(t, cards, "語", domain.TierCharacter))

		report, err = svc.Run(ctx, RunOptions{})
		require.NoError(t, err)
		assert.Empty(t, report.Observed)

		for _, id := range []string{"言", "口", "五"} {
			setInterval(t, cards, id, domain.TierSubcomponent, 30)
		}
		_, err = svc.Run(ctx, RunOptions{})
		require.NoError(t, err)
		assert.Equal(t, domain.StateNew, stateOf(t, cards, "語", domain.TierCharacter))
		assertSound(t, cards)
	})

	t.Run("character without table entry is not duplicated", func(t *testing.T) {
		t.Parallel()

		cards := mocks.NewMemoryCardStore()
		seed(cards, "木", domain.TierCharacter, domain.StateNew, nil)

		report, err := newSyncService(t, cards, compoundTable()).Run(context.Background(), RunOptions{})
		require.NoError(t, err)
		assert.Empty(t, report.Observed)
		_, ok := cards.Get("木", domain.TierSubcomponent)
		assert.False(t, ok)
	})
}

func TestSyncFatalErrorAbortsRun(t *testing.T) {
	t.Parallel()

	cards := mocks.NewMemoryCardStore()
	seed(cards, "口", domain.TierSubcomponent, domain.StateNew, nil, 30)
	cards.FailFn = func(op string, _ *domain.Card) error {
		if op == mocks.OpIntervals {
			return store.NewStoreError("card", "intervals", "connection refused", store.ErrUnavailable)
		}
		return nil
	}

	ledger := &MockRunLedger{}
	ledger.On("Start", mock.Anything, mock.AnythingOfType("*domain.SyncRun")).Return(nil)
	ledger.On("Finish", mock.Anything, mock.MatchedBy(func(run *domain.SyncRun) bool {
		return run.Status == domain.SyncRunFailed && len(run.Phases) == 3
	})).Return(nil)

	report, err := newSyncService(t, cards, decomp.Table{}, WithLedger(ledger)).Run(context.Background(), RunOptions{})
	require.ErrorIs(t, err, store.ErrUnavailable)

	var phaseErr *PhaseError
	require.True(t, errors.As(err, &phaseErr))
	assert.Equal(t, events.PhasePromote, phaseErr.Phase)
	assert.Len(t, report.Phases, 3)
	assert.Equal(t, 0, cards.Calls(mocks.OpFindUnsuspendedLocked))
	assert.Contains(t, report.Run.Error, "connection refused")
	ledger.AssertExpectations(t)
}

func TestSyncListingFailureAbortsOnlyItsPhase(t *testing.T) {
	t.Parallel()

	cards := mocks.NewMemoryCardStore()
	seed(cards, "語", domain.TierCharacter, domain.StateLocked, []string{"言"})
	cards.FailFn = func(op string, _ *domain.Card) error {
		if op == mocks.OpFindUnannotated {
			return store.ErrMalformedResponse
		}
		return nil
	}

	report, err := newSyncService(t, cards, decomp.Table{}).Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	require.Len(t, report.Phases, len(events.Phases()))
	annotate, _ := report.Phase(events.PhaseAnnotate)
	require.ErrorIs(t, annotate.Err, store.ErrMalformedResponse)
	assert.True(t, cards.IsSuspended("語", domain.TierCharacter))
}

func TestSyncCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ledger := &MockRunLedger{}
	ledger.On("Start", mock.Anything, mock.Anything).Return(errors.New("database is locked"))
	ledger.On("Finish", mock.Anything, mock.Anything).Return(nil)

	report, err := newSyncService(t, mocks.NewMemoryCardStore(), decomp.Table{}, WithLedger(ledger)).Run(ctx, RunOptions{})
	require.ErrorIs(t, err, context.Canceled)
	var phaseErr *PhaseError
	require.True(t, errors.As(err, &phaseErr))
	assert.Equal(t, events.PhaseAnnotate, phaseErr.Phase)
	assert.Empty(t, report.Phases)
	assert.Equal(t, domain.SyncRunFailed, report.Run.Status)
	ledger.AssertExpectations(t)
}

func TestSyncLedgerRecordsCompletedRun(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := start
	now := func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	ledger := &MockRunLedger{}
	ledger.On("Start", mock.Anything, mock.MatchedBy(func(run *domain.SyncRun) bool {
		return run.Status == domain.SyncRunRunning
	})).Return(nil)
	ledger.On("Finish", mock.Anything, mock.MatchedBy(func(run *domain.SyncRun) bool {
		return run.Status == domain.SyncRunCompleted && len(run.Phases) == len(events.Phases())
	})).Return(nil)

	svc := newSyncService(t, mocks.NewMemoryCardStore(), decomp.Table{}, WithLedger(ledger), WithClock(now))
	report, err := svc.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, start.Add(time.Second), report.Run.StartedAt)
	assert.Equal(t, time.Second, report.Run.Duration())
	assert.Equal(t, 0, report.Changed())
	ledger.AssertExpectations(t)
}

func TestSyncWritesObservedComponents(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "observed.txt")
	cards := mocks.NewMemoryCardStore()

	_, err := newSyncService(t, cards, compoundTable()).Run(context.Background(), RunOptions{
		Targets:      []domain.Target{{Text: "学校"}},
		ObservedPath: path,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	assert.ElementsMatch(t, []string{"学", "校", "子", "尚", "冖"}, lines)
	assert.True(t, sort.StringsAreSorted(lines))
}

func TestSyncAudit(t *testing.T) {
	t.Parallel()

	cards := mocks.NewMemoryCardStore()
	seed(cards, "日", domain.TierSubcomponent, domain.StateNew, nil)
	seed(cards, "日本", domain.TierVocabulary, domain.StateKnown, []string{"日", "本"})

	svc := newSyncService(t, cards, decomp.Table{})
	violations, err := svc.Audit(context.Background())
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "日本", violations[0].Card.Identity)
	assert.Equal(t, []string{"日", "本"}, violations[0].Missing)

	report, err := svc.Run(context.Background(), RunOptions{Audit: true})
	require.NoError(t, err)
	assert.Len(t, report.Violations, 1)
}
