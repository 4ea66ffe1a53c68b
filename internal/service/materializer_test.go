package service

import (
	"context"
	"errors"
	"testing"

	"github.com/phrazzld/kanjigate/internal/domain"
	"github.com/phrazzld/kanjigate/internal/mocks"
	"github.com/phrazzld/kanjigate/internal/platform/logger"
	"github.com/phrazzld/kanjigate/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCard(t *testing.T, identity string, tier domain.Tier, state domain.MasteryState, deps ...string) *domain.Card {
	t.Helper()
	card, err := domain.NewCard(identity, tier, deps)
	require.NoError(t, err)
	card.State = state
	return card
}

func TestNewMaterializer(t *testing.T) {
	t.Parallel()

	_, err := NewMaterializer(nil, nil, nil)
	require.ErrorIs(t, err, domain.ErrValidation)

	m, err := NewMaterializer(mocks.NewMemoryCardStore(), nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestMaterializeCreatesWithEnrichment(t *testing.T) {
	t.Parallel()

	cards := mocks.NewMemoryCardStore()
	enricher := &mocks.MockEnricher{Results: map[string]*domain.Enrichment{
		"口": {Keyword: "mouth", Text: "an open <b>mouth</b>"},
	}}
	m, err := NewMaterializer(cards, enricher, nil)
	require.NoError(t, err)

	outcome, err := m.Materialize(context.Background(), newCard(t, "口", domain.TierSubcomponent, domain.StateNew))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)

	stored, ok := cards.Get("口", domain.TierSubcomponent)
	require.True(t, ok)
	assert.Equal(t, "mouth", stored.Keyword)
	assert.Equal(t, "an open <b>mouth</b>", stored.Text)
	assert.Equal(t, domain.StateNew, stored.State)
	assert.Equal(t, []string{"口"}, enricher.Calls())
}

func TestMaterializeIsIdempotent(t *testing.T) {
	t.Parallel()

	cards := mocks.NewMemoryCardStore()
	enricher := &mocks.MockEnricher{}
	m, err := NewMaterializer(cards, enricher, nil)
	require.NoError(t, err)

	card := newCard(t, "語", domain.TierCharacter, domain.StateLocked, "言", "五")

	first, err := m.Materialize(context.Background(), card)
	require.NoError(t, err)
	second, err := m.Materialize(context.Background(), card)
	require.NoError(t, err)

	assert.Equal(t, OutcomeCreated, first)
	assert.Equal(t, OutcomeSkipped, second)
	assert.Len(t, cards.Cards(), 1)
	assert.Equal(t, 1, cards.Calls(mocks.OpCreate))
	// The existing card is not looked up again.
	assert.Len(t, enricher.Calls(), 1)
}

func TestMaterializeEnrichmentFailureIsRecovered(t *testing.T) {
	t.Parallel()

	cards := mocks.NewMemoryCardStore()
	enricher := &mocks.MockEnricher{Err: errors.New("connection reset")}
	log, buf := logger.NewTestLogger(t)
	m, err := NewMaterializer(cards, enricher, log)
	require.NoError(t, err)

	outcome, err := m.Materialize(context.Background(), newCard(t, "冖", domain.TierSubcomponent, domain.StateNew))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)

	stored, ok := cards.Get("冖", domain.TierSubcomponent)
	require.True(t, ok)
	assert.Empty(t, stored.Keyword)
	assert.Empty(t, stored.Text)
	assert.Contains(t, buf.String(), "enrichment failed")
}

func TestMaterializeKeepsProvidedText(t *testing.T) {
	t.Parallel()

	cards := mocks.NewMemoryCardStore()
	enricher := &mocks.MockEnricher{}
	m, err := NewMaterializer(cards, enricher, nil)
	require.NoError(t, err)

	card := newCard(t, "学", domain.TierCharacter, domain.StateLocked, "子")
	card.Keyword = "study"

	_, err = m.Materialize(context.Background(), card)
	require.NoError(t, err)
	assert.Empty(t, enricher.Calls())
}

func TestMaterializeFailures(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		failOp      string
		failWith    error
		wantOutcome Outcome
		wantErr     error
	}{
		{
			name:        "rejected creation",
			failOp:      mocks.OpCreate,
			failWith:    store.NewStoreError("card", "create", "model not found", store.ErrRejected),
			wantOutcome: OutcomeFailed,
			wantErr:     store.ErrRejected,
		},
		{
			name:        "duplicate on create",
			failOp:      mocks.OpCreate,
			failWith:    store.ErrDuplicate,
			wantOutcome: OutcomeSkipped,
		},
		{
			name:        "store unreachable",
			failOp:      mocks.OpExists,
			failWith:    store.ErrUnavailable,
			wantOutcome: OutcomeFailed,
			wantErr:     store.ErrUnavailable,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cards := mocks.NewMemoryCardStore()
			cards.FailFn = func(op string, _ *domain.Card) error {
				if op == tc.failOp {
					return tc.failWith
				}
				return nil
			}
			m, err := NewMaterializer(cards, nil, nil)
			require.NoError(t, err)

			outcome, err := m.Materialize(context.Background(), newCard(t, "子", domain.TierSubcomponent, domain.StateNew))
			assert.Equal(t, tc.wantOutcome, outcome)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestOutcomeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "created", OutcomeCreated.String())
	assert.Equal(t, "skipped", OutcomeSkipped.String())
	assert.Equal(t, "failed", OutcomeFailed.String())
	assert.Equal(t, "Outcome(9)", Outcome(9).String())
}
