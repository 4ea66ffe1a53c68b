package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/kanjigate/internal/domain"
	"github.com/phrazzld/kanjigate/internal/enrich"
	"github.com/phrazzld/kanjigate/internal/platform/logger"
	"github.com/phrazzld/kanjigate/internal/store"
)

// Outcome is the result of materializing one card.
type Outcome int

// Materialization outcomes
const (
	OutcomeCreated Outcome = iota + 1
	OutcomeSkipped         // already present
	OutcomeFailed
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Materializer creates cards that are missing from the store.
type Materializer struct {
	cards    store.CardStore
	enricher enrich.Enricher
	logger   *slog.Logger
}

// NewMaterializer creates a Materializer. A nil enricher disables enrichment.
func NewMaterializer(cards store.CardStore, enricher enrich.Enricher, logger *slog.Logger) (*Materializer, error) {
	if cards == nil {
		return nil, fmt.Errorf("%w: card store cannot be nil", domain.ErrValidation)
	}
	if enricher == nil {
		enricher = enrich.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Materializer{
		cards:    cards,
		enricher: enricher,
		logger:   logger.With(slog.String("component", "materializer")),
	}, nil
}

// Materialize makes sure card exists in the store. card.State must be set.
//
// An existing card with the same natural key is left untouched. Enrichment
// failures are logged and the card is created without text. When the store
// refuses the card, OutcomeFailed is returned together with the reason; the
// caller should stop only if that error is fatal.
func (m *Materializer) Materialize(ctx context.Context, card *domain.Card) (Outcome, error) {
	log := logger.FromContextOrDefault(ctx, m.logger).With(slog.String("card", card.Key().String()))

	exists, err := m.cards.Exists(ctx, card.Identity, card.Tier)
	if err != nil {
		log.WarnContext(ctx, "existence check failed", slog.String("error", err.Error()))
		return OutcomeFailed, err
	}
	if exists {
		return OutcomeSkipped, nil
	}

	toCreate := *card
	if toCreate.Keyword == "" && toCreate.Text == "" {
		m.enrich(ctx, log, &toCreate)
	}

	if _, err := m.cards.Create(ctx, &toCreate); err != nil {
		if store.IsDuplicateError(err) {
			log.InfoContext(ctx, "card appeared concurrently, skipping")
			return OutcomeSkipped, nil
		}
		log.WarnContext(ctx, "card creation failed", slog.String("error", err.Error()))
		return OutcomeFailed, err
	}

	log.DebugContext(ctx, "card created", slog.String("state", toCreate.State.String()))
	return OutcomeCreated, nil
}

func (m *Materializer) enrich(ctx context.Context, log *slog.Logger, card *domain.Card) {
	result, err := m.enricher.Lookup(ctx, domain.EnrichmentKindFor(card.Tier), card.Identity)
	switch {
	case errors.Is(err, enrich.ErrNoResult):
		log.DebugContext(ctx, "no enrichment available")
		return
	case err != nil:
		log.WarnContext(ctx, "enrichment failed, creating card without text", slog.String("error", err.Error()))
		return
	case result.IsEmpty():
		return
	}
	card.Keyword = result.Keyword
	card.Text = result.Text
}
