package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"

	"github.com/phrazzld/kanjigate/internal/domain"
	"github.com/phrazzld/kanjigate/internal/domain/decomp"
	"github.com/phrazzld/kanjigate/internal/domain/mastery"
	"github.com/phrazzld/kanjigate/internal/events"
	"github.com/phrazzld/kanjigate/internal/platform/logger"
	"github.com/phrazzld/kanjigate/internal/store"
)

// MasteryService applies the mastery rules to the cards in the store.
type MasteryService struct {
	cards  store.CardStore
	table  decomp.Table
	rules  mastery.Service
	logger *slog.Logger
}

// NewMasteryService creates a MasteryService. A nil rules value uses the
// default promotion threshold.
func NewMasteryService(cards store.CardStore, table decomp.Table, rules mastery.Service, logger *slog.Logger) (*MasteryService, error) {
	if cards == nil {
		return nil, fmt.Errorf("%w: card store cannot be nil", domain.ErrValidation)
	}
	if rules == nil {
		rules = mastery.NewDefaultService()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MasteryService{
		cards:  cards,
		table:  table,
		rules:  rules,
		logger: logger.With(slog.String("component", "mastery_service")),
	}, nil
}

// Promote moves new cards to known when every review card of the note has
// reached the promotion threshold and every dependency is already known.
// Leaves are examined first so a character promoted in this pass counts for
// the vocabulary that uses it. Intervals are fetched in one batch.
//
// A new card's dependencies are normally known already, since that is what
// unlocked it. The dependency check guards against cards edited or created
// outside the tool.
func (s *MasteryService) Promote(ctx context.Context, obs events.Observer) (events.PhaseSummary, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	knownCards, err := s.cards.FindByState(ctx, domain.StateKnown, domain.TierCharacter, domain.TierSubcomponent)
	if err != nil {
		return startPhase(ctx, obs, events.PhasePromote, 0).finish(err), err
	}
	known := mastery.NewKnownSet(knownCards)

	candidates, err := s.cards.FindByState(ctx, domain.StateNew,
		domain.TierSubcomponent, domain.TierCharacter, domain.TierVocabulary)
	if err != nil {
		return startPhase(ctx, obs, events.PhasePromote, 0).finish(err), err
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Tier > candidates[j].Tier })
	tr := startPhase(ctx, obs, events.PhasePromote, len(candidates))

	var ids []int64
	for _, c := range candidates {
		ids = append(ids, c.CardIDs...)
	}
	if len(ids) == 0 {
		for _, c := range candidates {
			tr.item(c.Key(), events.OutcomeSkipped, "no review cards", nil)
		}
		return tr.finish(nil), nil
	}
	intervals, err := s.cards.Intervals(ctx, ids)
	if err == nil && len(intervals) != len(ids) {
		err = fmt.Errorf("%w: %d intervals for %d cards", store.ErrMalformedResponse, len(intervals), len(ids))
	}
	if err != nil {
		return tr.finish(err), err
	}

	offset := 0
	for _, card := range candidates {
		cardIntervals := intervals[offset : offset+len(card.CardIDs)]
		offset += len(card.CardIDs)

		next, err := s.rules.Promote(card, cardIntervals)
		if err != nil {
			tr.item(card.Key(), events.OutcomeFailed, "", err)
			continue
		}
		if next == card.State {
			tr.item(card.Key(), events.OutcomeSkipped, "", nil)
			continue
		}
		if missing := known.Missing(card.Dependencies); len(missing) > 0 {
			log.InfoContext(ctx, "card reached threshold with unknown dependencies, not promoting",
				slog.String("card", card.Key().String()),
				slog.Any("missing", missing))
			tr.item(card.Key(), events.OutcomeSkipped, "dependencies not known", nil)
			continue
		}
		if err := s.cards.Transition(ctx, []*domain.Card{card}, card.State, next); err != nil {
			tr.item(card.Key(), events.OutcomeFailed, "", err)
			if isFatal(err) {
				return tr.finish(err), err
			}
			continue
		}
		if card.Tier != domain.TierVocabulary && card.Identity != "" {
			known[card.Identity] = struct{}{}
		}
		log.DebugContext(ctx, "card promoted",
			slog.String("card", card.Key().String()),
			slog.Any("intervals", cardIntervals))
		tr.item(card.Key(), events.OutcomeChanged, next.String(), nil)
	}
	return tr.finish(nil), nil
}

// Unlock makes locked cards of tier studiable once all their dependencies
// are known. The known set is read once before any card of the tier is
// examined, so unlocks within the pass do not cascade.
func (s *MasteryService) Unlock(ctx context.Context, tier domain.Tier, obs events.Observer) (events.PhaseSummary, error) {
	phase := events.PhaseUnlockCharacters
	if tier == domain.TierVocabulary {
		phase = events.PhaseUnlockVocabulary
	}
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("tier", tier.String()))

	knownCards, err := s.cards.FindByState(ctx, domain.StateKnown, domain.TierCharacter, domain.TierSubcomponent)
	if err != nil {
		return startPhase(ctx, obs, phase, 0).finish(err), err
	}
	known := mastery.NewKnownSet(knownCards)

	locked, err := s.cards.FindByState(ctx, domain.StateLocked, tier)
	if err != nil {
		return startPhase(ctx, obs, phase, 0).finish(err), err
	}
	tr := startPhase(ctx, obs, phase, len(locked))

	for _, card := range locked {
		if !s.consistent(card) {
			log.WarnContext(ctx, "locked card has no dependencies but decomposes, keeping it locked",
				slog.String("card", card.Key().String()))
			tr.item(card.Key(), events.OutcomeSkipped, "inconsistent", ErrInconsistentCard)
			continue
		}

		next, err := s.rules.Unlock(card, known)
		if err != nil {
			tr.item(card.Key(), events.OutcomeFailed, "", err)
			continue
		}
		if next == card.State {
			tr.item(card.Key(), events.OutcomeSkipped, "", nil)
			continue
		}

		// Unsuspend before re-tagging. A locked card left visible is caught
		// by the suspend pass; a new card left suspended is not.
		if err := s.cards.Unsuspend(ctx, card.CardIDs); err != nil {
			tr.item(card.Key(), events.OutcomeFailed, "", err)
			if isFatal(err) {
				return tr.finish(err), err
			}
			continue
		}
		if err := s.cards.Transition(ctx, []*domain.Card{card}, card.State, next); err != nil {
			tr.item(card.Key(), events.OutcomeFailed, "", err)
			if isFatal(err) {
				return tr.finish(err), err
			}
			continue
		}
		log.DebugContext(ctx, "card unlocked", slog.String("card", card.Key().String()))
		tr.item(card.Key(), events.OutcomeChanged, next.String(), nil)
	}
	return tr.finish(nil), nil
}

// SuspendLocked suspends every locked card still in the study rotation.
func (s *MasteryService) SuspendLocked(ctx context.Context, obs events.Observer) (events.PhaseSummary, error) {
	cards, err := s.cards.FindUnsuspendedLocked(ctx)
	if err != nil {
		return startPhase(ctx, obs, events.PhaseSuspend, 0).finish(err), err
	}
	tr := startPhase(ctx, obs, events.PhaseSuspend, len(cards))
	if len(cards) == 0 {
		return tr.finish(nil), nil
	}

	var ids []int64
	for _, c := range cards {
		ids = append(ids, c.CardIDs...)
	}
	if err := s.cards.Suspend(ctx, ids); err != nil {
		for _, c := range cards {
			tr.item(c.Key(), events.OutcomeFailed, "", err)
		}
		if isFatal(err) {
			return tr.finish(err), err
		}
		return tr.finish(nil), nil
	}
	for _, c := range cards {
		tr.item(c.Key(), events.OutcomeChanged, "suspended", nil)
	}
	return tr.finish(nil), nil
}

// consistent reports whether a card's stored dependencies can be trusted.
// An empty list is only trusted when the card really has no components.
func (s *MasteryService) consistent(card *domain.Card) bool {
	if len(card.Dependencies) > 0 {
		return true
	}
	return len(s.expected(card)) == 0
}

func (s *MasteryService) expected(card *domain.Card) []string {
	if card.Tier == domain.TierVocabulary {
		return decomp.Decompose(card.Identity)
	}
	return slices.DeleteFunc(s.table.Expand(card.Identity), func(p string) bool { return p == card.Identity })
}
