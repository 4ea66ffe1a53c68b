package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/phrazzld/kanjigate/internal/domain"
	"github.com/phrazzld/kanjigate/internal/domain/decomp"
	"github.com/phrazzld/kanjigate/internal/domain/mastery"
	"github.com/phrazzld/kanjigate/internal/events"
	"github.com/phrazzld/kanjigate/internal/platform/logger"
	"github.com/phrazzld/kanjigate/internal/store"
)

// RunOptions controls a single sync run.
type RunOptions struct {
	// Targets are curriculum entries that must exist after the run, in
	// addition to the components observed on existing vocabulary.
	Targets []domain.Target

	// ObservedPath, when set, receives the sorted identities of the
	// components created during the run, one per line.
	ObservedPath string

	// Audit re-reads the collection at the end of the run and reports every
	// known card with a dependency that is not known.
	Audit bool

	Observer events.Observer
}

// RunReport summarizes a finished run.
type RunReport struct {
	Run        *domain.SyncRun
	Phases     []events.PhaseSummary
	Observed   []string
	Violations []mastery.Violation
}

// Changed returns the number of items changed across all phases.
func (r *RunReport) Changed() int {
	n := 0
	for _, p := range r.Phases {
		n += p.Changed
	}
	return n
}

// Failed returns the number of failed items across all phases.
func (r *RunReport) Failed() int {
	n := 0
	for _, p := range r.Phases {
		n += p.Failed
	}
	return n
}

// Phase returns the summary of phase, if the phase ran.
func (r *RunReport) Phase(phase events.Phase) (events.PhaseSummary, bool) {
	for _, p := range r.Phases {
		if p.Phase == phase {
			return p, true
		}
	}
	return events.PhaseSummary{}, false
}

// SyncService runs the phases of a sync in their fixed order.
type SyncService struct {
	cards        store.CardStore
	table        decomp.Table
	materializer *Materializer
	mastery      *MasteryService
	ledger       store.RunLedger
	logger       *slog.Logger
	now          func() time.Time
}

// SyncOption configures a SyncService.
type SyncOption func(*SyncService)

// WithLedger records every run in ledger.
func WithLedger(ledger store.RunLedger) SyncOption {
	return func(s *SyncService) {
		s.ledger = ledger
	}
}

// WithClock replaces the clock used for run timestamps.
func WithClock(now func() time.Time) SyncOption {
	return func(s *SyncService) {
		s.now = now
	}
}

// NewSyncService creates a SyncService.
func NewSyncService(
	cards store.CardStore,
	table decomp.Table,
	materializer *Materializer,
	masteryService *MasteryService,
	logger *slog.Logger,
	opts ...SyncOption,
) (*SyncService, error) {
	if cards == nil {
		return nil, fmt.Errorf("%w: card store cannot be nil", domain.ErrValidation)
	}
	if materializer == nil {
		return nil, fmt.Errorf("%w: materializer cannot be nil", domain.ErrValidation)
	}
	if masteryService == nil {
		return nil, fmt.Errorf("%w: mastery service cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &SyncService{
		cards:        cards,
		table:        table,
		materializer: materializer,
		mastery:      masteryService,
		logger:       logger.With(slog.String("component", "sync_service")),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type step struct {
	phase events.Phase
	run   func(ctx context.Context, obs events.Observer) (events.PhaseSummary, error)
}

// Run performs one sync: annotate, materialize, promote, unlock characters,
// unlock vocabulary, suspend locked cards.
//
// A failed item never stops its phase and a failed listing stops only its
// phase. A lost store connection or a cancelled context stops the run with
// a *PhaseError; the report covers the phases that ran.
func (s *SyncService) Run(ctx context.Context, opts RunOptions) (*RunReport, error) {
	run := domain.NewSyncRun(s.now())
	log := s.logger.With(slog.String("run_id", run.ID.String()))
	ctx = logger.WithContext(ctx, log)

	obs := opts.Observer
	if obs == nil {
		obs = events.Nop{}
	}

	if s.ledger != nil {
		if err := s.ledger.Start(ctx, run); err != nil {
			log.WarnContext(ctx, "failed to record run start", slog.String("error", err.Error()))
		}
	}

	report := &RunReport{Run: run}
	steps := []step{
		{events.PhaseAnnotate, s.annotate},
		{events.PhaseMaterialize, func(ctx context.Context, obs events.Observer) (events.PhaseSummary, error) {
			summary, observed, err := s.materialize(ctx, opts.Targets, obs)
			report.Observed = observed
			return summary, err
		}},
		{events.PhasePromote, s.mastery.Promote},
		{events.PhaseUnlockCharacters, func(ctx context.Context, obs events.Observer) (events.PhaseSummary, error) {
			return s.mastery.Unlock(ctx, domain.TierCharacter, obs)
		}},
		{events.PhaseUnlockVocabulary, func(ctx context.Context, obs events.Observer) (events.PhaseSummary, error) {
			return s.mastery.Unlock(ctx, domain.TierVocabulary, obs)
		}},
		{events.PhaseSuspend, s.mastery.SuspendLocked},
	}

	log.InfoContext(ctx, "sync started", slog.Int("targets", len(opts.Targets)))

	var runErr error
	for _, st := range steps {
		if err := ctx.Err(); err != nil {
			runErr = &PhaseError{Phase: st.phase, Err: err}
			break
		}
		summary, err := st.run(ctx, obs)
		report.Phases = append(report.Phases, summary)
		if err == nil {
			continue
		}
		if isFatal(err) {
			runErr = &PhaseError{Phase: st.phase, Err: err}
			break
		}
		log.WarnContext(ctx, "phase aborted, continuing with the next phase",
			slog.String("phase", string(st.phase)),
			slog.String("error", err.Error()))
	}

	if runErr == nil && opts.ObservedPath != "" {
		if err := writeObserved(opts.ObservedPath, report.Observed); err != nil {
			log.WarnContext(ctx, "failed to write observed components",
				slog.String("path", opts.ObservedPath),
				slog.String("error", err.Error()))
		}
	}

	if runErr == nil && opts.Audit {
		violations, err := s.Audit(ctx)
		if err != nil {
			log.WarnContext(ctx, "soundness audit failed", slog.String("error", err.Error()))
		}
		report.Violations = violations
	}

	counts := make([]domain.PhaseCounts, 0, len(report.Phases))
	for _, p := range report.Phases {
		counts = append(counts, p.Counts())
	}
	run.Finish(s.now(), counts, runErr)

	if s.ledger != nil {
		if err := s.ledger.Finish(context.WithoutCancel(ctx), run); err != nil {
			log.WarnContext(ctx, "failed to record run result", slog.String("error", err.Error()))
		}
	}

	if runErr != nil {
		log.ErrorContext(ctx, "sync aborted", slog.String("error", runErr.Error()))
		return report, runErr
	}
	log.InfoContext(ctx, "sync finished",
		slog.Int("changed", report.Changed()),
		slog.Int("failed", report.Failed()),
		slog.Duration("duration", run.Duration()))
	return report, nil
}

// Audit lists every card in the collection and returns the known cards
// whose dependencies are not all known.
func (s *SyncService) Audit(ctx context.Context) ([]mastery.Violation, error) {
	var all []*domain.Card
	for _, state := range []domain.MasteryState{domain.StateLocked, domain.StateNew, domain.StateKnown} {
		cards, err := s.cards.FindByState(ctx, state)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s cards: %w", state, err)
		}
		all = append(all, cards...)
	}
	violations := mastery.CheckSoundness(all)
	for _, v := range violations {
		logger.FromContextOrDefault(ctx, s.logger).WarnContext(ctx, "known card has unknown dependencies",
			slog.String("card", v.Card.String()),
			slog.Any("missing", v.Missing))
	}
	return violations, nil
}

// annotate computes the dependency list of vocabulary cards that have none
// and gives untagged cards their initial state.
func (s *SyncService) annotate(ctx context.Context, obs events.Observer) (events.PhaseSummary, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	cards, err := s.cards.FindUnannotated(ctx)
	if err != nil {
		return startPhase(ctx, obs, events.PhaseAnnotate, 0).finish(err), err
	}
	tr := startPhase(ctx, obs, events.PhaseAnnotate, len(cards))

	for _, card := range cards {
		deps := decomp.Decompose(card.Identity)
		state := domain.StateUnset
		if !card.State.IsSet() {
			state = mastery.InitialState(len(deps) > 0, false)
		}
		if len(deps) == 0 && !state.IsSet() {
			tr.item(card.Key(), events.OutcomeSkipped, "no components", nil)
			continue
		}

		if err := s.cards.Annotate(ctx, card, deps, state); err != nil {
			tr.item(card.Key(), events.OutcomeFailed, "", err)
			if isFatal(err) {
				return tr.finish(err), err
			}
			continue
		}

		detail := strings.Join(deps, ",")
		if state.IsSet() {
			detail = strings.TrimSpace(detail + " " + state.String())
		}
		log.DebugContext(ctx, "card annotated",
			slog.String("card", card.Key().String()),
			slog.Any("dependencies", deps))
		tr.item(card.Key(), events.OutcomeChanged, detail, nil)
	}
	return tr.finish(nil), nil
}

// materialize creates the character and sub-component cards needed by the
// vocabulary in the collection, plus any explicit targets. It returns the
// sorted identities of the components it created.
func (s *SyncService) materialize(ctx context.Context, targets []domain.Target, obs events.Observer) (events.PhaseSummary, []string, error) {
	planned, err := s.plan(ctx, targets)
	if err != nil {
		return startPhase(ctx, obs, events.PhaseMaterialize, 0).finish(err), nil, err
	}
	tr := startPhase(ctx, obs, events.PhaseMaterialize, len(planned))

	var observed []string
	for _, card := range planned {
		outcome, err := s.materializer.Materialize(ctx, card)
		switch outcome {
		case OutcomeCreated:
			tr.item(card.Key(), events.OutcomeChanged, card.State.String(), nil)
			if card.Tier != domain.TierVocabulary {
				observed = append(observed, card.Identity)
			}
		case OutcomeSkipped:
			tr.item(card.Key(), events.OutcomeSkipped, "exists", nil)
		default:
			tr.item(card.Key(), events.OutcomeFailed, "", err)
			if isFatal(err) {
				sort.Strings(observed)
				return tr.finish(err), observed, err
			}
		}
	}
	sort.Strings(observed)
	return tr.finish(nil), observed, nil
}

// plan returns the cards missing from the collection in creation order:
// sub-components, then characters, then vocabulary targets. The graph is
// built from existing vocabulary and character cards plus the targets, so
// a re-run fills in whatever an interrupted run left out.
func (s *SyncService) plan(ctx context.Context, targets []domain.Target) ([]*domain.Card, error) {
	existing := make(map[domain.CardKey]domain.MasteryState)
	var inputs []decomp.Input

	for _, state := range []domain.MasteryState{domain.StateLocked, domain.StateNew, domain.StateKnown} {
		cards, err := s.cards.FindByState(ctx, state)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s cards: %w", state, err)
		}
		for _, c := range cards {
			existing[c.Key()] = c.State
			if c.Tier == domain.TierCharacter {
				// Re-expanding existing characters recreates sub-components
				// whose creation failed in an earlier run.
				inputs = append(inputs, decomp.Input{Identity: c.Identity, Known: c.State == domain.StateKnown})
				continue
			}
			if c.Tier != domain.TierVocabulary {
				continue
			}
			deps := c.Dependencies
			if len(deps) == 0 {
				deps = decomp.Decompose(c.Identity)
			}
			for _, d := range deps {
				inputs = append(inputs, decomp.Input{Identity: d, Known: c.State == domain.StateKnown})
			}
		}
	}

	var vocab []*domain.Card
	seenVocab := make(map[string]bool)
	for _, t := range targets {
		glyphs := decomp.Decompose(t.Text)
		tier := t.Tier
		if tier == 0 {
			tier = domain.TierVocabulary
			if decomp.IsSingleGlyph(t.Text) {
				tier = domain.TierCharacter
			}
		}
		for _, g := range glyphs {
			inputs = append(inputs, decomp.Input{Identity: g, Known: t.Known})
		}
		if tier != domain.TierVocabulary {
			continue
		}

		identity := decomp.Normalize(t.Text)
		key := domain.CardKey{Identity: identity, Tier: domain.TierVocabulary}
		if _, ok := existing[key]; ok || identity == "" || seenVocab[identity] {
			continue
		}
		seenVocab[identity] = true
		card, err := domain.NewCard(identity, domain.TierVocabulary, glyphs)
		if err != nil {
			logger.FromContextOrDefault(ctx, s.logger).WarnContext(ctx, "ignoring invalid target",
				slog.String("target", t.Text),
				slog.String("error", err.Error()))
			continue
		}
		card.State = mastery.InitialState(len(glyphs) > 0, t.Known)
		vocab = append(vocab, card)
	}

	graph := decomp.BuildGraph(s.table, inputs)

	var planned []*domain.Card
	add := func(n decomp.Node) {
		// Dependencies resolve against both component tiers, so an identity
		// present in either one is not created again.
		if existingComponent(existing, n.Identity) {
			return
		}
		card, err := domain.NewCard(n.Identity, n.Tier, n.Prerequisites)
		if err != nil {
			return
		}
		card.State = mastery.InitialState(len(n.Prerequisites) > 0, n.Known)
		planned = append(planned, card)
	}
	for _, n := range graph.TerminalNodes() {
		add(n)
	}
	for _, n := range graph.CharacterNodes() {
		add(n)
	}
	planned = append(planned, vocab...)

	demoteUnsound(planned, existing)
	return planned, nil
}

// demoteUnsound drops the known hint from planned cards that depend on a
// card that is not known, repeating until nothing changes. A hint can only
// be honored when every dependency is, or will be, known.
func demoteUnsound(planned []*domain.Card, existing map[domain.CardKey]domain.MasteryState) {
	known := make(map[string]bool)
	for key, state := range existing {
		if key.Tier != domain.TierVocabulary && state == domain.StateKnown {
			known[key.Identity] = true
		}
	}
	for _, c := range planned {
		if c.Tier != domain.TierVocabulary && c.State == domain.StateKnown {
			known[c.Identity] = true
		}
	}

	for changed := true; changed; {
		changed = false
		for _, c := range planned {
			if c.State != domain.StateKnown {
				continue
			}
			for _, d := range c.Dependencies {
				if known[d] {
					continue
				}
				c.State = mastery.InitialState(c.HasDependencies(), false)
				if c.Tier != domain.TierVocabulary && !existingKnown(existing, c.Identity) {
					delete(known, c.Identity)
				}
				changed = true
				break
			}
		}
	}
}

func existingComponent(existing map[domain.CardKey]domain.MasteryState, identity string) bool {
	_, char := existing[domain.CardKey{Identity: identity, Tier: domain.TierCharacter}]
	_, sub := existing[domain.CardKey{Identity: identity, Tier: domain.TierSubcomponent}]
	return char || sub
}

func existingKnown(existing map[domain.CardKey]domain.MasteryState, identity string) bool {
	return existing[domain.CardKey{Identity: identity, Tier: domain.TierCharacter}] == domain.StateKnown ||
		existing[domain.CardKey{Identity: identity, Tier: domain.TierSubcomponent}] == domain.StateKnown
}

func writeObserved(path string, identities []string) error {
	var b strings.Builder
	for _, id := range identities {
		b.WriteString(id)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
