package anki

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/phrazzld/kanjigate/internal/ankiconnect"
	"github.com/phrazzld/kanjigate/internal/config"
	"github.com/phrazzld/kanjigate/internal/domain"
	"github.com/phrazzld/kanjigate/internal/domain/decomp"
	"github.com/phrazzld/kanjigate/internal/store"
)

// Store implements store.CardStore against AnkiConnect.
type Store struct {
	client    *ankiconnect.Client
	deck      string
	sourceTag string
	models    map[domain.Tier]config.NoteModelConfig
	tags      map[domain.MasteryState]string
	logger    *slog.Logger
}

var _ store.CardStore = (*Store)(nil)

// NewStore creates a card store using the note types, deck and state tags
// from cfg.
func NewStore(client *ankiconnect.Client, cfg config.Config, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		client:    client,
		deck:      cfg.Anki.Deck,
		sourceTag: cfg.Anki.SourceTag,
		models: map[domain.Tier]config.NoteModelConfig{
			domain.TierVocabulary:   cfg.Models.Vocabulary,
			domain.TierCharacter:    cfg.Models.Character,
			domain.TierSubcomponent: cfg.Models.Subcomponent,
		},
		tags: map[domain.MasteryState]string{
			domain.StateLocked: cfg.Mastery.LockedTag,
			domain.StateNew:    cfg.Mastery.NewTag,
			domain.StateKnown:  cfg.Mastery.KnownTag,
		},
		logger: logger.With(slog.String("component", "anki_store")),
	}
}

// FindUnannotated returns vocabulary cards whose dependency field is empty.
func (s *Store) FindUnannotated(ctx context.Context) ([]*domain.Card, error) {
	model := s.models[domain.TierVocabulary]
	if model.DependencyField == "" {
		return nil, nil
	}
	q := ankiconnect.And(ankiconnect.NoteType(model.Name), ankiconnect.FieldEmpty(model.DependencyField))
	return s.findNotes(ctx, "find_unannotated", q, domain.TierVocabulary)
}

// FindByState returns cards tagged with state in the given tiers.
func (s *Store) FindByState(ctx context.Context, state domain.MasteryState, tiers ...domain.Tier) ([]*domain.Card, error) {
	tag, ok := s.tags[state]
	if !ok {
		return nil, store.NewStoreError("card", "find_by_state", "state has no tag", domain.ErrInvalidMasteryState)
	}
	if len(tiers) == 0 {
		tiers = domain.Tiers()
	}

	var cards []*domain.Card
	for _, tier := range tiers {
		model, ok := s.models[tier]
		if !ok {
			return nil, store.NewStoreError("card", "find_by_state", "unknown tier", domain.ErrInvalidTier)
		}
		found, err := s.findNotes(ctx, "find_by_state", ankiconnect.And(ankiconnect.NoteType(model.Name), ankiconnect.Tag(tag)), tier)
		if err != nil {
			return nil, err
		}
		cards = append(cards, found...)
	}
	return cards, nil
}

// Exists reports whether a note of the tier's type has identity in its key field.
func (s *Store) Exists(ctx context.Context, identity string, tier domain.Tier) (bool, error) {
	model, ok := s.models[tier]
	if !ok {
		return false, store.NewStoreError("card", "exists", "unknown tier", domain.ErrInvalidTier)
	}
	q := ankiconnect.And(ankiconnect.NoteType(model.Name), ankiconnect.Field(model.KeyField, decomp.Normalize(identity)))
	ids, err := s.client.FindNotes(ctx, q)
	if err != nil {
		return false, mapError("exists", err)
	}
	return len(ids) > 0, nil
}

// Create adds a note for card tagged with its state, tier tag and source tag.
func (s *Store) Create(ctx context.Context, card *domain.Card) (*domain.Card, error) {
	if err := card.Validate(); err != nil {
		return nil, store.NewStoreError("card", "create", "invalid card", errors.Join(store.ErrInvalidEntity, err))
	}
	tag, ok := s.tags[card.State]
	if !ok {
		return nil, store.NewStoreError("card", "create", "card has no state", store.ErrInvalidEntity)
	}
	model := s.models[card.Tier]

	fields := map[string]string{model.KeyField: card.Identity}
	if model.DependencyField != "" {
		fields[model.DependencyField] = FormatDependencies(card.Dependencies)
	}
	if model.KeywordField != "" && card.Keyword != "" {
		fields[model.KeywordField] = card.Keyword
	}
	if model.TextField != "" && card.Text != "" {
		fields[model.TextField] = card.Text
	}
	if model.ReadingField != "" && card.Reading != "" {
		fields[model.ReadingField] = card.Reading
	}

	noteID, err := s.client.AddNote(ctx, ankiconnect.Note{
		DeckName:  s.deck,
		ModelName: model.Name,
		Fields:    fields,
		Tags:      compact(s.sourceTag, model.Tag, tag),
	})
	if err != nil {
		return nil, mapError("create", err)
	}

	created := *card
	created.NoteID = noteID
	created.Dependencies = slices.Clone(card.Dependencies)
	return &created, nil
}

// Annotate writes dependencies into the note and tags it with state when set.
func (s *Store) Annotate(ctx context.Context, card *domain.Card, dependencies []string, state domain.MasteryState) error {
	model := s.models[card.Tier]
	if model.DependencyField != "" {
		fields := map[string]string{model.DependencyField: FormatDependencies(dependencies)}
		if err := s.client.UpdateNoteFields(ctx, card.NoteID, fields); err != nil {
			return mapError("annotate", err)
		}
	}
	if !state.IsSet() {
		return nil
	}
	if err := s.client.AddTags(ctx, []int64{card.NoteID}, s.tags[state]); err != nil {
		return mapError("annotate", err)
	}
	return nil
}

// Transition replaces the from tag with the to tag on the cards' notes.
func (s *Store) Transition(ctx context.Context, cards []*domain.Card, from, to domain.MasteryState) error {
	fromTag, okFrom := s.tags[from]
	toTag, okTo := s.tags[to]
	if !okFrom || !okTo {
		return store.NewStoreError("card", "transition", "state has no tag", domain.ErrInvalidMasteryState)
	}
	noteIDs := make([]int64, 0, len(cards))
	for _, c := range cards {
		if c.NoteID != 0 && !slices.Contains(noteIDs, c.NoteID) {
			noteIDs = append(noteIDs, c.NoteID)
		}
	}
	if err := s.client.ReplaceTags(ctx, noteIDs, fromTag, toTag); err != nil {
		return mapError("transition", err)
	}
	return nil
}

// Intervals returns the review interval of each card.
func (s *Store) Intervals(ctx context.Context, cardIDs []int64) ([]int, error) {
	intervals, err := s.client.GetIntervals(ctx, cardIDs)
	if err != nil {
		return nil, mapError("intervals", err)
	}
	return intervals, nil
}

// Suspend suspends cards.
func (s *Store) Suspend(ctx context.Context, cardIDs []int64) error {
	if _, err := s.client.Suspend(ctx, cardIDs); err != nil {
		return mapError("suspend", err)
	}
	return nil
}

// Unsuspend unsuspends cards.
func (s *Store) Unsuspend(ctx context.Context, cardIDs []int64) error {
	if _, err := s.client.Unsuspend(ctx, cardIDs); err != nil {
		return mapError("unsuspend", err)
	}
	return nil
}

// FindUnsuspendedLocked returns locked cards of the managed note types that
// are still in the study rotation. CardIDs holds only the unsuspended cards.
func (s *Store) FindUnsuspendedLocked(ctx context.Context) ([]*domain.Card, error) {
	var models []ankiconnect.Query
	for _, tier := range domain.Tiers() {
		models = append(models, ankiconnect.NoteType(s.models[tier].Name))
	}
	q := ankiconnect.And(
		ankiconnect.Tag(s.tags[domain.StateLocked]),
		ankiconnect.Not(ankiconnect.Suspended()),
		ankiconnect.Or(models...),
	)

	ids, err := s.client.FindCards(ctx, q)
	if err != nil {
		return nil, mapError("find_unsuspended_locked", err)
	}
	infos, err := s.client.CardsInfo(ctx, ids)
	if err != nil {
		return nil, mapError("find_unsuspended_locked", err)
	}

	byNote := make(map[int64]*domain.Card)
	var cards []*domain.Card
	for _, info := range infos {
		if info.CardID == 0 {
			continue
		}
		if c, ok := byNote[info.NoteID]; ok {
			c.CardIDs = append(c.CardIDs, info.CardID)
			continue
		}
		tier, ok := s.tierOf(info.ModelName)
		if !ok {
			continue
		}
		model := s.models[tier]
		key := info.Fields[model.KeyField].Value
		c := &domain.Card{
			NoteID:   info.NoteID,
			CardIDs:  []int64{info.CardID},
			Identity: decomp.Normalize(key),
			Tier:     tier,
			State:    domain.StateLocked,
		}
		byNote[info.NoteID] = c
		cards = append(cards, c)
	}
	return cards, nil
}

func (s *Store) findNotes(ctx context.Context, op string, q ankiconnect.Query, tier domain.Tier) ([]*domain.Card, error) {
	ids, err := s.client.FindNotes(ctx, q)
	if err != nil {
		return nil, mapError(op, err)
	}
	notes, err := s.client.NotesInfo(ctx, ids)
	if err != nil {
		return nil, mapError(op, err)
	}

	cards := make([]*domain.Card, 0, len(notes))
	for _, n := range notes {
		if n.NoteID == 0 {
			s.logger.WarnContext(ctx, "note vanished between find and info", slog.String("operation", op))
			continue
		}
		cards = append(cards, s.toCard(n, tier))
	}
	return cards, nil
}

// toCard translates a note into a card. A missing key field leaves the
// identity empty; a missing dependency field marks the card unannotated.
func (s *Store) toCard(n ankiconnect.NoteInfo, tier domain.Tier) *domain.Card {
	model := s.models[tier]
	key, _ := n.Field(model.KeyField)

	card := &domain.Card{
		NoteID:    n.NoteID,
		CardIDs:   slices.Clone(n.Cards),
		Identity:  decomp.Normalize(key),
		Tier:      tier,
		State:     s.stateOf(n.Tags),
		Annotated: true,
	}
	if model.DependencyField != "" {
		value, ok := n.Field(model.DependencyField)
		card.Annotated = ok
		card.Dependencies = ParseDependencies(value)
	}
	if model.KeywordField != "" {
		card.Keyword, _ = n.Field(model.KeywordField)
	}
	if model.TextField != "" {
		card.Text, _ = n.Field(model.TextField)
	}
	if model.ReadingField != "" {
		card.Reading, _ = n.Field(model.ReadingField)
	}
	return card
}

// stateOf decodes the mastery tags of a note. When several state tags are
// present the lowest state wins.
func (s *Store) stateOf(tags []string) domain.MasteryState {
	for _, state := range domain.MasteryStates() {
		for _, t := range tags {
			if strings.EqualFold(t, s.tags[state]) {
				return state
			}
		}
	}
	return domain.StateUnset
}

func (s *Store) tierOf(modelName string) (domain.Tier, bool) {
	for _, tier := range domain.Tiers() {
		if s.models[tier].Name == modelName {
			return tier, true
		}
	}
	return 0, false
}

// mapError translates AnkiConnect failures into store errors.
func mapError(op string, err error) error {
	var ace *ankiconnect.Error
	if !errors.As(err, &ace) {
		return store.NewStoreError("card", op, "request failed", err)
	}
	switch ace.Kind {
	case ankiconnect.KindTransport:
		return store.NewStoreError("card", op, ace.Message, fmt.Errorf("%w: %w", store.ErrUnavailable, err))
	case ankiconnect.KindMalformed:
		return store.NewStoreError("card", op, ace.Message, fmt.Errorf("%w: %w", store.ErrMalformedResponse, err))
	default:
		if strings.Contains(strings.ToLower(ace.Message), "duplicate") {
			return store.NewStoreError("card", op, ace.Message, fmt.Errorf("%w: %w: %w", store.ErrRejected, store.ErrDuplicate, err))
		}
		return store.NewStoreError("card", op, ace.Message, fmt.Errorf("%w: %w", store.ErrRejected, err))
	}
}

func compact(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
