package mocks

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/phrazzld/kanjigate/internal/domain"
	"github.com/phrazzld/kanjigate/internal/domain/decomp"
	"github.com/phrazzld/kanjigate/internal/store"
)

// Operation names passed to MemoryCardStore.FailFn.
const (
	OpFindUnannotated       = "FindUnannotated"
	OpFindByState           = "FindByState"
	OpExists                = "Exists"
	OpCreate                = "Create"
	OpAnnotate              = "Annotate"
	OpTransition            = "Transition"
	OpIntervals             = "Intervals"
	OpSuspend               = "Suspend"
	OpUnsuspend             = "Unsuspend"
	OpFindUnsuspendedLocked = "FindUnsuspendedLocked"
)

type memCard struct {
	id        int64
	interval  int
	suspended bool
}

type memNote struct {
	card  domain.Card
	cards []*memCard
}

// MemoryCardStore implements store.CardStore in memory.
type MemoryCardStore struct {
	// FailFn, when set, is consulted at the start of every operation. card
	// is the card being written, or nil for listing and batch operations.
	// A non-nil return is returned from the operation unchanged.
	FailFn func(op string, card *domain.Card) error

	mu     sync.Mutex
	notes  []*memNote
	nextID int64
	calls  map[string]int
}

var _ store.CardStore = (*MemoryCardStore)(nil)

// NewMemoryCardStore creates an empty store.
func NewMemoryCardStore() *MemoryCardStore {
	return &MemoryCardStore{nextID: 1000, calls: make(map[string]int)}
}

// Seed inserts card as if it already existed in the collection. One card id
// is allocated per interval (a single new card with interval 0 when none are
// given). The stored copy is returned.
func (m *MemoryCardStore) Seed(card domain.Card, intervals ...int) *domain.Card {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(intervals) == 0 {
		intervals = []int{0}
	}
	n := m.insert(card)
	for _, iv := range intervals {
		m.addCard(n, iv)
	}
	return clone(&n.card)
}

// SetInterval changes the review interval of a card id.
func (m *MemoryCardStore) SetInterval(cardID int64, days int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c := m.cardByID(cardID); c != nil {
		c.interval = days
	}
}

// SetSuspended changes the suspension flag of a card id.
func (m *MemoryCardStore) SetSuspended(cardID int64, suspended bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c := m.cardByID(cardID); c != nil {
		c.suspended = suspended
	}
}

// Get returns a copy of the card with the natural key.
func (m *MemoryCardStore) Get(identity string, tier domain.Tier) (*domain.Card, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.find(identity, tier)
	if n == nil {
		return nil, false
	}
	return clone(&n.card), true
}

// Cards returns a copy of every card in insertion order.
func (m *MemoryCardStore) Cards() []*domain.Card {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Card, 0, len(m.notes))
	for _, n := range m.notes {
		out = append(out, clone(&n.card))
	}
	return out
}

// IsSuspended reports whether every card of the note with the natural key
// is suspended.
func (m *MemoryCardStore) IsSuspended(identity string, tier domain.Tier) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.find(identity, tier)
	if n == nil || len(n.cards) == 0 {
		return false
	}
	for _, c := range n.cards {
		if !c.suspended {
			return false
		}
	}
	return true
}

// Calls returns how many times op was invoked.
func (m *MemoryCardStore) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// FindUnannotated implements store.CardStore.
func (m *MemoryCardStore) FindUnannotated(ctx context.Context) ([]*domain.Card, error) {
	if err := m.enter(OpFindUnannotated, nil); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collect(func(n *memNote) bool {
		return n.card.Tier == domain.TierVocabulary && len(n.card.Dependencies) == 0
	}), nil
}

// FindByState implements store.CardStore.
func (m *MemoryCardStore) FindByState(ctx context.Context, state domain.MasteryState, tiers ...domain.Tier) ([]*domain.Card, error) {
	if err := m.enter(OpFindByState, nil); err != nil {
		return nil, err
	}
	if !state.IsSet() {
		return nil, store.NewStoreError("card", "find_by_state", "state has no tag", domain.ErrInvalidMasteryState)
	}
	if len(tiers) == 0 {
		tiers = domain.Tiers()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collect(func(n *memNote) bool {
		return n.card.State == state && slices.Contains(tiers, n.card.Tier)
	}), nil
}

// Exists implements store.CardStore.
func (m *MemoryCardStore) Exists(ctx context.Context, identity string, tier domain.Tier) (bool, error) {
	if err := m.enter(OpExists, &domain.Card{Identity: identity, Tier: tier}); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(identity, tier) != nil, nil
}

// Create implements store.CardStore. A second card with the same natural key
// is rejected as a duplicate.
func (m *MemoryCardStore) Create(ctx context.Context, card *domain.Card) (*domain.Card, error) {
	if err := m.enter(OpCreate, card); err != nil {
		return nil, err
	}
	if err := card.Validate(); err != nil {
		return nil, store.NewStoreError("card", "create", "invalid card", fmt.Errorf("%w: %w", store.ErrInvalidEntity, err))
	}
	if !card.State.IsSet() {
		return nil, store.NewStoreError("card", "create", "card has no state", store.ErrInvalidEntity)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.find(card.Identity, card.Tier) != nil {
		return nil, store.NewStoreError("card", "create", "cannot create note because it is a duplicate",
			fmt.Errorf("%w: %w", store.ErrRejected, store.ErrDuplicate))
	}
	n := m.insert(*card)
	m.addCard(n, 0)

	created := *card
	created.NoteID = n.card.NoteID
	created.Dependencies = slices.Clone(card.Dependencies)
	return &created, nil
}

// Annotate implements store.CardStore. Adding a state tag to a card that
// already carries one leaves the lower state in effect.
func (m *MemoryCardStore) Annotate(ctx context.Context, card *domain.Card, dependencies []string, state domain.MasteryState) error {
	if err := m.enter(OpAnnotate, card); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.byNoteID(card.NoteID)
	if n == nil {
		return store.NewStoreError("card", "annotate", "note not found", store.ErrRejected)
	}
	n.card.Dependencies = slices.Clone(dependencies)
	n.card.Annotated = true
	if state.IsSet() && (!n.card.State.IsSet() || state < n.card.State) {
		n.card.State = state
	}
	return nil
}

// Transition implements store.CardStore. Notes not in from are left alone.
func (m *MemoryCardStore) Transition(ctx context.Context, cards []*domain.Card, from, to domain.MasteryState) error {
	if err := m.enter(OpTransition, firstCard(cards)); err != nil {
		return err
	}
	if !from.IsSet() || !to.IsSet() {
		return store.NewStoreError("card", "transition", "state has no tag", domain.ErrInvalidMasteryState)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range cards {
		if n := m.byNoteID(c.NoteID); n != nil && n.card.State == from {
			n.card.State = to
		}
	}
	return nil
}

// Intervals implements store.CardStore.
func (m *MemoryCardStore) Intervals(ctx context.Context, cardIDs []int64) ([]int, error) {
	if err := m.enter(OpIntervals, nil); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, 0, len(cardIDs))
	for _, id := range cardIDs {
		c := m.cardByID(id)
		if c == nil {
			return nil, store.NewStoreError("card", "intervals", fmt.Sprintf("card %d not found", id), store.ErrRejected)
		}
		out = append(out, c.interval)
	}
	return out, nil
}

// Suspend implements store.CardStore.
func (m *MemoryCardStore) Suspend(ctx context.Context, cardIDs []int64) error {
	return m.setSuspended(OpSuspend, cardIDs, true)
}

// Unsuspend implements store.CardStore.
func (m *MemoryCardStore) Unsuspend(ctx context.Context, cardIDs []int64) error {
	return m.setSuspended(OpUnsuspend, cardIDs, false)
}

// FindUnsuspendedLocked implements store.CardStore. CardIDs of each result
// holds only the unsuspended cards.
func (m *MemoryCardStore) FindUnsuspendedLocked(ctx context.Context) ([]*domain.Card, error) {
	if err := m.enter(OpFindUnsuspendedLocked, nil); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Card
	for _, n := range m.notes {
		if n.card.State != domain.StateLocked {
			continue
		}
		var ids []int64
		for _, c := range n.cards {
			if !c.suspended {
				ids = append(ids, c.id)
			}
		}
		if len(ids) == 0 {
			continue
		}
		c := clone(&n.card)
		c.CardIDs = ids
		out = append(out, c)
	}
	return out, nil
}

func (m *MemoryCardStore) setSuspended(op string, cardIDs []int64, suspended bool) error {
	if err := m.enter(op, nil); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range cardIDs {
		if c := m.cardByID(id); c != nil {
			c.suspended = suspended
		}
	}
	return nil
}

func (m *MemoryCardStore) enter(op string, card *domain.Card) error {
	m.mu.Lock()
	m.calls[op]++
	fail := m.FailFn
	m.mu.Unlock()
	if fail != nil {
		return fail(op, card)
	}
	return nil
}

func (m *MemoryCardStore) insert(card domain.Card) *memNote {
	m.nextID++
	card.NoteID = m.nextID
	card.Identity = decomp.Normalize(card.Identity)
	card.Dependencies = slices.Clone(card.Dependencies)
	card.CardIDs = nil
	n := &memNote{card: card}
	m.notes = append(m.notes, n)
	return n
}

func (m *MemoryCardStore) addCard(n *memNote, interval int) {
	m.nextID++
	n.cards = append(n.cards, &memCard{id: m.nextID, interval: interval})
	n.card.CardIDs = append(n.card.CardIDs, m.nextID)
}

func (m *MemoryCardStore) collect(match func(*memNote) bool) []*domain.Card {
	var out []*domain.Card
	for _, n := range m.notes {
		if match(n) {
			out = append(out, clone(&n.card))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].NoteID < out[j].NoteID })
	return out
}

func (m *MemoryCardStore) find(identity string, tier domain.Tier) *memNote {
	identity = decomp.Normalize(identity)
	for _, n := range m.notes {
		if n.card.Identity == identity && n.card.Tier == tier {
			return n
		}
	}
	return nil
}

func (m *MemoryCardStore) byNoteID(id int64) *memNote {
	for _, n := range m.notes {
		if n.card.NoteID == id {
			return n
		}
	}
	return nil
}

func (m *MemoryCardStore) cardByID(id int64) *memCard {
	for _, n := range m.notes {
		for _, c := range n.cards {
			if c.id == id {
				return c
			}
		}
	}
	return nil
}

func clone(c *domain.Card) *domain.Card {
	out := *c
	out.CardIDs = slices.Clone(c.CardIDs)
	out.Dependencies = slices.Clone(c.Dependencies)
	return &out
}

func firstCard(cards []*domain.Card) *domain.Card {
	if len(cards) == 0 {
		return nil
	}
	return cards[0]
}
