package mastery

import (
	"errors"

	"github.com/phrazzld/kanjigate/internal/domain"
)

// ErrNilCard is returned when a rule is evaluated against a nil card.
var ErrNilCard = errors.New("card cannot be nil")

// Service defines the interface for mastery decisions made with a fixed set
// of parameters.
type Service interface {
	// Threshold returns the promotion threshold in days.
	Threshold() int

	// Promote returns the state of a new card after its interval signal is
	// applied. The card's state is returned unchanged when it does not qualify.
	Promote(card *domain.Card, intervals []int) (domain.MasteryState, error)

	// Unlock returns the state of a locked card after checking its
	// dependencies against the known snapshot.
	Unlock(card *domain.Card, known KnownSet) (domain.MasteryState, error)
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

// NewDefaultService creates a mastery service with default parameters
func NewDefaultService() Service {
	return &defaultService{params: NewDefaultParams()}
}

// NewServiceWithParams creates a mastery service with custom parameters
func NewServiceWithParams(params *Params) Service {
	if params == nil {
		params = NewDefaultParams()
	}
	return &defaultService{params: params}
}

func (s *defaultService) Threshold() int {
	return s.params.KnownIntervalDays
}

func (s *defaultService) Promote(card *domain.Card, intervals []int) (domain.MasteryState, error) {
	if card == nil {
		return domain.StateUnset, ErrNilCard
	}
	if card.State != domain.StateNew || !CanPromote(intervals, s.params.KnownIntervalDays) {
		return card.State, nil
	}
	return Next(card.State, EventPromote)
}

func (s *defaultService) Unlock(card *domain.Card, known KnownSet) (domain.MasteryState, error) {
	if card == nil {
		return domain.StateUnset, ErrNilCard
	}
	if !CanUnlock(card, known) {
		return card.State, nil
	}
	return Next(card.State, EventUnlock)
}
