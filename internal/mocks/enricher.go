package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/kanjigate/internal/domain"
	"github.com/phrazzld/kanjigate/internal/enrich"
)

// MockEnricher implements enrich.Enricher for testing.
type MockEnricher struct {
	// LookupFn overrides every other behaviour when set.
	LookupFn func(ctx context.Context, kind domain.EnrichmentKind, key string) (*domain.Enrichment, error)

	// Results maps a key to the enrichment returned for it. Missing keys
	// return Err, or enrich.ErrNoResult when Err is nil.
	Results map[string]*domain.Enrichment
	Err     error

	mu    sync.Mutex
	calls []string
}

// Lookup implements enrich.Enricher.
func (m *MockEnricher) Lookup(ctx context.Context, kind domain.EnrichmentKind, key string) (*domain.Enrichment, error) {
	m.mu.Lock()
	m.calls = append(m.calls, key)
	m.mu.Unlock()

	if m.LookupFn != nil {
		return m.LookupFn(ctx, kind, key)
	}
	if r, ok := m.Results[key]; ok {
		out := *r
		out.Kind = kind
		out.Key = key
		return &out, nil
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return nil, enrich.ErrNoResult
}

// Calls returns the keys passed to Lookup, in order.
func (m *MockEnricher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}
