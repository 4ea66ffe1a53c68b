package store

import (
	"context"

	"github.com/phrazzld/kanjigate/internal/domain"
)

// EnrichmentCache defines the interface for persisted lookup results.
type EnrichmentCache interface {
	// Get returns the cached enrichment for (kind, key).
	// Returns ErrEnrichmentNotFound on a cache miss.
	Get(ctx context.Context, kind domain.EnrichmentKind, key string) (*domain.Enrichment, error)

	// Put stores or replaces the enrichment for its (kind, key).
	Put(ctx context.Context, enrichment *domain.Enrichment) error
}
