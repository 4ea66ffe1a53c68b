package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/kanjigate/internal/domain"
	"github.com/phrazzld/kanjigate/internal/store"
)

// Enricher looks up the text attached to a new card.
type Enricher interface {
	// Lookup returns the enrichment for key. It returns ErrNoResult when
	// the service has nothing for the key.
	Lookup(ctx context.Context, kind domain.EnrichmentKind, key string) (*domain.Enrichment, error)
}

// Func adapts a function to the Enricher interface.
type Func func(ctx context.Context, kind domain.EnrichmentKind, key string) (*domain.Enrichment, error)

// Lookup calls f.
func (f Func) Lookup(ctx context.Context, kind domain.EnrichmentKind, key string) (*domain.Enrichment, error) {
	return f(ctx, kind, key)
}

// Nop never finds anything. It is used when enrichment is disabled.
type Nop struct{}

// Lookup always returns ErrNoResult.
func (Nop) Lookup(context.Context, domain.EnrichmentKind, string) (*domain.Enrichment, error) {
	return nil, ErrNoResult
}

// Chain tries enrichers in order and returns the first non-empty result.
// When every enricher fails, the errors are joined.
type Chain []Enricher

// Lookup implements Enricher.
func (c Chain) Lookup(ctx context.Context, kind domain.EnrichmentKind, key string) (*domain.Enrichment, error) {
	var errs []error
	for _, e := range c {
		result, err := e.Lookup(ctx, kind, key)
		if err == nil && !result.IsEmpty() {
			return result, nil
		}
		if err != nil && !errors.Is(err, ErrNoResult) {
			errs = append(errs, err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return nil, ErrNoResult
}

// Cached decorates an enricher with a persistent cache. Only non-empty
// results are stored. Cache failures are logged and never fail a lookup.
type Cached struct {
	next   Enricher
	cache  store.EnrichmentCache
	logger *slog.Logger
}

// NewCached wraps next with cache.
func NewCached(next Enricher, cache store.EnrichmentCache, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{next: next, cache: cache, logger: logger.With(slog.String("component", "enrichment_cache"))}
}

// Lookup implements Enricher.
func (c *Cached) Lookup(ctx context.Context, kind domain.EnrichmentKind, key string) (*domain.Enrichment, error) {
	cached, err := c.cache.Get(ctx, kind, key)
	switch {
	case err == nil && !cached.IsEmpty():
		return cached, nil
	case err != nil && !store.IsNotFoundError(err):
		c.logger.WarnContext(ctx, "enrichment cache read failed",
			slog.String("kind", string(kind)),
			slog.String("key", key),
			slog.String("error", err.Error()))
	}

	result, err := c.next.Lookup(ctx, kind, key)
	if err != nil {
		return nil, err
	}
	if result.IsEmpty() {
		return nil, ErrNoResult
	}

	if err := c.cache.Put(ctx, result); err != nil {
		c.logger.WarnContext(ctx, "enrichment cache write failed",
			slog.String("kind", string(kind)),
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
	return result, nil
}

// Validate checks a lookup request.
func Validate(kind domain.EnrichmentKind, key string) error {
	if err := kind.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: empty key", ErrNoResult)
	}
	return nil
}
