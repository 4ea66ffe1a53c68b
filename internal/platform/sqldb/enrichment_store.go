package sqldb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/kanjigate/internal/domain"
	"github.com/phrazzld/kanjigate/internal/platform/logger"
	"github.com/phrazzld/kanjigate/internal/store"
)

// EnrichmentStore implements store.EnrichmentCache.
type EnrichmentStore struct {
	db      store.DBTX
	dialect Dialect
}

// NewEnrichmentStore creates an EnrichmentStore on db.
func NewEnrichmentStore(db store.DBTX, dialect Dialect) *EnrichmentStore {
	return &EnrichmentStore{db: db, dialect: dialect}
}

var _ store.EnrichmentCache = (*EnrichmentStore)(nil)

// Get implements store.EnrichmentCache.
func (s *EnrichmentStore) Get(ctx context.Context, kind domain.EnrichmentKind, key string) (*domain.Enrichment, error) {
	query := s.dialect.Rebind(`
		SELECT kind, key, keyword, text, source, fetched_at
		FROM enrichments
		WHERE kind = ? AND key = ?
	`)

	var e domain.Enrichment
	var kindName string
	err := s.db.QueryRowContext(ctx, query, string(kind), key).
		Scan(&kindName, &e.Key, &e.Keyword, &e.Text, &e.Source, &e.FetchedAt)
	if err != nil {
		mapped := MapError(err)
		if errors.Is(mapped, store.ErrNotFound) {
			return nil, store.ErrEnrichmentNotFound
		}
		return nil, store.NewStoreError("enrichment", "get", "failed to read enrichment", mapped)
	}
	e.Kind = domain.EnrichmentKind(kindName)
	return &e, nil
}

// Put implements store.EnrichmentCache. An existing row for the same
// (kind, key) is replaced.
func (s *EnrichmentStore) Put(ctx context.Context, e *domain.Enrichment) error {
	if e == nil || strings.TrimSpace(e.Key) == "" {
		return store.NewStoreError("enrichment", "put", "enrichment key is empty", store.ErrInvalidEntity)
	}
	if err := e.Kind.Validate(); err != nil {
		return store.NewStoreError("enrichment", "put", "invalid enrichment kind", fmt.Errorf("%w: %w", store.ErrInvalidEntity, err))
	}

	fetchedAt := e.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	query := s.dialect.Rebind(`
		INSERT INTO enrichments (kind, key, keyword, text, source, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (kind, key) DO UPDATE SET
			keyword = excluded.keyword,
			text = excluded.text,
			source = excluded.source,
			fetched_at = excluded.fetched_at
	`)

	_, err := s.db.ExecContext(ctx, query,
		string(e.Kind), e.Key, e.Keyword, e.Text, e.Source, fetchedAt.UTC())
	if err != nil {
		logger.FromContext(ctx).ErrorContext(ctx, "failed to store enrichment",
			slog.String("kind", string(e.Kind)),
			slog.String("key", e.Key),
			slog.String("error", err.Error()))
		return store.NewStoreError("enrichment", "put", "failed to store enrichment", MapError(err))
	}
	return nil
}
