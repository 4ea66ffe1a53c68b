package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/kanjigate/internal/ankiconnect"
	"github.com/phrazzld/kanjigate/internal/config"
	"github.com/phrazzld/kanjigate/internal/curriculum"
	"github.com/phrazzld/kanjigate/internal/domain/decomp"
	"github.com/phrazzld/kanjigate/internal/domain/mastery"
	"github.com/phrazzld/kanjigate/internal/enrich"
	"github.com/phrazzld/kanjigate/internal/platform/anki"
	"github.com/phrazzld/kanjigate/internal/platform/gemini"
	"github.com/phrazzld/kanjigate/internal/platform/jpdb"
	"github.com/phrazzld/kanjigate/internal/platform/logger"
	"github.com/phrazzld/kanjigate/internal/platform/sqldb"
	"github.com/phrazzld/kanjigate/internal/service"
	"github.com/phrazzld/kanjigate/internal/store"
)

// application holds the wired dependencies of one command invocation.
type application struct {
	config *config.Config
	logger *slog.Logger
	anki   *ankiconnect.Client
	cards  store.CardStore
	table  decomp.Table
	cache  *cacheDB
	sync   *service.SyncService
}

// cacheDB is the optional SQL database behind the enrichment cache and the
// run ledger. A nil *cacheDB means caching is disabled.
type cacheDB struct {
	db          *sql.DB
	enrichments *sqldb.EnrichmentStore
	runs        *sqldb.RunStore
}

// openCache opens and migrates the cache database. It returns nil when the
// configured driver is "none".
func openCache(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) (*cacheDB, error) {
	if cfg.Driver == "none" {
		return nil, nil
	}
	db, dialect, err := sqldb.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	return &cacheDB{
		db:          db,
		enrichments: sqldb.NewEnrichmentStore(db, dialect),
		runs:        sqldb.NewRunStore(db, dialect),
	}, nil
}

func (c *cacheDB) Close() error {
	if c == nil {
		return nil
	}
	return c.db.Close()
}

// setup loads configuration and the logger shared by every command.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.Setup(*cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	return cfg, log, nil
}

// loadTable reads the decomposition table. Without one every character is
// its own component.
func loadTable(path string, logger *slog.Logger) (decomp.Table, error) {
	if path == "" {
		logger.Warn("no decomposition table configured, characters will not be decomposed")
		return decomp.NewTable(nil), nil
	}
	table, err := curriculum.LoadTable(path)
	if err != nil {
		return decomp.Table{}, fmt.Errorf("failed to load decomposition table: %w", err)
	}
	logger.Debug("decomposition table loaded",
		slog.String("path", path),
		slog.Int("entries", table.Len()))
	return table, nil
}

// newEnricher builds the lookup chain: jpdb.io first, then Gemini when an
// API key is configured, behind the cache when one is open.
func newEnricher(ctx context.Context, cfg *config.Config, cache *cacheDB, logger *slog.Logger) (enrich.Enricher, error) {
	var chain enrich.Chain
	if cfg.Enrich.Enabled {
		client, err := jpdb.NewFromConfig(cfg.Enrich, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create jpdb client: %w", err)
		}
		chain = append(chain, client)
	}
	if cfg.LLM.GeminiAPIKey != "" {
		g, err := gemini.NewFromConfig(ctx, cfg.LLM, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini enricher: %w", err)
		}
		chain = append(chain, g)
	}

	if len(chain) == 0 {
		logger.Info("enrichment disabled")
		return enrich.Nop{}, nil
	}
	if cache == nil {
		return chain, nil
	}
	return enrich.NewCached(chain, cache.enrichments, logger), nil
}

// newApplication connects to AnkiConnect and the cache and wires the sync
// services. The caller must call cleanup.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (app *application, err error) {
	app = &application{config: cfg, logger: logger}
	defer func() {
		if err != nil {
			app.cleanup()
			app = nil
		}
	}()

	if app.table, err = loadTable(cfg.Data.DecompositionPath, logger); err != nil {
		return app, err
	}

	app.anki, err = ankiconnect.New(cfg.Anki.URL,
		ankiconnect.WithTimeout(cfg.Anki.Timeout),
		ankiconnect.WithLogger(logger))
	if err != nil {
		return app, fmt.Errorf("failed to create AnkiConnect client: %w", err)
	}
	version, err := app.anki.Version(ctx)
	if err != nil {
		return app, fmt.Errorf("AnkiConnect is not reachable at %s (is Anki running?): %w", cfg.Anki.URL, err)
	}
	if version < ankiconnect.APIVersion {
		logger.Warn("AnkiConnect is older than expected",
			slog.Int("version", version),
			slog.Int("expected", ankiconnect.APIVersion))
	}

	if app.cache, err = openCache(ctx, cfg.Cache, logger); err != nil {
		return app, err
	}

	enricher, err := newEnricher(ctx, cfg, app.cache, logger)
	if err != nil {
		return app, err
	}

	app.cards = anki.NewStore(app.anki, *cfg, logger)

	materializer, err := service.NewMaterializer(app.cards, enricher, logger)
	if err != nil {
		return app, fmt.Errorf("failed to create materializer: %w", err)
	}
	rules := mastery.NewServiceWithParams(mastery.NewParams(mastery.ParamsConfig{
		KnownIntervalDays: cfg.Mastery.KnownIntervalDays,
	}))
	masteryService, err := service.NewMasteryService(app.cards, app.table, rules, logger)
	if err != nil {
		return app, fmt.Errorf("failed to create mastery service: %w", err)
	}

	var opts []service.SyncOption
	if app.cache != nil {
		opts = append(opts, service.WithLedger(app.cache.runs))
	}
	app.sync, err = service.NewSyncService(app.cards, app.table, materializer, masteryService, logger, opts...)
	if err != nil {
		return app, fmt.Errorf("failed to create sync service: %w", err)
	}

	logger.Debug("application initialized",
		slog.Int("ankiconnect_version", version),
		slog.Bool("cache", app.cache != nil))
	return app, nil
}

// cleanup releases the AnkiConnect client and the cache database.
func (app *application) cleanup() {
	if err := app.cache.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		app.logger.Error("failed to close cache database", slog.String("error", err.Error()))
	}
	if app.anki != nil {
		app.anki.Close()
	}
}
