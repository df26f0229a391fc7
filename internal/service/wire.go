package service

import (
	"context"
	"fmt"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/analytics"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/cache"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/config"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/ledger"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/llm"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/repository"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/storage"
	"github.com/rs/zerolog/log"
)

// FromConfig wires an AnalyticsService from cfg. Optional collaborators that are not
// configured fall back to in-process implementations. The returned func releases
// connections.
func FromConfig(ctx context.Context, cfg *config.Config) (*AnalyticsService, func(), error) {
	closers := []func(){}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	engine, err := analytics.NewEngine(cfg.Analytics.EngineConfig())
	if err != nil {
		return nil, cleanup, err
	}

	source, err := ledger.Open(ctx, cfg.App, cfg.Sheets)
	if err != nil {
		return nil, cleanup, err
	}

	reportCache, err := cache.NewReportCache(ctx, cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("analytics: redis unavailable, caching disabled")
		reportCache = cache.NewNoopReportCache()
	}

	var runs repository.RunRepository = repository.NewMemoryRunRepository()
	if cfg.Database.Enabled {
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to connect to database: %w", err)
		}
		closers = append(closers, func() { db.Close() })
		runs = postgres.NewRunRepository(db)
	}

	store, err := storage.New(cfg.Storage)
	if err != nil {
		return nil, cleanup, err
	}

	var summarizer *llm.Summarizer
	if client := llm.NewClient(cfg.LLM); client.Enabled() {
		summarizer = llm.NewSummarizer(client)
	}

	svc, err := NewAnalyticsService(Deps{
		Source:     source,
		Engine:     engine,
		Cache:      reportCache,
		Runs:       runs,
		Storage:    store,
		Prefix:     cfg.Storage.Prefix,
		Summarizer: summarizer,
	})
	if err != nil {
		return nil, cleanup, err
	}

	log.Info().
		Str("source", source.Name()).
		Bool("cache", cfg.Cache.Enabled).
		Bool("database", cfg.Database.Enabled).
		Str("storage", cfg.Storage.Provider).
		Bool("llm", summarizer != nil).
		Msg("analytics: service ready")

	return svc, cleanup, nil
}
