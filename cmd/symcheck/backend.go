package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/symcheck/symcheck/internal/config"
	"github.com/symcheck/symcheck/internal/domain/triage"
	"github.com/symcheck/symcheck/internal/platform/db"
	"github.com/symcheck/symcheck/internal/platform/fuzzy"
)

// backend is the store selected by STORE_DRIVER plus what the server needs
// around it.
type backend struct {
	driver string
	store  triage.Store
	pool   *pgxpool.Pool // postgres only
	pinger db.Pinger     // nil for the memory driver
	close  func()
}

func (b *backend) Close() {
	if b.close != nil {
		b.close()
	}
}

func openBackend(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*backend, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, poolConfig(cfg))
		if err != nil {
			return nil, err
		}
		logger.Info().Str("schema", cfg.DBSchema).Msg("connected to postgres")
		return &backend{
			driver: cfg.StoreDriver,
			store:  triage.NewStorePG(pool),
			pool:   pool,
			pinger: pool,
			close:  pool.Close,
		}, nil

	case config.DriverSQLite:
		s, err := triage.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if cfg.SeedFixture != "" {
			if err := seedSQLite(ctx, s, cfg.SeedFixture, logger); err != nil {
				s.Close()
				return nil, err
			}
		}
		logger.Info().Str("path", cfg.SQLitePath).Msg("opened sqlite store")
		return &backend{
			driver: cfg.StoreDriver,
			store:  s,
			pinger: s,
			close:  func() { s.Close() },
		}, nil

	case config.DriverMemory:
		s := triage.NewMemoryStore()
		if cfg.SeedFixture != "" {
			var err error
			if s, err = triage.NewMemoryStoreFromFile(cfg.SeedFixture); err != nil {
				return nil, err
			}
			logger.Info().Str("fixture", cfg.SeedFixture).Msg("seeded memory store")
		}
		return &backend{driver: cfg.StoreDriver, store: s}, nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
}

// poolConfig scopes every pooled connection to DB_SCHEMA, so queries outside
// a request (startup and scheduled corpus loads, the search command) see the
// same tables as API requests.
func poolConfig(cfg *config.Config) db.PoolConfig {
	return db.PoolConfig{
		URL:             cfg.DatabaseURL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		ApplicationName: "symcheck",
		Schema:          cfg.DBSchema,
	}
}

// seedSQLite loads the fixture only into an empty database.
func seedSQLite(ctx context.Context, s *triage.SQLiteStore, path string, logger zerolog.Logger) error {
	empty, err := s.Empty(ctx)
	if err != nil {
		return fmt.Errorf("check sqlite store: %w", err)
	}
	if !empty {
		logger.Debug().Msg("sqlite store already populated, skipping seed")
		return nil
	}
	snap, err := triage.LoadSnapshotFile(path)
	if err != nil {
		return err
	}
	if err := s.Seed(ctx, snap); err != nil {
		return fmt.Errorf("seed sqlite store: %w", err)
	}
	logger.Info().Str("fixture", path).Msg("seeded sqlite store")
	return nil
}

func newService(cfg *config.Config, store triage.Store, logger zerolog.Logger) (*triage.Service, error) {
	scorer, err := fuzzy.ByName(cfg.MatchScorer)
	if err != nil {
		return nil, err
	}
	corpus := triage.NewCorpusCache(store, logger.With().Str("component", "corpus").Logger())
	svc := triage.NewService(store, corpus, triage.NewMatcher(scorer, cfg.MatchWorkers))
	svc.SetLogger(logger.With().Str("component", "triage").Logger())
	return svc, nil
}
