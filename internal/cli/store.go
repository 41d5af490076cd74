package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/pkordes/places-api/internal/config"
	"github.com/pkordes/places-api/internal/repo"
)

// store bundles the PlaceRepo for the configured driver with a *sql.DB view
// of the same database for goose.
type store struct {
	places repo.PlaceRepo
	sqlDB  *sql.DB
	close  func()
}

// Close releases every connection held by the store.
func (s *store) Close() {
	s.close()
}

// openStore connects to the configured database and verifies it is reachable.
func openStore(ctx context.Context, cfg config.Config) (*store, error) {
	switch cfg.DatabaseDriver {
	case config.DriverSQLite:
		db, err := repo.OpenSQLite(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("cli.openStore: %w", err)
		}
		return &store{
			places: repo.NewSQLitePlaceRepo(db),
			sqlDB:  db,
			close:  func() { db.Close() },
		}, nil

	case config.DriverPostgres:
		// pgxpool manages a pool of Postgres connections.
		// New() does not open connections immediately; the first query does.
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("cli.openStore: create pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("cli.openStore: ping: %w", err)
		}
		sqlDB := stdlib.OpenDBFromPool(pool)
		return &store{
			places: repo.NewPlaceRepo(pool),
			sqlDB:  sqlDB,
			close: func() {
				sqlDB.Close()
				pool.Close()
			},
		}, nil

	default:
		return nil, fmt.Errorf("cli.openStore: unsupported driver %q", cfg.DatabaseDriver)
	}
}
