// Package store opens the record store selected by configuration.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ArowuTest/team-raffle-backend/internal/config"
	"github.com/ArowuTest/team-raffle-backend/internal/repositories"
	"github.com/ArowuTest/team-raffle-backend/internal/repositories/memory"
	mongorepo "github.com/ArowuTest/team-raffle-backend/internal/repositories/mongodb"
	pgrepo "github.com/ArowuTest/team-raffle-backend/internal/repositories/postgres"
	mongodb "github.com/ArowuTest/team-raffle-backend/pkg/mongodb"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"
)

const closeTimeout = 5 * time.Second

// Open connects to the configured store and returns its repositories with a close func
func Open(ctx context.Context, cfg *config.Config) (repositories.Repositories, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverMongoDB:
		client, err := mongodb.NewClient(ctx, cfg.MongoDB.URI)
		if err != nil {
			return repositories.Repositories{}, nil, err
		}
		closeFn := func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
			defer cancel()
			if err := client.Disconnect(closeCtx); err != nil {
				slog.Error("Error disconnecting from MongoDB", "error", err)
			}
		}
		db := client.Database(cfg.MongoDB.Database)
		slog.Info("Using MongoDB store", "database", cfg.MongoDB.Database)
		return mongorepo.NewRepositories(db, cfg.Store.MaxAttempts), closeFn, nil

	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return repositories.Repositories{}, nil, fmt.Errorf("failed to open PostgreSQL pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return repositories.Repositories{}, nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
		}
		repos, err := pgrepo.NewRepositories(ctx, pool, cfg.Store.MaxAttempts)
		if err != nil {
			pool.Close()
			return repositories.Repositories{}, nil, err
		}
		slog.Info("Using PostgreSQL store")
		return repos, pool.Close, nil

	case config.DriverMemory:
		slog.Warn("Using in-memory store, records are lost on exit")
		return memory.NewRepositories(cfg.Store.MaxAttempts), func() {}, nil

	default:
		return repositories.Repositories{}, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
