package main

import (
	"context"
	"fmt"

	"emoney-core/config"
	pgStorage "emoney-core/internal/adapter/storage/postgres"
	"emoney-core/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// cliEnv loads configuration and opens the database on demand, so commands
// that need neither (hash-pin) run without a config file.
type cliEnv struct {
	configPath *string
}

func (e *cliEnv) load() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(*e.configPath)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}
	return cfg, logger.New(cfg.Log.Level, cfg.Log.Pretty), nil
}

// open connects to PostgreSQL. The memory driver has no state to operate on
// from a separate process.
func (e *cliEnv) open(ctx context.Context) (*config.Config, *pgxpool.Pool, zerolog.Logger, error) {
	cfg, log, err := e.load()
	if err != nil {
		return nil, nil, log, err
	}
	if cfg.Storage.Driver != config.DriverPostgres {
		return nil, nil, log, fmt.Errorf("emoneyctl requires storage.driver=%s, got %q", config.DriverPostgres, cfg.Storage.Driver)
	}
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, nil, log, fmt.Errorf("connect postgres: %w", err)
	}
	return cfg, pool, log, nil
}
