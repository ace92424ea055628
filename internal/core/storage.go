package core

import (
	"contactbook/internal/config"
	"contactbook/internal/infra/persistence/memory"
	"contactbook/internal/infra/persistence/postgres"
	"contactbook/internal/infra/persistence/sqlite"
	"context"
	"fmt"
	"io"
)

// OpenPersistentStore selects a backend from the storage configuration.
// An empty driver defaults to sqlite. The returned closer releases database
// handles and is a no-op for the memory driver.
func OpenPersistentStore(ctx context.Context, cfg config.StorageConfig, engine *RulesEngine) (PersistentStore, io.Closer, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = config.StorageSQLite
	}
	switch driver {
	case config.StorageMemory:
		return memory.NewStore(engine), nopCloser{}, nil
	case config.StorageSQLite:
		store, err := sqlite.NewStore(cfg.SQLitePath, engine)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case config.StoragePostgres:
		store, err := postgres.NewStore(ctx, cfg.PostgresDSN, engine)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
