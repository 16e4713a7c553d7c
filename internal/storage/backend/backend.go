// Package backend opens the storage.Store selected by configuration.
package backend

import (
	"context"
	"log/slog"

	"github.com/JonMunkholm/compatdb/internal/config"
	"github.com/JonMunkholm/compatdb/internal/storage"
	"github.com/JonMunkholm/compatdb/internal/storage/postgres"
	"github.com/JonMunkholm/compatdb/internal/storage/sqlite"
)

// Open connects to the configured dialect and ensures the schema exists.
// The caller owns the returned store and must Close it.
func Open(ctx context.Context, cfg config.DatabaseConfig) (storage.Store, error) {
	dialect, err := storage.ParseDialect(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	var store storage.Store
	switch dialect {
	case storage.DialectSQLite:
		store, err = sqlite.Open(ctx, cfg.URL)
	default:
		store, err = postgres.Open(ctx, postgres.PoolConfig{
			URL:             cfg.URL,
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			MaxConnLifetime: cfg.MaxConnLifetime,
			MaxConnIdleTime: cfg.MaxConnIdleTime,
		})
	}
	if err != nil {
		return nil, err
	}

	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, err
	}

	slog.Debug("opened catalog store", "dialect", dialect)
	return store, nil
}
