package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/soldwatch/harvest-cli/internal/config"
	"github.com/soldwatch/harvest-cli/internal/store"
)

func initStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = "harvest.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}
