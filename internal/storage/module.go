// Package storage selects the storage backend from configuration.
package storage

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/storefront/internal/config"
	"github.com/polkiloo/storefront/internal/domain/repository"
	"github.com/polkiloo/storefront/internal/storage/memory"
	"github.com/polkiloo/storefront/internal/storage/postgres"
)

// Module wires the storage backend and repository adapters.
var Module = fx.Options(
	fx.Provide(newFactory),
	fx.Provide(
		func(f repository.Factory) repository.InventoryRepository { return f.Inventory() },
		func(f repository.Factory) repository.OrderRepository { return f.Orders() },
	),
	fx.Invoke(registerLifecycle),
)

type factoryParams struct {
	fx.In

	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

var newPostgres = func(ctx context.Context, dsn string, logger *slog.Logger) (*postgres.Storage, error) {
	return postgres.New(ctx, dsn, logger)
}

func newFactory(p factoryParams) (repository.Factory, error) {
	if p.Config.DatabaseURI == "" {
		p.Logger.Warn("DATABASE_URI is empty, using in-memory storage")
		return memory.New(p.Config.InventorySeed), nil
	}

	st, err := newPostgres(p.Ctx, p.Config.DatabaseURI, p.Logger)
	if err != nil {
		return nil, err
	}
	if len(p.Config.InventorySeed) > 0 {
		if err := st.SeedInventory(p.Ctx, p.Config.InventorySeed); err != nil {
			st.Close()
			return nil, err
		}
	}
	return st, nil
}

func registerLifecycle(lc fx.Lifecycle, factory repository.Factory) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			factory.Close()
			return nil
		},
	})
}
