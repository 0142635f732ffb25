package database

import (
	"context"
	"fmt"
	"log/slog"

	"echo-gateway/internal/config"
	"echo-gateway/internal/registry"
)

// Closer releases whatever backs a subscription store.
type Closer func(ctx context.Context) error

func noopCloser(context.Context) error { return nil }

// OpenStore builds the subscription store selected by STORE_DRIVER.
func OpenStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (registry.Store, Closer, error) {
	switch cfg.Store.Driver {
	case "", "memory":
		log.Warn("Using in-memory subscription store; state is not shared between processes")
		return registry.NewMemoryStore(), noopCloser, nil

	case "redis":
		rc, err := NewRedisConnection(cfg.Redis, log)
		if err != nil {
			return nil, nil, err
		}
		return registry.NewRedisStore(rc.GetClient(), ""), func(context.Context) error { return rc.Close() }, nil

	case "postgres", "postgresql", "mysql":
		db, err := NewSQLConnection(cfg.Store.Driver, cfg.Database, log)
		if err != nil {
			return nil, nil, err
		}
		store := registry.NewGormStore(db)
		if err := store.Migrate(ctx); err != nil {
			CloseSQL(db)
			return nil, nil, fmt.Errorf("failed to migrate subscriptions table: %w", err)
		}
		return store, func(context.Context) error { return CloseSQL(db) }, nil

	case "mongo", "mongodb":
		mdb, err := NewMongoConnection(cfg.Mongo, log)
		if err != nil {
			return nil, nil, err
		}
		store := registry.NewMongoStore(mdb.DB.Collection(cfg.Mongo.Collection))
		if err := store.EnsureIndexes(ctx); err != nil {
			mdb.Close(context.Background())
			return nil, nil, fmt.Errorf("failed to create subscription indexes: %w", err)
		}
		return store, mdb.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}
