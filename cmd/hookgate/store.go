package main

import (
	"context"
	"fmt"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/kv"
	"github.com/xraph/grove/kv/drivers/redisdriver"

	"github.com/xraph/hookgate/config"
	"github.com/xraph/hookgate/store"
	"github.com/xraph/hookgate/store/memory"
	mongostore "github.com/xraph/hookgate/store/mongo"
	pgstore "github.com/xraph/hookgate/store/postgres"
	redisstore "github.com/xraph/hookgate/store/redis"
	sqlitestore "github.com/xraph/hookgate/store/sqlite"
)

// openStore connects the configured backend.
func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return memory.New(), nil

	case config.DriverPostgres:
		drv := pgdriver.New()
		if err := drv.Open(ctx, cfg.DSN); err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db, err := grove.Open(drv)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return pgstore.New(db), nil

	case config.DriverSQLite:
		drv := sqlitedriver.New()
		if err := drv.Open(ctx, cfg.DSN); err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		db, err := grove.Open(drv)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return sqlitestore.New(db), nil

	case config.DriverMongo:
		drv := mongodriver.New()
		if err := drv.Open(ctx, cfg.DSN); err != nil {
			return nil, fmt.Errorf("open mongo: %w", err)
		}
		db, err := grove.Open(drv)
		if err != nil {
			return nil, fmt.Errorf("open mongo: %w", err)
		}
		return mongostore.New(db), nil

	case config.DriverRedis:
		drv := redisdriver.New()
		if err := drv.Open(ctx, cfg.DSN); err != nil {
			return nil, fmt.Errorf("open redis: %w", err)
		}
		kvs, err := kv.Open(drv)
		if err != nil {
			return nil, fmt.Errorf("open redis: %w", err)
		}
		return redisstore.New(kvs), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
