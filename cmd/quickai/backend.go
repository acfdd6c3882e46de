package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/quickai/quickai/internal/config"
	"github.com/quickai/quickai/internal/db"
	"github.com/quickai/quickai/internal/db/memory"
	dbPostgres "github.com/quickai/quickai/internal/db/postgres"
	dbRedis "github.com/quickai/quickai/internal/db/redis"
	entitlementrepo "github.com/quickai/quickai/internal/repository/entitlement"
	pgrepo "github.com/quickai/quickai/internal/repository/postgres"
	preferencesrepo "github.com/quickai/quickai/internal/repository/preferences"
	usagerepo "github.com/quickai/quickai/internal/repository/usage"
	engineuc "github.com/quickai/quickai/internal/usecase/engine"
	entitlementuc "github.com/quickai/quickai/internal/usecase/entitlement"
	healthuc "github.com/quickai/quickai/internal/usecase/health"
	retentionuc "github.com/quickai/quickai/internal/usecase/retention"
)

// backend bundles the repositories of one storage driver.
type backend struct {
	pinger      healthuc.StoragePinger
	ents        entitlementuc.Repository
	usage       engineuc.QuotaCounter
	prefs       engineuc.PreferencesRepository
	usagePruner retentionuc.UsagePruner       // nil for key-value stores, which expire keys by TTL
	entPruner   retentionuc.EntitlementPruner // nil for key-value stores
	close       func()
}

// openBackend connects the configured driver and waits for it to become ready.
func openBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*backend, error) {
	readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second

	switch cfg.Database.Driver {
	case config.DriverValkey, config.DriverRedis:
		// rueidis speaks the same protocol to both servers.
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create %s store: %w", cfg.Database.Driver, err)
		}
		return kvBackend(ctx, store, cfg, readiness)

	case config.DriverMemory:
		logger.Warn("Using in-memory storage, quotas and entitlements are lost on restart")
		return kvBackend(ctx, memory.New(), cfg, readiness)

	case config.DriverPostgres:
		return postgresBackend(ctx, cfg, readiness, logger)

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func kvBackend(ctx context.Context, store db.Store, cfg *config.Config, readiness time.Duration) (*backend, error) {
	if err := store.WaitForReady(ctx, readiness); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}

	prefix := cfg.Storage.KeyPrefix
	return &backend{
		pinger: store,
		ents:   entitlementrepo.New(store, prefix),
		usage:  usagerepo.New(store, prefix, cfg.UsageRetention()),
		prefs:  preferencesrepo.New(store, prefix),
		close:  store.Close,
	}, nil
}

func postgresBackend(ctx context.Context, cfg *config.Config, readiness time.Duration, logger *zap.Logger) (*backend, error) {
	pg, err := dbPostgres.Open(dbPostgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
	})
	if err != nil {
		return nil, err
	}
	closeDB := func() { _ = pg.Close() }

	if err := pg.WaitForReady(ctx, readiness); err != nil {
		closeDB()
		return nil, fmt.Errorf("database not ready: %w", err)
	}

	if *cfg.Database.AutoMigrate {
		if err := dbPostgres.RunMigrations(cfg.Database.URL); err != nil {
			closeDB()
			return nil, err
		}
		logger.Info("Database migrations applied")
	}

	usage := pgrepo.NewUsageCounter(pg)
	ents := pgrepo.NewEntitlementRepo(pg)
	return &backend{
		pinger:      pg,
		ents:        ents,
		usage:       usage,
		prefs:       pgrepo.NewPreferencesRepo(pg),
		usagePruner: usage,
		entPruner:   ents,
		close:       closeDB,
	}, nil
}
