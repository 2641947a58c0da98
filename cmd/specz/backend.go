// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

package main

import (
	"context"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/specz/specz/internal/auth"
	"github.com/specz/specz/internal/auth/postgres"
	authredis "github.com/specz/specz/internal/auth/redis"
	"github.com/specz/specz/internal/auth/sqlite"
	"github.com/specz/specz/internal/config"
	"github.com/specz/specz/internal/store"
)

// Backend is the set of repositories the auth services run on.
type Backend struct {
	Users    auth.UserRepository
	Sessions auth.SessionRepository
	Links    auth.MagicLinkRepository

	pings   []func(context.Context) error
	closers []func()
}

// Ping checks every underlying store.
func (b *Backend) Ping(ctx context.Context) error {
	for _, ping := range b.pings {
		if err := ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close releases every underlying store, newest first.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackend connects to the configured database and, when configured,
// moves magic links to Redis. PostgreSQL is migrated to the latest schema
// first; SQLite creates its schema on open.
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	b := &Backend{}

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		if err := migrateUp(cfg.Database.URL, logger); err != nil {
			return nil, err
		}
		pool, err := store.OpenPool(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		b.Users = postgres.NewUserRepository(pool)
		b.Sessions = postgres.NewSessionRepository(pool)
		b.Links = postgres.NewMagicLinkRepository(pool)
		b.pings = append(b.pings, pool.Ping)
		b.closers = append(b.closers, pool.Close)

	case config.DriverSQLite:
		db, err := sqlite.OpenWithLogger(ctx, cfg.Database.URL, logger)
		if err != nil {
			return nil, err
		}
		b.Users = sqlite.NewUserRepository(db)
		b.Sessions = sqlite.NewSessionRepository(db)
		b.Links = sqlite.NewMagicLinkRepository(db)
		b.pings = append(b.pings, db.Ping)
		b.closers = append(b.closers, func() {
			if err := db.Close(); err != nil {
				logger.Warn("failed to close sqlite", "error", err)
			}
		})

	default:
		return nil, oops.Code("CONFIG_INVALID").
			With("key", "database.driver").
			Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	if cfg.MagicLink.Store == config.MagicLinkStoreRedis {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		links, err := authredis.NewMagicLinkRepository(client, authredis.DefaultPrefix)
		if err != nil {
			_ = client.Close()
			b.Close()
			return nil, err
		}
		if err := links.Ping(ctx); err != nil {
			_ = client.Close()
			b.Close()
			return nil, err
		}
		b.Links = links
		b.pings = append(b.pings, links.Ping)
		b.closers = append(b.closers, func() { _ = client.Close() })
		logger.Info("magic links stored in redis", "addr", cfg.Redis.Addr)
	}

	return b, nil
}

func migrateUp(databaseURL string, logger *slog.Logger) error {
	migrator, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	return migrator.Up()
}
