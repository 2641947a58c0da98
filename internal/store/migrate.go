// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

// Package store owns the PostgreSQL schema and connection pool.
package store

import (
	"cmp"
	"embed"
	"errors"
	"io/fs"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	// Registers the pgx5:// driver.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/samber/oops"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migration is one embedded schema step.
type Migration struct {
	Version uint
	Name    string
}

// catalog lists the embedded migrations in version order.
var catalog = sync.OnceValues(func() ([]Migration, error) {
	return loadCatalog(migrationsFS)
})

// loadCatalog reads NNNNNN_name.up.sql files from the migrations directory.
// A malformed name is an error: the set is fixed at build time.
func loadCatalog(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, "migrations")
	if err != nil {
		return nil, oops.Code("MIGRATION_CATALOG_FAILED").With("operation", "read migrations dir").Wrap(err)
	}

	var out []Migration
	for _, entry := range entries {
		base, ok := strings.CutSuffix(entry.Name(), ".up.sql")
		if !ok {
			continue
		}
		num, name, ok := strings.Cut(base, "_")
		version, err := strconv.ParseUint(num, 10, 0)
		if !ok || err != nil || len(num) != 6 || name == "" {
			return nil, oops.Code("MIGRATION_CATALOG_FAILED").
				With("file", entry.Name()).
				Errorf("migration file must be named NNNNNN_name.up.sql")
		}
		out = append(out, Migration{Version: uint(version), Name: name})
	}

	slices.SortFunc(out, func(a, b Migration) int { return cmp.Compare(a.Version, b.Version) })
	return out, nil
}

// engine is the part of *migrate.Migrate the Migrator drives.
type engine interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	Close() (source error, database error)
}

// Migrator applies the embedded migrations to a PostgreSQL database.
type Migrator struct {
	engine engine
}

// migrateURL rewrites postgres:// and postgresql:// to the pgx5:// scheme the
// migrate driver registers under.
func migrateURL(databaseURL string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(databaseURL, scheme); ok {
			return "pgx5://" + rest
		}
	}
	return databaseURL
}

// NewMigrator connects to databaseURL.
func NewMigrator(databaseURL string) (*Migrator, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, oops.Code("MIGRATION_SOURCE_FAILED").With("operation", "open embedded migrations").Wrap(err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, migrateURL(databaseURL))
	if err != nil {
		_ = source.Close() //nolint:errcheck // init error takes precedence
		return nil, oops.Code("MIGRATION_INIT_FAILED").With("operation", "initialize migrator").Wrap(err)
	}
	return &Migrator{engine: m}, nil
}

// Up applies all pending migrations. An up-to-date schema is not an error.
func (m *Migrator) Up() error {
	if err := m.engine.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.Code("MIGRATION_UP_FAILED").Wrap(err)
	}
	return nil
}

// Down reverts every migration, dropping all tables.
func (m *Migrator) Down() error {
	if err := m.engine.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.Code("MIGRATION_DOWN_FAILED").Wrap(err)
	}
	return nil
}

// Rollback reverts the n most recent migrations.
func (m *Migrator) Rollback(n int) error {
	if n <= 0 {
		return oops.Code("INVALID_STEPS").With("steps", n).Errorf("steps must be positive, got %d", n)
	}
	err := m.engine.Steps(-n)
	var short migrate.ErrShortLimit
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return oops.Code("MIGRATION_ROLLBACK_FAILED").With("steps", n).Errorf("no applied migrations to roll back")
	case errors.As(err, &short):
		return oops.Code("MIGRATION_ROLLBACK_FAILED").
			With("steps", n).
			Errorf("rolled back only %d of %d migrations", n-int(short.Short), n)
	default:
		return oops.Code("MIGRATION_ROLLBACK_FAILED").With("steps", n).Wrap(err)
	}
}

// Version returns the applied version and whether the last migration failed
// midway. A fresh database reports version 0.
func (m *Migrator) Version() (version uint, dirty bool, err error) {
	version, dirty, err = m.engine.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, oops.Code("MIGRATION_VERSION_FAILED").Wrap(err)
	}
	return version, dirty, nil
}

// Force records version as applied and clears the dirty flag without running
// any SQL.
func (m *Migrator) Force(version int) error {
	if version < 0 {
		return oops.Code("INVALID_VERSION").Errorf("version must be non-negative, got %d", version)
	}
	if err := m.engine.Force(version); err != nil {
		return oops.Code("MIGRATION_FORCE_FAILED").With("version", version).Wrap(err)
	}
	return nil
}

// Close releases the source and the database connection.
func (m *Migrator) Close() error {
	srcErr, dbErr := m.engine.Close()
	if err := errors.Join(srcErr, dbErr); err != nil {
		return oops.Code("MIGRATION_CLOSE_FAILED").Wrap(err)
	}
	return nil
}

// Status describes the schema against the embedded migrations.
type Status struct {
	Version uint
	Dirty   bool
	Applied []Migration
	Pending []Migration
}

// Current returns the most recently applied migration.
func (s Status) Current() (Migration, bool) {
	if len(s.Applied) == 0 {
		return Migration{}, false
	}
	return s.Applied[len(s.Applied)-1], true
}

// Status splits the embedded migrations at the applied version.
func (m *Migrator) Status() (Status, error) {
	version, dirty, err := m.Version()
	if err != nil {
		return Status{}, oops.With("operation", "get status").Wrap(err)
	}
	all, err := catalog()
	if err != nil {
		return Status{}, oops.With("operation", "get status").Wrap(err)
	}

	status := Status{Version: version, Dirty: dirty}
	for _, mig := range all {
		if mig.Version <= version {
			status.Applied = append(status.Applied, mig)
		} else {
			status.Pending = append(status.Pending, mig)
		}
	}
	return status, nil
}
