// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

// Package sqlite provides SQLite implementations of the auth repositories
// for single-node deployments and tests. Timestamps are stored as unix
// milliseconds.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/samber/oops"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/specz/specz/internal/xdg"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT,
	created_at    INTEGER NOT NULL,
	updated_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users (id),
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions (expires_at);

CREATE TABLE IF NOT EXISTS magic_links (
	id         TEXT PRIMARY KEY,
	email      TEXT NOT NULL UNIQUE,
	expires_at INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_magic_links_expires_at ON magic_links (expires_at);
`

// DB is an open SQLite database with the auth schema applied.
type DB struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens the database at path, creating parent directories and the
// schema as needed. Use MemoryPath for a throwaway database.
func Open(ctx context.Context, path string) (*DB, error) {
	return OpenWithLogger(ctx, path, slog.Default())
}

// OpenWithLogger is Open with an explicit logger.
func OpenWithLogger(ctx context.Context, path string, logger *slog.Logger) (*DB, error) {
	if path == "" {
		return nil, oops.Code("SQLITE_INVALID_PATH").Errorf("database path is required")
	}
	if logger == nil {
		return nil, oops.Code("SQLITE_INVALID_LOGGER").Errorf("logger is required")
	}

	dsn := "file::memory:?_pragma=foreign_keys(1)"
	if path != MemoryPath {
		if err := xdg.EnsureDir(filepath.Dir(path)); err != nil {
			return nil, oops.Code("SQLITE_OPEN_FAILED").
				With("operation", "create database directory").
				With("path", path).
				Wrap(err)
		}
		dsn = "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, oops.Code("SQLITE_OPEN_FAILED").With("path", path).Wrap(err)
	}
	// One connection serializes writers and keeps an in-memory database
	// shared across callers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, oops.Code("SQLITE_SCHEMA_FAILED").With("path", path).Wrap(err)
	}

	logger.Info("sqlite store initialized", "path", path)
	return &DB{db: db, logger: logger}, nil
}

// Ping verifies the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return oops.Code("SQLITE_PING_FAILED").Wrap(err)
	}
	return nil
}

// Close releases the database.
func (d *DB) Close() error {
	if err := d.db.Close(); err != nil {
		return oops.Code("SQLITE_CLOSE_FAILED").Wrap(err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }
