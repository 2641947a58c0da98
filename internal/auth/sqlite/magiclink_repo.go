// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/samber/oops"

	"github.com/specz/specz/internal/auth"
)

// MagicLinkRepository implements auth.MagicLinkRepository using SQLite.
type MagicLinkRepository struct {
	db *sql.DB
}

// NewMagicLinkRepository creates a new MagicLinkRepository.
func NewMagicLinkRepository(db *DB) *MagicLinkRepository {
	return &MagicLinkRepository{db: db.db}
}

// Replace upserts the link for its email.
func (r *MagicLinkRepository) Replace(ctx context.Context, link *auth.MagicLink) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO magic_links (id, email, expires_at, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (email) DO UPDATE
		SET id = excluded.id,
		    expires_at = excluded.expires_at,
		    created_at = excluded.created_at
	`, link.ID, link.Email, toMillis(link.ExpiresAt), toMillis(link.CreatedAt))
	if err != nil {
		return oops.Code("MAGIC_LINK_REPLACE_FAILED").Wrap(err)
	}
	return nil
}

// Consume deletes and returns an unexpired link in a single statement.
func (r *MagicLinkRepository) Consume(ctx context.Context, id string, now time.Time) (*auth.MagicLink, error) {
	row := r.db.QueryRowContext(ctx, `
		DELETE FROM magic_links
		WHERE id = ? AND expires_at > ?
		RETURNING id, email, expires_at, created_at
	`, id, toMillis(now))

	var (
		link             auth.MagicLink
		expires, created int64
	)
	err := row.Scan(&link.ID, &link.Email, &expires, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, oops.Code("MAGIC_LINK_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("MAGIC_LINK_CONSUME_FAILED").Wrap(err)
	}
	link.ExpiresAt = fromMillis(expires)
	link.CreatedAt = fromMillis(created)
	return &link, nil
}

// DeleteExpired removes links whose expiry is at or before now.
func (r *MagicLinkRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM magic_links WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, oops.Code("MAGIC_LINK_DELETE_EXPIRED_FAILED").Wrap(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, oops.Code("MAGIC_LINK_DELETE_EXPIRED_FAILED").Wrap(err)
	}
	return n, nil
}

// Compile-time interface check.
var _ auth.MagicLinkRepository = (*MagicLinkRepository)(nil)
