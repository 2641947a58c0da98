// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/specz/specz/internal/auth"
)

// MagicLinkRepository implements auth.MagicLinkRepository using PostgreSQL.
// The magic_links.email column is UNIQUE, which keeps one link per email.
type MagicLinkRepository struct {
	pool poolIface
}

// NewMagicLinkRepository creates a new MagicLinkRepository.
func NewMagicLinkRepository(pool poolIface) *MagicLinkRepository {
	return &MagicLinkRepository{pool: pool}
}

// Replace upserts the link for its email.
func (r *MagicLinkRepository) Replace(ctx context.Context, link *auth.MagicLink) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO magic_links (id, email, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE
		SET id = EXCLUDED.id,
		    expires_at = EXCLUDED.expires_at,
		    created_at = EXCLUDED.created_at
	`, link.ID, link.Email, link.ExpiresAt, link.CreatedAt)
	if err != nil {
		return oops.Code("MAGIC_LINK_REPLACE_FAILED").
			With("operation", "upsert magic link").
			Wrap(err)
	}
	return nil
}

// Consume deletes and returns an unexpired link in a single statement, so
// only one concurrent caller can win.
func (r *MagicLinkRepository) Consume(ctx context.Context, id string, now time.Time) (*auth.MagicLink, error) {
	row := r.pool.QueryRow(ctx, `
		DELETE FROM magic_links
		WHERE id = $1 AND expires_at > $2
		RETURNING id, email, expires_at, created_at
	`, id, now)

	var link auth.MagicLink
	err := row.Scan(&link.ID, &link.Email, &link.ExpiresAt, &link.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("MAGIC_LINK_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("MAGIC_LINK_CONSUME_FAILED").
			With("operation", "consume magic link").
			Wrap(err)
	}
	return &link, nil
}

// DeleteExpired removes links whose expiry is at or before now.
func (r *MagicLinkRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM magic_links WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, oops.Code("MAGIC_LINK_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired magic links").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// Compile-time interface check.
var _ auth.MagicLinkRepository = (*MagicLinkRepository)(nil)
