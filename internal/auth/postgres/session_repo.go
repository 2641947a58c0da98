// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/specz/specz/internal/auth"
)

// SessionRepository implements auth.SessionRepository using PostgreSQL.
type SessionRepository struct {
	pool poolIface
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool poolIface) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create stores a new session.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, expires_at)
		VALUES ($1, $2, $3)
	`, session.ID, session.UserID.String(), session.ExpiresAt)
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert session").
			With("user_id", session.UserID.String()).
			Wrap(err)
	}
	return nil
}

// GetWithUser retrieves a session and its owner in one query.
func (r *SessionRepository) GetWithUser(ctx context.Context, id string) (*auth.Session, *auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT s.id, s.expires_at,
		       u.id, u.email, u.password_hash, u.created_at, u.updated_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.id = $1
	`, id)

	var (
		session      auth.Session
		user         auth.User
		userID       string
		passwordHash *string
	)
	err := row.Scan(&session.ID, &session.ExpiresAt,
		&userID, &user.Email, &passwordHash, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, nil, oops.Code("SESSION_GET_FAILED").
			With("operation", "get session with user").
			Wrap(err)
	}

	uid, err := ulid.Parse(userID)
	if err != nil {
		return nil, nil, oops.Code("USER_INVALID_ID").With("id", userID).Wrap(err)
	}
	user.ID = uid
	user.Password = auth.PasswordHashFromNullable(passwordHash)
	session.UserID = uid

	return &session, &user, nil
}

// UpdateExpiry moves a session's expiry.
func (r *SessionRepository) UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE sessions SET expires_at = $2 WHERE id = $1
	`, id, expiresAt)
	if err != nil {
		return oops.Code("SESSION_UPDATE_EXPIRY_FAILED").
			With("operation", "update expiry").
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return nil
}

// Delete removes a session. Absent sessions are ignored.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes sessions whose expiry is before now.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionRepository)(nil)
