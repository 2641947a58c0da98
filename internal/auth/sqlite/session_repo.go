// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/specz/specz/internal/auth"
)

// SessionRepository implements auth.SessionRepository using SQLite.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db.db}
}

// Create stores a new session.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, expires_at) VALUES (?, ?, ?)
	`, session.ID, session.UserID.String(), toMillis(session.ExpiresAt))
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("user_id", session.UserID.String()).
			Wrap(err)
	}
	return nil
}

// GetWithUser retrieves a session and its owner in one query.
func (r *SessionRepository) GetWithUser(ctx context.Context, id string) (*auth.Session, *auth.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT s.id, s.expires_at,
		       u.id, u.email, u.password_hash, u.created_at, u.updated_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.id = ?
	`, id)

	var (
		session      auth.Session
		user         auth.User
		userID       string
		passwordHash sql.NullString
		expires      int64
		created      int64
		updated      int64
	)
	err := row.Scan(&session.ID, &expires, &userID, &user.Email, &passwordHash, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, nil, oops.Code("SESSION_GET_FAILED").Wrap(err)
	}

	uid, err := ulid.Parse(userID)
	if err != nil {
		return nil, nil, oops.Code("USER_INVALID_ID").With("id", userID).Wrap(err)
	}
	user.ID = uid
	if passwordHash.Valid {
		user.Password = auth.NewPasswordHash(passwordHash.String)
	}
	user.CreatedAt = fromMillis(created)
	user.UpdatedAt = fromMillis(updated)

	session.UserID = uid
	session.ExpiresAt = fromMillis(expires)
	return &session, &user, nil
}

// UpdateExpiry moves a session's expiry.
func (r *SessionRepository) UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	result, err := r.db.ExecContext(ctx, `UPDATE sessions SET expires_at = ? WHERE id = ?`, toMillis(expiresAt), id)
	if err != nil {
		return oops.Code("SESSION_UPDATE_EXPIRY_FAILED").Wrap(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return oops.Code("SESSION_UPDATE_EXPIRY_FAILED").Wrap(err)
	}
	if n == 0 {
		return oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return nil
}

// Delete removes a session. Absent sessions are ignored.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return oops.Code("SESSION_DELETE_FAILED").Wrap(err)
	}
	return nil
}

// DeleteExpired removes sessions whose expiry is before now.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, toMillis(now))
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").Wrap(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").Wrap(err)
	}
	return n, nil
}

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionRepository)(nil)
