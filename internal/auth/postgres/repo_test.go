// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specz/specz/internal/auth"
	"github.com/specz/specz/pkg/errutil"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		mock.Close()
	})
	return mock
}

func strPtr(s string) *string { return &s }

func TestUserRepository_Create(t *testing.T) {
	ctx := context.Background()
	user, err := auth.NewUser("alice@example.com", auth.NewPasswordHash("$argon2id$h"))
	require.NoError(t, err)

	t.Run("inserts user", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(user.ID.String(), "alice@example.com", strPtr("$argon2id$h"), user.CreatedAt, user.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, NewUserRepository(mock).Create(ctx, user))
	})

	t.Run("unique violation is duplicate email", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"})

		err := NewUserRepository(mock).Create(ctx, user)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrDuplicateEmail)
		errutil.AssertErrorContext(t, err, "constraint", "users_email_key")
	})

	t.Run("other failure is not duplicate", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(errors.New("connection refused"))

		err := NewUserRepository(mock).Create(ctx, user)
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrDuplicateEmail)
		errutil.AssertErrorCode(t, err, "USER_CREATE_FAILED")
	})
}

func TestUserRepository_GetByEmail(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()
	now := time.Now().UTC().Truncate(time.Microsecond)
	cols := []string{"id", "email", "password_hash", "created_at", "updated_at"}

	t.Run("scans user", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT id, email, password_hash`).
			WithArgs("alice@example.com").
			WillReturnRows(pgxmock.NewRows(cols).AddRow(id.String(), "alice@example.com", strPtr("$argon2id$h"), now, now))

		user, err := NewUserRepository(mock).GetByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, id, user.ID)
		assert.True(t, user.HasPassword())
		assert.Equal(t, now, user.CreatedAt)
	})

	t.Run("passwordless user", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT id, email, password_hash`).
			WithArgs("bob@example.com").
			WillReturnRows(pgxmock.NewRows(cols).AddRow(id.String(), "bob@example.com", (*string)(nil), now, now))

		user, err := NewUserRepository(mock).GetByEmail(ctx, "bob@example.com")
		require.NoError(t, err)
		assert.False(t, user.HasPassword())
	})

	t.Run("no rows is not found", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT id, email, password_hash`).
			WithArgs("nobody@example.com").
			WillReturnError(pgx.ErrNoRows)

		_, err := NewUserRepository(mock).GetByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestUserRepository_UpdatePassword(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()

	t.Run("updates hash", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`UPDATE users SET password_hash`).
			WithArgs(id.String(), "$argon2id$new", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, NewUserRepository(mock).UpdatePassword(ctx, id, "$argon2id$new"))
	})

	t.Run("missing user", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`UPDATE users SET password_hash`).
			WithArgs(id.String(), "$argon2id$new", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := NewUserRepository(mock).UpdatePassword(ctx, id, "$argon2id$new")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()
	userID := ulid.Make()
	now := time.Now().UTC().Truncate(time.Microsecond)
	expires := now.Add(auth.SessionLifetime)

	t.Run("create", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`INSERT INTO sessions`).
			WithArgs("hash", userID.String(), expires).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := NewSessionRepository(mock).Create(ctx, &auth.Session{ID: "hash", UserID: userID, ExpiresAt: expires})
		require.NoError(t, err)
	})

	t.Run("get with user joins owner", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`FROM sessions s\s+JOIN users u`).
			WithArgs("hash").
			WillReturnRows(pgxmock.NewRows([]string{"id", "expires_at", "id", "email", "password_hash", "created_at", "updated_at"}).
				AddRow("hash", expires, userID.String(), "alice@example.com", (*string)(nil), now, now))

		session, user, err := NewSessionRepository(mock).GetWithUser(ctx, "hash")
		require.NoError(t, err)
		assert.Equal(t, userID, session.UserID)
		assert.Equal(t, expires, session.ExpiresAt)
		assert.Equal(t, userID, user.ID)
		assert.Equal(t, "alice@example.com", user.Email)
	})

	t.Run("get missing session", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`FROM sessions s`).WithArgs("nope").WillReturnError(pgx.ErrNoRows)

		_, _, err := NewSessionRepository(mock).GetWithUser(ctx, "nope")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("update expiry of missing session", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`UPDATE sessions SET expires_at`).
			WithArgs("nope", expires).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := NewSessionRepository(mock).UpdateExpiry(ctx, "nope", expires)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`DELETE FROM sessions WHERE id`).
			WithArgs("nope").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		require.NoError(t, NewSessionRepository(mock).Delete(ctx, "nope"))
	})

	t.Run("delete expired reports count", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`DELETE FROM sessions WHERE expires_at < \$1`).
			WithArgs(now).
			WillReturnResult(pgxmock.NewResult("DELETE", 4))

		n, err := NewSessionRepository(mock).DeleteExpired(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)
	})
}

func TestMagicLinkRepository(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	link := &auth.MagicLink{ID: "hash", Email: "bob@example.com", ExpiresAt: now.Add(auth.MagicLinkLifetime), CreatedAt: now}

	t.Run("replace upserts on email", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`ON CONFLICT \(email\) DO UPDATE`).
			WithArgs("hash", "bob@example.com", link.ExpiresAt, link.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, NewMagicLinkRepository(mock).Replace(ctx, link))
	})

	t.Run("consume returns deleted row", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`DELETE FROM magic_links\s+WHERE id = \$1 AND expires_at > \$2\s+RETURNING`).
			WithArgs("hash", now).
			WillReturnRows(pgxmock.NewRows([]string{"id", "email", "expires_at", "created_at"}).
				AddRow("hash", "bob@example.com", link.ExpiresAt, link.CreatedAt))

		got, err := NewMagicLinkRepository(mock).Consume(ctx, "hash", now)
		require.NoError(t, err)
		assert.Equal(t, "bob@example.com", got.Email)
	})

	t.Run("consume of used or expired link", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`DELETE FROM magic_links`).
			WithArgs("hash", now).
			WillReturnError(pgx.ErrNoRows)

		_, err := NewMagicLinkRepository(mock).Consume(ctx, "hash", now)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("consume failure", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`DELETE FROM magic_links`).
			WithArgs("hash", now).
			WillReturnError(errors.New("connection refused"))

		_, err := NewMagicLinkRepository(mock).Consume(ctx, "hash", now)
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "MAGIC_LINK_CONSUME_FAILED")
	})

	t.Run("delete expired", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`DELETE FROM magic_links WHERE expires_at <= \$1`).
			WithArgs(now).
			WillReturnResult(pgxmock.NewResult("DELETE", 2))

		n, err := NewMagicLinkRepository(mock).DeleteExpired(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})
}
