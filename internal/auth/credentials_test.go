// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

package auth_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/specz/specz/internal/auth"
	"github.com/specz/specz/internal/auth/mocks"
	"github.com/specz/specz/pkg/errutil"
)

func TestNewCredentialService_NilDependencies(t *testing.T) {
	tests := []struct {
		name        string
		users       auth.UserRepository
		hasher      auth.PasswordHasher
		expectError string
	}{
		{
			name:        "nil user repository",
			users:       nil,
			hasher:      mocks.NewMockPasswordHasher(t),
			expectError: "user repository is required",
		},
		{
			name:        "nil password hasher",
			users:       mocks.NewMockUserRepository(t),
			hasher:      nil,
			expectError: "password hasher is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := auth.NewCredentialService(tt.users, tt.hasher)
			require.Error(t, err)
			assert.Nil(t, svc)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}

	t.Run("nil logger", func(t *testing.T) {
		_, err := auth.NewCredentialServiceWithLogger(mocks.NewMockUserRepository(t), mocks.NewMockPasswordHasher(t), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "logger is required")
	})
}

func TestCredentialService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("hashes password and stores user", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewCredentialService(users, hasher)
		require.NoError(t, err)

		hasher.On("Hash", "hunter22").Return("$argon2id$stored", nil)
		users.On("Create", ctx, mock.MatchedBy(func(u *auth.User) bool {
			hash, ok := u.Password.Value()
			return u.Email == "alice@example.com" && ok && hash == "$argon2id$stored"
		})).Return(nil)

		user, err := svc.Register(ctx, "alice@example.com", "hunter22")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", user.Email)
		assert.True(t, user.HasPassword())
	})

	t.Run("rejects invalid email before hashing", func(t *testing.T) {
		svc, err := auth.NewCredentialService(mocks.NewMockUserRepository(t), mocks.NewMockPasswordHasher(t))
		require.NoError(t, err)

		_, err = svc.Register(ctx, "alice", "hunter22")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrInvalidInput)
		errutil.AssertErrorContext(t, err, "field", "email")
	})

	t.Run("rejects short password before hashing", func(t *testing.T) {
		svc, err := auth.NewCredentialService(mocks.NewMockUserRepository(t), mocks.NewMockPasswordHasher(t))
		require.NoError(t, err)

		_, err = svc.Register(ctx, "alice@example.com", "abc")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrInvalidInput)
		errutil.AssertErrorContext(t, err, "field", "password")
	})

	t.Run("maps unique violation to duplicate email", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewCredentialService(users, hasher)
		require.NoError(t, err)

		hasher.On("Hash", "hunter22").Return("$argon2id$stored", nil)
		users.On("Create", ctx, mock.AnythingOfType("*auth.User")).
			Return(errors.Join(errors.New("unique violation"), auth.ErrDuplicateEmail))

		_, err = svc.Register(ctx, "alice@example.com", "hunter22")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrDuplicateEmail)
		errutil.AssertErrorCode(t, err, auth.CodeDuplicateEmail)
	})

	t.Run("wraps store failure", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewCredentialService(users, hasher)
		require.NoError(t, err)

		hasher.On("Hash", "hunter22").Return("$argon2id$stored", nil)
		users.On("Create", ctx, mock.AnythingOfType("*auth.User")).Return(errors.New("connection reset"))

		_, err = svc.Register(ctx, "alice@example.com", "hunter22")
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrDuplicateEmail)
		errutil.AssertErrorCode(t, err, "AUTH_REGISTER_FAILED")
	})
}

func TestCredentialService_VerifyPassword(t *testing.T) {
	hasher := auth.NewArgon2idHasher()
	svc, err := auth.NewCredentialService(mocks.NewMockUserRepository(t), hasher)
	require.NoError(t, err)

	hash, err := hasher.Hash("hunter22")
	require.NoError(t, err)
	user := &auth.User{ID: ulid.Make(), Email: "alice@example.com", Password: auth.NewPasswordHash(hash)}

	t.Run("correct password", func(t *testing.T) {
		ok, err := svc.VerifyPassword(user, "hunter22")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("wrong password", func(t *testing.T) {
		ok, err := svc.VerifyPassword(user, "hunter23")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("passwordless account never matches", func(t *testing.T) {
		bob := &auth.User{ID: ulid.Make(), Email: "bob@example.com"}
		ok, err := svc.VerifyPassword(bob, "")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown user never matches", func(t *testing.T) {
		ok, err := svc.VerifyPassword(nil, "hunter22")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("corrupt stored hash is an error", func(t *testing.T) {
		broken := &auth.User{ID: ulid.Make(), Email: "c@example.com", Password: auth.NewPasswordHash("garbage")}
		_, err := svc.VerifyPassword(broken, "hunter22")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_VERIFY_FAILED")
	})
}

func TestCredentialService_FindOrCreatePasswordless(t *testing.T) {
	ctx := context.Background()

	t.Run("returns existing user", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		svc, err := auth.NewCredentialService(users, mocks.NewMockPasswordHasher(t))
		require.NoError(t, err)

		existing := &auth.User{ID: ulid.Make(), Email: "bob@example.com"}
		users.On("GetByEmail", ctx, "bob@example.com").Return(existing, nil)

		user, created, err := svc.FindOrCreatePasswordless(ctx, "bob@example.com")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Same(t, existing, user)
	})

	t.Run("creates user without password", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		svc, err := auth.NewCredentialService(users, mocks.NewMockPasswordHasher(t))
		require.NoError(t, err)

		users.On("GetByEmail", ctx, "bob@example.com").Return(nil, auth.ErrNotFound)
		users.On("Create", ctx, mock.MatchedBy(func(u *auth.User) bool {
			return u.Email == "bob@example.com" && !u.HasPassword()
		})).Return(nil)

		user, created, err := svc.FindOrCreatePasswordless(ctx, "bob@example.com")
		require.NoError(t, err)
		assert.True(t, created)
		assert.False(t, user.HasPassword())
	})

	t.Run("re-reads after losing a creation race", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		svc, err := auth.NewCredentialService(users, mocks.NewMockPasswordHasher(t))
		require.NoError(t, err)

		winner := &auth.User{ID: ulid.Make(), Email: "bob@example.com"}
		users.On("GetByEmail", ctx, "bob@example.com").Return(nil, auth.ErrNotFound).Once()
		users.On("Create", ctx, mock.AnythingOfType("*auth.User")).Return(auth.ErrDuplicateEmail)
		users.On("GetByEmail", ctx, "bob@example.com").Return(winner, nil).Once()

		user, created, err := svc.FindOrCreatePasswordless(ctx, "bob@example.com")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, winner.ID, user.ID)
	})
}

func TestCredentialService_UpgradePassword(t *testing.T) {
	ctx := context.Background()
	userID := ulid.Make()

	t.Run("stores rehash for outdated hash", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewCredentialService(users, hasher)
		require.NoError(t, err)

		user := &auth.User{ID: userID, Email: "a@example.com", Password: auth.NewPasswordHash("$2a$10$old")}
		hasher.On("NeedsUpgrade", "$2a$10$old").Return(true)
		hasher.On("Hash", "hunter22").Return("$argon2id$new", nil)
		users.On("UpdatePassword", ctx, userID, "$argon2id$new").Return(nil)

		svc.UpgradePassword(ctx, user, "hunter22")
		hash, _ := user.Password.Value()
		assert.Equal(t, "$argon2id$new", hash)
	})

	t.Run("leaves current hash alone", func(t *testing.T) {
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewCredentialService(mocks.NewMockUserRepository(t), hasher)
		require.NoError(t, err)

		user := &auth.User{ID: userID, Password: auth.NewPasswordHash("$argon2id$cur")}
		hasher.On("NeedsUpgrade", "$argon2id$cur").Return(false)

		svc.UpgradePassword(ctx, user, "hunter22")
	})

	t.Run("logs failed write and keeps old hash", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))

		users := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewCredentialServiceWithLogger(users, hasher, logger)
		require.NoError(t, err)

		user := &auth.User{ID: userID, Password: auth.NewPasswordHash("$2a$10$old")}
		hasher.On("NeedsUpgrade", "$2a$10$old").Return(true)
		hasher.On("Hash", "hunter22").Return("$argon2id$new", nil)
		users.On("UpdatePassword", ctx, userID, "$argon2id$new").Return(errors.New("db down"))

		svc.UpgradePassword(ctx, user, "hunter22")

		hash, _ := user.Password.Value()
		assert.Equal(t, "$2a$10$old", hash)
		assert.Contains(t, buf.String(), "password upgrade not persisted")
		assert.Contains(t, buf.String(), userID.String())
	})
}
