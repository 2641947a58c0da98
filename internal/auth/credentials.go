// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// dummyPasswordHash is verified against when an account is unknown or has no
// password, so sign-in failures take the same time either way. It never
// matches any password.
//
//nolint:gosec // G101: intentionally fake hash, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=19456,t=2,p=1$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// CredentialService stores accounts and checks passwords.
type CredentialService struct {
	users  UserRepository
	hasher PasswordHasher
	logger *slog.Logger
}

// NewCredentialService creates a new CredentialService.
func NewCredentialService(users UserRepository, hasher PasswordHasher) (*CredentialService, error) {
	return NewCredentialServiceWithLogger(users, hasher, slog.Default())
}

// NewCredentialServiceWithLogger creates a CredentialService with a custom logger.
func NewCredentialServiceWithLogger(users UserRepository, hasher PasswordHasher, logger *slog.Logger) (*CredentialService, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &CredentialService{users: users, hasher: hasher, logger: logger}, nil
}

// Register creates an account with a password. A taken email surfaces as
// ErrDuplicateEmail from the store's unique constraint.
func (s *CredentialService) Register(ctx context.Context, email, password string) (*User, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(email, NewPasswordHash(hash))
	if err != nil {
		return nil, err
	}

	if err := s.create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail returns the account with the given email or an error wrapping
// ErrNotFound.
func (s *CredentialService) FindByEmail(ctx context.Context, email string) (*User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, oops.Code("AUTH_LOOKUP_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}
	return user, nil
}

// FindOrCreatePasswordless returns the account for email, creating one with
// no password when none exists. A concurrent creation for the same email is
// resolved by re-reading the winner's row.
func (s *CredentialService) FindOrCreatePasswordless(ctx context.Context, email string) (*User, bool, error) {
	user, err := s.FindByEmail(ctx, email)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	user, err = NewUser(email, PasswordHash{})
	if err != nil {
		return nil, false, err
	}
	err = s.create(ctx, user)
	if err == nil {
		return user, true, nil
	}
	if !errors.Is(err, ErrDuplicateEmail) {
		return nil, false, err
	}

	user, err = s.FindByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	return user, false, nil
}

// VerifyPassword reports whether candidate matches the user's password.
// A nil user or an account without a password is checked against a dummy
// hash and always fails.
func (s *CredentialService) VerifyPassword(user *User, candidate string) (bool, error) {
	target := dummyPasswordHash
	known := false
	if user != nil {
		if hash, ok := user.Password.Value(); ok {
			target = hash
			known = true
		}
	}

	valid, err := s.hasher.Verify(candidate, target)
	if err != nil {
		if !known {
			return false, nil
		}
		return false, oops.Code("AUTH_VERIFY_FAILED").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	return known && valid, nil
}

// UpgradePassword re-hashes password with current parameters when the stored
// hash is outdated. Failures are logged and otherwise ignored.
func (s *CredentialService) UpgradePassword(ctx context.Context, user *User, password string) {
	hash, ok := user.Password.Value()
	if !ok || !s.hasher.NeedsUpgrade(hash) {
		return
	}

	newHash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.WarnContext(ctx, "password rehash failed",
			"user_id", user.ID.String(),
			"error", err)
		return
	}
	if err := s.users.UpdatePassword(ctx, user.ID, newHash); err != nil {
		s.logger.WarnContext(ctx, "password upgrade not persisted",
			"user_id", user.ID.String(),
			"error", err)
		return
	}
	user.Password = NewPasswordHash(newHash)
	user.UpdatedAt = time.Now()
}

func (s *CredentialService) create(ctx context.Context, user *User) error {
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return duplicateEmail()
		}
		return oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			Wrap(err)
	}
	return nil
}
