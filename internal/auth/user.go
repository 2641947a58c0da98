// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

package auth

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
)

// Email and password validation constraints.
const (
	MinEmailLength    = 5
	MaxEmailLength    = 255
	MinPasswordLength = 6
	MaxPasswordLength = 255
)

// emailRegex matches one non-whitespace run, "@", and a domain part that
// contains at least one dot. RE2's \s is ASCII only; ValidateEmail rejects
// other whitespace separately.
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// PasswordHash is an optional password credential. The zero value means the
// account has no password (it was created through a magic link).
type PasswordHash struct {
	hash string
	set  bool
}

// NewPasswordHash wraps an encoded hash. An empty string yields no password.
func NewPasswordHash(hash string) PasswordHash {
	return PasswordHash{hash: hash, set: hash != ""}
}

// PasswordHashFromNullable converts a nullable column value.
func PasswordHashFromNullable(hash *string) PasswordHash {
	if hash == nil {
		return PasswordHash{}
	}
	return NewPasswordHash(*hash)
}

// Value returns the encoded hash and whether one is present.
func (p PasswordHash) Value() (string, bool) {
	return p.hash, p.set
}

// Nullable returns the hash for storage in a nullable column.
func (p PasswordHash) Nullable() *string {
	if !p.set {
		return nil
	}
	h := p.hash
	return &h
}

// User is an account.
type User struct {
	ID        ulid.ULID
	Email     string
	Password  PasswordHash
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser creates a validated User with a fresh ID.
func NewUser(email string, password PasswordHash) (*User, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	now := time.Now()
	return &User{
		ID:        ulid.Make(),
		Email:     email,
		Password:  password,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// HasPassword reports whether the account can sign in with a password.
func (u *User) HasPassword() bool {
	_, ok := u.Password.Value()
	return ok
}

// ValidateEmail checks the email grammar and length bounds. Length is
// counted in characters.
func ValidateEmail(email string) error {
	if !utf8.ValidString(email) {
		return invalidInput("email", "encoding")
	}
	if n := utf8.RuneCountInString(email); n < MinEmailLength || n > MaxEmailLength {
		return invalidInput("email", "length")
	}
	if strings.IndexFunc(email, isEmailSpace) >= 0 || !emailRegex.MatchString(email) {
		return invalidInput("email", "format")
	}
	return nil
}

// isEmailSpace also covers the byte order mark, which unicode.IsSpace does not.
func isEmailSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}

// ValidatePassword checks password length bounds, counted in characters.
func ValidatePassword(password string) error {
	if !utf8.ValidString(password) {
		return invalidInput("password", "encoding")
	}
	if n := utf8.RuneCountInString(password); n < MinPasswordLength || n > MaxPasswordLength {
		return invalidInput("password", "length")
	}
	return nil
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user. Returns an error wrapping ErrDuplicateEmail
	// when the email is taken; detection relies on the store's unique
	// constraint.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail retrieves a user by exact email.
	// Returns ErrNotFound if no user has the given email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error
}
