// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session lifetime configuration.
const (
	SessionLifetime       = 30 * 24 * time.Hour
	SessionRenewThreshold = 15 * 24 * time.Hour
)

// Session is a signed-in browser. ID is the lookup key of the bearer token,
// never the token itself.
type Session struct {
	ID        string
	UserID    ulid.ULID
	ExpiresAt time.Time
}

// NewSession creates a validated Session.
func NewSession(id string, userID ulid.ULID, expiresAt time.Time) (*Session, error) {
	if id == "" {
		return nil, oops.Code("SESSION_INVALID_ID").Errorf("session ID cannot be empty")
	}
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}
	return &Session{ID: id, UserID: userID, ExpiresAt: expiresAt}, nil
}

// IsExpiredAt returns true if the session would be expired at the given time.
// A session is still valid at exactly ExpiresAt.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return t.After(s.ExpiresAt)
}

// NeedsRenewalAt reports whether less than threshold remains at t.
func (s *Session) NeedsRenewalAt(t time.Time, threshold time.Duration) bool {
	return s.ExpiresAt.Sub(t) < threshold
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// GetWithUser retrieves a session joined with its owner.
	// Returns ErrNotFound if no session has the given ID.
	GetWithUser(ctx context.Context, id string) (*Session, *User, error)

	// UpdateExpiry moves a session's expiry.
	UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error

	// Delete removes a session. Deleting an absent session is not an error.
	Delete(ctx context.Context, id string) error

	// DeleteExpired removes sessions that expired before now and returns
	// the count of deleted records.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
