// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// SessionPolicy sets session lifetime and the sliding renewal window.
type SessionPolicy struct {
	Lifetime       time.Duration
	RenewThreshold time.Duration
}

// DefaultSessionPolicy returns the 30 day lifetime with renewal once less
// than 15 days remain.
func DefaultSessionPolicy() SessionPolicy {
	return SessionPolicy{Lifetime: SessionLifetime, RenewThreshold: SessionRenewThreshold}
}

// Validate checks the policy values.
func (p SessionPolicy) Validate() error {
	if p.Lifetime <= 0 {
		return oops.Code("SESSION_INVALID_POLICY").
			With("lifetime", p.Lifetime.String()).
			Errorf("session lifetime must be positive")
	}
	if p.RenewThreshold < 0 || p.RenewThreshold > p.Lifetime {
		return oops.Code("SESSION_INVALID_POLICY").
			With("lifetime", p.Lifetime.String()).
			With("renew_threshold", p.RenewThreshold.String()).
			Errorf("renew threshold must be between zero and the lifetime")
	}
	return nil
}

// Validation is the result of a successful session check.
type Validation struct {
	User    *User
	Session *Session
	Renewed bool
}

// SessionManager issues, validates and revokes sessions.
type SessionManager struct {
	sessions SessionRepository
	policy   SessionPolicy
	logger   *slog.Logger
}

// NewSessionManager creates a new SessionManager.
func NewSessionManager(sessions SessionRepository, policy SessionPolicy) (*SessionManager, error) {
	return NewSessionManagerWithLogger(sessions, policy, slog.Default())
}

// NewSessionManagerWithLogger creates a SessionManager with a custom logger.
func NewSessionManagerWithLogger(sessions SessionRepository, policy SessionPolicy, logger *slog.Logger) (*SessionManager, error) {
	if sessions == nil {
		return nil, oops.Errorf("session repository is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &SessionManager{sessions: sessions, policy: policy, logger: logger}, nil
}

// Create starts a session for userID. The returned token is the only copy of
// the bearer secret.
func (m *SessionManager) Create(ctx context.Context, userID ulid.ULID) (string, *Session, error) {
	token, hash, err := newTokenPair()
	if err != nil {
		return "", nil, oops.Code("SESSION_CREATE_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	session, err := NewSession(hash, userID, time.Now().Add(m.policy.Lifetime))
	if err != nil {
		return "", nil, oops.Code("SESSION_CREATE_FAILED").
			With("operation", "new session").
			Wrap(err)
	}

	if err := m.sessions.Create(ctx, session); err != nil {
		return "", nil, oops.Code("SESSION_CREATE_FAILED").
			With("operation", "persist session").
			With("user_id", userID.String()).
			Wrap(err)
	}

	return token, session, nil
}

// Validate resolves token to its session and user. Absent and expired
// sessions both yield ErrTokenInvalid; an expired row is removed. When less
// than the renew threshold remains the expiry slides forward.
func (m *SessionManager) Validate(ctx context.Context, token string) (*Validation, error) {
	if token == "" {
		return nil, tokenInvalid("session")
	}

	id := HashToken(token)
	session, user, err := m.sessions.GetWithUser(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, tokenInvalid("session")
		}
		return nil, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session with user").
			Wrap(err)
	}

	now := time.Now()
	if session.IsExpiredAt(now) {
		if err := m.sessions.Delete(ctx, session.ID); err != nil {
			m.logger.WarnContext(ctx, "failed to delete expired session",
				"user_id", session.UserID.String(),
				"error", err)
		}
		return nil, oops.Code(CodeTokenInvalid).
			With("kind", "session").
			With("expired", true).
			Wrap(ErrTokenInvalid)
	}

	renewed := false
	if session.NeedsRenewalAt(now, m.policy.RenewThreshold) {
		expiresAt := now.Add(m.policy.Lifetime)
		if err := m.sessions.UpdateExpiry(ctx, session.ID, expiresAt); err != nil {
			// Logged out between the read and the renewal.
			if errors.Is(err, ErrNotFound) {
				return nil, tokenInvalid("session")
			}
			return nil, oops.Code("SESSION_RENEW_FAILED").
				With("operation", "update expiry").
				With("user_id", session.UserID.String()).
				Wrap(err)
		}
		session.ExpiresAt = expiresAt
		renewed = true
	}

	return &Validation{User: user, Session: session, Renewed: renewed}, nil
}

// Invalidate removes a session. Removing an absent session succeeds.
func (m *SessionManager) Invalidate(ctx context.Context, sessionID string) error {
	if err := m.sessions.Delete(ctx, sessionID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return oops.Code("SESSION_INVALIDATE_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

// Policy returns the manager's lifetime settings.
func (m *SessionManager) Policy() SessionPolicy {
	return m.policy
}
