// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

package auth

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/samber/oops"
)

// MagicLinkLifetime is how long an emailed sign-in link stays redeemable.
const MagicLinkLifetime = 15 * time.Minute

// VerifyPath is the route that redeems a magic link.
const VerifyPath = "/auth/verify"

// MagicLink is a pending passwordless sign-in. ID is the lookup key of the
// emailed token.
type MagicLink struct {
	ID        string
	Email     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NewMagicLink creates a validated MagicLink.
func NewMagicLink(id, email string, expiresAt time.Time) (*MagicLink, error) {
	if id == "" {
		return nil, oops.Code("MAGIC_LINK_INVALID_ID").Errorf("magic link ID cannot be empty")
	}
	if email == "" {
		return nil, oops.Code("MAGIC_LINK_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("MAGIC_LINK_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}
	return &MagicLink{ID: id, Email: email, ExpiresAt: expiresAt, CreatedAt: time.Now()}, nil
}

// IsExpiredAt reports whether the link can no longer be redeemed at t.
// Unlike sessions, a link is already dead at exactly ExpiresAt.
func (m *MagicLink) IsExpiredAt(t time.Time) bool {
	return !t.Before(m.ExpiresAt)
}

// MagicLinkRepository manages magic link persistence.
type MagicLinkRepository interface {
	// Replace stores link, dropping any link previously stored for the
	// same email. Concurrent replacements for one email leave exactly one.
	Replace(ctx context.Context, link *MagicLink) error

	// Consume atomically deletes and returns the link with the given ID if
	// it has not expired at now. Returns ErrNotFound otherwise, without
	// touching the store.
	Consume(ctx context.Context, id string, now time.Time) (*MagicLink, error)

	// DeleteExpired removes links that expired at or before now and
	// returns the count of deleted records.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// RedemptionURL builds the link emailed to the user.
func RedemptionURL(origin, token string) string {
	q := url.Values{}
	q.Set("token", token)
	return strings.TrimRight(origin, "/") + VerifyPath + "?" + q.Encode()
}
