// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"
)

// MagicLinkManager issues and redeems single-use sign-in links.
type MagicLinkManager struct {
	links    MagicLinkRepository
	lifetime time.Duration
}

// NewMagicLinkManager creates a new MagicLinkManager.
func NewMagicLinkManager(links MagicLinkRepository, lifetime time.Duration) (*MagicLinkManager, error) {
	if links == nil {
		return nil, oops.Errorf("magic link repository is required")
	}
	if lifetime <= 0 {
		return nil, oops.Code("MAGIC_LINK_INVALID_LIFETIME").
			With("lifetime", lifetime.String()).
			Errorf("magic link lifetime must be positive")
	}
	return &MagicLinkManager{links: links, lifetime: lifetime}, nil
}

// Issue mints a link token for email. Any link issued earlier for the same
// email stops working.
func (m *MagicLinkManager) Issue(ctx context.Context, email string) (string, error) {
	if err := ValidateEmail(email); err != nil {
		return "", err
	}

	token, hash, err := newTokenPair()
	if err != nil {
		return "", oops.Code("MAGIC_LINK_ISSUE_FAILED").
			With("operation", "generate token").
			Wrap(err)
	}

	link, err := NewMagicLink(hash, email, time.Now().Add(m.lifetime))
	if err != nil {
		return "", oops.Code("MAGIC_LINK_ISSUE_FAILED").
			With("operation", "new magic link").
			Wrap(err)
	}

	if err := m.links.Replace(ctx, link); err != nil {
		return "", oops.Code("MAGIC_LINK_ISSUE_FAILED").
			With("operation", "replace magic link").
			Wrap(err)
	}

	return token, nil
}

// Redeem consumes token and returns the email it was issued for. Unknown,
// used and expired tokens yield ErrTokenInvalid.
func (m *MagicLinkManager) Redeem(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", tokenInvalid("magic_link")
	}

	link, err := m.links.Consume(ctx, HashToken(token), time.Now())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", tokenInvalid("magic_link")
		}
		return "", oops.Code("MAGIC_LINK_REDEEM_FAILED").
			With("operation", "consume magic link").
			Wrap(err)
	}
	return link.Email, nil
}

// Lifetime returns how long issued links stay valid.
func (m *MagicLinkManager) Lifetime() time.Duration {
	return m.lifetime
}
