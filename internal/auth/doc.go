// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

// Package auth provides accounts, sessions and passwordless sign-in for Specz.
//
// # Tokens
//
// Session and magic link tokens are 18 random bytes, base64url encoded. Only
// the SHA-256 lookup key (HashToken) is ever stored, so a leaked table cannot
// be replayed.
//
// # Domain Types
//
// Domain types (User, Session, MagicLink) should be created using their
// constructors (NewUser, NewSession, NewMagicLink). Repository
// implementations receive pre-validated values.
//
// # Services
//
//   - CredentialService - registration and password checks
//   - SessionManager - session issue, validation with sliding renewal, revocation
//   - MagicLinkManager - single-use emailed sign-in links
//   - Service - the sign-in flows built from the three above
//   - Sweeper - background removal of expired rows
//
// Constructors validate their dependencies and return an error when one is
// missing.
//
// # Errors
//
// Outcomes callers act on are exported sentinels (ErrInvalidInput,
// ErrDuplicateEmail, ErrInvalidCredentials, ErrTokenInvalid,
// ErrDeliveryFailed) raised as oops errors with matching codes. Anything
// else is an internal failure.
package auth
