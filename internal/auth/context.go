// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

package auth

import "context"

type identityKey struct{}

// Identity is the signed-in user resolved for a request.
type Identity struct {
	User    *User
	Session *Session
}

// WithIdentity returns a context carrying the resolved identity.
func WithIdentity(ctx context.Context, user *User, session *Session) context.Context {
	return context.WithValue(ctx, identityKey{}, &Identity{User: user, Session: session})
}

// FromContext returns the identity stored by WithIdentity, or nil for an
// anonymous request.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}
