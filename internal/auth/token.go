// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"

	"github.com/samber/oops"
)

// TokenBytes is the amount of randomness in a bearer token (144 bits).
const TokenBytes = 18

// NewToken returns a random bearer token, base64url encoded without padding.
// The token itself is never stored; only HashToken(token) is.
func NewToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", oops.Code("TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", TokenBytes).
			Wrap(err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashToken derives the lookup key for a token: lowercase hex SHA-256.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// newTokenPair mints a token and its lookup key.
func newTokenPair() (token, hash string, err error) {
	token, err = NewToken()
	if err != nil {
		return "", "", err
	}
	return token, HashToken(token), nil
}
