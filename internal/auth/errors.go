// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Outcomes surfaced to callers. Each one is raised as a fresh oops error
// carrying the matching code, so errors.Is works on the sentinel and the
// code never reflects a lower layer.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrDuplicateEmail     = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTokenInvalid       = errors.New("token invalid or expired")
	ErrDeliveryFailed     = errors.New("failed to send email")
	ErrMethodDisabled     = errors.New("sign-in method disabled")
)

// Error codes for the outcomes above.
const (
	CodeInvalidInput       = "AUTH_INVALID_INPUT"
	CodeDuplicateEmail     = "AUTH_DUPLICATE_EMAIL"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeTokenInvalid       = "AUTH_TOKEN_INVALID"
	CodeDeliveryFailed     = "AUTH_DELIVERY_FAILED"
	CodeMethodDisabled     = "AUTH_METHOD_DISABLED"
)

func invalidInput(field, reason string) error {
	return oops.Code(CodeInvalidInput).
		With("field", field).
		With("reason", reason).
		Wrap(ErrInvalidInput)
}

func duplicateEmail() error {
	return oops.Code(CodeDuplicateEmail).Wrap(ErrDuplicateEmail)
}

func invalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Wrap(ErrInvalidCredentials)
}

func tokenInvalid(kind string) error {
	return oops.Code(CodeTokenInvalid).With("kind", kind).Wrap(ErrTokenInvalid)
}
