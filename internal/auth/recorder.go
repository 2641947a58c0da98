// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

package auth

// Sign-in methods.
const (
	MethodPassword  = "password"
	MethodMagicLink = "magic_link"
	MethodRegister  = "register"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

// Session events.
const (
	SessionCreated  = "created"
	SessionRenewed  = "renewed"
	SessionRejected = "rejected"
	SessionRevoked  = "revoked"
)

// Magic link events.
const (
	MagicLinkIssued         = "issued"
	MagicLinkRedeemed       = "redeemed"
	MagicLinkRejected       = "rejected"
	MagicLinkDeliveryFailed = "delivery_failed"
)

// Recorder receives auth events, typically to update metrics.
type Recorder interface {
	RecordSignIn(method, outcome string)
	RecordSession(event string)
	RecordMagicLink(event string)
	RecordSwept(kind string, n int64)
}

// NopRecorder discards all events.
type NopRecorder struct{}

func (NopRecorder) RecordSignIn(string, string) {}
func (NopRecorder) RecordSession(string)        {}
func (NopRecorder) RecordMagicLink(string)      {}
func (NopRecorder) RecordSwept(string, int64)   {}
