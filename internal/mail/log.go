// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

package mail

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/specz/specz/internal/auth"
)

// LogMailer writes messages to the log instead of sending them. It is meant
// for development, where the sign-in link is copied from the log with
// log.level set to debug.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *slog.Logger) (*LogMailer, error) {
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &LogMailer{logger: logger}, nil
}

// Send logs msg. The body carries a live sign-in token, so it is only
// written at debug level.
func (m *LogMailer) Send(ctx context.Context, msg auth.Message) error {
	m.logger.InfoContext(ctx, "email not sent, logging instead",
		"to", msg.To,
		"subject", msg.Subject)
	m.logger.DebugContext(ctx, "email body",
		"to", msg.To,
		"body", msg.Text)
	return nil
}

var _ auth.Mailer = (*LogMailer)(nil)
