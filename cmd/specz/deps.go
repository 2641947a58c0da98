// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/specz/specz/internal/auth"
	"github.com/specz/specz/internal/config"
	"github.com/specz/specz/internal/mail"
	"github.com/specz/specz/internal/observability"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// BackendOpener connects the repositories.
	// Default: openBackend
	BackendOpener func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error)

	// MailerFactory builds the outbound mailer.
	// Default: mail.New
	MailerFactory func(cfg mail.Config, logger *slog.Logger) (auth.Mailer, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	out := ServeDeps{}
	if d != nil {
		out = *d
	}
	if out.BackendOpener == nil {
		out.BackendOpener = openBackend
	}
	if out.MailerFactory == nil {
		out.MailerFactory = mail.New
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}
	return &out
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}
