// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

// Package mail delivers auth.Message values. Message text is Markdown and
// is rendered to HTML here when the caller did not supply HTML.
package mail

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/oops"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/specz/specz/internal/auth"
)

// Providers.
const (
	ProviderLog    = "log"
	ProviderResend = "resend"
)

// Config selects and configures a transport.
type Config struct {
	Provider       string
	From           string
	ResendAPIKey   string
	ResendEndpoint string
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Linkify),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// RenderHTML converts Markdown to HTML.
func RenderHTML(text string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		return "", oops.Code("MAIL_RENDER_FAILED").Wrap(err)
	}
	return buf.String(), nil
}

// withHTML fills in msg.HTML from msg.Text.
func withHTML(msg auth.Message) (auth.Message, error) {
	if msg.HTML != "" {
		return msg, nil
	}
	rendered, err := RenderHTML(msg.Text)
	if err != nil {
		return msg, err
	}
	msg.HTML = rendered
	return msg, nil
}

// New builds the transport named by cfg.Provider.
func New(cfg Config, logger *slog.Logger) (auth.Mailer, error) {
	switch cfg.Provider {
	case ProviderLog, "":
		return NewLogMailer(logger)
	case ProviderResend:
		return NewResendMailer(ResendConfig{
			APIKey:   cfg.ResendAPIKey,
			From:     cfg.From,
			Endpoint: cfg.ResendEndpoint,
		}, &http.Client{Timeout: 10 * time.Second}, logger)
	default:
		return nil, oops.Code("MAIL_INVALID_PROVIDER").
			With("provider", cfg.Provider).
			Errorf("unknown mail provider %q", cfg.Provider)
	}
}
