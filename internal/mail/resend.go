// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/specz/specz/internal/auth"
)

// DefaultResendEndpoint is the Resend send-email API.
const DefaultResendEndpoint = "https://api.resend.com/emails"

// HTTPDoer is the subset of *http.Client used by ResendMailer.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ResendConfig configures a ResendMailer.
type ResendConfig struct {
	APIKey   string
	From     string
	Endpoint string
	// Backoff between attempts. Nil uses exponential backoff from 200ms,
	// capped at 3 retries.
	Backoff retry.Backoff
}

// ResendMailer sends email through the Resend HTTP API. Network errors, 429
// and 5xx responses are retried; other responses fail immediately.
type ResendMailer struct {
	cfg    ResendConfig
	client HTTPDoer
	logger *slog.Logger
}

// NewResendMailer creates a ResendMailer.
func NewResendMailer(cfg ResendConfig, client HTTPDoer, logger *slog.Logger) (*ResendMailer, error) {
	if cfg.APIKey == "" {
		return nil, oops.Code("MAIL_INVALID_CONFIG").Errorf("resend api key is required")
	}
	if cfg.From == "" {
		return nil, oops.Code("MAIL_INVALID_CONFIG").Errorf("sender address is required")
	}
	if client == nil {
		return nil, oops.Code("MAIL_INVALID_CONFIG").Errorf("http client is required")
	}
	if logger == nil {
		return nil, oops.Code("MAIL_INVALID_CONFIG").Errorf("logger is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultResendEndpoint
	}
	if cfg.Backoff == nil {
		cfg.Backoff = retry.WithMaxRetries(3, retry.NewExponential(200*time.Millisecond))
	}
	return &ResendMailer{cfg: cfg, client: client, logger: logger}, nil
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text,omitempty"`
}

// Send delivers msg.
func (m *ResendMailer) Send(ctx context.Context, msg auth.Message) error {
	msg, err := withHTML(msg)
	if err != nil {
		return err
	}

	body, err := json.Marshal(resendRequest{
		From:    m.cfg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return oops.Code("MAIL_ENCODE_FAILED").Wrap(err)
	}

	attempt := 0
	err = retry.Do(ctx, m.cfg.Backoff, func(ctx context.Context) error {
		attempt++
		err := m.post(ctx, body)
		if err != nil && retryable(err) {
			m.logger.WarnContext(ctx, "email send attempt failed",
				"attempt", attempt,
				"error", err)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return oops.Code("MAIL_SEND_FAILED").
			With("provider", ProviderResend).
			With("attempts", attempt).
			Wrap(err)
	}
	return nil
}

// statusError is a non-2xx response from the API.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return "resend returned " + http.StatusText(e.status) + ": " + e.body
}

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.status == http.StatusTooManyRequests || se.status >= 500
	}
	return true
}

func (m *ResendMailer) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return oops.Code("MAIL_REQUEST_FAILED").Wrap(err)
	}
	req.Header.Set("Authorization", "Bearer "+m.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return err //nolint:wrapcheck // classified by retryable
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &statusError{status: resp.StatusCode, body: string(snippet)}
}

var _ auth.Mailer = (*ResendMailer)(nil)
