// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

package auth

import (
	"context"
	"fmt"
	"time"
)

// MagicLinkSubject is the subject line of sign-in emails.
const MagicLinkSubject = "Sign in to Specz"

// Message is an outbound email. Text is Markdown; transports render HTML
// from it when HTML is empty.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// MagicLinkMessage builds the sign-in email for link.
func MagicLinkMessage(to, link string, lifetime time.Duration) Message {
	text := fmt.Sprintf(`# Sign in to Specz

Click the link below to sign in. It expires in %s and works once.

[Sign in to Specz](%s)

If the link does not work, copy and paste this URL into your browser:

%s

If you did not request this email you can ignore it.
`, humanDuration(lifetime), link, link)

	return Message{To: to, Subject: MagicLinkSubject, Text: text}
}

func humanDuration(d time.Duration) string {
	switch {
	case d%time.Hour == 0 && d >= time.Hour:
		return plural(int(d/time.Hour), "hour")
	case d%time.Minute == 0 && d >= time.Minute:
		return plural(int(d/time.Minute), "minute")
	default:
		return d.String()
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
