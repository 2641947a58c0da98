// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// ServiceConfig holds optional Service settings.
type ServiceConfig struct {
	// DisablePassword turns off registration and password sign-in.
	DisablePassword bool
	// DisableMagicLink turns off emailed sign-in links.
	DisableMagicLink bool
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Recorder defaults to NopRecorder.
	Recorder Recorder
}

// SignIn is the result of a successful sign-in. Token is the plaintext
// session token and is not retrievable again.
type SignIn struct {
	User    *User
	Session *Session
	Token   string
}

// Service composes credentials, sessions and magic links into the sign-in
// flows used by the web layer.
type Service struct {
	creds    *CredentialService
	sessions *SessionManager
	links    *MagicLinkManager
	mailer   Mailer
	cfg      ServiceConfig
	logger   *slog.Logger
	recorder Recorder
}

// NewService creates a new Service. links and mailer may be nil when magic
// links are disabled.
func NewService(
	creds *CredentialService,
	sessions *SessionManager,
	links *MagicLinkManager,
	mailer Mailer,
	cfg ServiceConfig,
) (*Service, error) {
	if creds == nil {
		return nil, oops.Errorf("credential service is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("session manager is required")
	}
	if !cfg.DisableMagicLink {
		if links == nil {
			return nil, oops.Errorf("magic link manager is required")
		}
		if mailer == nil {
			return nil, oops.Errorf("mailer is required")
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = NopRecorder{}
	}

	return &Service{
		creds:    creds,
		sessions: sessions,
		links:    links,
		mailer:   mailer,
		cfg:      cfg,
		logger:   logger,
		recorder: recorder,
	}, nil
}

// PasswordEnabled reports whether password registration and sign-in are on.
func (s *Service) PasswordEnabled() bool { return !s.cfg.DisablePassword }

// MagicLinkEnabled reports whether emailed sign-in links are on.
func (s *Service) MagicLinkEnabled() bool { return !s.cfg.DisableMagicLink }

// Register creates a password account and signs it in.
func (s *Service) Register(ctx context.Context, email, password string) (*SignIn, error) {
	if s.cfg.DisablePassword {
		return nil, methodDisabled(MethodPassword)
	}

	user, err := s.creds.Register(ctx, email, password)
	if err != nil {
		s.recorder.RecordSignIn(MethodRegister, outcomeOf(err))
		return nil, err
	}

	signIn, err := s.startSession(ctx, user)
	if err != nil {
		s.recorder.RecordSignIn(MethodRegister, OutcomeError)
		return nil, err
	}
	s.recorder.RecordSignIn(MethodRegister, OutcomeSuccess)
	return signIn, nil
}

// SignInWithPassword checks email and password and starts a session. Unknown
// emails, wrong passwords and passwordless accounts are indistinguishable.
func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (*SignIn, error) {
	if s.cfg.DisablePassword {
		return nil, methodDisabled(MethodPassword)
	}

	user, err := s.creds.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.recorder.RecordSignIn(MethodPassword, OutcomeError)
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "find user").
			Wrap(err)
	}

	valid, err := s.creds.VerifyPassword(user, password)
	if err != nil {
		s.recorder.RecordSignIn(MethodPassword, OutcomeError)
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(err)
	}
	if !valid {
		s.recorder.RecordSignIn(MethodPassword, OutcomeFailure)
		return nil, invalidCredentials()
	}

	s.creds.UpgradePassword(ctx, user, password)

	signIn, err := s.startSession(ctx, user)
	if err != nil {
		s.recorder.RecordSignIn(MethodPassword, OutcomeError)
		return nil, err
	}
	s.recorder.RecordSignIn(MethodPassword, OutcomeSuccess)
	return signIn, nil
}

// RequestMagicLink issues a link for email and mails it. origin is the
// scheme and host the link should point at. A delivery failure leaves the
// issued link valid.
func (s *Service) RequestMagicLink(ctx context.Context, email, origin string) error {
	if s.cfg.DisableMagicLink {
		return methodDisabled(MethodMagicLink)
	}

	token, err := s.links.Issue(ctx, email)
	if err != nil {
		return err
	}
	s.recorder.RecordMagicLink(MagicLinkIssued)

	msg := MagicLinkMessage(email, RedemptionURL(origin, token), s.links.Lifetime())
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.recorder.RecordMagicLink(MagicLinkDeliveryFailed)
		s.logger.ErrorContext(ctx, "magic link delivery failed", "error", err)
		return oops.Code(CodeDeliveryFailed).Wrap(ErrDeliveryFailed)
	}
	return nil
}

// CompleteMagicLink redeems token, creating a passwordless account the first
// time an email signs in, and starts a session.
func (s *Service) CompleteMagicLink(ctx context.Context, token string) (*SignIn, error) {
	if s.cfg.DisableMagicLink {
		return nil, methodDisabled(MethodMagicLink)
	}

	email, err := s.links.Redeem(ctx, token)
	if err != nil {
		if errors.Is(err, ErrTokenInvalid) {
			s.recorder.RecordMagicLink(MagicLinkRejected)
			s.recorder.RecordSignIn(MethodMagicLink, OutcomeFailure)
		} else {
			s.recorder.RecordSignIn(MethodMagicLink, OutcomeError)
		}
		return nil, err
	}
	s.recorder.RecordMagicLink(MagicLinkRedeemed)

	user, created, err := s.creds.FindOrCreatePasswordless(ctx, email)
	if err != nil {
		s.recorder.RecordSignIn(MethodMagicLink, OutcomeError)
		return nil, oops.Code("AUTH_MAGIC_LINK_FAILED").
			With("operation", "find or create user").
			Wrap(err)
	}
	if created {
		s.logger.InfoContext(ctx, "created passwordless account", "user_id", user.ID.String())
	}

	signIn, err := s.startSession(ctx, user)
	if err != nil {
		s.recorder.RecordSignIn(MethodMagicLink, OutcomeError)
		return nil, err
	}
	s.recorder.RecordSignIn(MethodMagicLink, OutcomeSuccess)
	return signIn, nil
}

// Authenticate validates a session token presented by a client.
func (s *Service) Authenticate(ctx context.Context, token string) (*Validation, error) {
	v, err := s.sessions.Validate(ctx, token)
	if err != nil {
		if errors.Is(err, ErrTokenInvalid) {
			s.recorder.RecordSession(SessionRejected)
		}
		return nil, err
	}
	if v.Renewed {
		s.recorder.RecordSession(SessionRenewed)
	}
	return v, nil
}

// Logout ends a session.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Invalidate(ctx, sessionID); err != nil {
		return err
	}
	s.recorder.RecordSession(SessionRevoked)
	return nil
}

func (s *Service) startSession(ctx context.Context, user *User) (*SignIn, error) {
	token, session, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	s.recorder.RecordSession(SessionCreated)
	return &SignIn{User: user, Session: session, Token: token}, nil
}

func methodDisabled(method string) error {
	return oops.Code(CodeMethodDisabled).With("method", method).Wrap(ErrMethodDisabled)
}

func outcomeOf(err error) string {
	if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrDuplicateEmail) {
		return OutcomeFailure
	}
	return OutcomeError
}
