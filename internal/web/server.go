// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

// Package web serves the sign-in flows over HTTP.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/samber/oops"

	"github.com/specz/specz/internal/auth"
)

// Redirect targets.
const (
	HomePath       = "/"
	SpecsPath      = "/specs"
	CheckEmailPath = "/auth/check-email"
)

// RequestRecorder counts served requests.
type RequestRecorder interface {
	RecordRequest(method, route string, status int)
}

// Config configures the web server.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// Origin is the public base URL for emailed links. Required when the
	// service offers magic links; the request Host is never trusted for it.
	Origin        string
	SecureCookies bool
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Requests is optional.
	Requests RequestRecorder
}

// Server is the HTTP front end for auth.Service.
type Server struct {
	echo       *echo.Echo
	svc        *auth.Service
	cfg        Config
	logger     *slog.Logger
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer builds the router.
func NewServer(svc *auth.Service, cfg Config) (*Server, error) {
	if svc == nil {
		return nil, oops.Errorf("auth service is required")
	}
	if svc.MagicLinkEnabled() && cfg.Origin == "" {
		return nil, oops.Code("WEB_ORIGIN_REQUIRED").Errorf("origin is required when magic links are enabled")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{svc: svc, cfg: cfg, logger: logger}
	s.echo = s.routes()
	return s, nil
}

func (s *Server) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.errorHandler

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(s.accessLog)
	e.Use(middleware.Recover())
	e.Use(s.sessionMiddleware)

	e.GET("/healthz", s.handleHealth)

	e.POST("/register", s.handleRegister)
	e.POST("/login", s.handleLogin)
	e.POST("/auth", s.handleRequestMagicLink)
	e.GET("/auth/verify", s.handleVerify)
	e.POST("/logout", s.handleLogout)

	e.GET("/api/me", s.handleMe)

	return e
}

// Handler returns the router for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start begins serving. The returned channel receives a serve error, and is
// closed when the server stops.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("web server already running")
	}

	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.Code("WEB_LISTEN_FAILED").With("addr", s.cfg.Addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.echo,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.WriteTimeout,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("web server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("web server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.running.Store(true)
		return oops.With("operation", "shutdown web server").Wrap(err)
	}
	s.logger.Info("web server stopped")
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

