// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

package web

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/specz/specz/internal/auth"
	"github.com/specz/specz/pkg/errutil"
)

type credentialsRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type magicLinkRequest struct {
	Email string `json:"email" form:"email"`
}

type meResponse struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	HasPassword      bool      `json:"has_password"`
	SessionExpiresAt time.Time `json:"session_expires_at"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRegister(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	signIn, err := s.svc.Register(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	s.setSessionCookie(c, signIn.Token, signIn.Session.ExpiresAt)
	return c.Redirect(http.StatusSeeOther, SpecsPath)
}

func (s *Server) handleLogin(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	signIn, err := s.svc.SignInWithPassword(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	s.setSessionCookie(c, signIn.Token, signIn.Session.ExpiresAt)
	return c.Redirect(http.StatusSeeOther, SpecsPath)
}

func (s *Server) handleRequestMagicLink(c echo.Context) error {
	var req magicLinkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	if err := s.svc.RequestMagicLink(c.Request().Context(), req.Email, s.cfg.Origin); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, CheckEmailPath)
}

func (s *Server) handleVerify(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing token")
	}

	signIn, err := s.svc.CompleteMagicLink(c.Request().Context(), token)
	if err != nil {
		return err
	}
	s.setSessionCookie(c, signIn.Token, signIn.Session.ExpiresAt)
	return c.Redirect(http.StatusFound, SpecsPath)
}

// handleLogout always clears the cookie, even when the session is already
// gone.
func (s *Server) handleLogout(c echo.Context) error {
	ctx := c.Request().Context()
	if id := auth.FromContext(ctx); id != nil {
		if err := s.svc.Logout(ctx, id.Session.ID); err != nil {
			errutil.LogError(ctx, s.logger, "logout failed", err)
		}
	}
	s.clearSessionCookie(c)
	return c.Redirect(http.StatusFound, HomePath)
}

func (s *Server) handleMe(c echo.Context) error {
	id := auth.FromContext(c.Request().Context())
	if id == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not signed in")
	}
	return c.JSON(http.StatusOK, meResponse{
		ID:               id.User.ID.String(),
		Email:            id.User.Email,
		HasPassword:      id.User.HasPassword(),
		SessionExpiresAt: id.Session.ExpiresAt,
	})
}
