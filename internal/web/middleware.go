// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

package web

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/specz/specz/internal/auth"
	"github.com/specz/specz/pkg/errutil"
)

// accessLog logs each request once it has been handled.
func (s *Server) accessLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			// Resolve the status now so the log line and metric see it.
			c.Error(err)
		}

		req := c.Request()
		status := c.Response().Status
		s.logger.InfoContext(req.Context(), "http request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"duration", time.Since(start),
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID))

		if s.cfg.Requests != nil {
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			s.cfg.Requests.RecordRequest(req.Method, route, status)
		}
		return nil
	}
}

// sessionMiddleware resolves the session cookie into an auth.Identity.
// Requests without a usable session continue anonymously.
func (s *Server) sessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			return next(c)
		}

		req := c.Request()
		v, err := s.svc.Authenticate(req.Context(), cookie.Value)
		switch {
		case errors.Is(err, auth.ErrTokenInvalid):
			s.clearSessionCookie(c)
			return next(c)
		case err != nil:
			errutil.LogError(req.Context(), s.logger, "session lookup failed", err)
			return next(c)
		}

		if v.Renewed {
			s.setSessionCookie(c, cookie.Value, v.Session.ExpiresAt)
		}
		c.SetRequest(req.WithContext(auth.WithIdentity(req.Context(), v.User, v.Session)))
		return next(c)
	}
}
