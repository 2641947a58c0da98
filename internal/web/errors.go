// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/specz/specz/internal/auth"
	"github.com/specz/specz/pkg/errutil"
)

// statusFor maps an auth outcome to an HTTP status and a client-safe
// message. Unknown errors are 500 with a generic message.
func statusFor(err error) (int, string) {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code, fmt.Sprint(he.Message)
	case errors.Is(err, auth.ErrInvalidInput):
		return http.StatusBadRequest, invalidInputMessage(err)
	case errors.Is(err, auth.ErrDuplicateEmail):
		return http.StatusConflict, auth.ErrDuplicateEmail.Error()
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, auth.ErrInvalidCredentials.Error()
	case errors.Is(err, auth.ErrTokenInvalid):
		return http.StatusGone, auth.ErrTokenInvalid.Error()
	case errors.Is(err, auth.ErrDeliveryFailed):
		return http.StatusBadGateway, auth.ErrDeliveryFailed.Error()
	case errors.Is(err, auth.ErrMethodDisabled):
		return http.StatusNotFound, http.StatusText(http.StatusNotFound)
	default:
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	}
}

func invalidInputMessage(err error) string {
	msg := auth.ErrInvalidInput.Error()
	if reason, ok := errutil.ContextString(err, "reason"); ok && reason != "" {
		return msg + ": " + reason
	}
	return msg
}

func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		errutil.LogError(c.Request().Context(), s.logger, "request failed", err)
	}

	var writeErr error
	switch {
	case c.Request().Method == http.MethodHead:
		writeErr = c.NoContent(status)
	case wantsJSON(c.Request()):
		writeErr = c.JSON(status, map[string]string{"error": msg})
	default:
		writeErr = c.String(status, msg)
	}
	if writeErr != nil {
		s.logger.Error("failed to write error response", "error", writeErr)
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON) ||
		strings.HasPrefix(r.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
}
