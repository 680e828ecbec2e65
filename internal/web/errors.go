// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

package web

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/samber/oops"

	"github.com/lnmiit/researchportal/pkg/errutil"
)

// statusByCode maps domain error codes to HTTP statuses. Unlisted codes are 500.
var statusByCode = map[string]int{
	"AUTH_MISSING_FIELDS":       http.StatusBadRequest,
	"AUTH_INVALID_EMAIL_DOMAIN": http.StatusBadRequest,
	"AUTH_INVALID_USER_TYPE":    http.StatusBadRequest,
	"AUTH_INVALID_NAME":         http.StatusBadRequest,
	"AUTH_EMAIL_IN_USE":         http.StatusBadRequest,
	"AUTH_AUTHOR_ID_IN_USE":     http.StatusBadRequest,
	"AUTH_BAD_PASSWORD":         http.StatusBadRequest,
	"AUTH_BAD_CREDENTIALS":      http.StatusBadRequest,
	"AUTH_EMPTY_PASSWORD":       http.StatusBadRequest,
	"AUTH_INVALID_AUTHOR_ID":    http.StatusBadRequest,
	"RESET_MISSING_PARAMS":      http.StatusBadRequest,
	"RESET_TOKEN_INVALID":       http.StatusBadRequest,
	"REQUEST_VALIDATION":        http.StatusBadRequest,
	"REQUEST_INVALID_REFERENCE": http.StatusBadRequest,
	"REQUEST_DUPLICATE":         http.StatusBadRequest,
	"REQUEST_CAPACITY_EXCEEDED": http.StatusBadRequest,
	"PUBLICATION_NO_AUTHOR_ID":  http.StatusBadRequest,
	"HTTP_BAD_BODY":             http.StatusBadRequest,

	"TOKEN_INVALID":                  http.StatusUnauthorized,
	"AUTH_CURRENT_PASSWORD_MISMATCH": http.StatusUnauthorized,

	"AUTH_FORBIDDEN": http.StatusForbidden,

	"AUTH_USER_NOT_FOUND":               http.StatusNotFound,
	"REQUEST_FACULTY_NOT_FOUND":         http.StatusNotFound,
	"REQUEST_NOT_FOUND_OR_UNAUTHORIZED": http.StatusNotFound,
	"PUBLICATION_FACULTY_NOT_FOUND":     http.StatusNotFound,

	"REQUEST_CONFLICT":           http.StatusConflict,
	"REQUEST_INVALID_TRANSITION": http.StatusConflict,

	"AUTH_AUTHOR_LOOKUP_FAILED": http.StatusBadGateway,
}

// StatusFor returns the HTTP status for err.
func StatusFor(err error) int {
	if status, ok := statusByCode[errutil.Code(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// bodyStyle picks the JSON shape of error responses. Account routes answer
// {"msg"}, request routes {"message"} and refresh {"success", "message"}.
type bodyStyle int

const (
	styleMsg bodyStyle = iota
	styleMessage
	styleSuccessMessage
)

func errorBody(style bodyStyle, message string) map[string]any {
	switch style {
	case styleMessage:
		return map[string]any{"message": message}
	case styleSuccessMessage:
		return map[string]any{"success": false, "message": message}
	default:
		return map[string]any{"msg": message}
	}
}

// respondError logs err once and writes the mapped status with the error's
// public message, or fallback when it has none.
func (s *Server) respondError(c echo.Context, style bodyStyle, fallback string, err error) error {
	status := StatusFor(err)
	ctx := c.Request().Context()
	if status >= http.StatusInternalServerError {
		errutil.LogErrorContext(ctx, s.logger, "request failed", err)
	} else {
		s.logger.DebugContext(ctx, "request rejected",
			"code", errutil.Code(err), "status", status, "route", c.Path())
	}
	return c.JSON(status, errorBody(style, oops.GetPublic(err, fallback)))
}

func badBody(err error) error {
	return oops.Code("HTTP_BAD_BODY").
		Public("Invalid request body").
		Wrap(err)
}

// httpErrorHandler renders echo's own errors (unknown route, wrong method,
// recovered panics) in the account body style.
func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	message := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(status)
		}
	}
	if status >= http.StatusInternalServerError {
		errutil.LogErrorContext(c.Request().Context(), s.logger, "unhandled request error", err)
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, errorBody(styleMsg, message))
}
