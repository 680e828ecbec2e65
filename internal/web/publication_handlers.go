// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

package web

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

func (s *Server) refreshPublications(c echo.Context) error {
	const fallback = "Error refreshing publications"
	count, err := s.publications.Refresh(c.Request().Context(), callerFrom(c).ID)
	if err != nil {
		return s.respondError(c, styleSuccessMessage, fallback, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Publications refreshed successfully",
		"count":   count,
	})
}

func (s *Server) listPublications(c echo.Context) error {
	facultyID, err := ulid.Parse(c.Param("id"))
	if err != nil {
		return s.respondError(c, styleMsg, internalError, oops.Code("PUBLICATION_FACULTY_NOT_FOUND").
			With("id", c.Param("id")).
			Public("User not found").
			Wrap(err))
	}
	pubs, err := s.publications.List(c.Request().Context(), facultyID)
	if err != nil {
		return s.respondError(c, styleMsg, internalError, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"publications": pubs})
}
