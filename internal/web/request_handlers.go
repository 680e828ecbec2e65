// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

package web

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"

	"github.com/lnmiit/researchportal/internal/collab"
)

type submitRequest struct {
	FacultyName  string `json:"facultyName"`
	FacultyEmail string `json:"facultyEmail"`
	ResumeLink   string `json:"resumeLink"`
	ProjectIdea  string `json:"projectIdea"`
}

func (s *Server) submitRequest(c echo.Context) error {
	const fallback = "An unexpected error occurred while creating the BTP request"
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return s.respondError(c, styleMessage, fallback, badBody(err))
	}
	created, err := s.requests.Submit(c.Request().Context(), callerFrom(c).ID, collab.Submission{
		FacultyName:  req.FacultyName,
		FacultyEmail: req.FacultyEmail,
		ResumeLink:   req.ResumeLink,
		ProjectIdea:  req.ProjectIdea,
	})
	if err != nil {
		return s.respondError(c, styleMessage, fallback, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) listSent(c echo.Context) error {
	sent, err := s.requests.ListSent(c.Request().Context(), callerFrom(c).ID)
	if err != nil {
		return s.respondError(c, styleMessage, "Failed to fetch sent BTP requests", err)
	}
	if sent == nil {
		sent = []collab.SentRequest{}
	}
	return c.JSON(http.StatusOK, sent)
}

func (s *Server) listIncoming(c echo.Context) error {
	incoming, err := s.requests.ListIncoming(c.Request().Context(), callerFrom(c).ID)
	if err != nil {
		return s.respondError(c, styleMessage, "Failed to fetch incoming BTP requests", err)
	}
	if incoming == nil {
		incoming = []collab.IncomingRequest{}
	}
	return c.JSON(http.StatusOK, incoming)
}

type transitionFunc func(c echo.Context, facultyID, requestID ulid.ULID) (*collab.Request, error)

func (s *Server) acceptRequest(c echo.Context) error {
	return s.transition(c, "Failed to accept BTP request", func(c echo.Context, facultyID, requestID ulid.ULID) (*collab.Request, error) {
		return s.requests.Accept(c.Request().Context(), facultyID, requestID)
	})
}

func (s *Server) rejectRequest(c echo.Context) error {
	return s.transition(c, "Failed to reject BTP request", func(c echo.Context, facultyID, requestID ulid.ULID) (*collab.Request, error) {
		return s.requests.Reject(c.Request().Context(), facultyID, requestID)
	})
}

func (s *Server) transition(c echo.Context, fallback string, fn transitionFunc) error {
	// A malformed id becomes the zero ULID, which never matches a stored
	// request, so the workflow still applies its capacity check first.
	requestID, err := ulid.Parse(c.Param("id"))
	if err != nil {
		requestID = ulid.ULID{}
	}
	updated, err := fn(c, callerFrom(c).ID, requestID)
	if err != nil {
		return s.respondError(c, styleMessage, fallback, err)
	}
	return c.JSON(http.StatusOK, updated)
}
