// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

package web

import (
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/samber/oops"

	"github.com/lnmiit/researchportal/internal/auth"
)

const internalError = "Internal server error"

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type facultyRegisterRequest struct {
	Username   string   `json:"username"`
	Email      string   `json:"email"`
	Password   string   `json:"password"`
	Department string   `json:"department"`
	AuthorID   string   `json:"authorID"`
	Domains    []string `json:"domains"`
}

type studentRegisterRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Department string `json:"department"`
}

type forgotPasswordRequest struct {
	Email    string `json:"email"`
	UserType string `json:"userType"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (s *Server) loginFaculty(c echo.Context) error {
	return s.login(c, auth.RoleFaculty)
}

func (s *Server) loginStudent(c echo.Context) error {
	return s.login(c, auth.RoleStudent)
}

func (s *Server) login(c echo.Context, role auth.Role) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return s.respondError(c, styleMsg, internalError, badBody(err))
	}
	session, err := s.auth.Login(c.Request().Context(), role, req.Email, req.Password)
	if err != nil {
		return s.respondError(c, styleMsg, internalError, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"msg":   "User logged in successfully",
		"token": session.Token,
	})
}

func (s *Server) registerFaculty(c echo.Context) error {
	var req facultyRegisterRequest
	if err := c.Bind(&req); err != nil {
		return s.respondError(c, styleMsg, internalError, badBody(err))
	}
	session, err := s.auth.RegisterFaculty(c.Request().Context(), auth.FacultyRegistration{
		Name:       req.Username,
		Email:      req.Email,
		Password:   req.Password,
		Department: req.Department,
		AuthorID:   req.AuthorID,
		Domains:    req.Domains,
	})
	if err != nil {
		return s.respondError(c, styleMsg, internalError, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"person": session.Principal, "token": session.Token})
}

func (s *Server) registerStudent(c echo.Context) error {
	var req studentRegisterRequest
	if err := c.Bind(&req); err != nil {
		return s.respondError(c, styleMsg, internalError, badBody(err))
	}
	session, err := s.auth.RegisterStudent(c.Request().Context(), auth.StudentRegistration{
		Name:       req.Username,
		Email:      req.Email,
		Password:   req.Password,
		Department: req.Department,
	})
	if err != nil {
		return s.respondError(c, styleMsg, internalError, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"person": session.Principal, "token": session.Token})
}

func (s *Server) forgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return s.respondError(c, styleMsg, "Server error", badBody(err))
	}
	if err := s.resets.RequestReset(c.Request().Context(), req.UserType, req.Email); err != nil {
		return s.respondError(c, styleMsg, "Server error", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "data": "Email sent"})
}

func (s *Server) resetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return s.respondError(c, styleMsg, "Server error", badBody(err))
	}
	// echo returns path params still escaped when the request has a RawPath.
	rawToken, err := url.PathUnescape(c.Param("resetToken"))
	if err != nil {
		return s.respondError(c, styleMsg, "Server error", oops.Code("RESET_TOKEN_INVALID").
			Public("Invalid or expired token").
			Wrap(err))
	}
	token, err := s.resets.ResetPassword(c.Request().Context(),
		rawToken, c.QueryParam("userType"), req.Password)
	if err != nil {
		return s.respondError(c, styleMsg, "Server error", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "token": token})
}

func (s *Server) changePassword(c echo.Context) error {
	caller := callerFrom(c)
	if !caller.Role.Valid() {
		return s.respondError(c, styleMsg, "", oops.Code("AUTH_FORBIDDEN").
			With("principal_id", caller.ID.String()).
			Public("Token does not identify an account type").
			Errorf("password change needs a role claim"))
	}
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return s.respondError(c, styleMsg, internalError, badBody(err))
	}
	err := s.auth.ChangePassword(c.Request().Context(), caller.Role, caller.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		return s.respondError(c, styleMsg, internalError, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"msg": "Password updated successfully"})
}

func randomLuckyNumber() int {
	return rand.IntN(100) //nolint:gosec // not security sensitive
}

func (s *Server) dashboard(c echo.Context) error {
	caller := callerFrom(c)
	return c.JSON(http.StatusOK, map[string]any{
		"msg":    "Hello, " + caller.Name,
		"secret": fmt.Sprintf("Here is your authorized data, your lucky number is %d", s.luckyNumber()),
	})
}

func (s *Server) listFaculty(c echo.Context) error {
	users, err := s.auth.Directory(c.Request().Context())
	if err != nil {
		return s.respondError(c, styleMsg, internalError, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"users": users})
}
