// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

// Package web exposes the portal over a JSON HTTP API built on echo.
package web

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/lnmiit/researchportal/internal/auth"
	"github.com/lnmiit/researchportal/internal/collab"
	"github.com/lnmiit/researchportal/internal/publication"
	"github.com/lnmiit/researchportal/pkg/errutil"
)

// Authenticator is the account surface used by the handlers.
type Authenticator interface {
	Login(ctx context.Context, role auth.Role, email, password string) (*auth.Session, error)
	RegisterFaculty(ctx context.Context, in auth.FacultyRegistration) (*auth.Session, error)
	RegisterStudent(ctx context.Context, in auth.StudentRegistration) (*auth.Session, error)
	ChangePassword(ctx context.Context, role auth.Role, id ulid.ULID, current, next string) error
	Directory(ctx context.Context) ([]*auth.Faculty, error)
}

// PasswordResetter runs the emailed reset flow.
type PasswordResetter interface {
	RequestReset(ctx context.Context, userType, email string) error
	ResetPassword(ctx context.Context, rawToken, userType, newPassword string) (string, error)
}

// TokenVerifier checks bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// RequestWorkflow is the BTP request state machine.
type RequestWorkflow interface {
	Submit(ctx context.Context, studentID ulid.ULID, sub collab.Submission) (*collab.Request, error)
	Accept(ctx context.Context, facultyID, requestID ulid.ULID) (*collab.Request, error)
	Reject(ctx context.Context, facultyID, requestID ulid.ULID) (*collab.Request, error)
	ListSent(ctx context.Context, studentID ulid.ULID) ([]collab.SentRequest, error)
	ListIncoming(ctx context.Context, facultyID ulid.ULID) ([]collab.IncomingRequest, error)
}

// Publications serves faculty publication profiles.
type Publications interface {
	Refresh(ctx context.Context, facultyID ulid.ULID) (int, error)
	List(ctx context.Context, facultyID ulid.ULID) ([]publication.Publication, error)
}

// Deps are the collaborators of Server. Metrics and Logger may be nil.
type Deps struct {
	Auth         Authenticator
	Resets       PasswordResetter
	Tokens       TokenVerifier
	Requests     RequestWorkflow
	Publications Publications
	Metrics      *Metrics
	Logger       *slog.Logger
	// AllowOrigins enables CORS for the listed front-end origins.
	AllowOrigins []string
	// LuckyNumber replaces the dashboard's random source in tests.
	LuckyNumber func() int
}

// Server serves the JSON API.
type Server struct {
	addr         string
	echo         *echo.Echo
	auth         Authenticator
	resets       PasswordResetter
	tokens       TokenVerifier
	requests     RequestWorkflow
	publications Publications
	luckyNumber  func() int
	logger       *slog.Logger

	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer builds the router. addr is used by Start.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Auth == nil {
		return nil, oops.Errorf("auth service is required")
	}
	if deps.Resets == nil {
		return nil, oops.Errorf("password reset service is required")
	}
	if deps.Tokens == nil {
		return nil, oops.Errorf("token verifier is required")
	}
	if deps.Requests == nil {
		return nil, oops.Errorf("request workflow is required")
	}
	if deps.Publications == nil {
		return nil, oops.Errorf("publication service is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	lucky := deps.LuckyNumber
	if lucky == nil {
		lucky = randomLuckyNumber
	}

	s := &Server{
		addr:         addr,
		echo:         echo.New(),
		auth:         deps.Auth,
		resets:       deps.Resets,
		tokens:       deps.Tokens,
		requests:     deps.Requests,
		publications: deps.Publications,
		luckyNumber:  lucky,
		logger:       logger,
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.HTTPErrorHandler = s.httpErrorHandler

	s.echo.Use(middleware.RequestID())
	if deps.Metrics != nil {
		s.echo.Use(deps.Metrics.middleware())
	}
	s.echo.Use(requestLogger(logger))
	s.echo.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.ErrorContext(c.Request().Context(), "handler panic",
				"error", err, "stack", string(stack))
			return err
		},
	}))
	s.echo.Use(middleware.BodyLimit("1M"))
	if len(deps.AllowOrigins) > 0 {
		s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: deps.AllowOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		}))
	}

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	api := s.echo.Group("/api/v1")

	api.POST("/login", s.loginFaculty)
	api.POST("/student/login", s.loginStudent)
	api.POST("/register", s.registerFaculty)
	api.POST("/student/register", s.registerStudent)
	api.POST("/forgotpassword", s.forgotPassword)
	api.PUT("/resetpassword/:resetToken", s.resetPassword)
	api.GET("/users", s.listFaculty)
	api.GET("/users/:id/publications", s.listPublications)

	api.GET("/dashboard", s.dashboard, s.requireAuth())
	api.PUT("/password", s.changePassword, s.requireAuth())
	api.POST("/refresh", s.refreshPublications, s.requireAuth(auth.RoleFaculty))

	btp := api.Group("/btp-requests")
	btp.POST("", s.submitRequest, s.requireAuth(auth.RoleStudent))
	btp.GET("/sent", s.listSent, s.requireAuth(auth.RoleStudent))
	btp.GET("/incoming", s.listIncoming, s.requireAuth(auth.RoleFaculty))
	btp.PATCH("/:id/accept", s.acceptRequest, s.requireAuth(auth.RoleFaculty))
	btp.PATCH("/:id/reject", s.rejectRequest, s.requireAuth(auth.RoleFaculty))
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start begins serving. The returned channel receives a serve error, and is
// closed when the server stops.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("http server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.Code("HTTP_LISTEN_FAILED").With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			errutil.LogError(s.logger, "http server error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("http server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop drains in-flight requests until ctx ends.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_http_server").Wrap(err)
		}
	}
	s.logger.Info("http server stopped")
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
