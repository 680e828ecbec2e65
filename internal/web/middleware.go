// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

package web

import (
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"

	"github.com/lnmiit/researchportal/internal/auth"
)

const callerKey = "caller"

// Caller is the verified bearer of a request.
type Caller struct {
	ID   ulid.ULID
	Name string
	// Role is the role the route acts as. Tokens without a role claim take
	// the route's role and are held to identifier ownership.
	Role auth.Role
}

func callerFrom(c echo.Context) Caller {
	caller, _ := c.Get(callerKey).(Caller)
	return caller
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// requireAuth verifies the bearer token. With roles, only tokens carrying one
// of them (or no role at all) pass; others get 403.
func (s *Server) requireAuth(roles ...auth.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if token == "" {
				return s.respondError(c, styleMsg, "", oops.Code("TOKEN_INVALID").
					Public("No token provided").
					Errorf("missing bearer token"))
			}
			claims, err := s.tokens.Verify(token)
			if err != nil {
				return s.respondError(c, styleMsg, "Not authorized", err)
			}
			id, err := claims.PrincipalID()
			if err != nil {
				return s.respondError(c, styleMsg, "Not authorized", err)
			}

			role := claims.Role
			if len(roles) > 0 {
				switch {
				case role == "":
					role = roles[0]
				case !slices.Contains(roles, role):
					return s.respondError(c, styleMsg, "", oops.Code("AUTH_FORBIDDEN").
						With("role", string(role)).
						With("route", c.Path()).
						Public("Forbidden").
						Errorf("role not allowed on route"))
				}
			}

			c.Set(callerKey, Caller{ID: id, Name: claims.Name, Role: role})
			return next(c)
		}
	}
}

// requestLogger logs one line per request through slog.
func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogRoutePath: true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.LogAttrs(c.Request().Context(), slog.LevelInfo, "http request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.String("route", v.RoutePath),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			)
			return nil
		},
	})
}

// Metrics holds the HTTP collectors.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the HTTP metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "researchportal_http_requests_total",
				Help: "Total number of HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "researchportal_http_request_duration_seconds",
				Help:    "HTTP request latency by method and route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
	reg.MustRegister(m.RequestsTotal, m.RequestDuration)
	return m
}

func (m *Metrics) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// Let the error handler write the response so the status is final.
				c.Error(err)
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Response().Status)).Inc()
			m.RequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
