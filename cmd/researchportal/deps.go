// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lnmiit/researchportal/internal/mail"
	"github.com/lnmiit/researchportal/internal/observability"
	"github.com/lnmiit/researchportal/internal/scopus"
	"github.com/lnmiit/researchportal/internal/store"
	"github.com/lnmiit/researchportal/internal/web"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// PoolFactory opens the database pool.
	// Default: store.Open
	PoolFactory func(ctx context.Context, dsn string, opts store.PoolOptions) (Pool, error)

	// MigratorFactory creates a migrator for auto-migration.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (Migrator, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// HTTPServerFactory creates the API server.
	// Default: web.NewServer
	HTTPServerFactory func(addr string, deps web.Deps) (HTTPServer, error)

	// ScopusFactory creates the Scopus client.
	// Default: scopus.New
	ScopusFactory func(cfg scopus.Config, logger *slog.Logger) (ScopusClient, error)

	// MailerFactory creates the outbound mail sender.
	// Default: mail.New
	MailerFactory func(cfg mail.Config, logger *slog.Logger) (mail.Sender, error)
}

// MigrateDeps contains injectable dependencies for the migrate command.
type MigrateDeps struct {
	// MigratorFactory creates a migrator.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (Migrator, error)
}

// Pool wraps the methods used from pgxpool.Pool.
type Pool interface {
	store.DB
	Ping(ctx context.Context) error
	Close()
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Status() (store.Status, error)
	Close() error
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Registry() *prometheus.Registry
}

// HTTPServer wraps the methods used from web.Server.
type HTTPServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// ScopusClient wraps the methods used from scopus.Client.
type ScopusClient interface {
	ValidateAuthorID(ctx context.Context, authorID string) (bool, error)
	FetchPublications(ctx context.Context, authorID string) ([]scopus.Document, error)
}

func (d *ServeDeps) withDefaults() {
	if d.PoolFactory == nil {
		d.PoolFactory = func(ctx context.Context, dsn string, opts store.PoolOptions) (Pool, error) {
			return store.Open(ctx, dsn, opts)
		}
	}
	if d.MigratorFactory == nil {
		d.MigratorFactory = defaultMigratorFactory
	}
	if d.ObservabilityServerFactory == nil {
		d.ObservabilityServerFactory = func(addr string, readiness observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readiness)
		}
	}
	if d.HTTPServerFactory == nil {
		d.HTTPServerFactory = func(addr string, deps web.Deps) (HTTPServer, error) {
			return web.NewServer(addr, deps)
		}
	}
	if d.ScopusFactory == nil {
		d.ScopusFactory = func(cfg scopus.Config, logger *slog.Logger) (ScopusClient, error) {
			return scopus.New(cfg, scopus.WithLogger(logger))
		}
	}
	if d.MailerFactory == nil {
		d.MailerFactory = mail.New
	}
}

func defaultMigratorFactory(url string) (Migrator, error) {
	return store.NewMigrator(url)
}
