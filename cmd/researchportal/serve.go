// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"github.com/thejerf/abtime"

	"github.com/lnmiit/researchportal/internal/auth"
	authpg "github.com/lnmiit/researchportal/internal/auth/postgres"
	"github.com/lnmiit/researchportal/internal/collab"
	collabpg "github.com/lnmiit/researchportal/internal/collab/postgres"
	"github.com/lnmiit/researchportal/internal/config"
	"github.com/lnmiit/researchportal/internal/logging"
	"github.com/lnmiit/researchportal/internal/observability"
	"github.com/lnmiit/researchportal/internal/publication"
	pubpg "github.com/lnmiit/researchportal/internal/publication/postgres"
	"github.com/lnmiit/researchportal/internal/store"
	"github.com/lnmiit/researchportal/internal/web"
	"github.com/lnmiit/researchportal/pkg/errutil"
)

const serviceName = "researchportal"

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the research portal API",
		Long: `Start the HTTP API and the observability server.

Settings come from built-in defaults, the --config file, PORTAL_* and
well-known environment variables, then flags, in increasing precedence.`,
		RunE: runServe,
	}

	defaults := config.Defaults()
	cmd.Flags().String("http-addr", defaults["http.addr"].(string), "HTTP API listen address")
	cmd.Flags().String("metrics-addr", defaults["metrics.addr"].(string), "metrics and health listen address (empty disables)")
	cmd.Flags().String("log-format", defaults["log.format"].(string), "log format (json, text)")
	cmd.Flags().String("log-level", defaults["log.level"].(string), "log level (debug, info, warn, error)")
	cmd.Flags().String("database-url", "", "PostgreSQL connection URL (overrides DATABASE_URL)")
	cmd.Flags().String("base-url", "", "front-end origin used in password reset links")
	cmd.Flags().Bool("auto-migrate", defaults["database.auto_migrate"].(bool), "apply pending migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Loader{File: configFile(cmd), Flags: cmd.Flags()}.Load()
	if err != nil {
		return oops.With("operation", "load configuration").Wrap(err)
	}

	logger, err := logging.Setup(logging.Options{
		Service: serviceName,
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
	})
	if err != nil {
		return oops.With("operation", "set up logging").Wrap(err)
	}
	slog.SetDefault(logger)

	return runServeWithDeps(cmd.Context(), cfg, logger, nil)
}

// runServeWithDeps runs the API with injectable dependencies. It returns
// after ctx is cancelled, a signal arrives, or a server fails.
func runServeWithDeps(ctx context.Context, cfg *config.Config, logger *slog.Logger, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	deps.withDefaults()
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Database.AutoMigrate {
		if err := autoMigrate(ctx, cfg.Database.URL, deps.MigratorFactory); err != nil {
			return err
		}
	}

	pool, err := deps.PoolFactory(ctx, cfg.Database.URL, store.PoolOptions{
		MaxConns:       cfg.Database.MaxConns,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		ConnectRetries: cfg.Database.ConnectRetries,
	})
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "open database").Wrap(err)
	}
	defer pool.Close()

	var obsServer ObservabilityServer
	registry := prometheus.NewRegistry()
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, observability.PingReadiness(pool))
		registry = obsServer.Registry()
	}
	auth.RegisterMetrics(registry)
	collab.RegisterMetrics(registry)

	httpServer, err := buildAPI(cfg, pool, registry, logger, deps)
	if err != nil {
		return err
	}

	httpErrCh, err := httpServer.Start()
	if err != nil {
		return oops.Code("HTTP_START_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
	}
	logger.InfoContext(ctx, "api server started", "addr", httpServer.Addr())
	go monitorServerErrors(ctx, cancel, httpErrCh, "api")

	if obsServer != nil {
		obsErrCh, err := obsServer.Start()
		if err != nil {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer stopCancel()
			if stopErr := httpServer.Stop(stopCtx); stopErr != nil {
				errutil.LogError(logger, "failed to stop api server during cleanup", stopErr)
			}
			return oops.Code("OBSERVABILITY_START_FAILED").With("addr", cfg.Metrics.Addr).Wrap(err)
		}
		logger.InfoContext(ctx, "observability server started", "addr", obsServer.Addr())
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		errutil.LogError(logger, "failed to stop api server", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			errutil.LogError(logger, "failed to stop observability server", err)
		}
	}

	logger.Info("research portal stopped")
	return nil
}

// buildAPI wires repositories and services into the HTTP server.
func buildAPI(cfg *config.Config, pool Pool, registry prometheus.Registerer, logger *slog.Logger, deps *ServeDeps) (HTTPServer, error) {
	clock := abtime.NewRealTime()
	principals := authpg.NewPrincipalRepository(pool)
	tx := store.NewTransactor(pool)
	hasher := auth.NewArgon2idHasher()

	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, clock)
	if err != nil {
		return nil, oops.With("operation", "create token issuer").Wrap(err)
	}
	mailer, err := deps.MailerFactory(cfg.Mail, logger)
	if err != nil {
		return nil, oops.With("operation", "create mailer").Wrap(err)
	}
	scopusClient, err := deps.ScopusFactory(cfg.Scopus, logger)
	if err != nil {
		return nil, oops.With("operation", "create scopus client").Wrap(err)
	}

	publications, err := publication.NewService(
		pubpg.NewPublicationRepository(pool), principals, scopusClient, tx, clock, logger)
	if err != nil {
		return nil, oops.With("operation", "create publication service").Wrap(err)
	}

	accounts, err := auth.NewAuthService(auth.ServiceDeps{
		Principals:         principals,
		Hasher:             hasher,
		Tokens:             tokens,
		Authors:            scopusClient,
		Publications:       publications,
		Mailer:             mailer,
		StudentEmailDomain: cfg.Auth.StudentEmailDomain,
	}, auth.WithLogger(logger), auth.WithClock(clock))
	if err != nil {
		return nil, oops.With("operation", "create auth service").Wrap(err)
	}

	resets, err := auth.NewPasswordResetService(principals, hasher, tokens, mailer, cfg.Auth.BaseURL,
		auth.WithLogger(logger), auth.WithClock(clock))
	if err != nil {
		return nil, oops.With("operation", "create password reset service").Wrap(err)
	}

	requests, err := collab.NewService(collabpg.NewRequestRepository(pool), principals, tx,
		collab.WithLogger(logger), collab.WithClock(clock))
	if err != nil {
		return nil, oops.With("operation", "create request service").Wrap(err)
	}

	server, err := deps.HTTPServerFactory(cfg.HTTP.Addr, web.Deps{
		Auth:         accounts,
		Resets:       resets,
		Tokens:       tokens,
		Requests:     requests,
		Publications: publications,
		Metrics:      web.NewMetrics(registry),
		Logger:       logger,
		AllowOrigins: cfg.HTTP.AllowOrigins,
	})
	if err != nil {
		return nil, oops.With("operation", "create api server").Wrap(err)
	}
	return server, nil
}

// autoMigrate applies pending migrations before the pool is opened.
func autoMigrate(ctx context.Context, url string, factory func(string) (Migrator, error)) error {
	m, err := factory(url)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			errutil.LogErrorContext(ctx, slog.Default(), "failed to close migrator", closeErr)
		}
	}()

	slog.InfoContext(ctx, "applying database migrations")
	if err := m.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}
	return nil
}

// monitorServerErrors cancels ctx when a server reports a runtime error.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
