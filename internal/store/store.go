// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

// Package store provides the PostgreSQL connection pool, transaction
// propagation through context, and schema migrations.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Querier executes SQL. Both the pool and an open pgx.Tx satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB is the subset of *pgxpool.Pool used by repositories.
// pgxmock.PgxPoolIface satisfies it in tests.
type DB interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

var _ DB = (*pgxpool.Pool)(nil)

// PoolOptions tunes the connection pool.
type PoolOptions struct {
	MaxConns       int32
	ConnectTimeout time.Duration
	// ConnectRetries is how many extra pings are attempted before giving up.
	ConnectRetries uint64
}

// Open creates a pool and waits until the database answers a ping.
func Open(ctx context.Context, dsn string, opts PoolOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").Wrap(err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.ConnectTimeout > 0 {
		cfg.ConnConfig.ConnectTimeout = opts.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}

	backoff := retry.WithMaxRetries(opts.ConnectRetries, retry.NewExponential(250*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if pingErr := pool.Ping(ctx); pingErr != nil {
			slog.WarnContext(ctx, "database not ready", "error", pingErr)
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("host", cfg.ConnConfig.Host).
			With("database", cfg.ConnConfig.Database).
			Wrap(err)
	}
	return pool, nil
}

type txKey struct{}

// Conn returns the transaction carried by ctx, or db when there is none.
func Conn(ctx context.Context, db Querier) Querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return db
}

// InTx reports whether ctx carries an open transaction.
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(pgx.Tx)
	return ok
}
