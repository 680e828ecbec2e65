// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

//go:build integration

// Package storetest starts a migrated PostgreSQL container for integration tests.
package storetest

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/lnmiit/researchportal/internal/store"
)

// Database is a running container with every migration applied.
type Database struct {
	Pool      *pgxpool.Pool
	ConnStr   string
	container *postgres.PostgresContainer
}

// Start runs postgres:16-alpine, applies migrations and opens a pool.
func Start(ctx context.Context) (*Database, error) {
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("portal_test"),
		postgres.WithUsername("portal"),
		postgres.WithPassword("portal"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, oops.Wrapf(err, "start postgres container")
	}
	db := &Database{container: container}

	db.ConnStr, err = container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		db.Close(ctx)
		return nil, oops.Wrapf(err, "connection string")
	}

	migrator, err := store.NewMigrator(db.ConnStr)
	if err != nil {
		db.Close(ctx)
		return nil, err
	}
	err = migrator.Up()
	_ = migrator.Close()
	if err != nil {
		db.Close(ctx)
		return nil, err
	}

	db.Pool, err = store.Open(ctx, db.ConnStr, store.PoolOptions{ConnectRetries: 3})
	if err != nil {
		db.Close(ctx)
		return nil, err
	}
	return db, nil
}

// Truncate empties the given tables between tests.
func (d *Database) Truncate(ctx context.Context, tables ...string) error {
	for _, t := range tables {
		if _, err := d.Pool.Exec(ctx, "TRUNCATE "+t+" CASCADE"); err != nil {
			return oops.With("table", t).Wrap(err)
		}
	}
	return nil
}

// Close releases the pool and terminates the container.
func (d *Database) Close(ctx context.Context) {
	if d.Pool != nil {
		d.Pool.Close()
	}
	if d.container != nil {
		_ = d.container.Terminate(ctx)
	}
}
