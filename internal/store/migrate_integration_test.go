// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

//go:build integration

package store_test

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/lnmiit/researchportal/internal/store"
)

var _ = Describe("Migrator", Ordered, func() {
	var (
		ctx       context.Context
		container *postgres.PostgresContainer
		connStr   string
		migrator  *store.Migrator
	)

	BeforeAll(func() {
		ctx = context.Background()
		var err error
		container, err = postgres.Run(ctx,
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
		Expect(err).NotTo(HaveOccurred())

		connStr, err = container.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())

		migrator, err = store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if migrator != nil {
			_ = migrator.Close()
		}
		if container != nil {
			_ = container.Terminate(ctx)
		}
	})

	It("starts empty", func() {
		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeZero())
		Expect(dirty).To(BeFalse())
	})

	It("applies every migration", func() {
		Expect(migrator.Up()).To(Succeed())

		status, err := migrator.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(status.Version).To(Equal(uint(3)))
		Expect(status.Pending).To(BeEmpty())
	})

	It("opens a pool against the migrated schema", func() {
		pool, err := store.Open(ctx, connStr, store.PoolOptions{MaxConns: 2, ConnectRetries: 3})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(pool.Close)

		var tables int
		err = pool.QueryRow(ctx, `SELECT count(*) FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name IN ('faculty', 'students', 'btp_requests', 'publications')`).
			Scan(&tables)
		Expect(err).NotTo(HaveOccurred())
		Expect(tables).To(Equal(4))
	})

	It("rejects a reset token hash without an expiry", func() {
		pool, err := pgxpool.New(ctx, connStr)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(pool.Close)

		_, err = pool.Exec(ctx, `INSERT INTO students (id, name, email, password_hash, reset_token_hash)
			VALUES ('01STUDENT', 'Asha', 'asha@lnmiit.ac.in', 'x', 'abc')`)
		Expect(err).To(HaveOccurred())
	})

	It("steps down and back up", func() {
		Expect(migrator.Steps(-1)).To(Succeed())
		version, _, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(2)))

		Expect(migrator.Steps(1)).To(Succeed())
		version, _, err = migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(3)))
	})

	It("rolls everything back", func() {
		Expect(migrator.Down()).To(Succeed())
		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeZero())
		Expect(dirty).To(BeFalse())
	})
})
