// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

package main

import (
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/lnmiit/researchportal/internal/config"
)

// NewMigrateCmd creates the migrate command group.
func NewMigrateCmd() *cobra.Command {
	return newMigrateCmdWithDeps(&MigrateDeps{})
}

func newMigrateCmdWithDeps(deps *MigrateDeps) *cobra.Command {
	if deps.MigratorFactory == nil {
		deps.MigratorFactory = defaultMigratorFactory
	}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long: `Apply, roll back and inspect the PostgreSQL schema.

The database URL is read from --database-url, the config file, or DATABASE_URL.`,
	}
	cmd.PersistentFlags().String("database-url", "", "PostgreSQL connection URL (overrides DATABASE_URL)")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, deps, func(m Migrator) error {
				cmd.Println("Running migrations...")
				if err := m.Up(); err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "up").Wrap(err)
				}
				cmd.Println("Migrations completed successfully")
				return nil
			})
		},
	})

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			all, err := cmd.Flags().GetBool("all")
			if err != nil {
				return oops.Wrap(err)
			}
			return withMigrator(cmd, deps, func(m Migrator) error {
				if all {
					cmd.Println("Rolling back all migrations...")
					if err := m.Down(); err != nil {
						return oops.Code("MIGRATION_FAILED").With("operation", "down").Wrap(err)
					}
				} else {
					cmd.Println("Rolling back one migration...")
					if err := m.Steps(-1); err != nil {
						return oops.Code("MIGRATION_FAILED").With("operation", "down").Wrap(err)
					}
				}
				cmd.Println("Rollback completed successfully")
				return nil
			})
		},
	}
	down.Flags().Bool("all", false, "roll back every applied migration")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the applied schema version and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, deps, func(m Migrator) error {
				status, err := m.Status()
				if err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "status").Wrap(err)
				}
				if status.Version == 0 {
					cmd.Println("Version: none")
				} else {
					cmd.Printf("Version: %d (%s)\n", status.Version, status.Name)
				}
				if status.Dirty {
					cmd.Println("State: dirty (run 'migrate force' after fixing the schema)")
				}
				cmd.Printf("Pending: %d\n", len(status.Pending))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return oops.Code("INVALID_VERSION").With("version", args[0]).Wrap(err)
			}
			return withMigrator(cmd, deps, func(m Migrator) error {
				if err := m.Force(v); err != nil {
					return oops.With("operation", "force").Wrap(err)
				}
				cmd.Printf("Forced version %d\n", v)
				return nil
			})
		},
	})

	return cmd
}

// withMigrator resolves the database URL, opens a migrator, runs fn and closes it.
func withMigrator(cmd *cobra.Command, deps *MigrateDeps, fn func(Migrator) error) error {
	cfg, err := config.Loader{File: configFile(cmd), Flags: cmd.Flags()}.Unvalidated()
	if err != nil {
		return oops.With("operation", "load configuration").Wrap(err)
	}
	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database url is required (--database-url or DATABASE_URL)")
	}

	m, err := deps.MigratorFactory(cfg.Database.URL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			cmd.PrintErrf("warning: failed to close migrator: %v\n", closeErr)
		}
	}()
	return fn(m)
}
