// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/lnmiit/researchportal/internal/xdg"
)

// NewRootCmd creates the root command for the research portal CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "researchportal",
		Short: "LNMIIT research portal API",
		Long: `The research portal connects students with faculty for BTP projects
and keeps faculty publication profiles in sync with Scopus.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "config file path (YAML, default $XDG_CONFIG_HOME/researchportal/config.yaml)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// NewVersionCmd prints build information.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.Printf("researchportal %s (commit: %s, built: %s)\n", version, commit, date)
			return nil
		},
	}
}

// configFile reads the persistent --config flag, falling back to
// $XDG_CONFIG_HOME/researchportal/config.yaml when that file exists.
func configFile(cmd *cobra.Command) string {
	path, err := cmd.Flags().GetString("config")
	if err != nil || path == "" {
		return xdg.ConfigFile()
	}
	return path
}
