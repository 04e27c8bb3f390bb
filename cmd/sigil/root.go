// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Sigil CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sigil",
		Short: "Sigil - credential authentication service",
		Long: `Sigil registers users, verifies passwords, and issues signed
session tokens backed by PostgreSQL.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
