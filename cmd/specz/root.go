// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/specz/specz/internal/config"
	"github.com/specz/specz/internal/logging"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Specz CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "specz",
		Short: "Specz - collaborative spec authoring",
		Long: `Specz serves the sign-in front end: password accounts, emailed
magic links and sliding cookie sessions over PostgreSQL or SQLite.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/specz/config.yaml)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSweepCmd())

	return cmd
}

// loadConfig reads configuration for cmd, honouring its local flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(configFile, cmd.Flags())
}

// setupLogging installs the process-wide logger described by cfg.
func setupLogging(service string, cfg config.LogConfig) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return logging.SetDefault(service, version, cfg.Format, level), nil
}
