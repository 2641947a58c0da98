// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/specz/specz/internal/auth"
	"github.com/specz/specz/internal/config"
)

// NewSweepCmd creates the sweep subcommand.
func NewSweepCmd() *cobra.Command {
	return newSweepCmd(nil)
}

func newSweepCmd(opener func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired sessions and magic links once",
		Long: `Delete expired sessions and magic links, then exit. Useful from cron
when the server runs with the sweeper disabled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runSweep(ctx, cmd, opener)
		},
	}

	config.Flags(cmd.Flags())

	return cmd
}

func runSweep(ctx context.Context, cmd *cobra.Command, opener func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error)) error {
	if opener == nil {
		opener = openBackend
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return oops.With("operation", "load configuration").Wrap(err)
	}
	logger, err := setupLogging("specz-sweep", cfg.Log)
	if err != nil {
		return err
	}

	backend, err := opener(ctx, cfg, logger)
	if err != nil {
		return oops.With("operation", "open database").Wrap(err)
	}
	defer backend.Close()

	// Any positive interval will do; Run is never called.
	sweeper, err := auth.NewSweeper(backend.Sessions, backend.Links, time.Hour, logger, nil)
	if err != nil {
		return err
	}

	res, err := sweeper.SweepOnce(ctx, time.Now())
	if err != nil {
		return err
	}
	cmd.Printf("Removed %d expired sessions and %d expired magic links\n", res.Sessions, res.MagicLinks)
	return nil
}
