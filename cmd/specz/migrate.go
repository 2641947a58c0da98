// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/specz/specz/internal/config"
	"github.com/specz/specz/internal/store"
)

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Rollback(n int) error
	Force(version int) error
	Status() (store.Status, error)
	Close() error
}

// newMigrator is replaced in tests.
var newMigrator = func(databaseURL string) (Migrator, error) {
	return store.NewMigrator(databaseURL)
}

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
		Long: `Apply, roll back or inspect PostgreSQL migrations. SQLite databases
create their schema when opened and need no migrations.`,
	}

	config.Flags(cmd.PersistentFlags())

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m Migrator) error {
				cmd.Println("Running migrations...")
				if err := m.Up(); err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
				}
				cmd.Println("Migrations completed successfully")
				return nil
			})
		},
	})

	var (
		yes   bool
		steps int
	)
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations (drops data)",
		Long: `Roll back the most recent --steps migrations, or every migration when
--steps is not given. Both forms drop tables and require --yes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return oops.Code("CONFIRMATION_REQUIRED").Errorf("refusing to drop tables without --yes")
			}
			if cmd.Flags().Changed("steps") {
				if steps <= 0 {
					return oops.Code("INVALID_STEPS").With("steps", steps).Errorf("--steps must be positive")
				}
				return withMigrator(cmd, func(m Migrator) error {
					if err := m.Rollback(steps); err != nil {
						return oops.Code("MIGRATION_FAILED").With("operation", "roll back migrations").Wrap(err)
					}
					cmd.Printf("Rolled back %d migration(s)\n", steps)
					return nil
				})
			}
			return withMigrator(cmd, func(m Migrator) error {
				if err := m.Down(); err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "roll back migrations").Wrap(err)
				}
				cmd.Println("All migrations rolled back")
				return nil
			})
		},
	}
	down.Flags().BoolVar(&yes, "yes", false, "confirm dropping tables")
	down.Flags().IntVar(&steps, "steps", 0, "number of migrations to roll back (default all)")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m Migrator) error {
				status, err := m.Status()
				if err != nil {
					return err
				}
				cmd.Println(formatStatus(status))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Set the schema version without running migrations",
		Long: `Mark the schema as being at VERSION and clear the dirty flag. Use only
after repairing a failed migration by hand.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			return withMigrator(cmd, func(m Migrator) error {
				if err := m.Force(version); err != nil {
					return err
				}
				cmd.Printf("Forced schema version to %d\n", version)
				return nil
			})
		},
	})

	return cmd
}

func withMigrator(cmd *cobra.Command, fn func(Migrator) error) error {
	url, err := getDatabaseURL(cmd)
	if err != nil {
		return err
	}

	m, err := newMigrator(url)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			cmd.PrintErrln("warning: failed to close migrator:", closeErr)
		}
	}()

	return fn(m)
}

// getDatabaseURL resolves the PostgreSQL URL from configuration.
func getDatabaseURL(cmd *cobra.Command) (string, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return "", err
	}
	if cfg.Database.Driver != config.DriverPostgres {
		return "", oops.Code("CONFIG_INVALID").
			With("driver", cfg.Database.Driver).
			Errorf("migrations apply to postgres only; sqlite creates its schema on open")
	}
	return cfg.Database.URL, nil
}

// parseForceVersion reads a leading integer from s.
func parseForceVersion(s string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &version); err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Wrap(err)
	}
	return version, nil
}

func formatStatus(s store.Status) string {
	var b strings.Builder
	if current, ok := s.Current(); ok {
		fmt.Fprintf(&b, "Schema version: %d (%s)", current.Version, current.Name)
	} else if s.Version > 0 {
		fmt.Fprintf(&b, "Schema version: %d (unknown)", s.Version)
	} else {
		b.WriteString("Schema version: none")
	}
	if s.Dirty {
		b.WriteString(" [dirty]")
	}
	b.WriteString("\nApplied: " + listMigrations(s.Applied))
	b.WriteString("\nPending: " + listMigrations(s.Pending))
	return b.String()
}

func listMigrations(ms []store.Migration) string {
	if len(ms) == 0 {
		return "none"
	}
	parts := make([]string, len(ms))
	for i, m := range ms {
		parts[i] = fmt.Sprintf("%d_%s", m.Version, m.Name)
	}
	return strings.Join(parts, ", ")
}
