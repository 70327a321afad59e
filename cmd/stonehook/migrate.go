// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/holomush/stonehook/internal/config"
	"github.com/holomush/stonehook/internal/store"
)

// NewMigrateCmd creates the migrate subcommand group for the world database.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Inspect and change the world database schema",
		Long: `The world database schema is applied automatically by serve. These
subcommands report its version and recover from failed upgrades.`,
	}
	config.RegisterFlags(cmd.PersistentFlags())
	cmd.AddCommand(newMigrateStatusCmd())
	cmd.AddCommand(newMigrateUpCmd())
	cmd.AddCommand(newMigrateDownCmd())
	cmd.AddCommand(newMigrateForceCmd())
	return cmd
}

// withMigrator opens the world database without migrating it and runs fn.
func withMigrator(cmd *cobra.Command, fn func(*store.Migrator) error) error {
	ctx := commandContext(cmd)
	db, err := openWorldDB(ctx, cmd, store.Options{ManualMigrations: true})
	if err != nil {
		return err
	}
	if err := fn(db.Migrator()); err != nil {
		_ = db.Close()
		return err
	}
	if err := db.Close(); err != nil {
		return fmt.Errorf("failed to close world database: %w", err)
	}
	return nil
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *store.Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return fmt.Errorf("failed to read version: %w", err)
				}
				state := "clean"
				if dirty {
					state = "dirty"
				}
				cmd.Printf("version %d (%s)\n", version, state)

				applied, err := m.AppliedMigrations()
				if err != nil {
					return fmt.Errorf("failed to list applied migrations: %w", err)
				}
				pending, err := m.PendingMigrations()
				if err != nil {
					return fmt.Errorf("failed to list pending migrations: %w", err)
				}
				for _, v := range applied {
					printMigration(cmd, "applied", v)
				}
				for _, v := range pending {
					printMigration(cmd, "pending", v)
				}
				return nil
			})
		},
	}
}

func printMigration(cmd *cobra.Command, state string, version uint) {
	name, err := store.MigrationName(version)
	if err != nil || name == "" {
		name = strconv.FormatUint(uint64(version), 10)
	}
	cmd.Printf("%-8s %s\n", state, name)
}

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *store.Migrator) error {
				if err := m.Up(); err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				version, _, err := m.Version()
				if err != nil {
					return fmt.Errorf("failed to read version: %w", err)
				}
				cmd.Printf("world database at version %d\n", version)
				return nil
			})
		},
	}
}

func newMigrateDownCmd() *cobra.Command {
	var (
		steps int
		all   bool
		yes   bool
	)
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll migrations back",
		Long: `Roll back the most recent migrations. Rolling back drops the tables
they created, so saved structures and component data can be lost.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if all && !yes {
				return fmt.Errorf("rolling back every migration deletes all stored data: pass --yes to confirm")
			}
			if !all && steps < 1 {
				return fmt.Errorf("--steps must be at least 1")
			}
			return withMigrator(cmd, func(m *store.Migrator) error {
				var err error
				if all {
					err = m.Down()
				} else {
					err = m.Steps(-steps)
				}
				if err != nil {
					return fmt.Errorf("rollback failed: %w", err)
				}
				version, _, err := m.Version()
				if err != nil {
					return fmt.Errorf("failed to read version: %w", err)
				}
				cmd.Printf("world database at version %d\n", version)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.Flags().BoolVar(&all, "all", false, "roll back every migration")
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm --all")
	return cmd
}

func newMigrateForceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "force <version>",
		Short: "Mark a version as applied without running it",
		Long: `Record <version> as the current schema version and clear the dirty
flag. Use it after repairing a database whose migration failed halfway.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			return withMigrator(cmd, func(m *store.Migrator) error {
				if err := m.Force(version); err != nil {
					return fmt.Errorf("force failed: %w", err)
				}
				cmd.Printf("world database forced to version %d\n", version)
				return nil
			})
		},
	}
}
