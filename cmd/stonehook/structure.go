// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/holomush/stonehook/internal/config"
	"github.com/holomush/stonehook/internal/store"
	"github.com/holomush/stonehook/internal/structure"
)

// NewStructureCmd creates the structure subcommand group.
func NewStructureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "structure",
		Short: "Move saved structures between the world database and files",
	}
	config.RegisterFlags(cmd.PersistentFlags())
	cmd.AddCommand(newStructureExportCmd())
	cmd.AddCommand(newStructureImportCmd())
	return cmd
}

// openWorldDB opens the world database named by the configuration. The
// location fields of opts are filled from the configuration.
func openWorldDB(ctx context.Context, cmd *cobra.Command, opts store.Options) (*store.DB, error) {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db_path is empty: there is no world database")
	}
	opts.DataDir, opts.Path = cfg.DataDir, cfg.DBPath
	db, err := store.Open(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open world database: %w", err)
	}
	return db, nil
}

func newStructureExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <name> <file>",
		Short: "Write a saved structure to a structure file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			db, err := openWorldDB(ctx, cmd, store.Options{Migrate: true})
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck // read-only use

			s, ok, err := structure.Load(ctx, db, args[0])
			if err != nil {
				return fmt.Errorf("failed to load structure: %w", err)
			}
			if !ok {
				return fmt.Errorf("no structure named %q", args[0])
			}
			if err := structure.WriteFile(args[1], s); err != nil {
				return fmt.Errorf("failed to write %s: %w", args[1], err)
			}
			cmd.Printf("Exported %s to %s\n", args[0], args[1])
			return nil
		},
	}
}

func newStructureImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file> <name>",
		Short: "Store a structure file in the world database",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			s, err := structure.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			db, err := openWorldDB(ctx, cmd, store.Options{Migrate: true})
			if err != nil {
				return err
			}
			if err := structure.Save(ctx, db, args[1], s); err != nil {
				_ = db.Close()
				return fmt.Errorf("failed to save structure: %w", err)
			}
			if err := db.Close(); err != nil {
				return fmt.Errorf("failed to close world database: %w", err)
			}
			cmd.Printf("Imported %s as %s\n", args[0], args[1])
			return nil
		},
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
