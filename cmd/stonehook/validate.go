// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/holomush/stonehook/internal/engine"
)

// NewValidateCmd creates the validate subcommand.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scripts-dir>",
		Short: "Load every script into a throwaway engine and report problems",
		Long: `Discover, order, and load the scripts in a directory the same way serve
does, using an in-memory world. Registration conflicts, capability
violations, and dependency errors are reported and the command fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), args[0], cmd.OutOrStdout())
		},
	}
}

func runValidate(ctx context.Context, scriptsDir string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := os.Stat(scriptsDir); err != nil {
		return fmt.Errorf("scripts directory: %w", err)
	}
	dataDir, err := os.MkdirTemp("", "stonehook-validate-*")
	if err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(dataDir) //nolint:errcheck // best-effort cleanup

	eng := engine.New(engine.Config{DataDir: dataDir, ScriptsDir: scriptsDir})
	defer eng.Close(ctx) //nolint:errcheck // throwaway engine

	if err := eng.Init(ctx); err != nil {
		fmt.Fprintf(out, "FAIL %v\n", err)
		return fmt.Errorf("scripts failed to load: %w", err)
	}

	for _, s := range eng.Scripts() {
		fmt.Fprintf(out, "ok   %s %s\n", s.Manifest.Name, s.Manifest.Version)
	}
	fmt.Fprintf(out, "%d script(s), %d command(s), %d policy(ies)\n",
		len(eng.Scripts()), len(eng.Commands().All()), len(eng.Policies().All()))
	return nil
}
