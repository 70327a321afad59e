// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/holomush/stonehook/internal/script"
)

// NewSchemaCmd creates the schema subcommand.
func NewSchemaCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema for script.yaml manifests",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := script.GenerateSchema()
			if err != nil {
				return fmt.Errorf("failed to generate schema: %w", err)
			}
			if outPath == "" {
				_, err := cmd.OutOrStdout().Write(append(data, '\n'))
				return err //nolint:wrapcheck // stdout write
			}
			if err := os.MkdirAll(filepath.Dir(outPath), 0o750); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
			if err := os.WriteFile(outPath, data, 0o600); err != nil {
				return fmt.Errorf("failed to write schema: %w", err)
			}
			cmd.Printf("Generated %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the schema to a file instead of stdout")
	return cmd
}
