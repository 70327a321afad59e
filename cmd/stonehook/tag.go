// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/holomush/stonehook/internal/tag"
)

// NewTagCmd creates the tag subcommand group.
func NewTagCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Inspect and convert compressed tag files",
	}
	cmd.AddCommand(newTagDumpCmd())
	cmd.AddCommand(newTagFromJSONCmd())
	return cmd
}

func newTagDumpCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "Print a tag file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := tag.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			if !asJSON {
				cmd.Println(t.String())
				return nil
			}
			data, err := json.MarshalIndent(tag.ToJSON(t), "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode JSON: %w", err)
			}
			cmd.Println(string(data))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON (variant widths are lost)")
	return cmd
}

func newTagFromJSONCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "from-json <in.json> <out>",
		Short: "Write a JSON document as a compressed tag file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			var v any
			if err := json.Unmarshal(data, &v); err != nil {
				return fmt.Errorf("invalid JSON: %w", err)
			}
			t, err := tag.FromJSON(v)
			if err != nil {
				return fmt.Errorf("failed to convert: %w", err)
			}
			if err := tag.WriteFile(args[1], t); err != nil {
				return fmt.Errorf("failed to write %s: %w", args[1], err)
			}
			cmd.Printf("Wrote %s (%s)\n", args[1], t.Type())
			return nil
		},
	}
}
