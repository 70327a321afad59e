// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Command gen-schema writes the script.yaml JSON Schema. With --check it
// instead fails when the file on disk is stale.
package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/holomush/stonehook/internal/script"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "gen-schema: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	flags := pflag.NewFlagSet("gen-schema", pflag.ContinueOnError)
	outPath := flags.String("out", filepath.Join("schemas", "script.schema.json"), "schema file to write")
	check := flags.Bool("check", false, "verify the schema file is up to date instead of writing it")
	if err := flags.Parse(args); err != nil {
		return err
	}

	schema, err := script.GenerateSchema()
	if err != nil {
		return fmt.Errorf("generating schema: %w", err)
	}

	if *check {
		current, err := os.ReadFile(*outPath)
		if err != nil {
			return fmt.Errorf("reading %s: %w", *outPath, err)
		}
		if !bytes.Equal(current, schema) {
			return fmt.Errorf("%s is stale; run gen-schema", *outPath)
		}
		fmt.Fprintf(out, "%s is up to date\n", *outPath)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(*outPath), 0o750); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(*outPath, schema, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", *outPath, err)
	}
	fmt.Fprintf(out, "Generated %s\n", *outPath)
	return nil
}
