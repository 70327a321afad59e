// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/holomush/stonehook/internal/config"
	"github.com/holomush/stonehook/internal/logging"
	"github.com/holomush/stonehook/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the stonehook CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stonehook",
		Short: "stonehook - scripting core for block-world servers",
		Long: `stonehook runs sandboxed Lua scripts against a block-world host.
Scripts register policies, commands, and components while the server
initializes; the engine then dispatches player actions and commands
through them.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/stonehook/stonehook.yaml)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewValidateCmd())
	cmd.AddCommand(NewSchemaCmd())
	cmd.AddCommand(NewTagCmd())
	cmd.AddCommand(NewStructureCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

// loadConfig reads the config file and flags, fills directory defaults,
// and validates the result. An explicit --config must exist.
func loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	path, required := configFile, true
	if path == "" {
		required = false
		if p, err := xdg.ConfigFile(); err == nil {
			path = p
		}
	}
	cfg, err := config.Load(path, required, flags)
	if err != nil {
		return nil, err
	}
	if cfg.DataDir == "" {
		dataDir, err := xdg.DataDir()
		if err != nil {
			return nil, err
		}
		cfg.ApplyDefaults(dataDir)
	} else {
		cfg.ApplyDefaults(cfg.DataDir)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging configures the default slog logger from cfg.
func setupLogging(cfg *config.Config) error {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logging.SetDefault("stonehook", version, cfg.Log.Format, level)
	return nil
}
