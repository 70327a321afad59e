// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads server configuration from a YAML file and command
// line flags. Flags the user set explicitly override the file; the file
// overrides flag defaults.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Default values.
const (
	DefaultLogFormat   = "json"
	DefaultLogLevel    = "info"
	DefaultDBPath      = "world.db"
	DefaultMetricsAddr = "127.0.0.1:9100"
	DefaultTickRate    = 50 * time.Millisecond
	DefaultLoadTimeout = 5 * time.Second
	DefaultBurst       = 10
	DefaultRate        = 2.0
)

// Log configures logging.
type Log struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// RateLimit configures per-origin command rate limiting.
type RateLimit struct {
	Enabled bool    `koanf:"enabled"`
	Burst   int     `koanf:"burst"`
	Rate    float64 `koanf:"rate"`
}

// Config is the server configuration.
type Config struct {
	Log         Log           `koanf:"log"`
	DataDir     string        `koanf:"data_dir"`
	ScriptsDir  string        `koanf:"scripts_dir"`
	DBPath      string        `koanf:"db_path"`
	MetricsAddr string        `koanf:"metrics_addr"`
	TickRate    time.Duration `koanf:"tick_rate"`
	LoadTimeout time.Duration `koanf:"load_timeout"`
	RateLimit   RateLimit     `koanf:"rate_limit"`
	Dimensions  []string      `koanf:"dimensions"`
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"log-format":       "log.format",
	"log-level":        "log.level",
	"data-dir":         "data_dir",
	"scripts-dir":      "scripts_dir",
	"db-path":          "db_path",
	"metrics-addr":     "metrics_addr",
	"tick-rate":        "tick_rate",
	"load-timeout":     "load_timeout",
	"rate-limit":       "rate_limit.enabled",
	"rate-limit-burst": "rate_limit.burst",
	"rate-limit-rate":  "rate_limit.rate",
	"dimension":        "dimensions",
}

// RegisterFlags adds the configuration flags to flags.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("log-format", DefaultLogFormat, "log format (json or text)")
	flags.String("log-level", DefaultLogLevel, "log level (debug, info, warn, error)")
	flags.String("data-dir", "", "data directory (default: XDG_DATA_HOME/stonehook)")
	flags.String("scripts-dir", "", "scripts directory (default: <data-dir>/scripts)")
	flags.String("db-path", DefaultDBPath, "world database relative to the data directory (empty = in-memory)")
	flags.String("metrics-addr", DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	flags.Duration("tick-rate", DefaultTickRate, "engine tick interval")
	flags.Duration("load-timeout", DefaultLoadTimeout, "maximum run time of a script's top-level chunk")
	flags.Bool("rate-limit", false, "enable per-origin command rate limiting")
	flags.Int("rate-limit-burst", DefaultBurst, "commands allowed in a burst")
	flags.Float64("rate-limit-rate", DefaultRate, "sustained commands per second")
	flags.StringSlice("dimension", nil, "additional dimension (repeatable)")
}

// Load reads the YAML file at path, when it exists, then applies flags. A
// missing file is not an error unless required is set.
func Load(path string, required bool, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		_, err := os.Stat(path)
		switch {
		case err == nil:
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, oops.In("config").With("path", path).Wrapf(err, "load config file")
			}
		case errors.Is(err, fs.ErrNotExist) && !required:
		default:
			return nil, oops.In("config").With("path", path).Wrapf(err, "load config file")
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.In("config").Wrapf(err, "load flags")
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.In("config").Wrapf(err, "decode config")
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.In("config").With("log.format", c.Log.Format).Errorf("log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return oops.In("config").With("log.level", c.Log.Level).Errorf("log.level must be debug, info, warn, or error, got %q", c.Log.Level)
	}
	if c.DataDir == "" {
		return oops.In("config").Errorf("data_dir is required")
	}
	if c.DBPath != "" && (filepath.IsAbs(c.DBPath) || !filepath.IsLocal(c.DBPath)) {
		return oops.In("config").With("db_path", c.DBPath).Errorf("db_path must be relative to data_dir, got %q", c.DBPath)
	}
	if c.TickRate <= 0 {
		return oops.In("config").With("tick_rate", c.TickRate).Errorf("tick_rate must be positive")
	}
	if c.LoadTimeout <= 0 {
		return oops.In("config").With("load_timeout", c.LoadTimeout).Errorf("load_timeout must be positive")
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Burst < 1 {
			return oops.In("config").With("rate_limit.burst", c.RateLimit.Burst).Errorf("rate_limit.burst must be at least 1")
		}
		if c.RateLimit.Rate <= 0 {
			return oops.In("config").With("rate_limit.rate", c.RateLimit.Rate).Errorf("rate_limit.rate must be positive")
		}
	}
	for _, d := range c.Dimensions {
		if d == "" {
			return oops.In("config").Errorf("dimension names must not be empty")
		}
	}
	return nil
}

// ApplyDefaults fills the directories left empty from dataDir.
func (c *Config) ApplyDefaults(dataDir string) {
	if c.DataDir == "" {
		c.DataDir = dataDir
	}
	if c.ScriptsDir == "" && c.DataDir != "" {
		c.ScriptsDir = filepath.Join(c.DataDir, "scripts")
	}
}

// EnsureDirs creates the data and scripts directories.
func (c *Config) EnsureDirs() error {
	for _, d := range []string{c.DataDir, c.ScriptsDir} {
		if d == "" {
			continue
		}
		if err := os.MkdirAll(d, 0o750); err != nil {
			return oops.In("config").With("path", d).Wrapf(err, "create directory")
		}
	}
	return nil
}
