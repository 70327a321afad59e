// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/holomush/stonehook/internal/command"
	"github.com/holomush/stonehook/internal/config"
	"github.com/holomush/stonehook/internal/engine"
	"github.com/holomush/stonehook/internal/observability"
	"github.com/holomush/stonehook/internal/policy"
)

// consoleOrigin is the origin of commands typed on the server console.
var consoleOrigin = command.Origin{Name: "console", Permission: command.PermissionOwner}

// ObservabilityServer is the metrics/health server used by serve.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
	Registry() *prometheus.Registry
}

// ServeDeps holds injectable dependencies of the serve command.
type ServeDeps struct {
	ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker, opts ...observability.Option) ObservabilityServer
	// Signals delivers shutdown signals. Defaults to SIGINT and SIGTERM.
	Signals <-chan os.Signal
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var console bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load scripts and run the engine",
		Long: `Load every script from the scripts directory, seal the registries, and
run the engine. Lines typed on standard input are dispatched as console
commands; closing standard input shuts the server down.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if err := setupLogging(cfg); err != nil {
				return fmt.Errorf("failed to set up logging: %w", err)
			}
			in := cmd.InOrStdin()
			if !console {
				in = nil
			}
			return runServeWithDeps(cmd.Context(), cfg, in, cmd.OutOrStdout(), nil)
		},
	}

	config.RegisterFlags(cmd.Flags())
	cmd.Flags().BoolVar(&console, "console", true, "read console commands from standard input")

	return cmd
}

func engineConfig(cfg *config.Config) engine.Config {
	ec := engine.Config{
		DataDir:     cfg.DataDir,
		ScriptsDir:  cfg.ScriptsDir,
		DBPath:      cfg.DBPath,
		TickRate:    cfg.TickRate,
		LoadTimeout: cfg.LoadTimeout,
		Dimensions:  cfg.Dimensions,
	}
	if cfg.RateLimit.Enabled {
		ec.RateLimit = &command.RateLimiterConfig{
			BurstCapacity: cfg.RateLimit.Burst,
			SustainedRate: cfg.RateLimit.Rate,
		}
	}
	return ec
}

// runServeWithDeps runs the server until the console closes, a signal
// arrives, or the observability server fails. A nil in disables the
// console. If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker, opts ...observability.Option) ObservabilityServer {
			return observability.NewServer(addr, ready, opts...)
		}
	}
	if deps.Signals == nil {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		deps.Signals = sigChan
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := cfg.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	slog.InfoContext(ctx, "starting stonehook",
		"data_dir", cfg.DataDir,
		"scripts_dir", cfg.ScriptsDir,
		"db_path", cfg.DBPath,
	)

	ec := engineConfig(cfg)
	var (
		eng       *engine.Engine
		obsServer ObservabilityServer
	)
	if cfg.MetricsAddr != "" {
		ready := func() bool { return eng != nil && eng.Running() }
		status := func() any { return eng.Status() }
		obsServer = deps.ObservabilityServerFactory(cfg.MetricsAddr, ready,
			observability.WithRegistrars(policy.RegisterMetrics, command.RegisterMetrics, engine.RegisterMetrics),
			observability.WithStatus(status))
		ec.Registerer = obsServer.Registry()
	}
	eng = engine.New(ec)

	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := eng.Close(shutdownCtx); err != nil {
			slog.Warn("error stopping engine", "error", err)
		}
	}()

	if err := eng.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}

	if obsServer != nil {
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return fmt.Errorf("failed to start observability server: %w", err)
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := obsServer.Stop(shutdownCtx); err != nil {
				slog.Warn("error stopping observability server", "error", err)
			}
		}()
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		obsServer.Metrics().ScriptsLoaded.Set(float64(len(eng.Scripts())))
		slog.InfoContext(ctx, "observability server started", "addr", obsServer.Addr())
	}

	fmt.Fprintf(out, "stonehook started with %d script(s)\n", len(eng.Scripts()))
	slog.InfoContext(ctx, "stonehook ready", "scripts", len(eng.Scripts()))

	consoleDone := make(chan struct{})
	if in != nil {
		var metrics *observability.Metrics
		if obsServer != nil {
			metrics = obsServer.Metrics()
		}
		go func() {
			defer close(consoleDone)
			runConsole(ctx, eng, in, out, metrics)
		}()
	}

	select {
	case sig := <-deps.Signals:
		slog.InfoContext(ctx, "received shutdown signal", "signal", sig)
	case <-consoleDone:
		slog.InfoContext(ctx, "console closed, shutting down")
	case <-ctx.Done():
		slog.InfoContext(ctx, "context cancelled, shutting down")
	}

	slog.InfoContext(ctx, "shutting down...")
	return nil
}

// runConsole dispatches each input line as a console command until in is
// exhausted or ctx is done.
func runConsole(ctx context.Context, eng *engine.Engine, in io.Reader, out io.Writer, metrics *observability.Metrics) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		status := "ok"
		if err := eng.DispatchLine(ctx, consoleOrigin, line, out); err != nil {
			status = "error"
			fmt.Fprintln(out, command.PlayerMessage(err))
			slog.DebugContext(ctx, "console command failed", "line", line, "error", err)
		}
		if metrics != nil {
			metrics.ConsoleLines.WithLabelValues(status).Inc()
		}
	}
	if err := scanner.Err(); err != nil {
		slog.WarnContext(ctx, "console read failed", "error", err)
	}
}

// monitorServerErrors watches a server's error channel and cancels the
// context on error.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
