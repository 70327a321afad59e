// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package logging builds the process slog handler. Records gain the
// OpenTelemetry trace and span IDs plus the engine tick and script name
// carried by their context.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel/trace"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// ParseLevel parses "debug", "info", "warn", or "error". Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return slog.LevelInfo, oops.In("logging").With("level", s).Errorf("invalid log level %q", s)
	}
	return level, nil
}

// contextHandler copies request-scoped values from the context onto
// each record before delegating.
type contextHandler struct {
	next slog.Handler
}

func (h contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	if n, ok := TickFrom(ctx); ok {
		r.AddAttrs(slog.Uint64("tick", n))
	}
	if name, ok := ScriptFrom(ctx); ok {
		r.AddAttrs(slog.String("script", name))
	}
	//nolint:wrapcheck // slog.Handler passthrough
	return h.next.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{next: h.next.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{next: h.next.WithGroup(name)}
}

// Setup returns a logger writing format ("json" unless "text") to w, or
// to stderr when w is nil. Every record carries service and version.
func Setup(service, version, format string, level slog.Leveler, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if level == nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var base slog.Handler
	if format == FormatText {
		base = slog.NewTextHandler(w, opts)
	} else {
		base = slog.NewJSONHandler(w, opts)
	}
	base = base.WithAttrs([]slog.Attr{
		slog.String("service", service),
		slog.String("version", version),
	})
	return slog.New(contextHandler{next: base})
}

// SetDefault installs Setup's logger, writing to stderr, as slog's default.
func SetDefault(service, version, format string, level slog.Leveler) {
	slog.SetDefault(Setup(service, version, format, level, nil))
}
