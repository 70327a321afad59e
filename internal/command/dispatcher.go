// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"context"
	"io"
	"log/slog"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("stonehook/command")

// ErrNilRegistry is returned by NewDispatcher when no registry is given.
var ErrNilRegistry = oops.In("command").Errorf("command registry is nil")

// Dispatcher resolves and executes commands.
type Dispatcher struct {
	registry    *Registry
	resolver    SelectorResolver // optional, can be nil
	rateLimiter *RateLimiter     // optional, can be nil
}

// DispatcherOption configures a Dispatcher during construction.
type DispatcherOption func(*Dispatcher)

// WithSelectorResolver configures how entity and player parameters are
// resolved. Without one, those parameters never parse.
func WithSelectorResolver(r SelectorResolver) DispatcherOption {
	return func(d *Dispatcher) {
		d.resolver = r
	}
}

// WithRateLimiter configures the dispatcher to use rate limiting.
// If not provided, rate limiting is disabled.
func WithRateLimiter(rl *RateLimiter) DispatcherOption {
	return func(d *Dispatcher) {
		d.rateLimiter = rl
	}
}

// NewDispatcher creates a new command dispatcher over registry.
func NewDispatcher(registry *Registry, opts ...DispatcherOption) (*Dispatcher, error) {
	if registry == nil {
		return nil, ErrNilRegistry
	}
	d := &Dispatcher{registry: registry}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// DispatchLine tokenizes a raw command line and dispatches it.
func (d *Dispatcher) DispatchLine(ctx context.Context, origin Origin, line string, out io.Writer) error {
	parsed, err := Parse(line)
	if err != nil {
		return err
	}
	return d.Dispatch(ctx, origin, parsed.Name, parsed.Tokens, out)
}

// Dispatch runs the named command for origin.
//
// The steps are, in order: lookup (unknown names are a usage error), the
// permission gate, rate limiting, overload resolution in declaration order,
// the handler, and rendering its result to out.
func (d *Dispatcher) Dispatch(ctx context.Context, origin Origin, name string, tokens []string, out io.Writer) (err error) {
	rec := newDispatchRecord()
	defer rec.observe()

	ctx, span := tracer.Start(ctx, "command.execute",
		trace.WithAttributes(
			attribute.String("command.name", name),
			attribute.String("command.origin", origin.Name),
			attribute.Int("command.tokens", len(tokens)),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	entry, ok := d.registry.Get(name)
	if !ok {
		rec.status = StatusNotFound
		return ErrUnknownCommand(name)
	}
	def := entry.Definition
	rec.name, rec.source = name, def.Source
	span.SetAttributes(attribute.String("command.source", def.Source))

	if origin.Permission < def.Permission {
		rec.status = StatusPermissionDenied
		return ErrPermissionDenied(name, origin.Permission, def.Permission)
	}

	if d.rateLimiter != nil && origin.Permission < PermissionOwner {
		allowed, cooldownMs := d.rateLimiter.Allow(origin.Key())
		if !allowed {
			span.SetAttributes(attribute.Bool("command.rate_limited", true))
			span.SetAttributes(attribute.Int64("command.cooldown_ms", cooldownMs))
			rec.status = StatusRateLimited
			return ErrRateLimited(cooldownMs)
		}
	}

	ap := &argParser{ctx: ctx, origin: origin, resolver: d.resolver}
	index, args, matchErr := ap.resolve(def, tokens)
	if index < 0 {
		rec.status = StatusUsage
		slog.DebugContext(ctx, "no overload matched",
			"command", name,
			"tokens", len(tokens),
			"last_error", matchErr,
		)
		return ErrNoMatchingOverload(name, Usage(name, def))
	}
	span.SetAttributes(attribute.Int("command.overload", index))
	rec.matched(index)

	result, err := def.Overloads[index].Handler(ctx, origin, args)
	if err != nil {
		rec.status = StatusError
		slog.WarnContext(ctx, "command execution failed",
			"command", name,
			"origin", origin.Name,
			"error", err,
		)
		if _, ok := oops.AsOops(err); !ok {
			err = oops.In("command").Code(CodeHandlerFailed).With("command", name).Wrap(err)
		}
		return err
	}

	if renderErr := Render(out, result); renderErr != nil {
		OutputFailures.WithLabelValues(name).Inc()
		slog.WarnContext(ctx, "command output failed",
			"command", name,
			"error", renderErr,
		)
	}
	return nil
}
