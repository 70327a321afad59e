// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package policy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("stonehook/policy")

// Check runs the handler chain of the named policy for event and returns
// the decision. The first handler answering Allow or Deny decides; if every
// handler passes, def is returned.
//
// The event shape is validated once before any handler runs. A built-in
// policy requires its own event struct; a custom policy requires a
// CustomEvent whose data satisfies the policy's schema, if any.
func (r *Registry) Check(ctx context.Context, name string, event Event, def bool) (allowed bool, err error) {
	start := time.Now()

	p, handlers, ok := r.lookup(name)
	if !ok {
		recordCheck("unknown", OutcomeUnknown, 0)
		return def, ErrUnknownPolicy(name)
	}

	ctx, span := tracer.Start(ctx, "policy.check",
		trace.WithAttributes(
			attribute.String("policy.name", name),
			attribute.Int("policy.handlers", len(handlers)),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := p.validate(event); err != nil {
		recordCheck(name, OutcomeShapeMismatch, time.Since(start))
		return def, err
	}

	for i, h := range handlers {
		isLast := i == len(handlers)-1
		v := invoke(ctx, name, h, event, isLast)
		if !v.Decided() {
			continue
		}
		span.SetAttributes(
			attribute.String("policy.verdict", v.String()),
			attribute.Int("policy.decided_by", i),
		)
		outcome := OutcomeDeny
		if v == Allow {
			outcome = OutcomeAllow
		}
		recordCheck(name, outcome, time.Since(start))
		return v == Allow, nil
	}

	span.SetAttributes(attribute.Bool("policy.default", def))
	recordCheck(name, OutcomeDefault, time.Since(start))
	return def, nil
}

func (d *definition) validate(event Event) error {
	if event == nil {
		return ErrShapeMismatch(d.name, fmt.Errorf("payload is missing"))
	}
	if d.builtin {
		if event.Policy() != d.name {
			return ErrShapeMismatch(d.name, fmt.Errorf("got %T", event))
		}
		if err := event.validate(); err != nil {
			return ErrShapeMismatch(d.name, err)
		}
		return nil
	}
	custom, ok := event.(CustomEvent)
	if !ok {
		return ErrShapeMismatch(d.name, fmt.Errorf("got %T, want custom payload", event))
	}
	if err := custom.validate(); err != nil {
		return ErrShapeMismatch(d.name, err)
	}
	if d.schema != nil {
		if err := validateTag(d.schema, custom.Data); err != nil {
			return ErrShapeMismatch(d.name, err)
		}
	}
	return nil
}

// invoke runs one handler. A panicking handler counts as Pass.
func invoke(ctx context.Context, name string, h handlerEntry, event Event, isLast bool) (v Verdict) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.ErrorContext(ctx, "policy handler panicked",
				"policy", name,
				"source", h.source,
				"panic", fmt.Sprint(rec),
			)
			HandlerPanics.WithLabelValues(name, h.source).Inc()
			v = Pass
		}
	}()
	v = h.fn(ctx, event, isLast)
	if v != Pass && !v.Decided() {
		slog.WarnContext(ctx, "policy handler returned invalid verdict",
			"policy", name,
			"source", h.source,
			"verdict", v.String(),
		)
		return Pass
	}
	return v
}
