// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package logging

import "context"

type (
	tickKey   struct{}
	scriptKey struct{}
)

// WithTick returns a context carrying the engine tick n.
func WithTick(ctx context.Context, n uint64) context.Context {
	return context.WithValue(ctx, tickKey{}, n)
}

// TickFrom returns the tick carried by ctx.
func TickFrom(ctx context.Context) (uint64, bool) {
	if ctx == nil {
		return 0, false
	}
	n, ok := ctx.Value(tickKey{}).(uint64)
	return n, ok
}

// WithScript returns a context attributing records to the named script.
func WithScript(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, scriptKey{}, name)
}

// ScriptFrom returns the script name carried by ctx.
func ScriptFrom(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	name, ok := ctx.Value(scriptKey{}).(string)
	return name, ok && name != ""
}
