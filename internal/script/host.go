// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package script discovers, orders, and loads Lua scripts that extend the
// server with policies, commands, and components.
package script

import "context"

// Host runs loaded scripts.
type Host interface {
	// Load runs the script's entry file. Registrations the script makes
	// while loading take effect immediately.
	Load(ctx context.Context, manifest *Manifest, dir string) error

	// Unload releases a script's state and resources.
	Unload(ctx context.Context, name string) error

	// Scripts returns the names of loaded scripts.
	Scripts() []string

	// Close unloads every script.
	Close(ctx context.Context) error
}
