// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"log/slog"
	"sort"
	"sync"
)

// Registry manages command registration and lookup.
// It is thread-safe for concurrent access.
type Registry struct {
	commands map[string]Entry
	sealed   bool
	mu       sync.RWMutex
}

// NewRegistry creates a new command registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]Entry),
	}
}

// Register adds a command to the registry. A name may only be registered
// once; the definition is validated before it is stored.
func (r *Registry) Register(name string, def Definition) error {
	if err := ValidateCommandName(name); err != nil {
		return err
	}
	if err := ValidateDefinition(name, def); err != nil {
		return err
	}
	if def.Source == "" {
		def.Source = "core"
	}
	def.Overloads = cloneOverloads(def.Overloads)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return ErrRegistrySealed(name)
	}
	if existing, ok := r.commands[name]; ok {
		return ErrRegistrationConflict(name, existing.Definition.Source)
	}

	r.commands[name] = Entry{Name: name, Definition: def}
	slog.Debug("command registered",
		"command", name,
		"source", def.Source,
		"overloads", len(def.Overloads),
	)
	return nil
}

// Seal ends the registration phase.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Get retrieves a command by name.
// Returns the command entry and true if found, or zero value and false if not found.
func (r *Registry) Get(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.commands[name]
	return entry, ok
}

// All returns all registered commands sorted by name.
// The returned slice is a copy and safe to modify.
func (r *Registry) All() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(r.commands))
	for _, e := range r.commands {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

func cloneOverloads(in []Overload) []Overload {
	out := make([]Overload, len(in))
	for i, ov := range in {
		out[i] = Overload{
			Parameters: append([]Parameter(nil), ov.Parameters...),
			Handler:    ov.Handler,
		}
	}
	return out
}
