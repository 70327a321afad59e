// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package policy implements named interception points ("policies") with
// ordered handler chains.
//
// A policy check runs the chain in registration order. Each handler answers
// Allow, Deny, or Pass; the first Allow or Deny ends the check, and a chain
// that only passes yields the caller's default. Registration is only valid
// before the registry is sealed.
package policy

import (
	"context"
	"regexp"
	"sort"
	"sync"

	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
)

var namePattern = regexp.MustCompile(`^[a-z0-9_.-]+:[a-z0-9_./-]+$`)

// Handler answers one policy check. isLast is true only for the final
// handler in the chain.
type Handler func(ctx context.Context, event Event, isLast bool) Verdict

type handlerEntry struct {
	fn     Handler
	source string
}

type definition struct {
	name     string
	builtin  bool
	schema   *jschema.Schema
	handlers []handlerEntry
}

// Registry holds policies and their handler chains.
// It is safe for concurrent use by multiple goroutines.
type Registry struct {
	mu       sync.RWMutex
	policies map[string]*definition
	sealed   bool
}

// NewRegistry creates a registry with the built-in policies declared.
func NewRegistry() *Registry {
	r := &Registry{policies: make(map[string]*definition)}
	for _, name := range BuiltinNames() {
		r.policies[name] = &definition{name: name, builtin: true}
	}
	return r
}

// BuiltinNames returns the names of the built-in policies.
func BuiltinNames() []string {
	return []string{
		PlayerAttackEntity,
		EntityPickItemUp,
		EntityDropItem,
		PlayerUseItem,
		PlayerUseItemOn,
		PlayerDestroyBlock,
	}
}

// Option configures a policy at registration.
type Option func(*registerConfig)

type registerConfig struct {
	schema any
}

// WithSchema attaches a JSON schema that CustomEvent payloads must satisfy.
// doc may be raw JSON bytes, a JSON string, or a decoded document.
func WithSchema(doc any) Option {
	return func(c *registerConfig) {
		c.schema = doc
	}
}

// HandlerOption configures a handler at registration.
type HandlerOption func(*handlerEntry)

// WithSource labels a handler with where it came from, such as a script
// name. The label appears in logs and metrics.
func WithSource(source string) HandlerOption {
	return func(h *handlerEntry) {
		h.source = source
	}
}

// Register declares a custom policy. A name that is already declared is a
// registration conflict.
func (r *Registry) Register(name string, opts ...Option) error {
	if !namePattern.MatchString(name) {
		return invalidName(name)
	}
	var cfg registerConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	def := &definition{name: name}
	if cfg.schema != nil {
		sch, err := compileSchema(name, cfg.schema)
		if err != nil {
			return oops.Code(CodeInvalidDefinition).Wrap(err)
		}
		def.schema = sch
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return ErrRegistrySealed(name)
	}
	if _, exists := r.policies[name]; exists {
		return ErrRegistrationConflict(name)
	}
	r.policies[name] = def
	return nil
}

// Has reports whether name is a declared policy.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.policies[name]
	return ok
}

// Handle appends h to the chain of the named policy. Registration order is
// evaluation order.
func (r *Registry) Handle(name string, h Handler, opts ...HandlerOption) error {
	if h == nil {
		return invalidHandler(name)
	}
	entry := handlerEntry{fn: h, source: "core"}
	for _, opt := range opts {
		opt(&entry)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return ErrRegistrySealed(name)
	}
	def, ok := r.policies[name]
	if !ok {
		return ErrUnknownPolicy(name)
	}
	def.handlers = append(def.handlers, entry)
	return nil
}

// Seal ends the registration phase. Later Register and Handle calls fail
// with REGISTRY_SEALED.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Sealed reports whether the registry has been sealed.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Info describes a declared policy.
type Info struct {
	Name     string
	Builtin  bool
	Handlers int
	Schema   bool
}

// All returns every declared policy sorted by name.
func (r *Registry) All() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.policies))
	for _, def := range r.policies {
		out = append(out, Info{
			Name:     def.name,
			Builtin:  def.builtin,
			Handlers: len(def.handlers),
			Schema:   def.schema != nil,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) lookup(name string) (*definition, []handlerEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.policies[name]
	if !ok {
		return nil, nil, false
	}
	return def, def.handlers, true
}
