// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package component

import (
	"sort"
	"sync"

	"github.com/samber/oops"

	"github.com/holomush/stonehook/internal/tag"
)

// Kind is the kind of game object a component is attached to.
type Kind uint8

// Target kinds.
const (
	KindEntity Kind = iota + 1
	KindBlock
	KindItem
)

func (k Kind) String() string {
	switch k {
	case KindEntity:
		return "entity"
	case KindBlock:
		return "block"
	case KindItem:
		return "item"
	default:
		return "unknown"
	}
}

// Access is what a target kind allows for one component.
type Access uint8

// Access levels. The zero value means the component is not supported.
const (
	AccessNone Access = iota
	AccessRead
	AccessReadWrite
)

// CanRead reports whether the component can be read.
func (a Access) CanRead() bool { return a >= AccessRead }

// CanWrite reports whether the component can be applied.
func (a Access) CanWrite() bool { return a == AccessReadWrite }

// Definition describes one component: its payload shape and which target
// kinds expose it.
type Definition struct {
	ID Identifier
	// Shape is the required root type of the payload.
	Shape tag.Type
	// Access maps target kinds to what they permit. Missing kinds are
	// unsupported.
	Access map[Kind]Access
	// Validate optionally checks a payload beyond its root type.
	Validate func(data tag.Tag) error
}

// AccessFor returns the access level for kind.
func (d Definition) AccessFor(kind Kind) Access {
	return d.Access[kind]
}

func (d Definition) accepts(data tag.Tag) bool {
	if data == nil || data.Type() != d.Shape {
		return false
	}
	if d.Validate != nil && d.Validate(data) != nil {
		return false
	}
	return true
}

// Registry holds component definitions. Definitions can be added until the
// registry is sealed.
// It is safe for concurrent use by multiple goroutines.
type Registry struct {
	mu     sync.RWMutex
	defs   map[Identifier]Definition
	sealed bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[Identifier]Definition)}
}

// DefaultRegistry returns a registry holding the built-in components.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, def := range Builtins() {
		r.MustRegister(def)
	}
	return r
}

// Register adds a definition.
func (r *Registry) Register(def Definition) error {
	if def.ID.Namespace == "" || def.ID.Name == "" {
		return oops.In("component").Code(CodeInvalidDefinition).Errorf("component identifier is required")
	}
	if _, err := ParseIdentifier(def.ID.String()); err != nil {
		return oops.In("component").
			Code(CodeInvalidDefinition).
			With("component", def.ID.String()).
			Errorf("invalid component identifier %q", def.ID)
	}
	if !def.Shape.Valid() || def.Shape == tag.TypeEnd {
		return oops.In("component").
			Code(CodeInvalidDefinition).
			With("component", def.ID.String()).
			Errorf("invalid payload shape %s", def.Shape)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return oops.In("component").
			Code(CodeRegistrySealed).
			With("component", def.ID.String()).
			Errorf("component registry is sealed")
	}
	if _, exists := r.defs[def.ID]; exists {
		return oops.In("component").
			Code(CodeRegistrationConflict).
			With("component", def.ID.String()).
			Errorf("component %s already registered", def.ID)
	}
	r.defs[def.ID] = def
	return nil
}

// MustRegister adds a definition, panicking on error.
// This is intended for built-in definitions only.
func (r *Registry) MustRegister(def Definition) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// Seal rejects further registration.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Lookup returns the definition for id.
func (r *Registry) Lookup(id Identifier) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[id]
	return def, ok
}

// All returns every definition sorted by identifier.
func (r *Registry) All() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.defs))
	for _, def := range r.defs {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}
