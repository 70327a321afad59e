// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package component

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/holomush/stonehook/internal/game"
	"github.com/holomush/stonehook/internal/tag"
)

// Target identifies the one game object a component is attached to.
// Only the field matching Kind is meaningful.
type Target struct {
	Kind   Kind
	Entity game.EntityRef
	Block  game.BlockRef
	Item   game.ItemRef
}

// EntityTarget targets an entity.
func EntityTarget(e game.EntityRef) Target {
	return Target{Kind: KindEntity, Entity: e}
}

// BlockTarget targets a block.
func BlockTarget(b game.BlockRef) Target {
	return Target{Kind: KindBlock, Block: b}
}

// ItemTarget targets an item stack.
func ItemTarget(i game.ItemRef) Target {
	return Target{Kind: KindItem, Item: i}
}

func (t Target) String() string {
	switch t.Kind {
	case KindEntity:
		return t.Entity.String()
	case KindBlock:
		return t.Block.String()
	case KindItem:
		return t.Item.String()
	default:
		return "unknown"
	}
}

// Component is a named payload read from or applied to a target.
type Component struct {
	ID   Identifier
	Data tag.Tag
}

// World is the host storage the store reads and writes through.
type World interface {
	// Exists reports whether the target currently exists.
	Exists(ctx context.Context, t Target) bool
	// LoadComponent returns the current payload of a component, or false
	// when the target has none.
	LoadComponent(ctx context.Context, t Target, id Identifier) (tag.Tag, bool, error)
	// StoreComponent replaces the payload of a component.
	StoreComponent(ctx context.Context, t Target, id Identifier, data tag.Tag) error
}

// Store reads and applies components against a host World.
type Store struct {
	world World
	defs  *Registry
}

// NewStore creates a store over world using defs for component lookup.
func NewStore(world World, defs *Registry) *Store {
	return &Store{world: world, defs: defs}
}

// Registry returns the definitions the store consults.
func (s *Store) Registry() *Registry {
	return s.defs
}

func (s *Store) lookup(name string) (Definition, error) {
	id, err := ParseIdentifier(name)
	if err != nil {
		return Definition{}, err
	}
	def, ok := s.defs.Lookup(id)
	if !ok {
		return Definition{}, ErrUnknownComponent(id)
	}
	return def, nil
}

// Has reports whether target currently carries the named component. It never
// fails: malformed names, unsupported targets, and host read errors all
// report false.
func (s *Store) Has(ctx context.Context, target Target, name string) bool {
	c, err := s.Get(ctx, target, name)
	return err == nil && c != nil
}

// Get returns the named component of target, or nil when it is absent or the
// target kind does not support it. It returns an error only when name is
// malformed or not registered.
func (s *Store) Get(ctx context.Context, target Target, name string) (*Component, error) {
	def, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	if !def.AccessFor(target.Kind).CanRead() || !s.world.Exists(ctx, target) {
		return nil, nil
	}
	data, ok, err := s.world.LoadComponent(ctx, target, def.ID)
	if err != nil {
		slog.WarnContext(ctx, "component read failed",
			"component", def.ID.String(),
			"target", target.String(),
			"error", err,
		)
		return nil, nil
	}
	if !ok || data == nil {
		return nil, nil
	}
	return &Component{ID: def.ID, Data: tag.Clone(data)}, nil
}

// Apply writes c to target. It returns false without error when the target
// kind does not accept writes to the component, the target does not exist,
// or the payload does not fit the component's shape. An error is returned
// for an unregistered component or a failed host write.
func (s *Store) Apply(ctx context.Context, target Target, c Component) (bool, error) {
	def, ok := s.defs.Lookup(c.ID)
	if !ok {
		return false, ErrUnknownComponent(c.ID)
	}
	if !def.AccessFor(target.Kind).CanWrite() {
		return false, nil
	}
	if !def.accepts(c.Data) {
		slog.DebugContext(ctx, "component payload rejected",
			"component", def.ID.String(),
			"target", target.String(),
		)
		return false, nil
	}
	if !s.world.Exists(ctx, target) {
		return false, nil
	}
	if err := s.world.StoreComponent(ctx, target, def.ID, tag.Clone(c.Data)); err != nil {
		return false, oops.In("component").
			Code(CodeWriteFailed).
			With("component", def.ID.String()).
			With("target", target.String()).
			Errorf("host write failed: %v", err)
	}
	return true, nil
}
