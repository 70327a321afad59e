// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package world

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/stonehook/internal/component"
	"github.com/holomush/stonehook/internal/game"
	"github.com/holomush/stonehook/internal/tag"
)

// InventorySize is the number of slots every entity carries.
const InventorySize = 36

// Error codes.
const (
	CodeNotFound         = "WORLD_NOT_FOUND"
	CodeUnknownDimension = "WORLD_UNKNOWN_DIMENSION"
	CodeInvalid          = "WORLD_INVALID"
	CodeInventoryFull    = "WORLD_INVENTORY_FULL"
)

var playerNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,16}$`)

// ValidationError represents an input validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ItemStack is the contents of one inventory slot.
type ItemStack struct {
	ID    string
	Count int8
	Extra tag.Compound
}

// Validate checks the stack id and count.
func (s ItemStack) Validate() error {
	if _, err := component.ParseIdentifier(s.ID); err != nil {
		return &ValidationError{Field: "id", Message: fmt.Sprintf("invalid item id %q", s.ID)}
	}
	if s.Count < 1 {
		return &ValidationError{Field: "count", Message: "must be at least 1"}
	}
	return nil
}

// Entity is a live entity. Values returned by World are snapshots.
type Entity struct {
	ID        string
	Type      string
	Name      string
	Player    bool
	Dimension string
	Position  game.Vec3
	Inventory [InventorySize]*ItemStack
	Extra     tag.Compound
}

// Ref returns the reference used across the host boundary.
func (e *Entity) Ref() game.EntityRef {
	return game.EntityRef{ID: e.ID, Player: e.Player}
}

func (e *Entity) snapshot() Entity {
	out := *e
	for i, s := range e.Inventory {
		if s != nil {
			c := *s
			if s.Extra != nil {
				c.Extra = tag.Clone(s.Extra).(tag.Compound)
			}
			out.Inventory[i] = &c
		}
	}
	if e.Extra != nil {
		out.Extra = tag.Clone(e.Extra).(tag.Compound)
	}
	return out
}

// SpawnPlayer adds a player. Player names are unique, case-insensitively.
func (w *World) SpawnPlayer(name, dim string, pos game.Vec3) (Entity, error) {
	if !playerNamePattern.MatchString(name) {
		return Entity{}, oops.In("world").Code(CodeInvalid).
			Wrap(&ValidationError{Field: "name", Message: "must be 1-16 letters, digits, or underscores"})
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.playerByNameLocked(name); ok {
		return Entity{}, oops.In("world").Code(CodeInvalid).With("name", name).Errorf("player %s is already online", name)
	}
	return w.spawnLocked(&Entity{Type: "minecraft:player", Name: name, Player: true, Dimension: dim, Position: pos})
}

// SpawnEntity adds a non-player entity of the given type.
func (w *World) SpawnEntity(typ, dim string, pos game.Vec3) (Entity, error) {
	id, err := component.ParseIdentifier(typ)
	if err != nil {
		return Entity{}, oops.In("world").Code(CodeInvalid).
			Wrap(&ValidationError{Field: "type", Message: fmt.Sprintf("invalid entity type %q", typ)})
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.spawnLocked(&Entity{Type: id.String(), Dimension: dim, Position: pos})
}

func (w *World) spawnLocked(e *Entity) (Entity, error) {
	if e.Dimension == "" {
		e.Dimension = DefaultDimension
	}
	if !w.hasDimension(e.Dimension) {
		return Entity{}, errUnknownDimension(e.Dimension)
	}
	e.ID = strings.ToLower(ulid.Make().String())
	w.entities[e.ID] = e
	return e.snapshot(), nil
}

// Remove deletes an entity. Custom component payloads of non-players are
// dropped with it.
func (w *World) Remove(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entities[id]
	if !ok {
		return false
	}
	delete(w.entities, id)
	delete(w.inboxes, id)
	if !e.Player {
		delete(w.custom, entityKey(e))
	}
	return true
}

// Entity returns a snapshot of the entity with id.
func (w *World) Entity(id string) (Entity, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.entities[id]
	if !ok {
		return Entity{}, false
	}
	return e.snapshot(), true
}

// PlayerByName finds an online player, case-insensitively.
func (w *World) PlayerByName(name string) (Entity, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.playerByNameLocked(name)
	if !ok {
		return Entity{}, false
	}
	return e.snapshot(), true
}

func (w *World) playerByNameLocked(name string) (*Entity, bool) {
	for _, e := range w.entities {
		if e.Player && strings.EqualFold(e.Name, name) {
			return e, true
		}
	}
	return nil, false
}

// Players returns snapshots of the online players sorted by name.
func (w *World) Players() []Entity {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var out []Entity
	for _, e := range w.entities {
		if e.Player {
			out = append(out, e.snapshot())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Teleport moves an entity.
func (w *World) Teleport(id, dim string, pos game.Vec3) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entities[id]
	if !ok {
		return errEntityNotFound(id)
	}
	if dim == "" {
		dim = e.Dimension
	}
	if !w.hasDimension(dim) {
		return errUnknownDimension(dim)
	}
	e.Dimension = dim
	e.Position = pos
	return nil
}

// Give puts stack into the first free inventory slot of holder and returns
// the slot.
func (w *World) Give(holder string, stack ItemStack) (int, error) {
	if err := stack.Validate(); err != nil {
		return -1, oops.In("world").Code(CodeInvalid).Wrap(err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entities[holder]
	if !ok {
		return -1, errEntityNotFound(holder)
	}
	slot := slices.Index(e.Inventory[:], nil)
	if slot < 0 {
		return -1, oops.In("world").Code(CodeInventoryFull).With("entity", holder).Errorf("inventory of %s is full", holder)
	}
	s := stack
	e.Inventory[slot] = &s
	return slot, nil
}

// Stack returns a copy of the stack in slot of holder.
func (w *World) Stack(ref game.ItemRef) (ItemStack, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s := w.stackLocked(ref)
	if s == nil {
		return ItemStack{}, false
	}
	out := *s
	if s.Extra != nil {
		out.Extra = tag.Clone(s.Extra).(tag.Compound)
	}
	return out, true
}

func (w *World) stackLocked(ref game.ItemRef) *ItemStack {
	e, ok := w.entities[ref.Holder]
	if !ok || ref.Slot < 0 || ref.Slot >= InventorySize {
		return nil
	}
	return e.Inventory[ref.Slot]
}

func errEntityNotFound(id string) error {
	return oops.In("world").Code(CodeNotFound).With("entity", id).Errorf("no entity %s", id)
}

func errUnknownDimension(dim string) error {
	return oops.In("world").Code(CodeUnknownDimension).With("dimension", dim).Errorf("unknown dimension %q", dim)
}

func sortedStrings(s []string) []string {
	sort.Strings(s)
	return s
}
