// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package world

import (
	"context"
	"log/slog"
	"strings"

	"github.com/samber/oops"

	"github.com/holomush/stonehook/internal/component"
	"github.com/holomush/stonehook/internal/game"
	"github.com/holomush/stonehook/internal/tag"
)

// persistScope is the tag store scope of component payloads.
const persistScope = "component"

// Exists reports whether the target is live: an entity that has spawned,
// a position in a known dimension, or an occupied inventory slot.
func (w *World) Exists(_ context.Context, t component.Target) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	switch t.Kind {
	case component.KindEntity:
		_, ok := w.entities[t.Entity.ID]
		return ok
	case component.KindBlock:
		return w.hasDimension(t.Block.Dimension)
	case component.KindItem:
		return w.stackLocked(t.Item) != nil
	}
	return false
}

// LoadComponent reads a payload. Built-in components are derived from the
// live object; other components come from the custom table and, when
// persistence is configured, the tag store.
func (w *World) LoadComponent(ctx context.Context, t component.Target, id component.Identifier) (tag.Tag, bool, error) {
	w.mu.RLock()
	data, ok, key := w.loadLocked(t, id)
	persist := w.persist
	w.mu.RUnlock()
	if ok || persist == nil || key == "" || !persisted(t, id) {
		return data, ok, nil
	}
	stored, found, err := persist.GetTag(ctx, persistScope, key+"|"+id.String())
	if err != nil {
		return nil, false, oops.In("world").With("target", t.String()).With("component", id.String()).Wrap(err)
	}
	return stored, found, nil
}

func (w *World) loadLocked(t component.Target, id component.Identifier) (tag.Tag, bool, string) {
	switch t.Kind {
	case component.KindEntity:
		e, ok := w.entities[t.Entity.ID]
		if !ok {
			return nil, false, ""
		}
		switch id {
		case component.ExtraData:
			return optional(e.Extra), e.Extra != nil, entityKey(e)
		case component.Nameable:
			if e.Name == "" {
				return nil, false, entityKey(e)
			}
			return tag.Compound{"name": tag.String(e.Name)}, true, entityKey(e)
		case component.Position:
			return tag.Compound{
				"x": tag.Double(e.Position.X),
				"y": tag.Double(e.Position.Y),
				"z": tag.Double(e.Position.Z),
			}, true, entityKey(e)
		}
		v, ok := w.custom[entityKey(e)][id.String()]
		return v, ok, entityKey(e)

	case component.KindBlock:
		d, ok := w.dimensions[t.Block.Dimension]
		if !ok {
			return nil, false, ""
		}
		key := blockKey(t.Block)
		if id == component.ExtraData {
			b, ok := d.blocks[t.Block.Pos]
			if !ok || b.data == nil {
				return nil, false, key
			}
			return b.data, true, key
		}
		v, ok := w.custom[key][id.String()]
		return v, ok, key

	case component.KindItem:
		s := w.stackLocked(t.Item)
		if s == nil {
			return nil, false, ""
		}
		switch id {
		case component.Item:
			return tag.Compound{"id": tag.String(s.ID), "count": tag.Byte(s.Count)}, true, ""
		case component.ExtraData:
			return optional(s.Extra), s.Extra != nil, ""
		}
		v, ok := w.custom[itemKey(t.Item)][id.String()]
		return v, ok, ""
	}
	return nil, false, ""
}

// StoreComponent writes a payload. The component store has already
// checked writability and shape.
func (w *World) StoreComponent(ctx context.Context, t component.Target, id component.Identifier, data tag.Tag) error {
	w.mu.Lock()
	key, err := w.storeLocked(t, id, data)
	persist := w.persist
	w.mu.Unlock()
	if err != nil {
		return err
	}
	if persist == nil || key == "" || !persisted(t, id) {
		return nil
	}
	if err := persist.PutTag(ctx, persistScope, key+"|"+id.String(), data); err != nil {
		slog.WarnContext(ctx, "component persisted in memory only",
			"target", t.String(),
			"component", id.String(),
			"error", err)
		return oops.In("world").With("target", t.String()).With("component", id.String()).Wrap(err)
	}
	return nil
}

func (w *World) storeLocked(t component.Target, id component.Identifier, data tag.Tag) (string, error) {
	switch t.Kind {
	case component.KindEntity:
		e, ok := w.entities[t.Entity.ID]
		if !ok {
			return "", errEntityNotFound(t.Entity.ID)
		}
		switch id {
		case component.ExtraData:
			e.Extra, _ = data.(tag.Compound)
			return entityKey(e), nil
		case component.Nameable:
			if e.Player {
				return "", oops.In("world").Code(CodeInvalid).With("entity", e.ID).Errorf("player names cannot be changed")
			}
			name, _ := data.(tag.Compound).GetString("name")
			e.Name = name
			return "", nil
		case component.Position:
			return "", readOnly(t, id)
		}
		w.setCustom(entityKey(e), id, data)
		return entityKey(e), nil

	case component.KindBlock:
		d, ok := w.dimensions[t.Block.Dimension]
		if !ok {
			return "", errUnknownDimension(t.Block.Dimension)
		}
		if id == component.ExtraData {
			b, ok := d.blocks[t.Block.Pos]
			if !ok {
				return "", oops.In("world").Code(CodeInvalid).
					With("block", t.Block.String()).
					Errorf("air cannot hold block data")
			}
			b.data, _ = data.(tag.Compound)
			d.blocks[t.Block.Pos] = b
			return blockKey(t.Block), nil
		}
		w.setCustom(blockKey(t.Block), id, data)
		return blockKey(t.Block), nil

	case component.KindItem:
		s := w.stackLocked(t.Item)
		if s == nil {
			return "", oops.In("world").Code(CodeNotFound).With("item", t.Item.String()).Errorf("no item at %s", t.Item)
		}
		switch id {
		case component.ExtraData:
			s.Extra, _ = data.(tag.Compound)
			return "", nil
		case component.Item:
			return "", readOnly(t, id)
		}
		w.setCustom(itemKey(t.Item), id, data)
		return "", nil
	}
	return "", oops.In("world").Code(CodeInvalid).Errorf("unsupported target kind %s", t.Kind)
}

func (w *World) setCustom(key string, id component.Identifier, data tag.Tag) {
	m, ok := w.custom[key]
	if !ok {
		m = make(map[string]tag.Tag)
		w.custom[key] = m
	}
	m[id.String()] = data
}

// persisted reports whether a payload is written through to the tag
// store. Only entity data is; derived built-ins never are.
func persisted(t component.Target, id component.Identifier) bool {
	if t.Kind != component.KindEntity {
		return false
	}
	return id != component.Nameable && id != component.Position
}

func readOnly(t component.Target, id component.Identifier) error {
	return oops.In("world").Code(CodeInvalid).
		With("target", t.String()).
		With("component", id.String()).
		Errorf("component %s is read-only", id)
}

func optional(c tag.Compound) tag.Tag {
	if c == nil {
		return nil
	}
	return c
}

// entityKey identifies an entity for component storage. Players are keyed
// by name so their data outlives a session.
func entityKey(e *Entity) string {
	if e.Player {
		return "player/" + strings.ToLower(e.Name)
	}
	return "entity/" + e.ID
}

func blockKey(b game.BlockRef) string {
	return "block/" + b.Dimension + "/" + b.Pos.String()
}

func itemKey(i game.ItemRef) string {
	return i.String()
}
