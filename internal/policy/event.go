// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package policy

import (
	"github.com/samber/oops"

	"github.com/holomush/stonehook/internal/game"
	"github.com/holomush/stonehook/internal/tag"
)

// Built-in policy names.
const (
	PlayerAttackEntity = "stone:player_attack_entity"
	EntityPickItemUp   = "stone:entity_pick_item_up"
	EntityDropItem     = "stone:entity_drop_item"
	PlayerUseItem      = "stone:player_use_item"
	PlayerUseItemOn    = "stone:player_use_item_on"
	PlayerDestroyBlock = "stone:player_destroy_block"
)

// Event is the payload passed to a policy check. The set of implementations
// is closed: one struct per built-in policy plus CustomEvent for policies
// declared by scripts.
type Event interface {
	// Policy returns the built-in policy this event belongs to, or "" for
	// CustomEvent.
	Policy() string
	validate() error
}

// AttackEvent is the payload of stone:player_attack_entity.
type AttackEvent struct {
	Player game.EntityRef
	Target game.EntityRef
}

// PickUpEvent is the payload of stone:entity_pick_item_up.
type PickUpEvent struct {
	Entity game.EntityRef
	Item   game.ItemRef
}

// DropEvent is the payload of stone:entity_drop_item.
type DropEvent struct {
	Entity game.EntityRef
	Item   game.ItemRef
}

// UseItemEvent is the payload of stone:player_use_item.
type UseItemEvent struct {
	Entity game.EntityRef
	Item   game.ItemRef
}

// UseItemOnEvent is the payload of stone:player_use_item_on.
type UseItemOnEvent struct {
	Entity game.EntityRef
	Item   game.ItemRef
	Pos    game.Vec3
	Block  game.BlockRef
}

// DestroyBlockEvent is the payload of stone:player_destroy_block.
type DestroyBlockEvent struct {
	Player game.EntityRef
	Block  game.BlockRef
}

// CustomEvent carries the structured payload of a script-declared policy.
type CustomEvent struct {
	Data tag.Tag
}

func (AttackEvent) Policy() string       { return PlayerAttackEntity }
func (PickUpEvent) Policy() string       { return EntityPickItemUp }
func (DropEvent) Policy() string         { return EntityDropItem }
func (UseItemEvent) Policy() string      { return PlayerUseItem }
func (UseItemOnEvent) Policy() string    { return PlayerUseItemOn }
func (DestroyBlockEvent) Policy() string { return PlayerDestroyBlock }
func (CustomEvent) Policy() string       { return "" }

func (e AttackEvent) validate() error {
	if err := requirePlayer("player", e.Player); err != nil {
		return err
	}
	return requireEntity("target", e.Target)
}

func (e PickUpEvent) validate() error {
	if err := requireEntity("entity", e.Entity); err != nil {
		return err
	}
	return requireItem("item", e.Item)
}

func (e DropEvent) validate() error {
	if err := requireEntity("entity", e.Entity); err != nil {
		return err
	}
	return requireItem("item", e.Item)
}

func (e UseItemEvent) validate() error {
	if err := requireEntity("entity", e.Entity); err != nil {
		return err
	}
	return requireItem("item", e.Item)
}

func (e UseItemOnEvent) validate() error {
	if err := requireEntity("entity", e.Entity); err != nil {
		return err
	}
	if err := requireItem("item", e.Item); err != nil {
		return err
	}
	return requireBlock("block", e.Block)
}

func (e DestroyBlockEvent) validate() error {
	if err := requirePlayer("player", e.Player); err != nil {
		return err
	}
	return requireBlock("block", e.Block)
}

func (e CustomEvent) validate() error {
	if e.Data == nil {
		return oops.Errorf("custom payload is missing")
	}
	return nil
}

func requireEntity(field string, e game.EntityRef) error {
	if e.IsZero() {
		return oops.With("field", field).Errorf("%s is not set", field)
	}
	return nil
}

func requirePlayer(field string, e game.EntityRef) error {
	if err := requireEntity(field, e); err != nil {
		return err
	}
	if !e.Player {
		return oops.With("field", field).Errorf("%s is not a player", field)
	}
	return nil
}

func requireItem(field string, i game.ItemRef) error {
	if i.Holder == "" || i.Slot < 0 {
		return oops.With("field", field).Errorf("%s is not set", field)
	}
	return nil
}

func requireBlock(field string, b game.BlockRef) error {
	if b.Dimension == "" {
		return oops.With("field", field).Errorf("%s has no dimension", field)
	}
	return nil
}
