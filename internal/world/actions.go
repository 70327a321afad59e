// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package world

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/holomush/stonehook/internal/game"
	"github.com/holomush/stonehook/internal/policy"
)

// The player actions below ask the policy gate before changing anything.
// Every built-in policy defaults to allow. A gate error is logged and the
// gate's fallback verdict is used.

// Attack reports whether player may attack target. Combat itself is not
// simulated.
func (w *World) Attack(ctx context.Context, playerID, targetID string) (bool, error) {
	player, err := w.ref(playerID)
	if err != nil {
		return false, err
	}
	target, err := w.ref(targetID)
	if err != nil {
		return false, err
	}
	return w.check(ctx, policy.AttackEvent{Player: player, Target: target}), nil
}

// DestroyBlock removes the block at ref when the player is allowed to.
func (w *World) DestroyBlock(ctx context.Context, playerID string, ref game.BlockRef) (bool, error) {
	player, err := w.ref(playerID)
	if err != nil {
		return false, err
	}
	if !w.check(ctx, policy.DestroyBlockEvent{Player: player, Block: ref}) {
		return false, nil
	}
	if err := w.SetBlock(ctx, ref.Dimension, ref.Pos, game.BlockState{Name: game.Air}, nil); err != nil {
		return false, err
	}
	return true, nil
}

// UseItem reports whether the entity may use the item in slot.
func (w *World) UseItem(ctx context.Context, entityID string, slot int) (bool, error) {
	entity, item, err := w.heldItem(entityID, slot)
	if err != nil {
		return false, err
	}
	return w.check(ctx, policy.UseItemEvent{Entity: entity, Item: item}), nil
}

// UseItemOn reports whether the entity may use the item in slot on a block.
func (w *World) UseItemOn(ctx context.Context, entityID string, slot int, block game.BlockRef, hit game.Vec3) (bool, error) {
	entity, item, err := w.heldItem(entityID, slot)
	if err != nil {
		return false, err
	}
	return w.check(ctx, policy.UseItemOnEvent{Entity: entity, Item: item, Pos: hit, Block: block}), nil
}

// DropItem empties slot when the entity is allowed to drop it. The dropped
// stack is returned.
func (w *World) DropItem(ctx context.Context, entityID string, slot int) (*ItemStack, error) {
	entity, item, err := w.heldItem(entityID, slot)
	if err != nil {
		return nil, err
	}
	if !w.check(ctx, policy.DropEvent{Entity: entity, Item: item}) {
		return nil, nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entities[entityID]
	if !ok || e.Inventory[slot] == nil {
		return nil, nil
	}
	dropped := e.Inventory[slot]
	e.Inventory[slot] = nil
	return dropped, nil
}

// PickUp gives stack to the entity when it is allowed to pick it up. The
// event names the slot the stack would land in.
func (w *World) PickUp(ctx context.Context, entityID string, stack ItemStack) (bool, error) {
	if err := stack.Validate(); err != nil {
		return false, oops.In("world").Code(CodeInvalid).Wrap(err)
	}
	w.mu.RLock()
	e, ok := w.entities[entityID]
	slot := -1
	var ref game.EntityRef
	if ok {
		ref = e.Ref()
		for i, s := range e.Inventory {
			if s == nil {
				slot = i
				break
			}
		}
	}
	w.mu.RUnlock()
	if !ok {
		return false, errEntityNotFound(entityID)
	}
	if slot < 0 {
		return false, oops.In("world").Code(CodeInventoryFull).With("entity", entityID).Errorf("inventory of %s is full", entityID)
	}
	if !w.check(ctx, policy.PickUpEvent{Entity: ref, Item: game.ItemRef{Holder: entityID, Slot: slot}}) {
		return false, nil
	}
	if _, err := w.Give(entityID, stack); err != nil {
		return false, err
	}
	return true, nil
}

func (w *World) check(ctx context.Context, ev policy.Event) bool {
	w.mu.RLock()
	gate := w.gate
	w.mu.RUnlock()
	if gate == nil {
		return true
	}
	allowed, err := gate.CheckPolicy(ctx, ev.Policy(), ev, true)
	if err != nil {
		slog.WarnContext(ctx, "policy check failed, using fallback",
			"policy", ev.Policy(),
			"allowed", allowed,
			"error", err)
	}
	return allowed
}

func (w *World) ref(id string) (game.EntityRef, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.entities[id]
	if !ok {
		return game.EntityRef{}, errEntityNotFound(id)
	}
	return e.Ref(), nil
}

func (w *World) heldItem(entityID string, slot int) (game.EntityRef, game.ItemRef, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.entities[entityID]
	if !ok {
		return game.EntityRef{}, game.ItemRef{}, errEntityNotFound(entityID)
	}
	item := game.ItemRef{Holder: entityID, Slot: slot}
	if w.stackLocked(item) == nil {
		return game.EntityRef{}, game.ItemRef{}, oops.In("world").Code(CodeNotFound).
			With("item", item.String()).
			Errorf("slot %d of %s is empty", slot, entityID)
	}
	return e.Ref(), item, nil
}
