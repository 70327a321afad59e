// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//nolint:gocritic // captLocal: L is the idiomatic name for lua.LState
package hostfunc

import (
	"math"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	"github.com/holomush/stonehook/internal/component"
	"github.com/holomush/stonehook/internal/game"
	"github.com/holomush/stonehook/internal/policy"
)

// Game objects cross into Lua as plain tables:
//
//	entity  {kind="entity", id=..., player=bool}
//	block   {kind="block", dimension=..., x=, y=, z=}
//	item    {kind="item", holder=..., slot=}
//	vector  {x=, y=, z=}

func entityValue(L *lua.LState, ref game.EntityRef) *lua.LTable {
	t := L.CreateTable(0, 3)
	t.RawSetString("kind", lua.LString("entity"))
	t.RawSetString("id", lua.LString(ref.ID))
	t.RawSetString("player", lua.LBool(ref.Player))
	return t
}

func blockValue(L *lua.LState, ref game.BlockRef) *lua.LTable {
	t := L.CreateTable(0, 5)
	t.RawSetString("kind", lua.LString("block"))
	t.RawSetString("dimension", lua.LString(ref.Dimension))
	t.RawSetString("x", lua.LNumber(ref.Pos.X))
	t.RawSetString("y", lua.LNumber(ref.Pos.Y))
	t.RawSetString("z", lua.LNumber(ref.Pos.Z))
	return t
}

func itemValue(L *lua.LState, ref game.ItemRef) *lua.LTable {
	t := L.CreateTable(0, 3)
	t.RawSetString("kind", lua.LString("item"))
	t.RawSetString("holder", lua.LString(ref.Holder))
	t.RawSetString("slot", lua.LNumber(ref.Slot))
	return t
}

func vecValue(L *lua.LState, v game.Vec3) *lua.LTable {
	t := L.CreateTable(0, 3)
	t.RawSetString("x", lua.LNumber(v.X))
	t.RawSetString("y", lua.LNumber(v.Y))
	t.RawSetString("z", lua.LNumber(v.Z))
	return t
}

// eventValue converts a policy payload. Built-in events become tables
// keyed like their fields; a custom event is its tag.
func eventValue(L *lua.LState, ev policy.Event) lua.LValue {
	t := L.NewTable()
	switch e := ev.(type) {
	case policy.AttackEvent:
		t.RawSetString("player", entityValue(L, e.Player))
		t.RawSetString("target", entityValue(L, e.Target))
	case policy.PickUpEvent:
		t.RawSetString("entity", entityValue(L, e.Entity))
		t.RawSetString("item", itemValue(L, e.Item))
	case policy.DropEvent:
		t.RawSetString("entity", entityValue(L, e.Entity))
		t.RawSetString("item", itemValue(L, e.Item))
	case policy.UseItemEvent:
		t.RawSetString("entity", entityValue(L, e.Entity))
		t.RawSetString("item", itemValue(L, e.Item))
	case policy.UseItemOnEvent:
		t.RawSetString("entity", entityValue(L, e.Entity))
		t.RawSetString("item", itemValue(L, e.Item))
		t.RawSetString("pos", vecValue(L, e.Pos))
		t.RawSetString("block", blockValue(L, e.Block))
	case policy.DestroyBlockEvent:
		t.RawSetString("player", entityValue(L, e.Player))
		t.RawSetString("block", blockValue(L, e.Block))
	case policy.CustomEvent:
		return newTag(L, e.Data)
	}
	return t
}

// toTarget reads a component target table. The kind field may be omitted
// when the other fields make it unambiguous.
func toTarget(v lua.LValue) (component.Target, error) {
	t, ok := v.(*lua.LTable)
	if !ok {
		return component.Target{}, oops.In("hostfunc").Errorf("target must be a table, got %s", v.Type())
	}
	kind := optString(t, "kind", "")
	if kind == "" {
		switch {
		case t.RawGetString("holder") != lua.LNil:
			kind = "item"
		case t.RawGetString("dimension") != lua.LNil:
			kind = "block"
		default:
			kind = "entity"
		}
	}
	switch kind {
	case "entity":
		id := optString(t, "id", "")
		if id == "" {
			return component.Target{}, oops.In("hostfunc").Errorf("entity target needs an id")
		}
		return component.EntityTarget(game.EntityRef{ID: id, Player: optBool(t, "player")}), nil
	case "block":
		pos, err := toBlockPos(t)
		if err != nil {
			return component.Target{}, err
		}
		dim := optString(t, "dimension", "")
		if dim == "" {
			return component.Target{}, oops.In("hostfunc").Errorf("block target needs a dimension")
		}
		return component.BlockTarget(game.BlockRef{Dimension: dim, Pos: pos}), nil
	case "item":
		holder := optString(t, "holder", "")
		slot, ok := t.RawGetString("slot").(lua.LNumber)
		if holder == "" || !ok {
			return component.Target{}, oops.In("hostfunc").Errorf("item target needs a holder and a slot")
		}
		return component.ItemTarget(game.ItemRef{Holder: holder, Slot: int(slot)}), nil
	}
	return component.Target{}, oops.In("hostfunc").Errorf("unknown target kind %q", kind)
}

// toEntity reads an entity table.
func toEntity(v lua.LValue) (game.EntityRef, error) {
	target, err := toTarget(v)
	if err != nil {
		return game.EntityRef{}, err
	}
	if target.Kind != component.KindEntity {
		return game.EntityRef{}, oops.In("hostfunc").Errorf("entity expected, got %s", target.Kind)
	}
	return target.Entity, nil
}

func toVec(v lua.LValue) (game.Vec3, error) {
	t, ok := v.(*lua.LTable)
	if !ok {
		return game.Vec3{}, oops.In("hostfunc").Errorf("vector must be a table, got %s", v.Type())
	}
	var out game.Vec3
	for _, axis := range []struct {
		key string
		dst *float64
	}{{"x", &out.X}, {"y", &out.Y}, {"z", &out.Z}} {
		n, ok := t.RawGetString(axis.key).(lua.LNumber)
		if !ok {
			return game.Vec3{}, oops.In("hostfunc").Errorf("vector needs a numeric %s", axis.key)
		}
		*axis.dst = float64(n)
	}
	return out, nil
}

func toBlockPos(v lua.LValue) (game.BlockPos, error) {
	vec, err := toVec(v)
	if err != nil {
		return game.BlockPos{}, err
	}
	for _, f := range []float64{vec.X, vec.Y, vec.Z} {
		if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
			return game.BlockPos{}, oops.In("hostfunc").Errorf("block coordinates must be 32-bit integers")
		}
	}
	return game.BlockPos{X: int32(vec.X), Y: int32(vec.Y), Z: int32(vec.Z)}, nil
}
