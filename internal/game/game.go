// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package game defines the value types that identify game objects across
// the host boundary: positions, entities, blocks, and item stacks.
package game

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Vec3 is a world position.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v.X, v.Y, v.Z)
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// BlockPos returns the block containing v.
func (v Vec3) BlockPos() BlockPos {
	return BlockPos{
		X: int32(math.Floor(v.X)),
		Y: int32(math.Floor(v.Y)),
		Z: int32(math.Floor(v.Z)),
	}
}

// DistanceSq returns the squared distance between v and o.
func (v Vec3) DistanceSq(o Vec3) float64 {
	dx, dy, dz := v.X-o.X, v.Y-o.Y, v.Z-o.Z
	return dx*dx + dy*dy + dz*dz
}

// BlockPos is an integer block coordinate.
type BlockPos struct {
	X, Y, Z int32
}

func (p BlockPos) String() string {
	return fmt.Sprintf("%d,%d,%d", p.X, p.Y, p.Z)
}

// Offset returns p moved by (dx, dy, dz).
func (p BlockPos) Offset(dx, dy, dz int32) BlockPos {
	return BlockPos{X: p.X + dx, Y: p.Y + dy, Z: p.Z + dz}
}

// EntityRef identifies a live entity. Player is set for player entities.
type EntityRef struct {
	ID     string
	Player bool
}

// IsZero reports whether r refers to nothing.
func (r EntityRef) IsZero() bool { return r.ID == "" }

func (r EntityRef) String() string {
	if r.Player {
		return "player:" + r.ID
	}
	return "entity:" + r.ID
}

// BlockRef identifies a block position within a dimension.
type BlockRef struct {
	Dimension string
	Pos       BlockPos
}

func (r BlockRef) String() string {
	return "block:" + r.Dimension + "@" + r.Pos.String()
}

// ItemRef identifies an item stack by its holder entity and inventory slot.
type ItemRef struct {
	Holder string
	Slot   int
}

func (r ItemRef) String() string {
	return fmt.Sprintf("item:%s#%d", r.Holder, r.Slot)
}

// Air is the block id of an empty position.
const Air = "minecraft:air"

// BlockState is a block id with its state properties.
type BlockState struct {
	Name   string
	States map[string]string
}

// IsAir reports whether s is empty space.
func (s BlockState) IsAir() bool { return s.Name == "" || s.Name == Air }

// Equal reports whether s and o name the same block with the same states.
func (s BlockState) Equal(o BlockState) bool {
	if s.Name != o.Name || len(s.States) != len(o.States) {
		return false
	}
	for k, v := range s.States {
		if ov, ok := o.States[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// String returns the state in "name[k=v,...]" form with sorted keys.
func (s BlockState) String() string {
	if len(s.States) == 0 {
		return s.Name
	}
	keys := make([]string, 0, len(s.States))
	for k := range s.States {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(s.Name)
	b.WriteByte('[')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(s.States[k])
	}
	b.WriteByte(']')
	return b.String()
}
