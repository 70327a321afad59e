// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package structure copies boxes of blocks between host block storage and
// structure tags.
//
// A structure is a Compound of the form
//
//	{
//	  format_version: 1,
//	  size: [I; sx, sy, sz],
//	  palette: [{Name: "minecraft:stone", States: {axis: "y"}}, ...],
//	  blocks: [{pos: [I; x, y, z], state: 0, nbt: {...}}, ...]
//	}
//
// Block positions are relative to the structure origin. Air is not listed.
package structure

import (
	"context"
	"fmt"

	"github.com/samber/oops"

	"github.com/holomush/stonehook/internal/game"
	"github.com/holomush/stonehook/internal/tag"
)

// FormatVersion is the structure format written by Get.
const FormatVersion = 1

// MaxVolume bounds the number of positions in one transfer.
const MaxVolume = 64 * 64 * 64

// Error codes.
const (
	CodeInvalidSize = "STRUCTURE_INVALID_SIZE"
	CodeMalformed   = "STRUCTURE_MALFORMED"
	CodeHostFailed  = "STRUCTURE_HOST_FAILED"
)

// BlockStorage is the host block access the transfer runs against.
type BlockStorage interface {
	// Block returns the state and block-entity data at pos. Data is nil
	// for blocks without any.
	Block(ctx context.Context, area string, pos game.BlockPos) (game.BlockState, tag.Compound, error)
	// SetBlock replaces the block at pos.
	SetBlock(ctx context.Context, area string, pos game.BlockPos, state game.BlockState, data tag.Compound) error
}

// Size is a structure extent in blocks.
type Size struct {
	X, Y, Z int32
}

func (s Size) volume() int64 { return int64(s.X) * int64(s.Y) * int64(s.Z) }

func (s Size) validate() error {
	if s.X < 1 || s.Y < 1 || s.Z < 1 {
		return oops.In("structure").Code(CodeInvalidSize).
			With("size", fmt.Sprintf("%dx%dx%d", s.X, s.Y, s.Z)).
			Errorf("structure size must be positive on every axis")
	}
	if s.volume() > MaxVolume {
		return oops.In("structure").Code(CodeInvalidSize).
			With("volume", s.volume()).
			Errorf("structure volume %d exceeds %d", s.volume(), MaxVolume)
	}
	return nil
}

// Get reads the box of the given size starting at pos in area.
func Get(ctx context.Context, host BlockStorage, area string, pos game.BlockPos, size Size) (tag.Compound, error) {
	if err := size.validate(); err != nil {
		return nil, err
	}

	var (
		palette []tag.Tag
		index   = make(map[string]int32)
		blocks  []tag.Tag
	)
	for x := range size.X {
		for y := range size.Y {
			for z := range size.Z {
				at := pos.Offset(x, y, z)
				state, data, err := host.Block(ctx, area, at)
				if err != nil {
					return nil, oops.In("structure").Code(CodeHostFailed).
						With("area", area).
						With("pos", at.String()).
						Wrap(err)
				}
				if state.IsAir() {
					continue
				}
				key := state.String()
				i, ok := index[key]
				if !ok {
					i = int32(len(palette))
					index[key] = i
					palette = append(palette, paletteEntry(state))
				}
				entry := tag.Compound{
					"pos":   tag.IntArray{x, y, z},
					"state": tag.Int(i),
				}
				if data != nil {
					entry["nbt"] = tag.Clone(data)
				}
				blocks = append(blocks, entry)
			}
		}
	}

	return tag.Compound{
		"format_version": tag.Int(FormatVersion),
		"size":           tag.IntArray{size.X, size.Y, size.Z},
		"palette":        listOf(tag.TypeCompound, palette),
		"blocks":         listOf(tag.TypeCompound, blocks),
	}, nil
}

// Set writes structure s into area with its origin at pos. Every position
// of the box is written; positions the structure does not list become air.
// The structure is validated completely before the first block is placed.
func Set(ctx context.Context, host BlockStorage, area string, pos game.BlockPos, s tag.Compound) error {
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	for x := range parsed.Size.X {
		for y := range parsed.Size.Y {
			for z := range parsed.Size.Z {
				rel := game.BlockPos{X: x, Y: y, Z: z}
				b, ok := parsed.Blocks[rel]
				if !ok {
					b = Placed{State: game.BlockState{Name: game.Air}}
				}
				at := pos.Offset(x, y, z)
				if err := host.SetBlock(ctx, area, at, b.State, b.Data); err != nil {
					return oops.In("structure").Code(CodeHostFailed).
						With("area", area).
						With("pos", at.String()).
						Wrap(err)
				}
			}
		}
	}
	return nil
}

func paletteEntry(state game.BlockState) tag.Compound {
	entry := tag.Compound{"Name": tag.String(state.Name)}
	if len(state.States) > 0 {
		states := make(tag.Compound, len(state.States))
		for k, v := range state.States {
			states[k] = tag.String(v)
		}
		entry["States"] = states
	}
	return entry
}

func listOf(elem tag.Type, items []tag.Tag) tag.List {
	if len(items) == 0 {
		return tag.List{Elem: tag.TypeEnd}
	}
	return tag.List{Elem: elem, Items: items}
}
