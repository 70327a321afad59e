// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package structure

import (
	"github.com/samber/oops"

	"github.com/holomush/stonehook/internal/game"
	"github.com/holomush/stonehook/internal/tag"
)

// Placed is one listed block of a structure.
type Placed struct {
	State game.BlockState
	Data  tag.Compound
}

// Structure is the decoded form of a structure tag.
type Structure struct {
	Size   Size
	Blocks map[game.BlockPos]Placed
}

// Parse validates a structure tag and decodes it.
func Parse(s tag.Compound) (*Structure, error) {
	if v, ok := s.GetInt("format_version"); ok && v != FormatVersion {
		return nil, malformed("unsupported format_version %d", v)
	}
	rawSize, ok := s["size"].(tag.IntArray)
	if !ok || len(rawSize) != 3 {
		return nil, malformed("size must be an int array of length 3")
	}
	size := Size{X: rawSize[0], Y: rawSize[1], Z: rawSize[2]}
	if err := size.validate(); err != nil {
		return nil, err
	}

	paletteList, ok := s.GetList("palette")
	if !ok {
		return nil, malformed("palette must be a list")
	}
	palette := make([]game.BlockState, paletteList.Len())
	for i, item := range paletteList.Items {
		entry, ok := item.(tag.Compound)
		if !ok {
			return nil, malformed("palette entry %d is not a compound", i)
		}
		name, ok := entry.GetString("Name")
		if !ok || name == "" {
			return nil, malformed("palette entry %d has no Name", i)
		}
		state := game.BlockState{Name: name}
		if states, ok := entry.GetCompound("States"); ok && len(states) > 0 {
			state.States = make(map[string]string, len(states))
			for k, v := range states {
				str, ok := v.(tag.String)
				if !ok {
					return nil, malformed("palette entry %d state %q is not a string", i, k)
				}
				state.States[k] = string(str)
			}
		}
		palette[i] = state
	}

	blockList, ok := s.GetList("blocks")
	if !ok {
		return nil, malformed("blocks must be a list")
	}
	out := &Structure{Size: size, Blocks: make(map[game.BlockPos]Placed, blockList.Len())}
	for i, item := range blockList.Items {
		entry, ok := item.(tag.Compound)
		if !ok {
			return nil, malformed("block %d is not a compound", i)
		}
		p, ok := entry["pos"].(tag.IntArray)
		if !ok || len(p) != 3 {
			return nil, malformed("block %d pos must be an int array of length 3", i)
		}
		rel := game.BlockPos{X: p[0], Y: p[1], Z: p[2]}
		if rel.X < 0 || rel.Y < 0 || rel.Z < 0 || rel.X >= size.X || rel.Y >= size.Y || rel.Z >= size.Z {
			return nil, malformed("block %d at %s lies outside the structure", i, rel)
		}
		if _, dup := out.Blocks[rel]; dup {
			return nil, malformed("block %d repeats position %s", i, rel)
		}
		idx, ok := entry.GetInt("state")
		if !ok || idx < 0 || idx >= int64(len(palette)) {
			return nil, malformed("block %d has an invalid palette index", i)
		}
		placed := Placed{State: palette[idx]}
		if nbt, ok := entry["nbt"]; ok {
			c, ok := nbt.(tag.Compound)
			if !ok {
				return nil, malformed("block %d nbt is not a compound", i)
			}
			placed.Data = tag.Clone(c).(tag.Compound)
		}
		out.Blocks[rel] = placed
	}
	return out, nil
}

func malformed(format string, args ...any) error {
	return oops.In("structure").Code(CodeMalformed).Errorf(format, args...)
}
