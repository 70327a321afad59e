// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package world

import (
	"context"

	"github.com/holomush/stonehook/internal/game"
	"github.com/holomush/stonehook/internal/tag"
)

// Block returns the block at pos. Positions never set are air.
func (w *World) Block(_ context.Context, dim string, pos game.BlockPos) (game.BlockState, tag.Compound, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	d, ok := w.dimensions[dim]
	if !ok {
		return game.BlockState{}, nil, errUnknownDimension(dim)
	}
	b, ok := d.blocks[pos]
	if !ok {
		return game.BlockState{Name: game.Air}, nil, nil
	}
	var data tag.Compound
	if b.data != nil {
		data = tag.Clone(b.data).(tag.Compound)
	}
	return b.state, data, nil
}

// SetBlock replaces the block at pos. Setting air clears the position and
// its data.
func (w *World) SetBlock(_ context.Context, dim string, pos game.BlockPos, state game.BlockState, data tag.Compound) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	d, ok := w.dimensions[dim]
	if !ok {
		return errUnknownDimension(dim)
	}
	key := blockKey(game.BlockRef{Dimension: dim, Pos: pos})
	if state.IsAir() {
		delete(d.blocks, pos)
		delete(w.custom, key)
		return nil
	}
	entry := blockEntry{state: cloneState(state)}
	if data != nil {
		entry.data = tag.Clone(data).(tag.Compound)
	}
	d.blocks[pos] = entry
	return nil
}

func cloneState(s game.BlockState) game.BlockState {
	if len(s.States) == 0 {
		return game.BlockState{Name: s.Name}
	}
	states := make(map[string]string, len(s.States))
	for k, v := range s.States {
		states[k] = v
	}
	return game.BlockState{Name: s.Name, States: states}
}
