// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//nolint:gocritic // captLocal: L is the idiomatic name for lua.LState
package hostfunc

import (
	"log/slog"

	lua "github.com/yuin/gopher-lua"

	"github.com/holomush/stonehook/internal/structure"
	"github.com/holomush/stonehook/internal/tag"
)

// getStructureFn returns get_structure(dimension, pos, size) -> (tag, err).
func (f *Functions) getStructureFn() lua.LGFunction {
	return func(L *lua.LState) int {
		area := L.CheckString(1)
		if f.blocks == nil {
			return pushError(L, "block storage not configured")
		}
		pos, err := toBlockPos(L.Get(2))
		if err != nil {
			return pushError(L, err.Error())
		}
		extent, err := toBlockPos(L.Get(3))
		if err != nil {
			return pushError(L, "size: "+err.Error())
		}
		s, err := structure.Get(ctxOf(L), f.blocks, area, pos,
			structure.Size{X: extent.X, Y: extent.Y, Z: extent.Z})
		if err != nil {
			return pushError(L, err.Error())
		}
		return pushSuccess(L, newTag(L, s))
	}
}

// setStructureFn returns set_structure(dimension, pos, structure) -> err|nil.
func (f *Functions) setStructureFn(script string) lua.LGFunction {
	return func(L *lua.LState) int {
		area := L.CheckString(1)
		if f.blocks == nil {
			pushUnavailable(L, "set_structure", script, "block storage")
			return 1
		}
		pos, err := toBlockPos(L.Get(2))
		if err != nil {
			return pushResult(L, err)
		}
		s, ok := checkTag(L, 3).(tag.Compound)
		if !ok {
			L.ArgError(3, "structure must be a compound tag")
			return 0
		}
		if err := structure.Set(ctxOf(L), f.blocks, area, pos, s); err != nil {
			slog.WarnContext(ctxOf(L), "script structure placement failed",
				"script", script,
				"dimension", area,
				"pos", pos.String(),
				"error", err)
			return pushResult(L, err)
		}
		return pushResult(L, nil)
	}
}
