// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//nolint:gocritic // captLocal: L is the idiomatic name for lua.LState
package hostfunc

import (
	lua "github.com/yuin/gopher-lua"
)

// sendTextFn returns send_text(entity, text) -> err|nil.
func (f *Functions) sendTextFn(script string) lua.LGFunction {
	return func(L *lua.LState) int {
		text := L.CheckString(2)
		if f.messenger == nil {
			pushUnavailable(L, "send_text", script, "chat")
			return 1
		}
		target, err := toEntity(L.Get(1))
		if err != nil {
			L.Push(lua.LString(err.Error()))
			return 1
		}
		return pushResult(L, f.messenger.SendText(ctxOf(L), target, text))
	}
}

// broadcastTextFn returns broadcast_text(text) -> err|nil.
func (f *Functions) broadcastTextFn(script string) lua.LGFunction {
	return func(L *lua.LState) int {
		text := L.CheckString(1)
		if f.messenger == nil {
			pushUnavailable(L, "broadcast_text", script, "chat")
			return 1
		}
		return pushResult(L, f.messenger.BroadcastText(ctxOf(L), text))
	}
}

// pushResult pushes the message of err, or nil, and returns 1.
func pushResult(L *lua.LState, err error) int {
	if err != nil {
		L.Push(lua.LString(err.Error()))
		return 1
	}
	L.Push(lua.LNil)
	return 1
}
