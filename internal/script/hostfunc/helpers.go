// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//nolint:gocritic // captLocal: L is the idiomatic name for lua.LState
package hostfunc

import (
	"context"
	"log/slog"

	lua "github.com/yuin/gopher-lua"
)

// pushError pushes nil followed by an error string and returns 2.
func pushError(L *lua.LState, errMsg string) int {
	L.Push(lua.LNil)
	L.Push(lua.LString(errMsg))
	return 2
}

// pushSuccess pushes a value followed by nil (no error) and returns 2.
func pushSuccess(L *lua.LState, value lua.LValue) int {
	L.Push(value)
	L.Push(lua.LNil)
	return 2
}

// pushUnavailable logs and returns the standard error for a host service
// that is not configured.
func pushUnavailable(L *lua.LState, funcName, script, service string) int {
	slog.ErrorContext(ctxOf(L), funcName+" called but "+service+" unavailable",
		"script", script)
	return pushError(L, service+" not configured - contact server administrator")
}

// ctxOf returns the context bound to L, or context.Background.
func ctxOf(L *lua.LState) context.Context {
	if ctx := L.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// call runs fn in L with ctx bound for the duration of the call and returns
// exactly nret results. Calls may nest; the outer context is restored.
func call(ctx context.Context, L *lua.LState, fn *lua.LFunction, nret int, args ...lua.LValue) ([]lua.LValue, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	prev := L.Context()
	L.SetContext(ctx)
	defer func() {
		if prev != nil {
			L.SetContext(prev)
		} else {
			L.RemoveContext()
		}
	}()

	top := L.GetTop()
	if err := L.CallByParam(lua.P{Fn: fn, NRet: nret, Protect: true}, args...); err != nil {
		L.SetTop(top)
		return nil, err
	}
	out := make([]lua.LValue, nret)
	for i := range out {
		out[i] = L.Get(top + 1 + i)
	}
	L.SetTop(top)
	return out, nil
}

// optString returns the string field key of t, or def.
func optString(t *lua.LTable, key, def string) string {
	if s, ok := t.RawGetString(key).(lua.LString); ok {
		return string(s)
	}
	return def
}

// optBool returns the boolean field key of t, or false.
func optBool(t *lua.LTable, key string) bool {
	return lua.LVAsBool(t.RawGetString(key))
}
