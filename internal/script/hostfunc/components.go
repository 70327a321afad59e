// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//nolint:gocritic // captLocal: L is the idiomatic name for lua.LState
package hostfunc

import (
	"log/slog"

	lua "github.com/yuin/gopher-lua"

	"github.com/holomush/stonehook/internal/component"
	"github.com/holomush/stonehook/internal/tag"
)

// hasComponentFn returns has_component(target, name) -> bool. Malformed
// targets and names report false.
func (f *Functions) hasComponentFn() lua.LGFunction {
	return func(L *lua.LState) int {
		name := L.CheckString(2)
		target, err := toTarget(L.Get(1))
		if err != nil || f.components == nil {
			L.Push(lua.LFalse)
			return 1
		}
		L.Push(lua.LBool(f.components.Has(ctxOf(L), target, name)))
		return 1
	}
}

// getComponentFn returns get_component(target, name) -> ({id=, data=}|nil, err).
func (f *Functions) getComponentFn() lua.LGFunction {
	return func(L *lua.LState) int {
		name := L.CheckString(2)
		target, err := toTarget(L.Get(1))
		if err != nil {
			return pushError(L, err.Error())
		}
		if f.components == nil {
			return pushError(L, "component store not configured")
		}
		c, err := f.components.Get(ctxOf(L), target, name)
		if err != nil {
			return pushError(L, err.Error())
		}
		if c == nil {
			return pushSuccess(L, lua.LNil)
		}
		return pushSuccess(L, componentValue(L, c))
	}
}

// applyComponentFn returns apply_component(target, name, data) or
// apply_component(target, {id=, data=}) -> (applied, err).
func (f *Functions) applyComponentFn(script string) lua.LGFunction {
	return func(L *lua.LState) int {
		target, err := toTarget(L.Get(1))
		if err != nil {
			return pushError(L, err.Error())
		}
		if f.components == nil {
			return pushUnavailable(L, "apply_component", script, "component store")
		}

		var name string
		var data lua.LValue
		switch v := L.Get(2).(type) {
		case lua.LString:
			name, data = string(v), L.Get(3)
		case *lua.LTable:
			name, data = optString(v, "id", ""), v.RawGetString("data")
		default:
			L.ArgError(2, "component name or table expected")
			return 0
		}
		id, err := component.ParseIdentifier(name)
		if err != nil {
			return pushError(L, err.Error())
		}
		payload, err := toTag(data)
		if err != nil {
			return pushError(L, err.Error())
		}

		ok, err := f.components.Apply(ctxOf(L), target, component.Component{ID: id, Data: payload})
		if err != nil {
			slog.WarnContext(ctxOf(L), "script component write failed",
				"script", script,
				"component", id.String(),
				"target", target.String(),
				"error", err)
			L.Push(lua.LFalse)
			L.Push(lua.LString(err.Error()))
			return 2
		}
		return pushSuccess(L, lua.LBool(ok))
	}
}

// defineComponentFn returns define_component(id, spec):
//
//	server.define_component("myscript:mana", {
//	  shape = "int", entity = "rw", block = "r", item = nil,
//	})
//
// Access values are "r" or "rw"; omitted kinds do not support the
// component. Failures raise.
func (f *Functions) defineComponentFn(script string) lua.LGFunction {
	return func(L *lua.LState) int {
		name := L.CheckString(1)
		spec := L.CheckTable(2)
		if f.defs == nil {
			L.RaiseError("component registry not configured")
			return 0
		}
		id, err := component.ParseIdentifier(name)
		if err != nil {
			L.ArgError(1, err.Error())
			return 0
		}
		shape, ok := tag.ParseType(optString(spec, "shape", "compound"))
		if !ok {
			L.ArgError(2, "unknown shape "+optString(spec, "shape", ""))
			return 0
		}
		access := make(map[component.Kind]component.Access)
		for kind, key := range map[component.Kind]string{
			component.KindEntity: "entity",
			component.KindBlock:  "block",
			component.KindItem:   "item",
		} {
			switch optString(spec, key, "") {
			case "":
			case "r":
				access[kind] = component.AccessRead
			case "rw":
				access[kind] = component.AccessReadWrite
			default:
				L.ArgError(2, key+" access must be \"r\" or \"rw\"")
				return 0
			}
		}
		if err := f.defs.Register(component.Definition{ID: id, Shape: shape, Access: access}); err != nil {
			L.RaiseError("define_component %s: %s", name, err.Error())
			return 0
		}
		slog.DebugContext(ctxOf(L), "script defined component",
			"script", script,
			"component", id.String())
		return 0
	}
}

func componentValue(L *lua.LState, c *component.Component) *lua.LTable {
	t := L.CreateTable(0, 2)
	t.RawSetString("id", lua.LString(c.ID.String()))
	t.RawSetString("data", newTag(L, c.Data))
	return t
}
