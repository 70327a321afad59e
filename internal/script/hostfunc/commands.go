// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//nolint:gocritic // captLocal: L is the idiomatic name for lua.LState
package hostfunc

import (
	"context"
	"math"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	"github.com/holomush/stonehook/internal/command"
	"github.com/holomush/stonehook/internal/game"
	"github.com/holomush/stonehook/internal/logging"
	"github.com/holomush/stonehook/internal/tag"
)

// registerCommandFn returns register_command(name, definition):
//
//	server.register_command("home", {
//	  description = "Teleport home",
//	  permission = 0,
//	  overloads = {
//	    { parameters = { { name = "who", type = "player", optional = true } },
//	      handler = function(origin, args) return "ok" end },
//	  },
//	})
//
// A handler returns a string (text), a table (structured fields), or nil
// (no output). Returning nil plus an error string fails the command.
// Failures to register raise.
func (f *Functions) registerCommandFn(script string) lua.LGFunction {
	return func(L *lua.LState) int {
		name := L.CheckString(1)
		tbl := L.CheckTable(2)
		if f.commands == nil {
			L.RaiseError("command registry not configured")
			return 0
		}
		def, err := commandDefinition(L, script, name, tbl)
		if err != nil {
			L.ArgError(2, err.Error())
			return 0
		}
		if err := f.commands.Register(name, def); err != nil {
			L.RaiseError("register_command %s: %s", name, err.Error())
			return 0
		}
		return 0
	}
}

func commandDefinition(L *lua.LState, script, name string, tbl *lua.LTable) (command.Definition, error) {
	def := command.Definition{
		Description: optString(tbl, "description", ""),
		Source:      script,
	}
	if p, ok := tbl.RawGetString("permission").(lua.LNumber); ok {
		f := float64(p)
		if f != math.Trunc(f) {
			return def, oops.In("hostfunc").Errorf("permission must be an integer, got %v", f)
		}
		def.Permission = int(f)
	}
	overloads, ok := tbl.RawGetString("overloads").(*lua.LTable)
	if !ok {
		return def, oops.In("hostfunc").Errorf("overloads must be a table")
	}
	for i := 1; i <= overloads.Len(); i++ {
		ot, ok := overloads.RawGetInt(i).(*lua.LTable)
		if !ok {
			return def, oops.In("hostfunc").Errorf("overload %d must be a table", i)
		}
		fn, ok := ot.RawGetString("handler").(*lua.LFunction)
		if !ok {
			return def, oops.In("hostfunc").Errorf("overload %d needs a handler function", i)
		}
		params, err := commandParameters(ot, i)
		if err != nil {
			return def, err
		}
		def.Overloads = append(def.Overloads, command.Overload{
			Parameters: params,
			Handler:    commandHandler(L, script, name, fn),
		})
	}
	return def, nil
}

func commandParameters(ot *lua.LTable, overload int) ([]command.Parameter, error) {
	pt, ok := ot.RawGetString("parameters").(*lua.LTable)
	if !ok {
		if ot.RawGetString("parameters") != lua.LNil {
			return nil, oops.In("hostfunc").Errorf("overload %d: parameters must be a table", overload)
		}
		return nil, nil
	}
	params := make([]command.Parameter, 0, pt.Len())
	for j := 1; j <= pt.Len(); j++ {
		p, ok := pt.RawGetInt(j).(*lua.LTable)
		if !ok {
			return nil, oops.In("hostfunc").Errorf("overload %d: parameter %d must be a table", overload, j)
		}
		params = append(params, command.Parameter{
			Name:     optString(p, "name", ""),
			Type:     command.ParamType(optString(p, "type", "")),
			Optional: optBool(p, "optional"),
		})
	}
	return params, nil
}

func commandHandler(L *lua.LState, script, name string, fn *lua.LFunction) command.Handler {
	return func(ctx context.Context, origin command.Origin, args command.Args) (command.Result, error) {
		ctx = logging.WithScript(ctx, script)
		ret, err := call(ctx, L, fn, 2, originValue(L, origin), argsValue(L, args))
		if err != nil {
			return nil, oops.In("script").
				Code(command.CodeHandlerFailed).
				With("script", script).
				With("command", name).
				Wrapf(err, "command handler raised")
		}
		if msg, ok := ret[1].(lua.LString); ok && ret[0] == lua.LNil {
			return nil, oops.In("script").
				Code(command.CodeHandlerFailed).
				With("script", script).
				With("command", name).
				Errorf("%s", string(msg))
		}
		return resultOf(ret[0])
	}
}

func originValue(L *lua.LState, o command.Origin) *lua.LTable {
	t := L.CreateTable(0, 5)
	t.RawSetString("name", lua.LString(o.Name))
	t.RawSetString("dimension", lua.LString(o.Dimension))
	t.RawSetString("position", vecValue(L, o.Position))
	t.RawSetString("permission", lua.LNumber(o.Permission))
	if o.Entity != nil && !o.Entity.IsZero() {
		t.RawSetString("entity", entityValue(L, *o.Entity))
	}
	return t
}

// argsValue exposes arguments both by name and by position. A nil
// argument keeps its slot so later positions do not shift.
func argsValue(L *lua.LState, args command.Args) *lua.LTable {
	t := L.CreateTable(args.Len(), args.Len())
	for i, name := range args.Names() {
		v, _ := args.Get(name)
		lv := argValue(L, v)
		t.RawSetString(name, lv)
		t.RawSetInt(i+1, lv)
	}
	return t
}

func argValue(L *lua.LState, v any) lua.LValue {
	switch x := v.(type) {
	case string:
		return lua.LString(x)
	case int32:
		return lua.LNumber(x)
	case float64:
		return lua.LNumber(x)
	case bool:
		return lua.LBool(x)
	case game.Vec3:
		return vecValue(L, x)
	case command.Block:
		t := L.CreateTable(0, 2)
		t.RawSetString("id", lua.LString(x.ID))
		states := L.CreateTable(0, len(x.States))
		for k, s := range x.States {
			states.RawSetString(k, lua.LString(s))
		}
		t.RawSetString("states", states)
		return t
	case []game.EntityRef:
		t := L.CreateTable(len(x), 0)
		for _, ref := range x {
			t.Append(entityValue(L, ref))
		}
		return t
	default:
		return goToLua(L, x)
	}
}

// resultOf converts a handler's return value.
func resultOf(v lua.LValue) (command.Result, error) {
	switch x := v.(type) {
	case *lua.LNilType:
		return command.None{}, nil
	case lua.LString:
		return command.Text(x), nil
	case lua.LNumber, lua.LBool:
		return command.Text(x.String()), nil
	case *lua.LUserData:
		if t, ok := x.Value.(tag.Tag); ok {
			return command.Text(t.String()), nil
		}
	case *lua.LTable:
		fields := make(map[string]any)
		for _, k := range sortedKeys(x) {
			val, err := luaToGo(x.RawGetString(k), 0)
			if err != nil {
				return nil, oops.In("script").Wrapf(err, "result field %s", k)
			}
			fields[k] = val
		}
		return command.Structured{Fields: fields}, nil
	}
	return nil, oops.In("script").Errorf("unsupported command result of type %s", v.Type())
}
