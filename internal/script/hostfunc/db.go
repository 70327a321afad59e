// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//nolint:gocritic // captLocal: L is the idiomatic name for lua.LState
package hostfunc

import (
	"log/slog"
	"math"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	"github.com/holomush/stonehook/internal/store"
)

const dbTypeName = "stonehook.db"

// luaDB is the userdata behind a handle returned by open_db.
type luaDB struct {
	script string
	db     Database
}

func (d *luaDB) Close() error {
	if d.db == nil {
		return nil
	}
	db := d.db
	d.db = nil
	return db.Close()
}

// openDBFn returns open_db(path?) -> (db, err). The path is relative to
// the server data directory; omitting it opens a private in-memory
// database. Handles are closed when the script is unloaded.
func (f *Functions) openDBFn(script string) lua.LGFunction {
	return func(L *lua.LState) int {
		path := L.OptString(1, "")
		if f.openDB == nil {
			return pushUnavailable(L, "open_db", script, "database")
		}
		db, err := f.openDB(ctxOf(L), path)
		if err != nil {
			slog.WarnContext(ctxOf(L), "script database open failed",
				"script", script,
				"path", path,
				"error", err)
			return pushError(L, err.Error())
		}
		h := &luaDB{script: script, db: db}
		f.track(script, h)

		ud := L.NewUserData()
		ud.Value = h
		L.SetMetatable(ud, dbMetatable(L))
		return pushSuccess(L, ud)
	}
}

func dbMetatable(L *lua.LState) lua.LValue {
	if mt := L.GetTypeMetatable(dbTypeName); mt != lua.LNil {
		return mt
	}
	mt := L.NewTypeMetatable(dbTypeName)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"exec":   dbExec,
		"query":  dbQuery,
		"update": dbUpdate,
		"close":  dbClose,
	}))
	return mt
}

func checkDB(L *lua.LState) (*luaDB, bool) {
	ud := L.CheckUserData(1)
	h, ok := ud.Value.(*luaDB)
	if !ok {
		L.ArgError(1, "database expected")
		return nil, false
	}
	if h.db == nil {
		pushError(L, "database is closed")
		return nil, false
	}
	return h, true
}

// db:exec(sql, cb?) -> (changes, err). cb receives each result row of
// every statement as a table of column text.
func dbExec(L *lua.LState) int {
	h, ok := checkDB(L)
	if !ok {
		return 2
	}
	query := L.CheckString(2)
	fn := L.OptFunction(3, nil)

	ctx := ctxOf(L)
	var cbErr error
	var cb func(map[string]string)
	if fn != nil {
		cb = func(row map[string]string) {
			if cbErr != nil {
				return
			}
			t := L.CreateTable(0, len(row))
			for k, v := range row {
				t.RawSetString(k, lua.LString(v))
			}
			_, cbErr = call(ctx, L, fn, 0, t)
		}
	}
	n, err := h.db.Exec(ctx, query, cb)
	if err == nil {
		err = cbErr
	}
	if err != nil {
		return pushError(L, err.Error())
	}
	return pushSuccess(L, lua.LNumber(n))
}

// db:query(sql, params?) -> (rows, err).
func dbQuery(L *lua.LState) int {
	h, ok := checkDB(L)
	if !ok {
		return 2
	}
	query := L.CheckString(2)
	params, err := paramsOf(L.Get(3))
	if err != nil {
		return pushError(L, err.Error())
	}
	rows, err := h.db.Query(ctxOf(L), query, params)
	if err != nil {
		return pushError(L, err.Error())
	}
	out := L.CreateTable(len(rows), 0)
	for _, row := range rows {
		t := L.CreateTable(0, len(row))
		for k, v := range row {
			t.RawSetString(k, goToLua(L, v))
		}
		out.Append(t)
	}
	return pushSuccess(L, out)
}

// db:update(sql, params?) -> (changes, err).
func dbUpdate(L *lua.LState) int {
	h, ok := checkDB(L)
	if !ok {
		return 2
	}
	query := L.CheckString(2)
	params, err := paramsOf(L.Get(3))
	if err != nil {
		return pushError(L, err.Error())
	}
	n, err := h.db.Update(ctxOf(L), query, params)
	if err != nil {
		return pushError(L, err.Error())
	}
	return pushSuccess(L, lua.LNumber(n))
}

// db:close() -> err|nil. Closing twice is a no-op.
func dbClose(L *lua.LState) int {
	ud := L.CheckUserData(1)
	h, ok := ud.Value.(*luaDB)
	if !ok {
		L.ArgError(1, "database expected")
		return 0
	}
	return pushResult(L, h.Close())
}

// paramsOf converts a table of named parameters. Integral numbers bind as
// integers.
func paramsOf(v lua.LValue) (store.Params, error) {
	if v == lua.LNil {
		return nil, nil
	}
	t, ok := v.(*lua.LTable)
	if !ok {
		return nil, oops.In("hostfunc").Errorf("params must be a table, got %s", v.Type())
	}
	params := make(store.Params)
	var err error
	t.ForEach(func(k, v lua.LValue) {
		if err != nil {
			return
		}
		key, ok := k.(lua.LString)
		if !ok {
			err = oops.In("hostfunc").Errorf("parameter names must be strings")
			return
		}
		switch x := v.(type) {
		case lua.LString:
			params[string(key)] = string(x)
		case lua.LBool:
			params[string(key)] = bool(x)
		case lua.LNumber:
			f := float64(x)
			if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
				params[string(key)] = int64(f)
			} else {
				params[string(key)] = f
			}
		default:
			err = oops.In("hostfunc").Errorf("unsupported value of type %s for parameter %q", v.Type(), string(key))
		}
	})
	if err != nil {
		return nil, err
	}
	return params, nil
}
