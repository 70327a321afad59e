// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//nolint:gocritic // captLocal: L is the idiomatic name for lua.LState
package hostfunc

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	"github.com/holomush/stonehook/internal/tag"
)

// tagTypeName names the metatable of tag userdata.
const tagTypeName = "stonehook.tag"

// maxConvertDepth bounds Lua table nesting during conversion.
const maxConvertDepth = tag.MaxDepth

var tagMethods = map[string]lua.LGFunction{
	"type":  tagTypeFn,
	"value": tagValueFn,
	"get":   tagGetFn,
	"keys":  tagKeysFn,
	"plain": tagPlainFn,
}

// registerTagType installs the tag metatable. Tags are immutable: methods
// read, never write.
func registerTagType(L *lua.LState) {
	mt := L.NewTypeMetatable(tagTypeName)
	methods := L.SetFuncs(L.NewTable(), tagMethods)
	L.SetField(mt, "__index", L.NewFunction(func(L *lua.LState) int {
		t := checkTag(L, 1)
		switch key := L.Get(2).(type) {
		case lua.LString:
			if m := methods.RawGetString(string(key)); m != lua.LNil {
				L.Push(m)
				return 1
			}
			if c, ok := t.(tag.Compound); ok {
				if v, ok := c[string(key)]; ok {
					L.Push(newTag(L, v))
					return 1
				}
			}
		case lua.LNumber:
			if l, ok := t.(tag.List); ok {
				if i := int(key); float64(i) == float64(key) && i >= 1 && i <= len(l.Items) {
					L.Push(newTag(L, l.Items[i-1]))
					return 1
				}
			}
		}
		L.Push(lua.LNil)
		return 1
	}))
	L.SetField(mt, "__tostring", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(checkTag(L, 1).String()))
		return 1
	}))
	L.SetField(mt, "__len", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(tagLen(checkTag(L, 1))))
		return 1
	}))
	L.SetField(mt, "__eq", L.NewFunction(func(L *lua.LState) int {
		a, aok := asTag(L.Get(1))
		b, bok := asTag(L.Get(2))
		L.Push(lua.LBool(aok && bok && tag.Equal(a, b)))
		return 1
	}))
}

// newTag wraps t as tag userdata.
func newTag(L *lua.LState, t tag.Tag) lua.LValue {
	if t == nil {
		return lua.LNil
	}
	ud := L.NewUserData()
	ud.Value = t
	L.SetMetatable(ud, L.GetTypeMetatable(tagTypeName))
	return ud
}

func asTag(v lua.LValue) (tag.Tag, bool) {
	ud, ok := v.(*lua.LUserData)
	if !ok {
		return nil, false
	}
	t, ok := ud.Value.(tag.Tag)
	return t, ok
}

func checkTag(L *lua.LState, n int) tag.Tag {
	t, ok := asTag(L.Get(n))
	if !ok {
		L.ArgError(n, "tag expected")
	}
	return t
}

func tagLen(t tag.Tag) int {
	switch v := t.(type) {
	case tag.List:
		return len(v.Items)
	case tag.Compound:
		return len(v)
	case tag.ByteArray:
		return len(v)
	case tag.IntArray:
		return len(v)
	case tag.String:
		return len(v)
	}
	return 0
}

func tagTypeFn(L *lua.LState) int {
	L.Push(lua.LString(checkTag(L, 1).Type().String()))
	return 1
}

// tagValueFn returns the tag's value one level deep: numbers and strings
// directly, arrays as number tables, and lists and compounds as tables of
// tags.
func tagValueFn(L *lua.LState) int {
	switch v := checkTag(L, 1).(type) {
	case tag.Byte:
		L.Push(lua.LNumber(v))
	case tag.Short:
		L.Push(lua.LNumber(v))
	case tag.Int:
		L.Push(lua.LNumber(v))
	case tag.Int64:
		L.Push(lua.LNumber(v))
	case tag.Float:
		L.Push(lua.LNumber(v))
	case tag.Double:
		L.Push(lua.LNumber(v))
	case tag.String:
		L.Push(lua.LString(v))
	case tag.ByteArray:
		t := L.CreateTable(len(v), 0)
		for _, b := range v {
			t.Append(lua.LNumber(b))
		}
		L.Push(t)
	case tag.IntArray:
		t := L.CreateTable(len(v), 0)
		for _, n := range v {
			t.Append(lua.LNumber(n))
		}
		L.Push(t)
	case tag.List:
		t := L.CreateTable(len(v.Items), 0)
		for _, item := range v.Items {
			t.Append(newTag(L, item))
		}
		L.Push(t)
	case tag.Compound:
		t := L.CreateTable(0, len(v))
		for k, item := range v {
			t.RawSetString(k, newTag(L, item))
		}
		L.Push(t)
	default:
		L.Push(lua.LNil)
	}
	return 1
}

func tagGetFn(L *lua.LState) int {
	c, ok := checkTag(L, 1).(tag.Compound)
	key := L.CheckString(2)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(newTag(L, c[key]))
	return 1
}

func tagKeysFn(L *lua.LState) int {
	out := L.NewTable()
	if c, ok := checkTag(L, 1).(tag.Compound); ok {
		for _, k := range c.Keys() {
			out.Append(lua.LString(k))
		}
	}
	L.Push(out)
	return 1
}

func tagPlainFn(L *lua.LState) int {
	L.Push(goToLua(L, tag.ToJSON(checkTag(L, 1))))
	return 1
}

// goToLua converts JSON-compatible Go values into Lua values.
func goToLua(L *lua.LState, v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(x)
	case string:
		return lua.LString(x)
	case int:
		return lua.LNumber(x)
	case int32:
		return lua.LNumber(x)
	case int64:
		return lua.LNumber(x)
	case float64:
		return lua.LNumber(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return lua.LString(x.String())
		}
		return lua.LNumber(f)
	case []any:
		t := L.CreateTable(len(x), 0)
		for _, e := range x {
			t.Append(goToLua(L, e))
		}
		return t
	case map[string]any:
		t := L.CreateTable(0, len(x))
		for k, e := range x {
			t.RawSetString(k, goToLua(L, e))
		}
		return t
	case tag.Tag:
		return newTag(L, x)
	default:
		return lua.LString(fmt.Sprint(x))
	}
}

// luaToGo converts a Lua value into JSON-compatible Go values. Integral
// numbers become int64.
func luaToGo(v lua.LValue, depth int) (any, error) {
	if depth > maxConvertDepth {
		return nil, oops.In("hostfunc").Errorf("table nesting exceeds %d", maxConvertDepth)
	}
	switch x := v.(type) {
	case *lua.LNilType:
		return nil, nil
	case lua.LBool:
		return bool(x), nil
	case lua.LNumber:
		f := float64(x)
		if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
			return int64(f), nil
		}
		return f, nil
	case lua.LString:
		return string(x), nil
	case *lua.LUserData:
		if t, ok := x.Value.(tag.Tag); ok {
			return tag.ToJSON(t), nil
		}
	case *lua.LTable:
		if n := x.Len(); n > 0 && isArray(x, n) {
			out := make([]any, n)
			for i := 1; i <= n; i++ {
				e, err := luaToGo(x.RawGetInt(i), depth+1)
				if err != nil {
					return nil, err
				}
				out[i-1] = e
			}
			return out, nil
		}
		out := make(map[string]any)
		var err error
		x.ForEach(func(k, e lua.LValue) {
			if err != nil {
				return
			}
			key, ok := k.(lua.LString)
			if !ok {
				err = oops.In("hostfunc").Errorf("table key %s is not a string", k.String())
				return
			}
			out[string(key)], err = luaToGo(e, depth+1)
		})
		return out, err
	}
	return nil, oops.In("hostfunc").Errorf("cannot convert %s", v.Type())
}

// toTag converts a Lua value into a tag. Tag userdata passes through;
// booleans become Byte 0/1; integral numbers become Int or Int64, other
// numbers Double; sequences become lists and other tables compounds.
func toTag(v lua.LValue) (tag.Tag, error) {
	return toTagDepth(v, 0)
}

func toTagDepth(v lua.LValue, depth int) (tag.Tag, error) {
	if depth > maxConvertDepth {
		return nil, oops.In("hostfunc").Errorf("table nesting exceeds %d", maxConvertDepth)
	}
	switch x := v.(type) {
	case *lua.LUserData:
		if t, ok := x.Value.(tag.Tag); ok {
			return t, nil
		}
	case lua.LBool:
		if x {
			return tag.Byte(1), nil
		}
		return tag.Byte(0), nil
	case lua.LNumber:
		return numberTag(float64(x)), nil
	case lua.LString:
		return tag.String(x), nil
	case *lua.LTable:
		if n := x.Len(); n > 0 && isArray(x, n) {
			items := make([]tag.Tag, n)
			for i := 1; i <= n; i++ {
				item, err := toTagDepth(x.RawGetInt(i), depth+1)
				if err != nil {
					return nil, err
				}
				items[i-1] = item
			}
			return tag.NewList(items...)
		}
		out := make(tag.Compound)
		var err error
		x.ForEach(func(k, e lua.LValue) {
			if err != nil {
				return
			}
			key, ok := k.(lua.LString)
			if !ok {
				err = oops.In("hostfunc").Errorf("compound key %s is not a string", k.String())
				return
			}
			var t tag.Tag
			if t, err = toTagDepth(e, depth+1); err == nil {
				out[string(key)] = t
			}
		})
		return out, err
	}
	return nil, oops.In("hostfunc").Errorf("cannot convert %s to a tag", v.Type())
}

func numberTag(f float64) tag.Tag {
	if f == math.Trunc(f) {
		switch {
		case f >= math.MinInt32 && f <= math.MaxInt32:
			return tag.Int(int32(f))
		case f >= math.MinInt64 && f < math.MaxInt64:
			return tag.Int64(int64(f))
		}
	}
	return tag.Double(f)
}

// isArray reports whether t holds exactly the keys 1..n.
func isArray(t *lua.LTable, n int) bool {
	count := 0
	t.ForEach(func(lua.LValue, lua.LValue) { count++ })
	return count == n
}

// tagModule builds the tag.* constructors.
func tagModule(L *lua.LState) *lua.LTable {
	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"byte": func(L *lua.LState) int {
			L.Push(newTag(L, tag.Byte(checkInteger(L, 1, math.MinInt8, math.MaxInt8))))
			return 1
		},
		"short": func(L *lua.LState) int {
			L.Push(newTag(L, tag.Short(checkInteger(L, 1, math.MinInt16, math.MaxInt16))))
			return 1
		},
		"int": func(L *lua.LState) int {
			L.Push(newTag(L, tag.Int(checkInteger(L, 1, math.MinInt32, math.MaxInt32))))
			return 1
		},
		"long": func(L *lua.LState) int {
			L.Push(newTag(L, tag.Int64(checkInteger(L, 1, math.MinInt64, math.MaxInt64))))
			return 1
		},
		"float": func(L *lua.LState) int {
			L.Push(newTag(L, tag.Float(float32(L.OptNumber(1, 0)))))
			return 1
		},
		"double": func(L *lua.LState) int {
			L.Push(newTag(L, tag.Double(float64(L.OptNumber(1, 0)))))
			return 1
		},
		"string": func(L *lua.LState) int {
			L.Push(newTag(L, tag.String(L.OptString(1, ""))))
			return 1
		},
		"byte_array": func(L *lua.LState) int {
			nums := checkIntegers(L, 1, math.MinInt8, math.MaxInt8)
			out := make(tag.ByteArray, len(nums))
			for i, n := range nums {
				out[i] = int8(n)
			}
			L.Push(newTag(L, out))
			return 1
		},
		"int_array": func(L *lua.LState) int {
			nums := checkIntegers(L, 1, math.MinInt32, math.MaxInt32)
			out := make(tag.IntArray, len(nums))
			for i, n := range nums {
				out[i] = int32(n)
			}
			L.Push(newTag(L, out))
			return 1
		},
		"list": func(L *lua.LState) int {
			items := L.OptTable(1, L.NewTable())
			var tags []tag.Tag
			for i := 1; i <= items.Len(); i++ {
				t, err := toTag(items.RawGetInt(i))
				if err != nil {
					L.ArgError(1, err.Error())
				}
				tags = append(tags, t)
			}
			l, err := tag.NewList(tags...)
			if err != nil {
				L.ArgError(1, err.Error())
			}
			L.Push(newTag(L, l))
			return 1
		},
		"compound": func(L *lua.LState) int {
			fields := L.OptTable(1, L.NewTable())
			out := make(tag.Compound)
			var err error
			fields.ForEach(func(k, v lua.LValue) {
				if err != nil {
					return
				}
				key, ok := k.(lua.LString)
				if !ok {
					err = fmt.Errorf("compound key %s is not a string", k.String())
					return
				}
				var t tag.Tag
				if t, err = toTag(v); err == nil {
					out[string(key)] = t
				}
			})
			if err != nil {
				L.ArgError(1, err.Error())
			}
			L.Push(newTag(L, out))
			return 1
		},
		"empty": func(L *lua.LState) int {
			L.Push(newTag(L, tag.End{}))
			return 1
		},
		"from": func(L *lua.LState) int {
			t, err := toTag(L.CheckAny(1))
			if err != nil {
				L.ArgError(1, err.Error())
			}
			L.Push(newTag(L, t))
			return 1
		},
		"is_tag": func(L *lua.LState) int {
			_, ok := asTag(L.Get(1))
			L.Push(lua.LBool(ok))
			return 1
		},
		"equal": func(L *lua.LState) int {
			L.Push(lua.LBool(tag.Equal(checkTag(L, 1), checkTag(L, 2))))
			return 1
		},
		"encode": func(L *lua.LState) int {
			b, err := tag.Encode(checkTag(L, 1))
			if err != nil {
				return pushError(L, err.Error())
			}
			return pushSuccess(L, lua.LString(b))
		},
		"decode": func(L *lua.LState) int {
			t, err := tag.Decode([]byte(L.CheckString(1)))
			if err != nil {
				return pushError(L, err.Error())
			}
			return pushSuccess(L, newTag(L, t))
		},
	})
}

// integerIn reports whether f is an integer in [lo, hi]. The upper test
// is f < hi+1 because math.MaxInt64 rounds up to 2^63 as a float64.
func integerIn(f, lo, hi float64) bool {
	return f == math.Trunc(f) && f >= lo && f < hi+1
}

func checkInteger(L *lua.LState, n int, lo, hi float64) int64 {
	f := float64(L.OptNumber(n, 0))
	if !integerIn(f, lo, hi) {
		L.ArgError(n, fmt.Sprintf("integer in [%.0f, %.0f] expected, got %v", lo, hi, f))
	}
	return int64(f)
}

func checkIntegers(L *lua.LState, n int, lo, hi float64) []int64 {
	t := L.OptTable(n, L.NewTable())
	out := make([]int64, 0, t.Len())
	for i := 1; i <= t.Len(); i++ {
		num, ok := t.RawGetInt(i).(lua.LNumber)
		f := float64(num)
		if !ok || !integerIn(f, lo, hi) {
			L.ArgError(n, fmt.Sprintf("element %d must be an integer in [%.0f, %.0f]", i, lo, hi))
		}
		out = append(out, int64(f))
	}
	return out
}

// sortedKeys returns the string keys of t in order.
func sortedKeys(t *lua.LTable) []string {
	var keys []string
	t.ForEach(func(k, _ lua.LValue) {
		if s, ok := k.(lua.LString); ok {
			keys = append(keys, string(s))
		}
	})
	sort.Strings(keys)
	return keys
}
