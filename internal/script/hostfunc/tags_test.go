// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package hostfunc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"

	"github.com/holomush/stonehook/internal/script/capability"
	"github.com/holomush/stonehook/internal/script/hostfunc"
)

func TestTagModule(t *testing.T) {
	enforcer := capability.NewEnforcer()
	L := newState(t, enforcer, hostfunc.New(enforcer), "tags")

	tests := []struct {
		name string
		code string
	}{
		{"int value", `assert(tag.int(5):value() == 5)`},
		{"int type", `assert(tag.int(5):type() == "int")`},
		{"long type", `assert(tag.long(2^40):type() == "int64")`},
		{"long minimum", `assert(tag.long(-2^63):type() == "int64")`},
		{"string", `assert(tag.string("hi"):value() == "hi")`},
		{"compound field", `
			local c = tag.compound({name = "x", n = 5})
			assert(c:type() == "compound")
			assert(c.n:value() == 5)
			assert(c:get("name"):value() == "x")
			assert(#c == 2)
			assert(c.missing == nil)
		`},
		{"list index", `
			local l = tag.list({1, 2, 3})
			assert(l:type() == "list")
			assert(#l == 3)
			assert(l[2]:value() == 2)
			assert(l[4] == nil)
		`},
		{"list widening", `assert(tag.list({1, 2.5})[1]:type() == "double")`},
		{"from table", `
			local c = tag.from({pos = {1, 2, 3}, ok = true})
			assert(c.pos:type() == "list")
			assert(c.ok:type() == "byte")
		`},
		{"equality", `
			assert(tag.int(1) == tag.int(1))
			assert(tag.int(1) ~= tag.short(1))
			assert(tag.equal(tag.compound({a = 1}), tag.from({a = 1})))
		`},
		{"encode decode", `
			local c = tag.compound({a = tag.byte_array({1, -2}), b = tag.int_array({7})})
			local bytes, err = tag.encode(c)
			assert(err == nil, err)
			local back, derr = tag.decode(bytes)
			assert(derr == nil, derr)
			assert(back == c)
		`},
		{"decode garbage", `
			local v, err = tag.decode("nope")
			assert(v == nil and err ~= nil)
		`},
		{"plain", `
			local p = tag.compound({a = 1, b = {"x", "y"}}):plain()
			assert(p.a == 1 and p.b[2] == "y")
		`},
		{"is_tag", `assert(tag.is_tag(tag.empty()) and not tag.is_tag({}))`},
		{"keys", `
			local k = tag.compound({b = 1, a = 2}):keys()
			assert(k[1] == "a" and k[2] == "b")
		`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, L.DoString(tt.code))
		})
	}
}

func TestTagModule_Errors(t *testing.T) {
	enforcer := capability.NewEnforcer()
	L := newState(t, enforcer, hostfunc.New(enforcer), "tags")

	for _, code := range []string{
		`tag.byte(300)`,
		`tag.int(1.5)`,
		`tag.long(2^63)`,
		`tag.long(-2^63 - 2^11)`,
		`tag.int_array({2^31})`,
		`tag.list({1, "a"})`,
		`tag.from(function() end)`,
		`tag.compound({[1] = 1, x = 2})`,
	} {
		t.Run(code, func(t *testing.T) {
			assert.Error(t, L.DoString(code))
		})
	}
}

func TestTagIsImmutable(t *testing.T) {
	enforcer := capability.NewEnforcer()
	L := newState(t, enforcer, hostfunc.New(enforcer), "tags")

	require.NoError(t, L.DoString(`
		c = tag.compound({a = 1})
		ok = pcall(function() c.a = 2 end)
	`))
	assert.Equal(t, lua.LFalse, L.GetGlobal("ok"))
}
