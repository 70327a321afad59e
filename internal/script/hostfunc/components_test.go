// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package hostfunc_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"

	"github.com/holomush/stonehook/internal/component"
	"github.com/holomush/stonehook/internal/game"
	"github.com/holomush/stonehook/internal/script/capability"
	"github.com/holomush/stonehook/internal/script/hostfunc"
	"github.com/holomush/stonehook/internal/tag"
	"github.com/holomush/stonehook/internal/world"
)

type worldFixture struct {
	L     *lua.LState
	world *world.World
	defs  *component.Registry
	steve world.Entity
}

func newWorldFixture(t *testing.T, grants ...string) *worldFixture {
	t.Helper()
	w := world.New()
	defs := component.DefaultRegistry()
	enforcer := capability.NewEnforcer()
	f := hostfunc.New(enforcer,
		hostfunc.WithComponents(component.NewStore(w, defs), defs),
		hostfunc.WithMessenger(w),
		hostfunc.WithBlockStorage(w),
	)
	steve, err := w.SpawnPlayer("Steve", "", game.Vec3{X: 1, Y: 64, Z: -2})
	require.NoError(t, err)

	L := newState(t, enforcer, f, "mana", grants...)
	L.SetGlobal("steve", lua.LString(steve.ID))
	return &worldFixture{L: L, world: w, defs: defs, steve: steve}
}

func TestScriptComponents(t *testing.T) {
	fx := newWorldFixture(t, capability.ComponentDefine, "component.*")

	require.NoError(t, fx.L.DoString(`
		server.define_component("mana:points", { shape = "int", entity = "rw", item = "r" })

		local p = { kind = "entity", id = steve, player = true }
		before = server.has_component(p, "mana:points")
		ok, err = server.apply_component(p, "mana:points", 7)
		after = server.has_component(p, "mana:points")
		local c = server.get_component(p, "mana:points")
		points = c.data:value()
		id = c.id

		local pos = server.get_component(p, "position")
		px = pos.data.x:value()

		wrong, werr = server.apply_component(p, { id = "mana:points", data = "lots" })
		unknown, uerr = server.apply_component(p, "mana:nothing", 1)
		missing, merr = server.get_component({ id = "ghost" }, "mana:points")
	`))

	L := fx.L
	assert.Equal(t, lua.LFalse, L.GetGlobal("before"))
	assert.Equal(t, lua.LTrue, L.GetGlobal("ok"))
	assert.Equal(t, lua.LNil, L.GetGlobal("err"))
	assert.Equal(t, lua.LTrue, L.GetGlobal("after"))
	assert.Equal(t, lua.LNumber(7), L.GetGlobal("points"))
	assert.Equal(t, lua.LString("mana:points"), L.GetGlobal("id"))
	assert.Equal(t, lua.LNumber(1), L.GetGlobal("px"))
	assert.Equal(t, lua.LFalse, L.GetGlobal("wrong"), "shape mismatch is not applied")
	assert.Equal(t, lua.LNil, L.GetGlobal("werr"))
	assert.Equal(t, lua.LFalse, L.GetGlobal("unknown"))
	assert.NotEqual(t, lua.LNil, L.GetGlobal("uerr"))
	assert.Equal(t, lua.LNil, L.GetGlobal("missing"))
	assert.Equal(t, lua.LNil, L.GetGlobal("merr"))

	def, ok := fx.defs.Lookup(component.MustParseIdentifier("mana:points"))
	require.True(t, ok)
	assert.Equal(t, tag.TypeInt, def.Shape)
	assert.Equal(t, component.AccessReadWrite, def.AccessFor(component.KindEntity))
	assert.Equal(t, component.AccessRead, def.AccessFor(component.KindItem))
	assert.Equal(t, component.AccessNone, def.AccessFor(component.KindBlock))

	c, err := component.NewStore(fx.world, fx.defs).Get(context.Background(),
		component.EntityTarget(fx.steve.Ref()), "mana:points")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.True(t, tag.Equal(tag.Int(7), c.Data))
}

func TestDefineComponentFailuresRaise(t *testing.T) {
	fx := newWorldFixture(t, capability.ComponentDefine)

	for _, code := range []string{
		`server.define_component("Bad Id", { entity = "rw" })`,
		`server.define_component("mana:x", { shape = "blob" })`,
		`server.define_component("mana:x", { entity = "write" })`,
		`server.define_component("position", { entity = "rw" })`,
	} {
		t.Run(code, func(t *testing.T) {
			assert.Error(t, fx.L.DoString(code))
		})
	}

	fx.defs.Seal()
	assert.Error(t, fx.L.DoString(`server.define_component("mana:late", { entity = "rw" })`))
}

func TestComponentReadOnlyGrant(t *testing.T) {
	fx := newWorldFixture(t, capability.ComponentRead)

	require.NoError(t, fx.L.DoString(`has = server.has_component({ id = steve, player = true }, "nameable")`))
	assert.Equal(t, lua.LTrue, fx.L.GetGlobal("has"))

	err := fx.L.DoString(`server.apply_component({ id = steve }, "stone:extra_data", {})`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "capability denied")
}

func TestScriptChat(t *testing.T) {
	fx := newWorldFixture(t, "chat.*")

	require.NoError(t, fx.L.DoString(`
		e1 = server.send_text({ id = steve, player = true }, "psst")
		e2 = server.broadcast_text("hello all")
		e3 = server.send_text({ id = "ghost", player = true }, "boo")
		e4 = server.send_text({ kind = "block", dimension = "overworld", x = 0, y = 0, z = 0 }, "hi")
	`))

	assert.Equal(t, lua.LNil, fx.L.GetGlobal("e1"))
	assert.Equal(t, lua.LNil, fx.L.GetGlobal("e2"))
	assert.NotEqual(t, lua.LNil, fx.L.GetGlobal("e3"))
	assert.NotEqual(t, lua.LNil, fx.L.GetGlobal("e4"))
	assert.Equal(t, []string{"psst", "hello all"}, fx.world.Inbox(fx.steve.ID))
}

func TestScriptStructures(t *testing.T) {
	fx := newWorldFixture(t, "structure.*")
	ctx := context.Background()
	stone := game.BlockState{Name: "minecraft:stone"}
	log := game.BlockState{Name: "minecraft:oak_log", States: map[string]string{"axis": "y"}}
	require.NoError(t, fx.world.SetBlock(ctx, world.DefaultDimension, game.BlockPos{Y: 64}, stone, nil))
	require.NoError(t, fx.world.SetBlock(ctx, world.DefaultDimension, game.BlockPos{X: 1, Y: 64}, log, nil))

	require.NoError(t, fx.L.DoString(`
		s, gerr = server.get_structure("overworld", { x = 0, y = 64, z = 0 }, { x = 2, y = 1, z = 1 })
		serr = server.set_structure("overworld", { x = 10, y = 70, z = 0 }, s)
		_, bad = server.get_structure("overworld", { x = 0, y = 0, z = 0 }, { x = 0, y = 1, z = 1 })
		frac = server.set_structure("overworld", { x = 0.5, y = 0, z = 0 }, s)
	`))

	assert.Equal(t, lua.LNil, fx.L.GetGlobal("gerr"))
	assert.Equal(t, lua.LNil, fx.L.GetGlobal("serr"))
	assert.NotEqual(t, lua.LNil, fx.L.GetGlobal("bad"))
	assert.NotEqual(t, lua.LNil, fx.L.GetGlobal("frac"))

	got, _, err := fx.world.Block(ctx, world.DefaultDimension, game.BlockPos{X: 10, Y: 70})
	require.NoError(t, err)
	assert.True(t, stone.Equal(got))
	got, _, err = fx.world.Block(ctx, world.DefaultDimension, game.BlockPos{X: 11, Y: 70})
	require.NoError(t, err)
	assert.True(t, log.Equal(got))

	assert.Error(t, fx.L.DoString(`server.set_structure("overworld", { x = 0, y = 0, z = 0 }, tag.int(1))`),
		"non-compound structures are argument errors")
}
