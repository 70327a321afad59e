// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package lua runs scripts in sandboxed gopher-lua states.
package lua

import (
	"context"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"
)

type safeLibrary struct {
	name string
	fn   lua.LGFunction
}

// defaultSafeLibraries returns the libraries loaded into every state.
// Safe: base, table, string, math.
// Blocked: os, io, debug, package, coroutine, channel.
func defaultSafeLibraries() []safeLibrary {
	return []safeLibrary{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	}
}

// unsafeBaseFunctions are base library functions that reach the
// filesystem or compile code at runtime.
var unsafeBaseFunctions = []string{"dofile", "loadfile", "loadstring", "load", "require", "module"}

// Limits bounds the resources of one state.
type Limits struct {
	CallStackSize   int
	RegistrySize    int
	RegistryMaxSize int
}

// DefaultLimits are the limits used by NewStateFactory.
var DefaultLimits = Limits{
	CallStackSize:   200,
	RegistrySize:    1024,
	RegistryMaxSize: 256 * 1024,
}

// StateFactory creates sandboxed Lua states with only safe libraries.
type StateFactory struct {
	libraries []safeLibrary
	limits    Limits
}

// NewStateFactory creates a state factory with DefaultLimits.
func NewStateFactory() *StateFactory {
	return &StateFactory{
		libraries: defaultSafeLibraries(),
		limits:    DefaultLimits,
	}
}

// WithLimits returns a copy of f that creates states with limits.
func (f *StateFactory) WithLimits(limits Limits) *StateFactory {
	c := *f
	c.limits = limits
	return &c
}

// NewState creates a fresh Lua state with only safe libraries loaded.
// Callers bind a context per call with SetContext.
func (f *StateFactory) NewState(_ context.Context) (*lua.LState, error) {
	L := lua.NewState(lua.Options{
		SkipOpenLibs:        true,
		CallStackSize:       f.limits.CallStackSize,
		RegistrySize:        f.limits.RegistrySize,
		RegistryMaxSize:     f.limits.RegistryMaxSize,
		IncludeGoStackTrace: false,
	})

	for _, lib := range f.libraries {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, oops.In("lua").With("library", lib.name).Wrapf(err, "open library")
		}
	}

	for _, fn := range unsafeBaseFunctions {
		L.SetGlobal(fn, lua.LNil)
	}

	return L, nil
}
