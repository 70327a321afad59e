// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package hostfunc provides the server.* and tag.* host functions to Lua
// scripts.
//
// Host functions expose server capabilities to scripts in a controlled
// way. Functions that touch host state require a capability granted in the
// script manifest; log, new_request_id, has_policy, and the tag
// constructors are always available.
//
//nolint:gocritic // captLocal: L is the idiomatic name for lua.LState
package hostfunc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"
	lua "github.com/yuin/gopher-lua"

	"github.com/holomush/stonehook/internal/command"
	"github.com/holomush/stonehook/internal/component"
	"github.com/holomush/stonehook/internal/game"
	"github.com/holomush/stonehook/internal/logging"
	"github.com/holomush/stonehook/internal/policy"
	"github.com/holomush/stonehook/internal/script/capability"
	"github.com/holomush/stonehook/internal/store"
	"github.com/holomush/stonehook/internal/structure"
)

// Policies is the policy registry surface offered to scripts.
type Policies interface {
	Register(name string, opts ...policy.Option) error
	Has(name string) bool
	Handle(name string, h policy.Handler, opts ...policy.HandlerOption) error
	Check(ctx context.Context, name string, event policy.Event, def bool) (bool, error)
}

// Commands accepts command registrations.
type Commands interface {
	Register(name string, def command.Definition) error
}

// Components reads and applies components.
type Components interface {
	Has(ctx context.Context, target component.Target, name string) bool
	Get(ctx context.Context, target component.Target, name string) (*component.Component, error)
	Apply(ctx context.Context, target component.Target, c component.Component) (bool, error)
}

// ComponentDefinitions accepts component definitions.
type ComponentDefinitions interface {
	Register(def component.Definition) error
}

// Messenger delivers chat text.
type Messenger interface {
	SendText(ctx context.Context, target game.EntityRef, text string) error
	BroadcastText(ctx context.Context, text string) error
}

// Database is an open SQL store.
type Database interface {
	Exec(ctx context.Context, sql string, cb func(map[string]string)) (int64, error)
	Query(ctx context.Context, sql string, params store.Params) ([]store.Row, error)
	Update(ctx context.Context, sql string, params store.Params) (int64, error)
	Close() error
}

// DatabaseOpener opens a database. An empty path means in-memory.
type DatabaseOpener func(ctx context.Context, path string) (Database, error)

// Functions provides host functions to Lua scripts.
type Functions struct {
	enforcer   *capability.Enforcer
	policies   Policies
	commands   Commands
	components Components
	defs       ComponentDefinitions
	messenger  Messenger
	openDB     DatabaseOpener
	blocks     structure.BlockStorage

	mu        sync.Mutex
	resources map[string][]io.Closer // script name -> resources to close
}

// Option configures Functions.
type Option func(*Functions)

// WithPolicies sets the policy registry.
func WithPolicies(p Policies) Option {
	return func(f *Functions) { f.policies = p }
}

// WithCommands sets the command registry.
func WithCommands(c Commands) Option {
	return func(f *Functions) { f.commands = c }
}

// WithComponents sets the component store and the registry that
// define_component adds to.
func WithComponents(store Components, defs ComponentDefinitions) Option {
	return func(f *Functions) {
		f.components = store
		f.defs = defs
	}
}

// WithMessenger sets the chat sink.
func WithMessenger(m Messenger) Option {
	return func(f *Functions) { f.messenger = m }
}

// WithDatabases sets how open_db opens databases.
func WithDatabases(open DatabaseOpener) Option {
	return func(f *Functions) { f.openDB = open }
}

// WithBlockStorage sets the host blocks used for structure transfer.
func WithBlockStorage(b structure.BlockStorage) Option {
	return func(f *Functions) { f.blocks = b }
}

// New creates host functions checked against enforcer.
// Panics if enforcer is nil.
func New(enforcer *capability.Enforcer, opts ...Option) *Functions {
	if enforcer == nil {
		panic("hostfunc.New: enforcer cannot be nil")
	}
	f := &Functions{
		enforcer:  enforcer,
		resources: make(map[string][]io.Closer),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Register installs the server and tag globals into L for script.
func (f *Functions) Register(L *lua.LState, script string) {
	registerTagType(L)

	mod := L.NewTable()
	L.SetField(mod, "log", L.NewFunction(f.logFn(script)))
	L.SetField(mod, "new_request_id", L.NewFunction(newRequestID))
	L.SetField(mod, "has_policy", L.NewFunction(f.hasPolicyFn()))

	f.set(L, mod, script, "register_policy", capability.PolicyRegister, f.registerPolicyFn(script))
	f.set(L, mod, script, "handle_policy", capability.PolicyHandle, f.handlePolicyFn(script))
	f.set(L, mod, script, "check_policy", capability.PolicyCheck, f.checkPolicyFn(script))
	f.set(L, mod, script, "register_command", capability.CommandRegister, f.registerCommandFn(script))
	f.set(L, mod, script, "define_component", capability.ComponentDefine, f.defineComponentFn(script))
	f.set(L, mod, script, "has_component", capability.ComponentRead, f.hasComponentFn())
	f.set(L, mod, script, "get_component", capability.ComponentRead, f.getComponentFn())
	f.set(L, mod, script, "apply_component", capability.ComponentWrite, f.applyComponentFn(script))
	f.set(L, mod, script, "send_text", capability.ChatSend, f.sendTextFn(script))
	f.set(L, mod, script, "broadcast_text", capability.ChatBroadcast, f.broadcastTextFn(script))
	f.set(L, mod, script, "open_db", capability.DBOpen, f.openDBFn(script))
	f.set(L, mod, script, "get_structure", capability.StructureRead, f.getStructureFn())
	f.set(L, mod, script, "set_structure", capability.StructureWrite, f.setStructureFn(script))

	L.SetGlobal("server", mod)
	L.SetGlobal("tag", tagModule(L))
}

// Release closes everything script opened, such as databases.
func (f *Functions) Release(script string) error {
	f.mu.Lock()
	rs := f.resources[script]
	delete(f.resources, script)
	f.mu.Unlock()

	errs := make([]error, 0, len(rs))
	for _, r := range rs {
		errs = append(errs, r.Close())
	}
	return errors.Join(errs...)
}

func (f *Functions) track(script string, r io.Closer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resources[script] = append(f.resources[script], r)
}

func (f *Functions) set(L *lua.LState, mod *lua.LTable, script, name, capName string, fn lua.LGFunction) {
	L.SetField(mod, name, L.NewFunction(f.wrap(script, capName, fn)))
}

func (f *Functions) wrap(script, capName string, fn lua.LGFunction) lua.LGFunction {
	return func(L *lua.LState) int {
		if !f.enforcer.Check(script, capName) {
			slog.WarnContext(ctxOf(L), "capability denied",
				"script", script,
				"capability", capName)
			L.RaiseError("capability denied: %s requires %s", script, capName)
			return 0
		}
		return fn(L)
	}
}

var scriptLogLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func (f *Functions) logFn(script string) lua.LGFunction {
	return func(L *lua.LState) int {
		level := L.CheckString(1)
		message := L.CheckString(2)

		lvl, ok := scriptLogLevels[level]
		if !ok {
			L.ArgError(1, "invalid log level \""+level+"\": use debug, info, warn, or error")
			return 0
		}
		slog.Log(logging.WithScript(ctxOf(L), script), lvl, message)
		return 0
	}
}

func newRequestID(L *lua.LState) int {
	L.Push(lua.LString(ulid.Make().String()))
	return 1
}
