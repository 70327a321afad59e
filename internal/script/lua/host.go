// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package lua

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	"github.com/holomush/stonehook/internal/logging"
	"github.com/holomush/stonehook/internal/script"
	"github.com/holomush/stonehook/internal/script/capability"
	"github.com/holomush/stonehook/internal/script/hostfunc"
)

// Compile-time interface check.
var _ script.Host = (*Host)(nil)

// DefaultLoadTimeout bounds how long an entry file may run.
const DefaultLoadTimeout = 5 * time.Second

// loadedScript is a script whose state stays alive so the handlers it
// registered can be called later.
type loadedScript struct {
	manifest *script.Manifest
	state    *lua.LState
}

// Host runs Lua scripts, one persistent state per script.
//
// States are not safe for concurrent use. Callers must serialize every
// entry into script code, including policy and command handlers; the
// engine does this by running them on its tick goroutine.
type Host struct {
	factory     *StateFactory
	enforcer    *capability.Enforcer
	hostFuncs   *hostfunc.Functions
	loadTimeout time.Duration

	mu      sync.RWMutex
	scripts map[string]*loadedScript
	closed  bool
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithStateFactory sets the factory that creates script states.
func WithStateFactory(f *StateFactory) HostOption {
	return func(h *Host) { h.factory = f }
}

// WithLoadTimeout bounds entry file execution. Zero disables the bound.
func WithLoadTimeout(d time.Duration) HostOption {
	return func(h *Host) { h.loadTimeout = d }
}

// NewHost creates a Lua host that grants capabilities through enforcer and
// installs hf into every state.
// Panics if enforcer or hf is nil.
func NewHost(enforcer *capability.Enforcer, hf *hostfunc.Functions, opts ...HostOption) *Host {
	if enforcer == nil {
		panic("lua.NewHost: enforcer cannot be nil")
	}
	if hf == nil {
		panic("lua.NewHost: hostFuncs cannot be nil")
	}
	h := &Host{
		factory:     NewStateFactory(),
		enforcer:    enforcer,
		hostFuncs:   hf,
		loadTimeout: DefaultLoadTimeout,
		scripts:     make(map[string]*loadedScript),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Load grants the manifest's capabilities and runs its entry file in a
// new state. On failure the state is discarded and the grants revoked.
func (h *Host) Load(ctx context.Context, manifest *script.Manifest, dir string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	name := manifest.Name
	errb := oops.In("lua").Code(script.CodeLoadFailed).With("script", name).With("operation", "load")
	if h.closed {
		return errb.Errorf("host is closed")
	}
	if _, ok := h.scripts[name]; ok {
		return oops.In("lua").Code(script.CodeDuplicateScript).With("script", name).Errorf("script %s is already loaded", name)
	}

	entryPath := filepath.Join(dir, manifest.Entry)
	code, err := os.ReadFile(filepath.Clean(entryPath))
	if err != nil {
		return errb.With("path", entryPath).Hint("failed to read entry file").Wrapf(err, "read %s", manifest.Entry)
	}

	L, err := h.factory.NewState(ctx)
	if err != nil {
		return errb.Hint("failed to create state").Wrap(err)
	}
	if err := h.enforcer.SetGrants(name, manifest.Grants()); err != nil {
		L.Close()
		return errb.Errorf("invalid capability grant: %v", err)
	}
	if unknown := manifest.UnknownCapabilities(); len(unknown) > 0 {
		slog.WarnContext(ctx, "script declares unknown capabilities",
			"script", name,
			"capabilities", unknown)
	}
	h.hostFuncs.Register(L, name)

	if err := h.run(logging.WithScript(ctx, name), L, manifest.Entry, string(code)); err != nil {
		L.Close()
		h.enforcer.RemoveGrants(name)
		if rerr := h.hostFuncs.Release(name); rerr != nil {
			slog.WarnContext(ctx, "failed to release script resources",
				"script", name,
				"error", rerr)
		}
		return errb.With("entry", manifest.Entry).Wrap(err)
	}

	h.scripts[name] = &loadedScript{manifest: manifest, state: L}
	slog.DebugContext(ctx, "script state ready",
		"script", name,
		"entry", manifest.Entry)
	return nil
}

func (h *Host) run(ctx context.Context, L *lua.LState, chunk, code string) error {
	if h.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.loadTimeout)
		defer cancel()
	}
	L.SetContext(ctx)
	defer L.RemoveContext()

	fn, err := L.Load(strings.NewReader(code), chunk)
	if err != nil {
		return err
	}
	L.Push(fn)
	return L.PCall(0, lua.MultRet, nil)
}

// Unload closes a script's state and revokes its grants. Handlers it
// registered stay in their registries; registries are sealed once the
// server starts, so scripts are only unloaded at shutdown.
func (h *Host) Unload(ctx context.Context, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.scripts[name]
	if !ok {
		return oops.In("lua").With("script", name).With("operation", "unload").Errorf("script not loaded")
	}
	delete(h.scripts, name)
	return h.release(ctx, name, s)
}

func (h *Host) release(ctx context.Context, name string, s *loadedScript) error {
	h.enforcer.RemoveGrants(name)
	err := h.hostFuncs.Release(name)
	s.state.Close()
	if err != nil {
		slog.WarnContext(ctx, "script resources failed to close",
			"script", name,
			"error", err)
		return oops.In("lua").With("script", name).With("operation", "release").Wrap(err)
	}
	return nil
}

// Scripts returns the names of loaded scripts, sorted.
func (h *Host) Scripts() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.scripts))
	for name := range h.scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close unloads every script. Later loads fail.
func (h *Host) Close(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	var errs []error
	for name, s := range h.scripts {
		if err := h.release(ctx, name, s); err != nil {
			errs = append(errs, err)
		}
	}
	h.scripts = make(map[string]*loadedScript)
	return errors.Join(errs...)
}
