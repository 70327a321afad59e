// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package script

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/samber/oops"
)

// Manager discovers scripts and loads them in dependency order.
type Manager struct {
	scriptsDir string
	host       Host
	loaded     map[string]*DiscoveredScript
	order      []string
	mu         sync.RWMutex
}

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithHost sets the host scripts are loaded into.
func WithHost(h Host) ManagerOption {
	return func(m *Manager) {
		m.host = h
	}
}

// NewManager creates a script manager over scriptsDir.
func NewManager(scriptsDir string, opts ...ManagerOption) *Manager {
	m := &Manager{
		scriptsDir: scriptsDir,
		loaded:     make(map[string]*DiscoveredScript),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// DiscoveredScript contains a manifest and its directory.
type DiscoveredScript struct {
	Manifest *Manifest
	Dir      string
}

// Discover finds every script directory holding a valid manifest.
// Directories without a manifest or with an invalid one are logged and
// skipped. Two scripts with the same name are an error.
func (m *Manager) Discover(ctx context.Context) ([]*DiscoveredScript, error) {
	entries, err := os.ReadDir(m.scriptsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, oops.In("script").Code(CodeDiscoveryFailed).With("dir", m.scriptsDir).Wrapf(err, "read scripts directory")
	}

	var scripts []*DiscoveredScript
	seen := make(map[string]string)
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		dir := filepath.Join(m.scriptsDir, entry.Name())
		data, err := os.ReadFile(filepath.Join(dir, ManifestFile)) //nolint:gosec // path is built from ReadDir entries
		if err != nil {
			slog.WarnContext(ctx, "skipping script without manifest",
				"dir", entry.Name(),
				"error", err)
			continue
		}

		if err := ValidateSchema(data); err != nil {
			slog.WarnContext(ctx, "skipping script with invalid manifest",
				"dir", entry.Name(),
				"error", FormatSchemaError(err))
			continue
		}
		manifest, err := ParseManifest(data)
		if err != nil {
			slog.WarnContext(ctx, "skipping script with invalid manifest",
				"dir", entry.Name(),
				"error", err)
			continue
		}

		if prev, dup := seen[manifest.Name]; dup {
			return nil, oops.In("script").
				Code(CodeDuplicateScript).
				With("script", manifest.Name).
				With("dirs", []string{prev, entry.Name()}).
				Errorf("script %s is defined in both %s and %s", manifest.Name, prev, entry.Name())
		}
		seen[manifest.Name] = entry.Name()

		scripts = append(scripts, &DiscoveredScript{
			Manifest: manifest,
			Dir:      dir,
		})
	}

	return scripts, nil
}

// Plan discovers scripts, checks their API constraints, and returns them
// in load order.
func (m *Manager) Plan(ctx context.Context) ([]*DiscoveredScript, error) {
	discovered, err := m.Discover(ctx)
	if err != nil {
		return nil, err
	}
	for _, ds := range discovered {
		if err := ds.Manifest.CheckAPI(); err != nil {
			return nil, err
		}
	}
	return Resolve(discovered)
}

// LoadAll loads every discovered script in dependency order. The first
// failure stops loading and is returned: a server must not start with a
// partial set of policies and commands.
func (m *Manager) LoadAll(ctx context.Context) error {
	if m.host == nil {
		return oops.In("script").Code(CodeLoadFailed).Errorf("no script host configured")
	}
	ordered, err := m.Plan(ctx)
	if err != nil {
		return err
	}

	for _, ds := range ordered {
		if err := m.host.Load(ctx, ds.Manifest, ds.Dir); err != nil {
			return oops.In("script").
				With("script", ds.Manifest.Name).
				With("dir", ds.Dir).
				Wrapf(err, "load script %s", ds.Manifest.Name)
		}

		m.mu.Lock()
		m.loaded[ds.Manifest.Name] = ds
		m.order = append(m.order, ds.Manifest.Name)
		m.mu.Unlock()

		slog.InfoContext(ctx, "loaded script",
			"script", ds.Manifest.Name,
			"version", ds.Manifest.Version,
			"capabilities", len(ds.Manifest.Capabilities))
	}
	return nil
}

// Resolve orders scripts so that each comes after the scripts it
// requires. Ties are broken by name. A missing requirement, an
// unsatisfied version constraint, or a cycle is a dependency error.
func Resolve(scripts []*DiscoveredScript) ([]*DiscoveredScript, error) {
	byName := make(map[string]*DiscoveredScript, len(scripts))
	for _, ds := range scripts {
		byName[ds.Manifest.Name] = ds
	}

	dependents := make(map[string][]string)
	pending := make(map[string]int, len(scripts))
	for _, ds := range scripts {
		name := ds.Manifest.Name
		pending[name] = 0
		for _, dep := range ds.Manifest.requiredNames() {
			target, ok := byName[dep]
			if !ok {
				return nil, oops.In("script").
					Code(CodeDependency).
					With("script", name).
					With("requires", dep).
					Errorf("script %s requires %s, which is not installed", name, dep)
			}
			constraint := ds.Manifest.Requires[dep]
			ok, err := target.Manifest.Satisfies(constraint)
			if err != nil || !ok {
				return nil, oops.In("script").
					Code(CodeDependency).
					With("script", name).
					With("requires", dep).
					With("constraint", constraint).
					With("found", target.Manifest.Version).
					Errorf("script %s requires %s %s, found %s", name, dep, constraint, target.Manifest.Version)
			}
			dependents[dep] = append(dependents[dep], name)
			pending[name]++
		}
	}

	var ready []string
	for name, n := range pending {
		if n == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	ordered := make([]*DiscoveredScript, 0, len(scripts))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		ordered = append(ordered, byName[name])
		for _, d := range dependents[name] {
			pending[d]--
			if pending[d] == 0 {
				ready = append(ready, d)
				sort.Strings(ready)
			}
		}
	}

	if len(ordered) != len(scripts) {
		var cycle []string
		for name, n := range pending {
			if n > 0 {
				cycle = append(cycle, name)
			}
		}
		sort.Strings(cycle)
		return nil, oops.In("script").
			Code(CodeDependency).
			With("scripts", cycle).
			Errorf("dependency cycle among scripts: %s", strings.Join(cycle, ", "))
	}
	return ordered, nil
}

// ListScripts returns the names of loaded scripts in load order.
func (m *Manager) ListScripts() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

// Script returns a loaded script by name.
func (m *Manager) Script(name string) (*DiscoveredScript, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ds, ok := m.loaded[name]
	return ds, ok
}

// Close shuts down the host and forgets every loaded script.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loaded = make(map[string]*DiscoveredScript)
	m.order = nil

	if m.host != nil {
		if err := m.host.Close(ctx); err != nil {
			return oops.In("script").With("operation", "close").Wrapf(err, "close script host")
		}
	}
	return nil
}
