// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package script_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/holomush/stonehook/internal/script"
	"github.com/holomush/stonehook/pkg/errutil"
)

type mockHost struct {
	mock.Mock
}

func (m *mockHost) Load(ctx context.Context, manifest *script.Manifest, dir string) error {
	return m.Called(ctx, manifest, dir).Error(0)
}

func (m *mockHost) Unload(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *mockHost) Scripts() []string {
	args := m.Called()
	names, _ := args.Get(0).([]string)
	return names
}

func (m *mockHost) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func writeScript(t *testing.T, root, dir, manifest string) string {
	t.Helper()
	path := filepath.Join(root, dir)
	require.NoError(t, os.MkdirAll(path, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(path, script.ManifestFile), []byte(manifest), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(path, "main.lua"), []byte("-- entry\n"), 0o600))
	return path
}

func named(name, version string, extra ...string) string {
	s := "name: " + name + "\nversion: " + version + "\nentry: main.lua\n"
	for _, e := range extra {
		s += e + "\n"
	}
	return s
}

func namesOf(scripts []*script.DiscoveredScript) []string {
	out := make([]string, len(scripts))
	for i, ds := range scripts {
		out[i] = ds.Manifest.Name
	}
	return out
}

func TestManager_Discover(t *testing.T) {
	root := t.TempDir()
	guardDir := writeScript(t, root, "guard", named("guard", "1.0.0"))
	writeScript(t, root, "broken", "name: [")
	writeScript(t, root, "extra-field", named("extra", "1.0.0", "type: lua"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o750))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".hidden"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("hi"), 0o600))

	scripts, err := script.NewManager(root).Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, scripts, 1)
	assert.Equal(t, "guard", scripts[0].Manifest.Name)
	assert.Equal(t, guardDir, scripts[0].Dir)
}

func TestManager_Discover_MissingDirectory(t *testing.T) {
	scripts, err := script.NewManager(filepath.Join(t.TempDir(), "nope")).Discover(context.Background())
	require.NoError(t, err)
	assert.Empty(t, scripts)
}

func TestManager_Discover_DuplicateNames(t *testing.T) {
	root := t.TempDir()
	writeScript(t, root, "a", named("same", "1.0.0"))
	writeScript(t, root, "b", named("same", "1.0.0"))

	_, err := script.NewManager(root).Discover(context.Background())
	errutil.AssertErrorCode(t, err, script.CodeDuplicateScript)
}

func TestResolve(t *testing.T) {
	ds := func(name, version string, requires map[string]string) *script.DiscoveredScript {
		return &script.DiscoveredScript{Manifest: &script.Manifest{
			Name: name, Version: version, Entry: "main.lua", Requires: requires,
		}}
	}

	t.Run("dependencies first, ties by name", func(t *testing.T) {
		ordered, err := script.Resolve([]*script.DiscoveredScript{
			ds("zeta", "1.0.0", map[string]string{"base": "^1.0"}),
			ds("alpha", "1.0.0", map[string]string{"zeta": ""}),
			ds("base", "1.3.0", nil),
			ds("beta", "1.0.0", nil),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"base", "beta", "zeta", "alpha"}, namesOf(ordered))
	})

	t.Run("missing", func(t *testing.T) {
		_, err := script.Resolve([]*script.DiscoveredScript{
			ds("app", "1.0.0", map[string]string{"lib": ""}),
		})
		errutil.AssertErrorCode(t, err, script.CodeDependency)
	})

	t.Run("version", func(t *testing.T) {
		_, err := script.Resolve([]*script.DiscoveredScript{
			ds("app", "1.0.0", map[string]string{"lib": ">=2.0.0"}),
			ds("lib", "1.9.0", nil),
		})
		errutil.AssertErrorCode(t, err, script.CodeDependency)
		errutil.AssertErrorContext(t, err, "found", "1.9.0")
	})

	t.Run("cycle", func(t *testing.T) {
		_, err := script.Resolve([]*script.DiscoveredScript{
			ds("a", "1.0.0", map[string]string{"b": ""}),
			ds("b", "1.0.0", map[string]string{"a": ""}),
			ds("c", "1.0.0", nil),
		})
		errutil.AssertErrorCode(t, err, script.CodeDependency)
		errutil.AssertErrorContext(t, err, "scripts", []string{"a", "b"})
	})
}

func TestManager_LoadAll(t *testing.T) {
	root := t.TempDir()
	writeScript(t, root, "app", named("app", "1.0.0", "requires:", "  lib: ^1.0"))
	writeScript(t, root, "lib", named("lib", "1.1.0"))

	host := &mockHost{}
	var order []string
	host.On("Load", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			order = append(order, args.Get(1).(*script.Manifest).Name)
		}).
		Return(nil)
	host.On("Close", mock.Anything).Return(nil)

	mgr := script.NewManager(root, script.WithHost(host))
	require.NoError(t, mgr.LoadAll(context.Background()))

	assert.Equal(t, []string{"lib", "app"}, order)
	assert.Equal(t, []string{"lib", "app"}, mgr.ListScripts())
	ds, ok := mgr.Script("lib")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "lib"), ds.Dir)

	require.NoError(t, mgr.Close(context.Background()))
	assert.Empty(t, mgr.ListScripts())
	host.AssertExpectations(t)
}

func TestManager_LoadAll_StopsOnFailure(t *testing.T) {
	root := t.TempDir()
	writeScript(t, root, "a", named("a", "1.0.0"))
	writeScript(t, root, "b", named("b", "1.0.0"))

	loadErr := errors.New("syntax error")
	host := &mockHost{}
	host.On("Load", mock.Anything, mock.MatchedBy(func(m *script.Manifest) bool { return m.Name == "a" }), mock.Anything).
		Return(loadErr)

	mgr := script.NewManager(root, script.WithHost(host))
	err := mgr.LoadAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, loadErr)
	errutil.AssertErrorContext(t, err, "script", "a")
	assert.Empty(t, mgr.ListScripts())
	host.AssertNumberOfCalls(t, "Load", 1)
}

func TestManager_LoadAll_APIMismatch(t *testing.T) {
	root := t.TempDir()
	writeScript(t, root, "future", named("future", "1.0.0", "api: ^9.0"))

	host := &mockHost{}
	err := script.NewManager(root, script.WithHost(host)).LoadAll(context.Background())
	errutil.AssertErrorCode(t, err, script.CodeAPIMismatch)
	host.AssertNotCalled(t, "Load", mock.Anything, mock.Anything, mock.Anything)
}

func TestManager_LoadAll_NoHost(t *testing.T) {
	err := script.NewManager(t.TempDir()).LoadAll(context.Background())
	errutil.AssertErrorCode(t, err, script.CodeLoadFailed)
}

func TestManager_Close_ReturnsHostError(t *testing.T) {
	hostErr := errors.New("cleanup failed")
	host := &mockHost{}
	host.On("Close", mock.Anything).Return(hostErr)

	err := script.NewManager(t.TempDir(), script.WithHost(host)).Close(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, hostErr)
}
