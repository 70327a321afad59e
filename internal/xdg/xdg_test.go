// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package xdg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirs(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		fn   func() (string, error)
		want string
	}{
		{"config from env", map[string]string{"XDG_CONFIG_HOME": "/custom/config"}, ConfigDir, "/custom/config/stonehook"},
		{"config default", map[string]string{"XDG_CONFIG_HOME": "", "HOME": "/home/steve"}, ConfigDir, "/home/steve/.config/stonehook"},
		{"data from env", map[string]string{"XDG_DATA_HOME": "/custom/data"}, DataDir, "/custom/data/stonehook"},
		{"data default", map[string]string{"XDG_DATA_HOME": "", "HOME": "/home/steve"}, DataDir, "/home/steve/.local/share/stonehook"},
		{"config file", map[string]string{"XDG_CONFIG_HOME": "/etc/xdg"}, ConfigFile, "/etc/xdg/stonehook/stonehook.yaml"},
		{"scripts", map[string]string{"XDG_DATA_HOME": "/srv"}, ScriptsDir, "/srv/stonehook/scripts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			got, err := tt.fn()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDirs_NoHome(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("HOME", "")
	_, err := DataDir()
	assert.Error(t, err)
	_, err = ScriptsDir()
	assert.Error(t, err)
}

func TestEnsureDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir")

	require.NoError(t, EnsureDir(path))
	require.NoError(t, EnsureDir(path), "idempotent")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
}
