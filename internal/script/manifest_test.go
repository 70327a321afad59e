// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package script_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/stonehook/internal/script"
	"github.com/holomush/stonehook/pkg/errutil"
)

func TestParseManifest(t *testing.T) {
	yaml := `
name: home-guard
version: 1.2.0
description: Protects spawn
api: ^1.0
entry: main.lua
capabilities:
  - policy.*
  - chat.send
requires:
  economy: ">=2.0.0"
`
	m, err := script.ParseManifest([]byte(yaml))
	require.NoError(t, err)

	assert.Equal(t, "home-guard", m.Name)
	assert.Equal(t, "1.2.0", m.Version)
	assert.Equal(t, "Protects spawn", m.Description)
	assert.Equal(t, "main.lua", m.Entry)
	assert.Equal(t, []string{"policy.*", "chat.send"}, m.Grants())
	assert.Equal(t, map[string]string{"economy": ">=2.0.0"}, m.Requires)
	assert.NoError(t, m.CheckAPI())
}

func TestParseManifest_Invalid(t *testing.T) {
	valid := map[string]string{
		"name":    "ok",
		"version": "1.0.0",
		"entry":   "main.lua",
	}
	render := func(override map[string]string) string {
		var sb strings.Builder
		for _, k := range []string{"name", "version", "entry", "api"} {
			v, ok := override[k]
			if !ok {
				v = valid[k]
			}
			if v != "" {
				sb.WriteString(k + ": \"" + v + "\"\n")
			}
		}
		return sb.String()
	}

	tests := []struct {
		name     string
		override map[string]string
	}{
		{"missing name", map[string]string{"name": ""}},
		{"uppercase name", map[string]string{"name": "Bad"}},
		{"trailing hyphen", map[string]string{"name": "bad-"}},
		{"name too long", map[string]string{"name": "a" + strings.Repeat("b", 64)}},
		{"missing version", map[string]string{"version": ""}},
		{"loose version", map[string]string{"version": "1.0"}},
		{"bad api", map[string]string{"api": "not a constraint"}},
		{"missing entry", map[string]string{"entry": ""}},
		{"non-lua entry", map[string]string{"entry": "main.js"}},
		{"escaping entry", map[string]string{"entry": "../main.lua"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := script.ParseManifest([]byte(render(tt.override)))
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, script.CodeInvalidManifest)
		})
	}
}

func TestParseManifest_InvalidInput(t *testing.T) {
	for _, data := range []string{"", "name: [", "- a list"} {
		_, err := script.ParseManifest([]byte(data))
		require.Error(t, err, "input %q", data)
		errutil.AssertErrorCode(t, err, script.CodeInvalidManifest)
	}
}

func TestParseManifest_Requires(t *testing.T) {
	base := "name: app\nversion: 1.0.0\nentry: main.lua\nrequires:\n"

	tests := []struct {
		name    string
		extra   string
		wantErr bool
	}{
		{"any version", "  lib: \"\"\n", false},
		{"constraint", "  lib: \"~1.2\"\n", false},
		{"self", "  app: \"\"\n", true},
		{"bad name", "  Lib: \"\"\n", true},
		{"bad constraint", "  lib: \"nope nope\"\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := script.ParseManifest([]byte(base + tt.extra))
			if tt.wantErr {
				errutil.AssertErrorCode(t, err, script.CodeInvalidManifest)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestParseManifest_EmptyCapability(t *testing.T) {
	_, err := script.ParseManifest([]byte("name: a\nversion: 1.0.0\nentry: main.lua\ncapabilities: [\"\"]\n"))
	errutil.AssertErrorCode(t, err, script.CodeInvalidManifest)
}

func TestManifest_CheckAPI(t *testing.T) {
	tests := []struct {
		api     string
		wantErr bool
	}{
		{"", false},
		{"^1.0", false},
		{">=1.2.0, <2.0.0", false},
		{"^2.0", true},
		{"<1.0.0", true},
	}
	for _, tt := range tests {
		t.Run(tt.api, func(t *testing.T) {
			m := &script.Manifest{Name: "a", Version: "1.0.0", Entry: "main.lua", API: tt.api}
			err := m.CheckAPI()
			if tt.wantErr {
				errutil.AssertErrorCode(t, err, script.CodeAPIMismatch)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestManifest_Satisfies(t *testing.T) {
	m := &script.Manifest{Name: "lib", Version: "1.4.2", Entry: "main.lua"}

	for constraint, want := range map[string]bool{
		"":        true,
		"^1.0":    true,
		"~1.4":    true,
		">=2.0.0": false,
		"1.4.2":   true,
	} {
		got, err := m.Satisfies(constraint)
		require.NoError(t, err, constraint)
		assert.Equal(t, want, got, constraint)
	}

	_, err := m.Satisfies("what")
	assert.Error(t, err)
}

func TestManifest_UnknownCapabilities(t *testing.T) {
	m := &script.Manifest{Capabilities: []string{"policy.check", "policy.*", "teleport.anyone", "chat.{send,broadcast}"}}
	assert.Equal(t, []string{"teleport.anyone"}, m.UnknownCapabilities())
}

func TestManifest_GrantsIsACopy(t *testing.T) {
	m := &script.Manifest{Capabilities: []string{"chat.send"}}
	g := m.Grants()
	g[0] = "db.open"
	assert.Equal(t, []string{"chat.send"}, m.Capabilities)
}
