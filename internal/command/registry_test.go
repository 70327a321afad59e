// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/stonehook/pkg/errutil"
)

func simpleDef(source string) Definition {
	return Definition{
		Description: "test",
		Source:      source,
		Overloads:   []Overload{{Handler: noop}},
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("test", simpleDef("")))

	entry, ok := r.Get("test")
	require.True(t, ok)
	assert.Equal(t, "test", entry.Name)
	assert.Equal(t, "core", entry.Definition.Source)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_DuplicateIsConflict(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("test", simpleDef("a.lua")))

	err := r.Register("test", simpleDef("b.lua"))
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, CodeRegistrationConflict)
	errutil.AssertErrorContext(t, err, "existing_source", "a.lua")

	entry, _ := r.Get("test")
	assert.Equal(t, "a.lua", entry.Definition.Source)
}

func TestRegistry_RejectsInvalid(t *testing.T) {
	r := NewRegistry()
	errutil.AssertErrorCode(t, r.Register("Bad Name", simpleDef("")), CodeInvalidName)
	errutil.AssertErrorCode(t, r.Register("ok", Definition{}), CodeInvalidDefinition)
	assert.Empty(t, r.All())
}

func TestRegistry_Sealed(t *testing.T) {
	r := NewRegistry()
	r.Seal()
	errutil.AssertErrorCode(t, r.Register("late", simpleDef("")), CodeRegistrySealed)
}

func TestRegistry_DefinitionIsCopied(t *testing.T) {
	params := []Parameter{{Name: "a", Type: TypeInt}}
	def := Definition{Overloads: []Overload{{Parameters: params, Handler: noop}}}

	r := NewRegistry()
	require.NoError(t, r.Register("copy", def))
	params[0].Type = TypeString

	entry, _ := r.Get("copy")
	assert.Equal(t, TypeInt, entry.Definition.Overloads[0].Parameters[0].Type)
}

func TestRegistry_AllSorted(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, r.Register(name, simpleDef("")))
	}
	all := r.All()
	require.Len(t, all, 3)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, []string{all[0].Name, all[1].Name, all[2].Name})
}
