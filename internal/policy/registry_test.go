// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/stonehook/pkg/errutil"
)

func pass(context.Context, Event, bool) Verdict { return Pass }

func TestRegister_DuplicateIsConflict(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("ns:test"))

	err := r.Register("ns:test")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, CodeRegistrationConflict)

	err = r.Register(PlayerAttackEntity)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, CodeRegistrationConflict)
}

func TestRegister_InvalidDefinitions(t *testing.T) {
	tests := []struct {
		name   string
		policy string
		opts   []Option
	}{
		{"no namespace", "test", nil},
		{"uppercase", "NS:Test", nil},
		{"empty", "", nil},
		{"bad schema json", "ns:a", []Option{WithSchema(`{not json`)}},
		{"bad schema type", "ns:b", []Option{WithSchema(map[string]any{"type": 12})}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			err := r.Register(tt.policy, tt.opts...)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, CodeInvalidDefinition)
			assert.False(t, r.Has(tt.policy))
		})
	}
}

func TestHandle_Errors(t *testing.T) {
	r := NewRegistry()

	err := r.Handle("ns:missing", pass)
	errutil.AssertErrorCode(t, err, CodeUnknownPolicy)

	err = r.Handle(PlayerUseItem, nil)
	errutil.AssertErrorCode(t, err, CodeInvalidDefinition)
}

func TestSeal_RejectsLateRegistration(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("ns:early"))
	require.NoError(t, r.Handle("ns:early", pass))
	r.Seal()
	assert.True(t, r.Sealed())

	errutil.AssertErrorCode(t, r.Register("ns:late"), CodeRegistrySealed)
	errutil.AssertErrorCode(t, r.Handle("ns:early", pass), CodeRegistrySealed)
	assert.False(t, r.Has("ns:late"))

	all := r.All()
	var early Info
	for _, info := range all {
		if info.Name == "ns:early" {
			early = info
		}
	}
	assert.Equal(t, 1, early.Handlers)
}

func TestAll_SortedWithBuiltins(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("aa:first", WithSchema(`{"type":"object"}`)))

	all := r.All()
	require.Len(t, all, len(BuiltinNames())+1)
	assert.Equal(t, Info{Name: "aa:first", Schema: true}, all[0])
	for _, info := range all[1:] {
		assert.True(t, info.Builtin, info.Name)
	}
}

func TestVerdict(t *testing.T) {
	assert.Equal(t, "pass", Pass.String())
	assert.Equal(t, "allow", Allow.String())
	assert.Equal(t, "deny", Deny.String())
	assert.Equal(t, "unknown(7)", Verdict(7).String())
	assert.Equal(t, Allow, VerdictOf(true))
	assert.Equal(t, Deny, VerdictOf(false))
	assert.False(t, Pass.Decided())
}
