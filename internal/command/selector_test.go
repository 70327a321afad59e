// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/stonehook/pkg/errutil"
)

func TestParseSelector(t *testing.T) {
	tests := []struct {
		input string
		want  Selector
	}{
		{"@p", Selector{Kind: KindNearestPlayer}},
		{"@a", Selector{Kind: KindAllPlayers}},
		{"@s", Selector{Kind: KindSelf}},
		{"@r[]", Selector{Kind: KindRandomPlayer}},
		{"@e[type=minecraft:zombie,r=10]", Selector{Kind: KindAllEntities, Filters: []Filter{{"type", "minecraft:zombie"}, {"r", "10"}}}},
		{`@e[name="Big Bob",tag=]`, Selector{Kind: KindAllEntities, Filters: []Filter{{"name", "Big Bob"}, {"tag", ""}}}},
		{"@a[type=!cow]", Selector{Kind: KindAllPlayers, Filters: []Filter{{"type", "!cow"}}}},
		{"Steve_01", Selector{Kind: KindName, Name: "Steve_01"}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSelector(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSelector_Invalid(t *testing.T) {
	for _, input := range []string{"", "@x", "@", "@e[type]", "@e[type=a", "@e[=a]", "Steve[r=1]", "this_name_is_far_too_long", "@pp"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseSelector(input)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, CodeParse)
		})
	}
}

func TestSelector_String(t *testing.T) {
	sel, err := ParseSelector("@e[type=cow,r=5]")
	require.NoError(t, err)
	assert.Equal(t, "@e[type=cow,r=5]", sel.String())

	v, ok := sel.Get("r")
	assert.True(t, ok)
	assert.Equal(t, "5", v)
	_, ok = sel.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, "Steve", Selector{Kind: KindName, Name: "Steve"}.String())
}

func TestParseBlock(t *testing.T) {
	tests := []struct {
		input string
		want  Block
	}{
		{"stone", Block{ID: "minecraft:stone"}},
		{"minecraft:oak_log[axis=y]", Block{ID: "minecraft:oak_log", States: map[string]string{"axis": "y"}}},
		{"mod:machine[facing=north,powered=true]", Block{ID: "mod:machine", States: map[string]string{"facing": "north", "powered": "true"}}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseBlock(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	b, _ := ParseBlock("mod:machine[powered=true,facing=north]")
	assert.Equal(t, "mod:machine[facing=north,powered=true]", b.String())
}

func TestParseBlock_Invalid(t *testing.T) {
	for _, input := range []string{"", "Stone", "a:b:c", "stone[axis]", "stone[a=1,a=2]", "@p"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseBlock(input)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, CodeParse)
		})
	}
}
