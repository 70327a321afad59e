// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package policy

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/stonehook/internal/game"
	"github.com/holomush/stonehook/internal/tag"
	"github.com/holomush/stonehook/pkg/errutil"
)

type call struct {
	handler int
	isLast  bool
}

// recordingChain registers one handler per verdict and records invocations.
func recordingChain(t *testing.T, r *Registry, name string, verdicts ...Verdict) *[]call {
	t.Helper()
	calls := &[]call{}
	for i, v := range verdicts {
		require.NoError(t, r.Handle(name, func(_ context.Context, _ Event, isLast bool) Verdict {
			*calls = append(*calls, call{handler: i, isLast: isLast})
			return v
		}))
	}
	return calls
}

func custom() Event {
	return CustomEvent{Data: tag.Compound{"k": tag.Int(1)}}
}

func TestCheck_ScenarioPassThenDeny(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("ns:test"))
	calls := recordingChain(t, r, "ns:test", Pass, Deny)

	allowed, err := r.Check(context.Background(), "ns:test", custom(), true)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, []call{{0, false}, {1, true}}, *calls)
}

func TestCheck_FirstDecisionWins(t *testing.T) {
	tests := []struct {
		name      string
		verdicts  []Verdict
		def       bool
		want      bool
		wantCalls []call
	}{
		{"allow stops chain", []Verdict{Pass, Allow, Deny}, false, true, []call{{0, false}, {1, false}}},
		{"deny stops chain", []Verdict{Deny, Allow}, true, false, []call{{0, false}}},
		{"last decides", []Verdict{Pass, Pass, Allow}, false, true, []call{{0, false}, {1, false}, {2, true}}},
		{"all pass default true", []Verdict{Pass, Pass}, true, true, []call{{0, false}, {1, true}}},
		{"all pass default false", []Verdict{Pass, Pass}, false, false, []call{{0, false}, {1, true}}},
		{"no handlers default", nil, true, true, []call{}},
		{"invalid verdict passes", []Verdict{Verdict(9), Deny}, true, false, []call{{0, false}, {1, true}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			require.NoError(t, r.Register("ns:chain"))
			calls := recordingChain(t, r, "ns:chain", tt.verdicts...)

			got, err := r.Check(context.Background(), "ns:chain", custom(), tt.def)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCalls, *calls)
		})
	}
}

func TestCheck_IsLastAtMostOnce(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("ns:last"))
	calls := recordingChain(t, r, "ns:last", Pass, Pass, Pass, Pass)

	for range 3 {
		*calls = (*calls)[:0]
		_, err := r.Check(context.Background(), "ns:last", custom(), false)
		require.NoError(t, err)

		lasts := 0
		for i, c := range *calls {
			if c.isLast {
				lasts++
				assert.Equal(t, 3, i)
			}
		}
		assert.Equal(t, 1, lasts)
	}
}

func TestCheck_BuiltinShapes(t *testing.T) {
	player := game.EntityRef{ID: "p1", Player: true}
	zombie := game.EntityRef{ID: "z1"}
	sword := game.ItemRef{Holder: "p1", Slot: 0}
	stone := game.BlockRef{Dimension: "overworld", Pos: game.BlockPos{Y: 64}}

	valid := map[string]Event{
		PlayerAttackEntity: AttackEvent{Player: player, Target: zombie},
		EntityPickItemUp:   PickUpEvent{Entity: zombie, Item: sword},
		EntityDropItem:     DropEvent{Entity: player, Item: sword},
		PlayerUseItem:      UseItemEvent{Entity: player, Item: sword},
		PlayerUseItemOn:    UseItemOnEvent{Entity: player, Item: sword, Pos: game.Vec3{Y: 64}, Block: stone},
		PlayerDestroyBlock: DestroyBlockEvent{Player: player, Block: stone},
	}
	r := NewRegistry()
	for _, name := range BuiltinNames() {
		assert.True(t, r.Has(name), name)
		ev, ok := valid[name]
		require.True(t, ok, name)

		allowed, err := r.Check(context.Background(), name, ev, true)
		require.NoError(t, err, name)
		assert.True(t, allowed)
	}
}

func TestCheck_ShapeMismatchInvokesNoHandler(t *testing.T) {
	player := game.EntityRef{ID: "p1", Player: true}

	tests := []struct {
		name   string
		policy string
		event  Event
	}{
		{"wrong struct", PlayerAttackEntity, DropEvent{Entity: player, Item: game.ItemRef{Holder: "p1"}}},
		{"custom payload on builtin", PlayerAttackEntity, custom()},
		{"attacker not a player", PlayerAttackEntity, AttackEvent{Player: game.EntityRef{ID: "z"}, Target: player}},
		{"missing target", PlayerAttackEntity, AttackEvent{Player: player}},
		{"missing block dimension", PlayerDestroyBlock, DestroyBlockEvent{Player: player}},
		{"negative slot", PlayerUseItem, UseItemEvent{Entity: player, Item: game.ItemRef{Holder: "p1", Slot: -1}}},
		{"nil event", PlayerUseItem, nil},
		{"builtin payload on custom", "ns:custom", AttackEvent{Player: player, Target: player}},
		{"custom without data", "ns:custom", CustomEvent{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			require.NoError(t, r.Register("ns:custom"))
			calls := recordingChain(t, r, tt.policy, Allow)

			got, err := r.Check(context.Background(), tt.policy, tt.event, true)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, CodeShapeMismatch)
			assert.True(t, got)
			assert.Empty(t, *calls)
		})
	}
}

func TestCheck_CustomSchema(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("ns:trade", WithSchema(`{
		"type": "object",
		"required": ["price", "item"],
		"properties": {
			"price": {"type": "integer", "minimum": 0},
			"item": {"type": "string"}
		}
	}`)))
	calls := recordingChain(t, r, "ns:trade", Allow)
	ctx := context.Background()

	ok, err := r.Check(ctx, "ns:trade", CustomEvent{Data: tag.Compound{"price": tag.Int(5), "item": tag.String("apple")}}, false)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = r.Check(ctx, "ns:trade", CustomEvent{Data: tag.Compound{"price": tag.Int(-1), "item": tag.String("apple")}}, false)
	errutil.AssertErrorCode(t, err, CodeShapeMismatch)

	_, err = r.Check(ctx, "ns:trade", CustomEvent{Data: tag.Compound{"price": tag.Int(5)}}, false)
	errutil.AssertErrorCode(t, err, CodeShapeMismatch)

	assert.Len(t, *calls, 1)
}

func TestCheck_UnknownPolicy(t *testing.T) {
	r := NewRegistry()
	got, err := r.Check(context.Background(), "ns:missing", custom(), true)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, CodeUnknownPolicy)
	assert.True(t, got)
}

func TestCheck_PanickingHandlerPasses(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("ns:panic"))
	require.NoError(t, r.Handle("ns:panic", func(context.Context, Event, bool) Verdict {
		panic("boom")
	}, WithSource("broken.lua")))
	calls := recordingChain(t, r, "ns:panic", Deny)

	before := testutil.ToFloat64(HandlerPanics.WithLabelValues("ns:panic", "broken.lua"))
	got, err := r.Check(context.Background(), "ns:panic", custom(), true)
	require.NoError(t, err)
	assert.False(t, got)
	assert.Len(t, *calls, 1)
	assert.InDelta(t, before+1, testutil.ToFloat64(HandlerPanics.WithLabelValues("ns:panic", "broken.lua")), 0)
}

func TestCheck_RecordsOutcomeMetrics(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("ns:metrics"))
	recordingChain(t, r, "ns:metrics", Pass)

	before := testutil.ToFloat64(PolicyChecks.WithLabelValues("ns:metrics", OutcomeDefault))
	_, err := r.Check(context.Background(), "ns:metrics", custom(), true)
	require.NoError(t, err)
	assert.InDelta(t, before+1, testutil.ToFloat64(PolicyChecks.WithLabelValues("ns:metrics", OutcomeDefault)), 0)
}
