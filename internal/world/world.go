// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package world is the reference in-memory host: dimensions of blocks,
// entities with inventories, chat delivery, and selector resolution. It
// implements the host interfaces the scripting core runs against and does
// not simulate anything.
package world

import (
	"context"
	"io"
	"math/rand/v2"
	"sync"

	"github.com/holomush/stonehook/internal/game"
	"github.com/holomush/stonehook/internal/policy"
	"github.com/holomush/stonehook/internal/tag"
)

// DefaultDimension is the dimension every world starts with.
const DefaultDimension = "overworld"

// TagStore persists component payloads across restarts.
type TagStore interface {
	PutTag(ctx context.Context, scope, key string, t tag.Tag) error
	GetTag(ctx context.Context, scope, key string) (tag.Tag, bool, error)
}

// PolicyGate decides whether a player action may proceed.
type PolicyGate interface {
	CheckPolicy(ctx context.Context, name string, event policy.Event, def bool) (bool, error)
}

type blockEntry struct {
	state game.BlockState
	data  tag.Compound
}

type dimension struct {
	blocks map[game.BlockPos]blockEntry
}

// World is the reference host. It is safe for concurrent use.
type World struct {
	mu         sync.RWMutex
	dimensions map[string]*dimension
	entities   map[string]*Entity
	custom     map[string]map[string]tag.Tag // target key -> component id -> payload
	inboxes    map[string][]string

	chat     io.Writer
	persist  TagStore
	gate     PolicyGate
	rng      *rand.Rand
	rngMu    sync.Mutex
	maxInbox int
}

// Option configures a World.
type Option func(*World)

// WithDimensions adds dimensions besides DefaultDimension.
func WithDimensions(names ...string) Option {
	return func(w *World) {
		for _, n := range names {
			w.dimensions[n] = &dimension{blocks: make(map[game.BlockPos]blockEntry)}
		}
	}
}

// WithChatLog mirrors every delivered chat line to out.
func WithChatLog(out io.Writer) Option {
	return func(w *World) { w.chat = out }
}

// WithPersistence writes extra data and custom components through to s.
func WithPersistence(s TagStore) Option {
	return func(w *World) { w.persist = s }
}

// WithPolicyGate routes player actions through g.
func WithPolicyGate(g PolicyGate) Option {
	return func(w *World) { w.gate = g }
}

// WithRand sets the source used by the @r selector.
func WithRand(r *rand.Rand) Option {
	return func(w *World) { w.rng = r }
}

// WithInboxLimit bounds how many chat lines are kept per player.
func WithInboxLimit(n int) Option {
	return func(w *World) { w.maxInbox = n }
}

// New creates an empty world.
func New(opts ...Option) *World {
	w := &World{
		dimensions: map[string]*dimension{
			DefaultDimension: {blocks: make(map[game.BlockPos]blockEntry)},
		},
		entities: make(map[string]*Entity),
		custom:   make(map[string]map[string]tag.Tag),
		inboxes:  make(map[string][]string),
		rng:      rand.New(rand.NewPCG(1, 2)), //nolint:gosec // selector randomness
		maxInbox: 100,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// SetPolicyGate replaces the gate after construction. The engine uses it
// to break the construction cycle between world and policy registry.
func (w *World) SetPolicyGate(g PolicyGate) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gate = g
}

// Dimensions lists the known dimension names.
func (w *World) Dimensions() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	names := make([]string, 0, len(w.dimensions))
	for n := range w.dimensions {
		names = append(names, n)
	}
	return sortedStrings(names)
}

func (w *World) hasDimension(name string) bool {
	_, ok := w.dimensions[name]
	return ok
}
