// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package world

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/oops"

	"github.com/holomush/stonehook/internal/command"
	"github.com/holomush/stonehook/internal/component"
	"github.com/holomush/stonehook/internal/game"
)

// ResolveSelector evaluates a parsed selector relative to origin.
//
// Supported filters: type (optionally negated with "!"), name, r (maximum
// distance from the origin), c (result limit), and dimension. Results are
// ordered by distance for @p and by name or id otherwise.
func (w *World) ResolveSelector(_ context.Context, origin command.Origin, sel command.Selector) ([]game.EntityRef, error) {
	f, err := parseFilters(sel)
	if err != nil {
		return nil, err
	}

	w.mu.RLock()
	var candidates []*Entity
	switch sel.Kind {
	case command.KindSelf:
		if origin.Entity != nil {
			if e, ok := w.entities[origin.Entity.ID]; ok {
				candidates = append(candidates, e)
			}
		}
	case command.KindName:
		if e, ok := w.playerByNameLocked(sel.Name); ok {
			candidates = append(candidates, e)
		}
	case command.KindAllEntities:
		for _, e := range w.entities {
			candidates = append(candidates, e)
		}
	default:
		for _, e := range w.entities {
			if e.Player {
				candidates = append(candidates, e)
			}
		}
	}
	matched := candidates[:0]
	for _, e := range candidates {
		if f.match(e, origin) {
			matched = append(matched, e)
		}
	}
	refs := w.order(sel.Kind, origin, matched)
	w.mu.RUnlock()

	if f.limit > 0 && len(refs) > f.limit {
		refs = refs[:f.limit]
	}
	return refs, nil
}

func (w *World) order(kind command.SelectorKind, origin command.Origin, es []*Entity) []game.EntityRef {
	switch kind {
	case command.KindNearestPlayer:
		sort.SliceStable(es, func(i, j int) bool {
			di, dj := es[i].Position.DistanceSq(origin.Position), es[j].Position.DistanceSq(origin.Position)
			if di != dj {
				return di < dj
			}
			return es[i].Name < es[j].Name
		})
		if len(es) > 1 {
			es = es[:1]
		}
	case command.KindRandomPlayer:
		if len(es) > 1 {
			w.rngMu.Lock()
			i := w.rng.IntN(len(es))
			w.rngMu.Unlock()
			es = []*Entity{es[i]}
		}
	default:
		sort.Slice(es, func(i, j int) bool {
			if es[i].Name != es[j].Name {
				return es[i].Name < es[j].Name
			}
			return es[i].ID < es[j].ID
		})
	}
	refs := make([]game.EntityRef, len(es))
	for i, e := range es {
		refs[i] = e.Ref()
	}
	return refs
}

type filters struct {
	typ       string
	negate    bool
	name      string
	radius    float64
	hasRadius bool
	limit     int
	dimension string
}

func parseFilters(sel command.Selector) (filters, error) {
	var f filters
	for _, kv := range sel.Filters {
		switch kv.Key {
		case "type":
			v := kv.Value
			if rest, ok := strings.CutPrefix(v, "!"); ok {
				f.negate = true
				v = rest
			}
			id, err := component.ParseIdentifier(v)
			if err != nil {
				return f, badFilter(kv, "not an entity type")
			}
			f.typ = id.String()
		case "name":
			f.name = kv.Value
		case "r":
			r, err := strconv.ParseFloat(kv.Value, 64)
			if err != nil || r < 0 {
				return f, badFilter(kv, "not a non-negative distance")
			}
			f.radius, f.hasRadius = r, true
		case "c":
			n, err := strconv.Atoi(kv.Value)
			if err != nil || n < 1 {
				return f, badFilter(kv, "not a positive count")
			}
			f.limit = n
		case "dimension":
			f.dimension = kv.Value
		default:
			return f, badFilter(kv, "unknown filter")
		}
	}
	return f, nil
}

func (f filters) match(e *Entity, origin command.Origin) bool {
	if f.typ != "" && (e.Type == f.typ) == f.negate {
		return false
	}
	if f.name != "" && !strings.EqualFold(e.Name, f.name) {
		return false
	}
	if f.dimension != "" && e.Dimension != f.dimension {
		return false
	}
	if f.hasRadius {
		if origin.Dimension != "" && e.Dimension != origin.Dimension {
			return false
		}
		if e.Position.DistanceSq(origin.Position) > f.radius*f.radius {
			return false
		}
	}
	return true
}

func badFilter(kv command.Filter, reason string) error {
	return oops.In("world").
		Code(command.CodeParse).
		With("filter", kv.Key).
		Errorf("selector filter %s=%s: %s", kv.Key, kv.Value, reason)
}
