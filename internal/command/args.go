// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/holomush/stonehook/internal/game"
)

// Args holds the typed values of one matched overload, keyed by parameter
// name. Value types by parameter type:
//
//	string, text, message  string
//	int                    int32
//	float                  float64
//	bool                   bool
//	block                  Block
//	entity, player         []game.EntityRef
//	position               game.Vec3
//	json                   any (numbers as json.Number)
type Args struct {
	values map[string]any
	order  []string
}

// Get returns the value of a parameter. Omitted optional parameters are
// absent.
func (a Args) Get(name string) (any, bool) {
	v, ok := a.values[name]
	return v, ok
}

// Has reports whether the parameter was supplied.
func (a Args) Has(name string) bool {
	_, ok := a.values[name]
	return ok
}

// Names returns the supplied parameter names in declaration order.
func (a Args) Names() []string {
	return append([]string(nil), a.order...)
}

// Len returns the number of supplied parameters.
func (a Args) Len() int { return len(a.order) }

// String returns a string, text, or message parameter.
func (a Args) String(name string) string {
	s, _ := a.values[name].(string)
	return s
}

// Int returns an int parameter.
func (a Args) Int(name string) int32 {
	n, _ := a.values[name].(int32)
	return n
}

// Float returns a float parameter.
func (a Args) Float(name string) float64 {
	f, _ := a.values[name].(float64)
	return f
}

// Bool returns a bool parameter.
func (a Args) Bool(name string) bool {
	b, _ := a.values[name].(bool)
	return b
}

// Block returns a block parameter.
func (a Args) Block(name string) Block {
	b, _ := a.values[name].(Block)
	return b
}

// Entities returns an entity or player parameter.
func (a Args) Entities(name string) []game.EntityRef {
	e, _ := a.values[name].([]game.EntityRef)
	return e
}

// Position returns a position parameter.
func (a Args) Position(name string) game.Vec3 {
	p, _ := a.values[name].(game.Vec3)
	return p
}

func (a *Args) set(name string, v any) {
	if a.values == nil {
		a.values = make(map[string]any)
	}
	a.values[name] = v
	a.order = append(a.order, name)
}

// argParser converts tokens into typed values for one dispatch.
type argParser struct {
	ctx      context.Context
	origin   Origin
	resolver SelectorResolver
}

// consume parses the value of p from the front of tokens and returns how
// many tokens it used.
func (ap *argParser) consume(p Parameter, tokens []string) (any, int, error) {
	switch p.Type {
	case TypeText, TypeMessage:
		return strings.Join(tokens, " "), len(tokens), nil
	case TypePosition:
		if len(tokens) < 3 {
			return nil, 0, errParse(p.Name, p.Type, strings.Join(tokens, " "), "needs three coordinates")
		}
		v, err := ap.position(p, tokens[:3])
		return v, 3, err
	}
	v, err := ap.single(p, tokens[0])
	return v, 1, err
}

func (ap *argParser) single(p Parameter, token string) (any, error) {
	switch p.Type {
	case TypeString:
		return token, nil
	case TypeInt:
		n, err := strconv.ParseInt(token, 10, 32)
		if err != nil {
			return nil, errParse(p.Name, p.Type, token, "not a 32-bit integer")
		}
		return int32(n), nil
	case TypeFloat:
		f, err := strconv.ParseFloat(token, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, errParse(p.Name, p.Type, token, "not a finite number")
		}
		return f, nil
	case TypeBool:
		switch token {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, errParse(p.Name, p.Type, token, "expected true or false")
	case TypeBlock:
		return ParseBlock(token)
	case TypeEntity, TypePlayer:
		return ap.entities(p, token)
	case TypeJSON:
		dec := json.NewDecoder(bytes.NewReader([]byte(token)))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, errParse(p.Name, p.Type, token, "invalid JSON")
		}
		if dec.More() {
			return nil, errParse(p.Name, p.Type, token, "trailing data after JSON value")
		}
		return v, nil
	}
	return nil, errParse(p.Name, p.Type, token, "unsupported parameter type")
}

func (ap *argParser) entities(p Parameter, token string) (any, error) {
	sel, err := ParseSelector(token)
	if err != nil {
		return nil, err
	}
	if ap.resolver == nil {
		return nil, errParse(p.Name, p.Type, token, "selectors are not available")
	}
	refs, err := ap.resolver.ResolveSelector(ap.ctx, ap.origin, sel)
	if err != nil {
		return nil, err
	}
	if p.Type == TypePlayer {
		players := refs[:0:0]
		for _, r := range refs {
			if r.Player {
				players = append(players, r)
			}
		}
		refs = players
	}
	if len(refs) == 0 {
		return nil, errParse(p.Name, p.Type, token, "no matching targets")
	}
	return refs, nil
}

func (ap *argParser) position(p Parameter, tokens []string) (game.Vec3, error) {
	base := [3]float64{ap.origin.Position.X, ap.origin.Position.Y, ap.origin.Position.Z}
	var out [3]float64
	for i, tok := range tokens {
		relative := strings.HasPrefix(tok, "~")
		num := strings.TrimPrefix(tok, "~")
		var f float64
		if num != "" || !relative {
			v, err := strconv.ParseFloat(num, 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				return game.Vec3{}, errParse(p.Name, p.Type, tok, "not a coordinate")
			}
			f = v
		}
		if relative {
			f += base[i]
		}
		out[i] = f
	}
	return game.Vec3{X: out[0], Y: out[1], Z: out[2]}, nil
}
