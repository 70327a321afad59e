// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package command provides the command registry, typed argument parsing,
// overload resolution, and dispatch.
package command

import (
	"context"

	"github.com/holomush/stonehook/internal/game"
)

// Permission levels. An origin may run a command when its level is at least
// the command's level.
const (
	PermissionAny      = 0
	PermissionMember   = 1
	PermissionOperator = 2
	PermissionAdmin    = 3
	PermissionOwner    = 4
)

// ParamType is the declared type of a command parameter.
type ParamType string

// Parameter types.
const (
	TypeString   ParamType = "string"
	TypeInt      ParamType = "int"
	TypeFloat    ParamType = "float"
	TypeBool     ParamType = "bool"
	TypeBlock    ParamType = "block"
	TypeEntity   ParamType = "entity"
	TypePlayer   ParamType = "player"
	TypePosition ParamType = "position"
	TypeText     ParamType = "text"
	TypeMessage  ParamType = "message"
	TypeJSON     ParamType = "json"
)

// Valid reports whether t is a known parameter type.
func (t ParamType) Valid() bool {
	switch t {
	case TypeString, TypeInt, TypeFloat, TypeBool, TypeBlock, TypeEntity,
		TypePlayer, TypePosition, TypeText, TypeMessage, TypeJSON:
		return true
	}
	return false
}

// Greedy reports whether t consumes the rest of the command line.
func (t ParamType) Greedy() bool {
	return t == TypeText || t == TypeMessage
}

// Parameter is one positional parameter of an overload.
type Parameter struct {
	Name     string
	Type     ParamType
	Optional bool
}

// Handler runs a command for origin with parsed arguments.
type Handler func(ctx context.Context, origin Origin, args Args) (Result, error)

// Overload is one candidate signature of a command.
type Overload struct {
	Parameters []Parameter
	Handler    Handler
}

// Definition describes a command.
type Definition struct {
	Description string
	// Permission is the minimum origin level, 0 through 4.
	Permission int
	// Overloads are tried in declaration order.
	Overloads []Overload
	// Source is where the command came from, "core" or a script name.
	Source string
}

// Entry is a registered command.
type Entry struct {
	Name       string
	Definition Definition
}

// Origin is the context of one command invocation.
type Origin struct {
	Name       string
	Dimension  string
	Position   game.Vec3
	Entity     *game.EntityRef
	Permission int
}

// Key identifies the origin for rate limiting: the invoking entity when
// there is one, otherwise the origin name.
func (o Origin) Key() string {
	if o.Entity != nil && !o.Entity.IsZero() {
		return o.Entity.String()
	}
	return "name:" + o.Name
}
