// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package component

import (
	"github.com/samber/oops"

	"github.com/holomush/stonehook/internal/tag"
)

// Built-in component identifiers.
var (
	ExtraData = Identifier{Namespace: "stone", Name: "extra_data"}
	Nameable  = Identifier{Namespace: "minecraft", Name: "nameable"}
	Position  = Identifier{Namespace: "minecraft", Name: "position"}
	Item      = Identifier{Namespace: "minecraft", Name: "item"}
)

// Builtins returns the built-in component definitions.
func Builtins() []Definition {
	return []Definition{
		{
			ID:    ExtraData,
			Shape: tag.TypeCompound,
			Access: map[Kind]Access{
				KindEntity: AccessReadWrite,
				KindBlock:  AccessReadWrite,
				KindItem:   AccessReadWrite,
			},
		},
		{
			ID:       Nameable,
			Shape:    tag.TypeCompound,
			Access:   map[Kind]Access{KindEntity: AccessReadWrite},
			Validate: requireFields(map[string]tag.Type{"name": tag.TypeString}),
		},
		{
			ID:    Position,
			Shape: tag.TypeCompound,
			Access: map[Kind]Access{
				KindEntity: AccessRead,
			},
			Validate: requireFields(map[string]tag.Type{
				"x": tag.TypeDouble,
				"y": tag.TypeDouble,
				"z": tag.TypeDouble,
			}),
		},
		{
			ID:     Item,
			Shape:  tag.TypeCompound,
			Access: map[Kind]Access{KindItem: AccessRead},
			Validate: requireFields(map[string]tag.Type{
				"id":    tag.TypeString,
				"count": tag.TypeByte,
			}),
		},
	}
}

func requireFields(fields map[string]tag.Type) func(tag.Tag) error {
	return func(data tag.Tag) error {
		c, ok := data.(tag.Compound)
		if !ok {
			return oops.In("component").Errorf("payload is %s, want compound", data.Type())
		}
		for name, typ := range fields {
			v, ok := c[name]
			if !ok {
				return oops.In("component").With("field", name).Errorf("missing field %q", name)
			}
			if v.Type() != typ {
				return oops.In("component").
					With("field", name).
					Errorf("field %q is %s, want %s", name, v.Type(), typ)
			}
		}
		return nil
	}
}
