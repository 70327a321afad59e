// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package structure

import (
	"context"

	"github.com/samber/oops"

	"github.com/holomush/stonehook/internal/store"
	"github.com/holomush/stonehook/internal/tag"
)

// WriteFile validates s and writes it as a compressed tag file.
func WriteFile(path string, s tag.Compound) error {
	if _, err := Parse(s); err != nil {
		return err
	}
	return tag.WriteFile(path, s)
}

// ReadFile reads and validates a structure file.
func ReadFile(path string) (tag.Compound, error) {
	t, err := tag.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, ok := t.(tag.Compound)
	if !ok {
		return nil, oops.In("structure").Code(CodeMalformed).With("path", path).Errorf("structure file holds a %s, not a compound", t.Type())
	}
	if _, err := Parse(c); err != nil {
		return nil, oops.In("structure").With("path", path).Wrap(err)
	}
	return c, nil
}

// Archive persists named structures.
type Archive interface {
	SaveStructure(ctx context.Context, name string, size [3]int32, data tag.Compound) error
	LoadStructure(ctx context.Context, name string) (*store.StructureRecord, bool, error)
}

// Save validates s and stores it under name.
func Save(ctx context.Context, a Archive, name string, s tag.Compound) error {
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	return a.SaveStructure(ctx, name, [3]int32{parsed.Size.X, parsed.Size.Y, parsed.Size.Z}, s)
}

// Load returns the structure stored under name. The bool is false when
// there is none.
func Load(ctx context.Context, a Archive, name string) (tag.Compound, bool, error) {
	rec, ok, err := a.LoadStructure(ctx, name)
	if err != nil || !ok {
		return nil, false, err
	}
	return rec.Data, true, nil
}
