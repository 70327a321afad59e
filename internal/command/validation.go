// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"regexp"
	"strings"

	"github.com/samber/oops"
)

const (
	// MaxNameLength is the maximum length for command names.
	MaxNameLength = 32
)

// namePattern validates command names: a lowercase letter followed by
// lowercase letters, digits, or _.:-
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_.:\-]*$`)

var paramNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateCommandName validates a command name.
func ValidateCommandName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return oops.In("command").
			Code(CodeInvalidName).
			Errorf("command name cannot be empty")
	}

	if len(trimmed) > MaxNameLength {
		return oops.In("command").
			Code(CodeInvalidName).
			With("length", len(trimmed)).
			With("max", MaxNameLength).
			Errorf("command name exceeds maximum length of %d", MaxNameLength)
	}

	if trimmed != name || !namePattern.MatchString(trimmed) {
		return oops.In("command").
			Code(CodeInvalidName).
			With("name", name).
			Errorf("command name must start with a lowercase letter and contain only a-z, 0-9, or _.:-")
	}

	return nil
}

// ValidateDefinition checks the registration-time invariants of def:
// permission in range, at least one overload, a handler per overload,
// known parameter types, unique parameter names, optional parameters only
// as a trailing suffix, and greedy parameters only in last position.
func ValidateDefinition(name string, def Definition) error {
	if def.Permission < PermissionAny || def.Permission > PermissionOwner {
		return errInvalidDefinition(name, "permission %d is outside 0..4", def.Permission)
	}
	if len(def.Overloads) == 0 {
		return errInvalidDefinition(name, "command %s has no overloads", name)
	}
	for i, ov := range def.Overloads {
		if err := validateOverload(name, i, ov); err != nil {
			return err
		}
	}
	return nil
}

func validateOverload(name string, index int, ov Overload) error {
	if ov.Handler == nil {
		return errInvalidDefinition(name, "overload %d has no handler", index)
	}
	seen := make(map[string]bool, len(ov.Parameters))
	optional := false
	for i, p := range ov.Parameters {
		if !paramNamePattern.MatchString(p.Name) {
			return errInvalidDefinition(name, "overload %d parameter %d has invalid name %q", index, i, p.Name)
		}
		if seen[p.Name] {
			return errInvalidDefinition(name, "overload %d repeats parameter %q", index, p.Name)
		}
		seen[p.Name] = true
		if !p.Type.Valid() {
			return errInvalidDefinition(name, "overload %d parameter %q has unknown type %q", index, p.Name, p.Type)
		}
		if p.Type.Greedy() && i != len(ov.Parameters)-1 {
			return errInvalidDefinition(name, "overload %d parameter %q of type %s must be last", index, p.Name, p.Type)
		}
		if optional && !p.Optional {
			return errInvalidDefinition(name, "overload %d required parameter %q follows an optional one", index, p.Name)
		}
		optional = optional || p.Optional
	}
	return nil
}
