// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package component provides typed access to named data attached to
// entities, blocks, and item stacks.
//
// Components are never cached: every call re-reads the host world through
// the World interface, so values always reflect current host state.
package component

import (
	"regexp"
	"strings"
)

// DefaultNamespace is assumed for identifiers written without one.
const DefaultNamespace = "minecraft"

var (
	namespacePattern = regexp.MustCompile(`^[a-z0-9_.-]+$`)
	namePattern      = regexp.MustCompile(`^[a-z0-9_.-]+(/[a-z0-9_.-]+)*$`)
)

// Identifier is a namespaced component name such as "stone:extra_data".
type Identifier struct {
	Namespace string
	Name      string
}

func (id Identifier) String() string {
	return id.Namespace + ":" + id.Name
}

// ParseIdentifier parses "namespace:name" or a bare "name" in the default
// namespace.
func ParseIdentifier(s string) (Identifier, error) {
	ns, name, found := strings.Cut(s, ":")
	if !found {
		ns, name = DefaultNamespace, s
	}
	if !namespacePattern.MatchString(ns) || !namePattern.MatchString(name) {
		return Identifier{}, ErrInvalidIdentifier(s)
	}
	return Identifier{Namespace: ns, Name: name}, nil
}

// MustParseIdentifier is ParseIdentifier for identifiers known at compile time.
func MustParseIdentifier(s string) Identifier {
	id, err := ParseIdentifier(s)
	if err != nil {
		panic(err)
	}
	return id
}
