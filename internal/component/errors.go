// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package component

import "github.com/samber/oops"

// Error codes for component failures.
const (
	CodeInvalidIdentifier    = "COMPONENT_INVALID_ID"
	CodeUnknownComponent     = "COMPONENT_UNKNOWN"
	CodeInvalidDefinition    = "INVALID_DEFINITION"
	CodeRegistrationConflict = "REGISTRATION_CONFLICT"
	CodeRegistrySealed       = "REGISTRY_SEALED"
	CodeWriteFailed          = "COMPONENT_WRITE_FAILED"
)

// ErrInvalidIdentifier creates an error for a malformed component identifier.
func ErrInvalidIdentifier(s string) error {
	return oops.In("component").
		Code(CodeInvalidIdentifier).
		With("identifier", s).
		Hint("identifiers look like namespace:name using [a-z0-9_.-]").
		Errorf("invalid component identifier %q", s)
}

// ErrUnknownComponent creates an error for an identifier with no definition.
func ErrUnknownComponent(id Identifier) error {
	return oops.In("component").
		Code(CodeUnknownComponent).
		With("identifier", id.String()).
		Errorf("unknown component %s", id)
}
