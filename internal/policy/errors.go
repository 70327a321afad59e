// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package policy

import "github.com/samber/oops"

// Error codes for policy registration and dispatch.
const (
	CodeRegistrationConflict = "REGISTRATION_CONFLICT"
	CodeInvalidDefinition    = "INVALID_DEFINITION"
	CodeRegistrySealed       = "REGISTRY_SEALED"
	CodeUnknownPolicy        = "POLICY_UNKNOWN"
	CodeShapeMismatch        = "SHAPE_MISMATCH"
)

// ErrRegistrationConflict creates an error for a duplicate policy name.
func ErrRegistrationConflict(name string) error {
	return oops.In("policy").
		Code(CodeRegistrationConflict).
		With("policy", name).
		Errorf("policy %s already registered", name)
}

// ErrRegistrySealed creates an error for registration after dispatch began.
func ErrRegistrySealed(name string) error {
	return oops.In("policy").
		Code(CodeRegistrySealed).
		With("policy", name).
		Hint("policies and handlers can only be registered during initialization").
		Errorf("policy registry is sealed")
}

// ErrUnknownPolicy creates an error for an unregistered policy name.
func ErrUnknownPolicy(name string) error {
	return oops.In("policy").
		Code(CodeUnknownPolicy).
		With("policy", name).
		Errorf("unknown policy %s", name)
}

// ErrShapeMismatch creates an error for a payload that does not match the
// policy's declared shape.
func ErrShapeMismatch(name string, cause error) error {
	b := oops.In("policy").Code(CodeShapeMismatch).With("policy", name)
	if cause != nil {
		return b.Errorf("payload does not match policy %s: %v", name, cause)
	}
	return b.Errorf("payload does not match policy %s", name)
}

func invalidName(name string) error {
	return oops.In("policy").
		Code(CodeInvalidDefinition).
		With("policy", name).
		Hint("policy names look like namespace:name").
		Errorf("invalid policy name %q", name)
}

func invalidHandler(name string) error {
	return oops.In("policy").
		Code(CodeInvalidDefinition).
		With("policy", name).
		Errorf("handler for policy %s is nil", name)
}
