// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"strings"

	"github.com/samber/oops"
)

// Error codes for command registration and dispatch failures.
const (
	CodeUsage                = "USAGE"
	CodePermissionDenied     = "PERMISSION_DENIED"
	CodeRateLimited          = "RATE_LIMITED"
	CodeParse                = "PARSE"
	CodeRegistrationConflict = "REGISTRATION_CONFLICT"
	CodeInvalidDefinition    = "INVALID_DEFINITION"
	CodeRegistrySealed       = "REGISTRY_SEALED"
	CodeInvalidName          = "INVALID_NAME"
	CodeWorldError           = "WORLD_ERROR"
	CodeHandlerFailed        = "COMMAND_FAILED"
)

// ErrUnknownCommand creates a usage error for a name with no registration.
func ErrUnknownCommand(cmd string) error {
	return oops.In("command").
		Code(CodeUsage).
		With("command", cmd).
		With("unknown", true).
		Errorf("unknown command: %s", cmd)
}

// ErrNoMatchingOverload creates a usage error listing the valid forms.
func ErrNoMatchingOverload(cmd string, usage []string) error {
	return oops.In("command").
		Code(CodeUsage).
		With("command", cmd).
		With("usage", strings.Join(usage, "\n")).
		Errorf("no overload of %s matches the given arguments", cmd)
}

// ErrPermissionDenied creates an error for an origin below the command level.
func ErrPermissionDenied(cmd string, have, need int) error {
	return oops.In("command").
		Code(CodePermissionDenied).
		With("command", cmd).
		With("have", have).
		With("need", need).
		Errorf("permission denied for command %s", cmd)
}

// ErrRateLimited creates an error for rate limiting.
func ErrRateLimited(cooldownMs int64) error {
	return oops.In("command").
		Code(CodeRateLimited).
		With("cooldown_ms", cooldownMs).
		Errorf("Too many commands. Please slow down.")
}

// ErrRegistrationConflict creates an error for a duplicate command name.
func ErrRegistrationConflict(cmd, existingSource string) error {
	return oops.In("command").
		Code(CodeRegistrationConflict).
		With("command", cmd).
		With("existing_source", existingSource).
		Errorf("command %s already registered", cmd)
}

// ErrRegistrySealed creates an error for registration after dispatch began.
func ErrRegistrySealed(cmd string) error {
	return oops.In("command").
		Code(CodeRegistrySealed).
		With("command", cmd).
		Hint("commands can only be registered during initialization").
		Errorf("command registry is sealed")
}

// WorldError creates an error for world state issues with a player-facing message.
func WorldError(message string, cause error) error {
	builder := oops.In("command").Code(CodeWorldError).With("message", message)
	if cause != nil {
		return builder.Wrap(cause)
	}
	return builder.Errorf("%s", message)
}

func errParse(param string, typ ParamType, token, reason string) error {
	return oops.In("command").
		Code(CodeParse).
		With("param", param).
		With("type", string(typ)).
		With("token", token).
		Errorf("cannot parse %q as %s: %s", token, typ, reason)
}

func errInvalidDefinition(cmd, format string, args ...any) error {
	return oops.In("command").
		Code(CodeInvalidDefinition).
		With("command", cmd).
		Errorf(format, args...)
}

// PlayerMessage extracts a player-facing message from an error.
func PlayerMessage(err error) string {
	if err == nil {
		return "Something went wrong. Try again."
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return "Something went wrong. Try again."
	}

	switch oopsErr.Code() {
	case CodeUsage:
		if unknown, _ := oopsErr.Context()["unknown"].(bool); unknown {
			cmd, _ := oopsErr.Context()["command"].(string)
			return "Unknown command: " + cmd + ". Try 'help'."
		}
		if usage, ok := oopsErr.Context()["usage"].(string); ok && usage != "" {
			return "Usage:\n" + usage
		}
		return "Invalid arguments."
	case CodePermissionDenied:
		return "You don't have permission to do that."
	case CodeParse:
		return oopsErr.Error()
	case CodeWorldError:
		if msg, ok := oopsErr.Context()["message"].(string); ok {
			return msg
		}
		return "Something went wrong. Try again."
	case CodeRateLimited:
		return "Too many commands. Please slow down."
	default:
		return "Something went wrong. Try again."
	}
}
