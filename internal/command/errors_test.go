// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"errors"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
)

func TestPlayerMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "Something went wrong. Try again."},
		{"plain error", errors.New("internal"), "Something went wrong. Try again."},
		{"unknown command", ErrUnknownCommand("fly"), "Unknown command: fly. Try 'help'."},
		{"usage", ErrNoMatchingOverload("give", []string{"/give <p: player>"}), "Usage:\n/give <p: player>"},
		{"usage without forms", oops.Code(CodeUsage).Errorf("bad"), "Invalid arguments."},
		{"permission", ErrPermissionDenied("stop", 0, 4), "You don't have permission to do that."},
		{"rate limited", ErrRateLimited(500), "Too many commands. Please slow down."},
		{"world", WorldError("Nothing to pick up.", errors.New("empty")), "Nothing to pick up."},
		{"parse", errParse("n", TypeInt, "x", "not a 32-bit integer"), `cannot parse "x" as int: not a 32-bit integer`},
		{"other code", ErrRegistrySealed("late"), "Something went wrong. Try again."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlayerMessage(tt.err))
		})
	}
}
