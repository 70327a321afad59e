// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"strings"

	"github.com/buildkite/shellwords"
	"github.com/samber/oops"
)

// ParsedCommand represents a tokenized command line.
type ParsedCommand struct {
	Name   string   // command name (first word, without a leading slash)
	Tokens []string // remaining words
	Raw    string   // original input
}

// Parse splits a raw command line into words using POSIX shell quoting.
// A leading "/" on the command name is dropped.
func Parse(input string) (*ParsedCommand, error) {
	trimmed := strings.TrimSpace(input)
	trimmed = strings.TrimPrefix(trimmed, "/")
	if trimmed == "" {
		return nil, oops.In("command").Code(CodeUsage).Errorf("no command provided")
	}

	words, err := shellwords.SplitPosix(trimmed)
	if err != nil {
		return nil, oops.In("command").
			Code(CodeParse).
			With("input", input).
			Wrapf(err, "cannot split command line")
	}
	if len(words) == 0 {
		return nil, oops.In("command").Code(CodeUsage).Errorf("no command provided")
	}

	return &ParsedCommand{
		Name:   words[0],
		Tokens: words[1:],
		Raw:    input,
	}, nil
}
