// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"github.com/samber/oops"
)

// match parses tokens against ov. It succeeds when every required
// parameter parses and every token is consumed.
func (ap *argParser) match(ov Overload, tokens []string) (Args, error) {
	var args Args
	rest := tokens
	for _, p := range ov.Parameters {
		if len(rest) == 0 {
			if p.Optional {
				break
			}
			return Args{}, oops.In("command").
				Code(CodeParse).
				With("param", p.Name).
				Errorf("missing required parameter %s", p.Name)
		}
		v, n, err := ap.consume(p, rest)
		if err != nil {
			return Args{}, err
		}
		args.set(p.Name, v)
		rest = rest[n:]
	}
	if len(rest) > 0 {
		return Args{}, oops.In("command").
			Code(CodeParse).
			With("extra", len(rest)).
			Errorf("%d unexpected trailing argument(s)", len(rest))
	}
	return args, nil
}

// resolve picks the first overload of def that matches tokens. It returns
// the overload index, or -1 with the error of the last attempt.
func (ap *argParser) resolve(def Definition, tokens []string) (int, Args, error) {
	var lastErr error
	for i, ov := range def.Overloads {
		args, err := ap.match(ov, tokens)
		if err == nil {
			return i, args, nil
		}
		lastErr = err
	}
	return -1, Args{}, lastErr
}
