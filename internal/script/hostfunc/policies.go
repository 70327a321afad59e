// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//nolint:gocritic // captLocal: L is the idiomatic name for lua.LState
package hostfunc

import (
	"context"
	"log/slog"

	lua "github.com/yuin/gopher-lua"

	"github.com/holomush/stonehook/internal/logging"
	"github.com/holomush/stonehook/internal/policy"
	"github.com/holomush/stonehook/internal/tag"
)

// hasPolicyFn returns has_policy(name) -> bool.
func (f *Functions) hasPolicyFn() lua.LGFunction {
	return func(L *lua.LState) int {
		name := L.CheckString(1)
		L.Push(lua.LBool(f.policies != nil && f.policies.Has(name)))
		return 1
	}
}

// registerPolicyFn returns register_policy(name [, schema]). The schema is
// a JSON string or a table describing a JSON schema. Failures raise: they
// abort loading the script.
func (f *Functions) registerPolicyFn(script string) lua.LGFunction {
	return func(L *lua.LState) int {
		name := L.CheckString(1)
		if f.policies == nil {
			L.RaiseError("policy registry not configured")
			return 0
		}
		var opts []policy.Option
		switch schema := L.Get(2).(type) {
		case *lua.LNilType:
		case lua.LString:
			opts = append(opts, policy.WithSchema(string(schema)))
		case *lua.LTable:
			doc, err := luaToGo(schema, 0)
			if err != nil {
				L.ArgError(2, err.Error())
			}
			opts = append(opts, policy.WithSchema(doc))
		default:
			L.ArgError(2, "schema must be a string or table")
		}
		if err := f.policies.Register(name, opts...); err != nil {
			L.RaiseError("register_policy %s: %s", name, err.Error())
			return 0
		}
		slog.DebugContext(ctxOf(L), "script registered policy",
			"script", script,
			"policy", name)
		return 0
	}
}

// handlePolicyFn returns handle_policy(name, handler). The handler is
// called as handler(data, is_last) and answers true (allow), false (deny),
// nil (pass), or one of the strings "allow", "deny", "pass".
func (f *Functions) handlePolicyFn(script string) lua.LGFunction {
	return func(L *lua.LState) int {
		name := L.CheckString(1)
		fn := L.CheckFunction(2)
		if f.policies == nil {
			L.RaiseError("policy registry not configured")
			return 0
		}
		h := policyHandler(L, script, name, fn)
		if err := f.policies.Handle(name, h, policy.WithSource(script)); err != nil {
			L.RaiseError("handle_policy %s: %s", name, err.Error())
			return 0
		}
		return 0
	}
}

// checkPolicyFn returns check_policy(name, data, default) -> (allowed, err).
// data is converted to a tag and checked as a custom event.
func (f *Functions) checkPolicyFn(script string) lua.LGFunction {
	return func(L *lua.LState) int {
		name := L.CheckString(1)
		def := lua.LVAsBool(L.Get(3))
		if f.policies == nil {
			return pushUnavailable(L, "check_policy", script, "policy registry")
		}
		var data tag.Tag = tag.End{}
		if v := L.Get(2); v != lua.LNil {
			t, err := toTag(v)
			if err != nil {
				L.Push(lua.LBool(def))
				L.Push(lua.LString(err.Error()))
				return 2
			}
			data = t
		}
		allowed, err := f.policies.Check(ctxOf(L), name, policy.CustomEvent{Data: data}, def)
		L.Push(lua.LBool(allowed))
		if err != nil {
			L.Push(lua.LString(err.Error()))
		} else {
			L.Push(lua.LNil)
		}
		return 2
	}
}

func policyHandler(L *lua.LState, script, name string, fn *lua.LFunction) policy.Handler {
	return func(ctx context.Context, event policy.Event, isLast bool) policy.Verdict {
		ctx = logging.WithScript(ctx, script)
		ret, err := call(ctx, L, fn, 1, eventValue(L, event), lua.LBool(isLast))
		if err != nil {
			slog.WarnContext(ctx, "policy handler failed",
				"policy", name,
				"error", err)
			return policy.Pass
		}
		return verdictOf(ctx, name, ret[0])
	}
}

func verdictOf(ctx context.Context, name string, v lua.LValue) policy.Verdict {
	switch x := v.(type) {
	case *lua.LNilType:
		return policy.Pass
	case lua.LBool:
		return policy.VerdictOf(bool(x))
	case lua.LString:
		switch x {
		case "allow":
			return policy.Allow
		case "deny":
			return policy.Deny
		case "pass":
			return policy.Pass
		}
	}
	slog.WarnContext(ctx, "policy handler returned an invalid verdict",
		"policy", name,
		"value", v.String())
	return policy.Pass
}
