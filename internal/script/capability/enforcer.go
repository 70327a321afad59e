// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package capability provides runtime capability enforcement for scripts.
//
// Pattern matching uses gobwas/glob with '.' as the segment separator:
//   - '*' matches a single segment (does not cross '.')
//   - '**' matches zero or more segments (crosses '.')
//
// Examples:
//   - "component.*" matches "component.read" but NOT "component.read.block"
//   - "policy.**" matches "policy.handle" and "policy.handle.builtin"
//   - "**" matches any capability
package capability

import (
	"sort"
	"sync"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// Capabilities checked by the server.* host functions.
const (
	PolicyRegister  = "policy.register"
	PolicyHandle    = "policy.handle"
	PolicyCheck     = "policy.check"
	CommandRegister = "command.register"
	ComponentDefine = "component.define"
	ComponentRead   = "component.read"
	ComponentWrite  = "component.write"
	ChatSend        = "chat.send"
	ChatBroadcast   = "chat.broadcast"
	DBOpen          = "db.open"
	StructureRead   = "structure.read"
	StructureWrite  = "structure.write"
)

// All lists every capability a script can be granted.
func All() []string {
	return []string{
		PolicyRegister, PolicyHandle, PolicyCheck,
		CommandRegister,
		ComponentDefine, ComponentRead, ComponentWrite,
		ChatSend, ChatBroadcast,
		DBOpen,
		StructureRead, StructureWrite,
	}
}

// CodeInvalidGrant marks a grant that cannot be compiled.
const CodeInvalidGrant = "CAPABILITY_INVALID_GRANT"

type compiledGrant struct {
	pattern string
	glob    glob.Glob
}

// Enforcer checks script capabilities at runtime.
//
// Enforcer is safe for concurrent use. The zero value is ready to use.
type Enforcer struct {
	grants map[string][]compiledGrant // script name -> compiled grants
	mu     sync.RWMutex
}

// NewEnforcer creates a capability enforcer.
func NewEnforcer() *Enforcer {
	return &Enforcer{
		grants: make(map[string][]compiledGrant),
	}
}

// SetGrants replaces the capabilities of a script. Either every pattern
// compiles and the grants are stored, or nothing changes.
func (e *Enforcer) SetGrants(script string, capabilities []string) error {
	if script == "" {
		return oops.In("capability").Code(CodeInvalidGrant).Errorf("script name cannot be empty")
	}

	compiled := make([]compiledGrant, len(capabilities))
	for i, pattern := range capabilities {
		if pattern == "" {
			return oops.In("capability").Code(CodeInvalidGrant).
				With("script", script).
				Errorf("capability %d: empty capability pattern", i)
		}
		g, err := glob.Compile(pattern, '.')
		if err != nil {
			return oops.In("capability").Code(CodeInvalidGrant).
				With("script", script).
				With("pattern", pattern).
				Wrapf(err, "capability %d", i)
		}
		compiled[i] = compiledGrant{pattern: pattern, glob: g}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.grants == nil {
		e.grants = make(map[string][]compiledGrant)
	}
	e.grants[script] = compiled
	return nil
}

// IsRegistered reports whether the script has been given grants, which
// tells "unknown script" apart from "script lacks capability".
func (e *Enforcer) IsRegistered(script string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.grants[script]
	return ok
}

// RemoveGrants forgets a script. Unknown scripts are ignored.
func (e *Enforcer) RemoveGrants(script string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.grants, script)
}

// Grants returns a copy of the patterns granted to a script, or nil.
func (e *Enforcer) Grants(script string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	grants, ok := e.grants[script]
	if !ok {
		return nil
	}
	patterns := make([]string, len(grants))
	for i, g := range grants {
		patterns[i] = g.pattern
	}
	return patterns
}

// Scripts returns the registered script names, sorted.
func (e *Enforcer) Scripts() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.grants))
	for name := range e.grants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check reports whether the script holds capability. Unknown scripts and
// empty capabilities are denied.
func (e *Enforcer) Check(script, capability string) bool {
	if capability == "" {
		return false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, grant := range e.grants[script] {
		if grant.glob.Match(capability) {
			return true
		}
	}
	return false
}
