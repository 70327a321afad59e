// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package policy

import "fmt"

// Verdict is a handler's answer for one policy check.
type Verdict int

// Verdict constants. Pass defers to the next handler.
const (
	Pass  Verdict = iota // pass
	Allow                // allow
	Deny                 // deny
)

var verdictStrings = [...]string{
	"pass",
	"allow",
	"deny",
}

func (v Verdict) String() string {
	if v >= 0 && int(v) < len(verdictStrings) {
		return verdictStrings[v]
	}
	return fmt.Sprintf("unknown(%d)", int(v))
}

// Decided reports whether v ends the handler chain.
func (v Verdict) Decided() bool {
	return v == Allow || v == Deny
}

// VerdictOf converts an explicit boolean answer into a Verdict.
func VerdictOf(allow bool) Verdict {
	if allow {
		return Allow
	}
	return Deny
}
