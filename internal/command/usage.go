// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import "strings"

// Usage renders one line per overload, for example
// "/give <player: player> <item: string> [count: int]".
func Usage(name string, def Definition) []string {
	lines := make([]string, len(def.Overloads))
	for i, ov := range def.Overloads {
		var b strings.Builder
		b.WriteString("/")
		b.WriteString(name)
		for _, p := range ov.Parameters {
			b.WriteByte(' ')
			open, closing := "<", ">"
			if p.Optional {
				open, closing = "[", "]"
			}
			b.WriteString(open)
			b.WriteString(p.Name)
			b.WriteString(": ")
			b.WriteString(string(p.Type))
			b.WriteString(closing)
		}
		lines[i] = b.String()
	}
	return lines
}
