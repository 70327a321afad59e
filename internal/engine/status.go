// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package engine

import (
	"time"
)

// ScriptStatus describes one loaded script.
type ScriptStatus struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Status is a point-in-time snapshot of the engine.
type Status struct {
	Phase         string         `json:"phase"`
	Tick          uint64         `json:"tick"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Policies      int            `json:"policies"`
	Commands      int            `json:"commands"`
	Scripts       []ScriptStatus `json:"scripts"`
}

// Status returns a snapshot safe to call from any goroutine.
func (e *Engine) Status() Status {
	st := Status{
		Phase:    e.Phase().String(),
		Tick:     e.tick.Load(),
		Policies: len(e.policies.All()),
		Commands: len(e.commands.All()),
		Scripts:  []ScriptStatus{},
	}
	if started := e.started.Load(); started != 0 {
		st.UptimeSeconds = int64(time.Since(time.Unix(0, started)).Seconds())
	}
	for _, s := range e.Scripts() {
		st.Scripts = append(st.Scripts, ScriptStatus{Name: s.Manifest.Name, Version: s.Manifest.Version})
	}
	return st
}
