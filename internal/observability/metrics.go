// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registrar registers a package's collectors, for example
// policy.RegisterMetrics.
type Registrar func(prometheus.Registerer)

// Metrics are the process-level stonehook collectors.
type Metrics struct {
	ScriptsLoaded prometheus.Gauge
	ConsoleLines  *prometheus.CounterVec
	StatusQueries prometheus.Counter
}

// NewMetrics creates the process-level collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ScriptsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stonehook_scripts_loaded",
			Help: "Number of scripts loaded at startup",
		}),
		ConsoleLines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stonehook_console_lines_total",
			Help: "Console command lines by status",
		}, []string{"status"}),
		StatusQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stonehook_status_requests_total",
			Help: "Requests served by the status endpoint",
		}),
	}
	reg.MustRegister(m.ScriptsLoaded, m.ConsoleLines, m.StatusQueries)
	return m
}
