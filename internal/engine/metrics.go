// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Ticks counts engine ticks.
var Ticks = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "stonehook_engine_ticks_total",
		Help: "Total number of engine ticks",
	},
)

// WorkItems counts executed work items by status.
var WorkItems = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "stonehook_engine_work_items_total",
		Help: "Total number of work items executed on the engine goroutine",
	},
	[]string{"status"},
)

// WorkDuration observes how long work items ran.
var WorkDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "stonehook_engine_work_duration_seconds",
		Help:    "Work item duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
	},
)

// RegisterMetrics registers engine metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Ticks)
	reg.MustRegister(WorkItems)
	reg.MustRegister(WorkDuration)
}
