// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package policy

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for policy check metrics.
const (
	OutcomeAllow         = "allow"
	OutcomeDeny          = "deny"
	OutcomeDefault       = "default"
	OutcomeShapeMismatch = "shape_mismatch"
	OutcomeUnknown       = "unknown_policy"
)

// PolicyChecks counts policy checks by policy and outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var PolicyChecks = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "stonehook_policy_checks_total",
		Help: "Total number of policy checks",
	},
	[]string{"policy", "outcome"},
)

// PolicyCheckDuration observes how long a full handler chain took.
var PolicyCheckDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "stonehook_policy_check_duration_seconds",
		Help:    "Policy check duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
	},
	[]string{"policy"},
)

// HandlerPanics counts handlers that panicked and were treated as pass.
var HandlerPanics = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "stonehook_policy_handler_panics_total",
		Help: "Total number of policy handler panics",
	},
	[]string{"policy", "source"},
)

// RegisterMetrics registers policy package metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(PolicyChecks)
	reg.MustRegister(PolicyCheckDuration)
	reg.MustRegister(HandlerPanics)
}

func recordCheck(policy, outcome string, d time.Duration) {
	PolicyChecks.WithLabelValues(policy, outcome).Inc()
	if outcome != OutcomeUnknown {
		PolicyCheckDuration.WithLabelValues(policy).Observe(d.Seconds())
	}
}
