// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Dispatch outcome labels.
const (
	StatusSuccess          = "success"
	StatusError            = "error"
	StatusNotFound         = "not_found"
	StatusPermissionDenied = "permission_denied"
	StatusRateLimited      = "rate_limited"
	StatusUsage            = "usage"
)

// Dispatcher collectors. RegisterMetrics exposes them on a registry.
var (
	CommandExecutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stonehook_command_executions_total",
		Help: "Command dispatches by command, source, and outcome",
	}, []string{"command", "source", "status"})

	CommandDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stonehook_command_duration_seconds",
		Help:    "Command dispatch duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"command", "source"})

	OverloadMatches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stonehook_command_overload_matches_total",
		Help: "Overload resolutions by command and winning overload index",
	}, []string{"command", "overload"})

	OutputFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stonehook_command_output_failures_total",
		Help: "Result render failures by command",
	}, []string{"command"})
)

// RegisterMetrics registers the dispatcher collectors. It panics on a
// duplicate registration.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(CommandExecutions, CommandDuration, OverloadMatches, OutputFailures)
}

// dispatchRecord accumulates the labels of one dispatch.
type dispatchRecord struct {
	start  time.Time
	name   string
	source string
	status string
}

func newDispatchRecord() *dispatchRecord {
	return &dispatchRecord{start: time.Now(), status: StatusSuccess}
}

func (r *dispatchRecord) matched(index int) {
	OverloadMatches.WithLabelValues(r.name, strconv.Itoa(index)).Inc()
}

// observe writes the record. Unresolved names share one label pair so
// typos cannot grow cardinality.
func (r *dispatchRecord) observe() {
	name, source := r.name, r.source
	if name == "" {
		name, source = "unknown", "none"
	}
	CommandExecutions.WithLabelValues(name, source, r.status).Inc()
	CommandDuration.WithLabelValues(name, source).Observe(time.Since(r.start).Seconds())
}
