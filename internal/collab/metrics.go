// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

package collab

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lnmiit/researchportal/pkg/errutil"
)

// Workflow actions.
const (
	ActionSubmit = "submit"
	ActionAccept = "accept"
	ActionReject = "reject"
)

// Transitions counts workflow actions by outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var Transitions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "researchportal_btp_transitions_total",
		Help: "Total number of BTP request submissions and transitions by result",
	},
	[]string{"action", "result"},
)

// RegisterMetrics registers workflow metrics with reg.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Transitions)
}

// RecordTransition increments the transition counter for err's outcome.
func RecordTransition(action string, err error) {
	Transitions.WithLabelValues(action, outcome(err)).Inc()
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	switch errutil.Code(err) {
	case "REQUEST_CAPACITY_EXCEEDED":
		return "capacity_exceeded"
	case "REQUEST_INVALID_TRANSITION":
		return "invalid_transition"
	case "REQUEST_NOT_FOUND_OR_UNAUTHORIZED", "REQUEST_FACULTY_NOT_FOUND":
		return "not_found"
	case "REQUEST_DUPLICATE", "REQUEST_CONFLICT":
		return "duplicate"
	case "REQUEST_VALIDATION", "REQUEST_INVALID_REFERENCE":
		return "invalid"
	default:
		return "error"
	}
}
