// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

package auth

import "github.com/prometheus/client_golang/prometheus"

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultError   = "error"
)

// Reset stages.
const (
	StageRequest = "request"
	StageRedeem  = "redeem"
)

// Logins counts login attempts by role and result.
// Use RegisterMetrics to register this with a Prometheus registry.
var Logins = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "researchportal_logins_total",
		Help: "Total number of login attempts",
	},
	[]string{"role", "result"},
)

// PasswordResets counts reset requests and redemptions.
// Use RegisterMetrics to register this with a Prometheus registry.
var PasswordResets = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "researchportal_password_resets_total",
		Help: "Total number of password reset requests and redemptions",
	},
	[]string{"stage", "result"},
)

// RegisterMetrics registers auth metrics with reg.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Logins, PasswordResets)
}

// RecordLogin increments the login counter.
func RecordLogin(role Role, result string) {
	Logins.WithLabelValues(string(role), result).Inc()
}

// RecordPasswordReset increments the reset counter.
func RecordPasswordReset(stage, result string) {
	PasswordResets.WithLabelValues(stage, result).Inc()
}
