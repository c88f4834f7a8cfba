// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-authd.
//
// go-authd is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package metrics provides Prometheus instrumentation for authentication
// flows and the HTTP surface.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all authd metrics.
	Namespace = "authd"

	// Label names
	LabelFlow       = "flow"
	LabelStatus     = "status"
	LabelMethod     = "method"
	LabelStatusCode = "status_code"

	// Status values
	StatusSuccess = "success"
	StatusError   = "error"

	// Flow names
	FlowPassword             = "password"
	FlowWebAuthnRegistration = "webauthn_registration"
	FlowWebAuthnLogin        = "webauthn_login"
	FlowPasswordReset        = "password_reset"
	FlowEmailVerification    = "email_verification"
)

var (
	// AuthAttemptsTotal tracks authentication and enrollment attempts by
	// flow and outcome.
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "auth_attempts_total",
			Help:      "Total number of authentication attempts by flow and status",
		},
		[]string{LabelFlow, LabelStatus},
	)

	// ChallengesIssuedTotal tracks issued WebAuthn challenges by flow.
	ChallengesIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "challenges_issued_total",
			Help:      "Total number of WebAuthn challenges issued by flow",
		},
		[]string{LabelFlow},
	)

	// SessionsIssuedTotal tracks minted session tokens.
	SessionsIssuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sessions_issued_total",
			Help:      "Total number of session tokens issued",
		},
	)

	// HTTPRequestsTotal tracks HTTP requests by method and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method and status code",
		},
		[]string{LabelMethod, LabelStatusCode},
	)

	// HTTPRequestDuration tracks HTTP request latency in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelMethod},
	)

	// ActiveRequests tracks in-flight HTTP requests.
	ActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "active_requests",
			Help:      "Number of HTTP requests currently being served",
		},
	)

	// enabled tracks whether metrics collection is enabled
	enabled atomic.Bool
)

func init() {
	enabled.Store(true)
}

// RecordAuthAttempt records an authentication attempt outcome.
func RecordAuthAttempt(flow string, err error) {
	if !enabled.Load() {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	AuthAttemptsTotal.WithLabelValues(flow, status).Inc()
}

// RecordChallengeIssued records a minted WebAuthn challenge.
func RecordChallengeIssued(flow string) {
	if !enabled.Load() {
		return
	}
	ChallengesIssuedTotal.WithLabelValues(flow).Inc()
}

// RecordSessionIssued records a minted session token.
func RecordSessionIssued() {
	if !enabled.Load() {
		return
	}
	SessionsIssuedTotal.Inc()
}

// RecordHTTPRequest records a served HTTP request.
func RecordHTTPRequest(method, statusCode string, duration float64) {
	if !enabled.Load() {
		return
	}
	HTTPRequestsTotal.WithLabelValues(method, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method).Observe(duration)
}

// Enable enables metrics collection.
func Enable() {
	enabled.Store(true)
}

// Disable disables metrics collection.
func Disable() {
	enabled.Store(false)
}

// IsEnabled returns whether metrics collection is currently enabled.
func IsEnabled() bool {
	return enabled.Load()
}
