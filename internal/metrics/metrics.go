// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Prometheus instrumentation for the access control core:
// - Login outcomes and latency
// - Permission resolution and guard decisions
// - Credential store latency, errors and breaker state
// - Background dispatch queue

var (
	// Authentication Metrics
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schoolgate_login_attempts_total",
			Help: "Total number of login attempts by outcome",
		},
		[]string{"outcome"}, // success, invalid_credentials, locked, inactive, validation, store_unavailable
	)

	LoginDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "schoolgate_login_duration_seconds",
			Help: "Duration of login attempts in seconds (dominated by bcrypt)",
			// bcrypt at cost 10-14 lands between 50ms and 1.5s
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	LockoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "schoolgate_lockouts_total",
			Help: "Total number of identities locked out after repeated failures",
		},
	)

	CredentialOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schoolgate_credential_operations_total",
			Help: "Credential and identity administration operations",
		},
		[]string{"operation", "result"},
	)

	// Authorization Metrics
	PermissionResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schoolgate_permission_resolutions_total",
			Help: "Total number of permission set resolutions by role",
		},
		[]string{"role"},
	)

	GuardDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schoolgate_guard_decisions_total",
			Help: "Access guard decisions",
		},
		[]string{"decision", "reason"}, // allow/deny; granted, bypass, not_logged_in, missing_permission, role_mismatch
	)

	ScopeResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schoolgate_scope_resolutions_total",
			Help: "Visible unit scope resolutions by kind",
		},
		[]string{"kind"}, // unrestricted, restricted, empty, bypass, error
	)

	// Credential Store Metrics
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "schoolgate_store_operation_duration_seconds",
			Help:    "Duration of credential store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schoolgate_store_errors_total",
			Help: "Credential store errors by operation and type",
		},
		[]string{"operation", "error_type"},
	)

	StoreBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "schoolgate_store_breaker_state",
			Help: "Credential store circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// Dispatch Metrics
	DispatchQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "schoolgate_dispatch_queue_depth",
			Help: "Jobs waiting for a background worker",
		},
	)

	DispatchJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schoolgate_dispatch_jobs_total",
			Help: "Background jobs by result",
		},
		[]string{"result"}, // ok, error, rejected
	)
)

// RecordLogin records a login attempt outcome and its duration.
func RecordLogin(outcome string, duration time.Duration) {
	LoginAttempts.WithLabelValues(outcome).Inc()
	LoginDuration.Observe(duration.Seconds())
}

// RecordLockout increments the lockout counter.
func RecordLockout() {
	LockoutsTotal.Inc()
}

// RecordCredentialOperation records an administration operation.
func RecordCredentialOperation(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	CredentialOperations.WithLabelValues(operation, result).Inc()
}

// RecordPermissionResolution records a resolved permission set.
func RecordPermissionResolution(role string) {
	PermissionResolutions.WithLabelValues(role).Inc()
}

// RecordGuardDecision records an allow or deny decision with its reason.
func RecordGuardDecision(allowed bool, reason string) {
	decision := "allow"
	if !allowed {
		decision = "deny"
	}
	GuardDecisions.WithLabelValues(decision, reason).Inc()
}

// RecordScopeResolution records the kind of scope handed out.
func RecordScopeResolution(kind string) {
	ScopeResolutions.WithLabelValues(kind).Inc()
}

// RecordStoreOperation records store latency and, when errorType is set, an error.
func RecordStoreOperation(operation string, duration time.Duration, errorType string) {
	StoreOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if errorType != "" {
		StoreErrors.WithLabelValues(operation, errorType).Inc()
	}
}

// SetStoreBreakerState records the breaker state as a gauge value.
func SetStoreBreakerState(state int) {
	StoreBreakerState.Set(float64(state))
}

// RecordDispatchJob records a finished or rejected background job.
func RecordDispatchJob(result string) {
	DispatchJobs.WithLabelValues(result).Inc()
}

// WriteText writes every registered metric in the Prometheus text format.
// The admin console uses it in place of an HTTP scrape endpoint.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
