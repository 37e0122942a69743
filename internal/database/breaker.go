// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package database

import (
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/schoolgate/internal/config"
	"github.com/tomtom215/schoolgate/internal/logging"
	"github.com/tomtom215/schoolgate/internal/metrics"
)

const breakerName = "credential-store"

// newBreaker builds the circuit breaker guarding every store call.
//
// Only ErrStoreUnavailable counts as a failure. Not-found, conflicts and
// errors returned by transaction callbacks are outcomes, not outages.
func newBreaker(cfg *config.DatabaseConfig) *gobreaker.CircuitBreaker[struct{}] {
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	metrics.SetStoreBreakerState(stateToInt(gobreaker.StateClosed))

	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			trip := counts.ConsecutiveFailures >= failures
			if trip {
				logging.Warn().Uint32("consecutive_failures", counts.ConsecutiveFailures).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return trip
		},

		OnStateChange: func(_ string, from, to gobreaker.State) {
			logging.Info().Str("from", from.String()).Str("to", to.String()).Msg("[CIRCUIT BREAKER] State transition")
			metrics.SetStoreBreakerState(stateToInt(to))
		},

		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, ErrStoreUnavailable)
		},
	})
}

// stateToInt converts circuit breaker state to numeric value for metrics.
func stateToInt(state gobreaker.State) int {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// execute runs fn through the breaker and records latency and error metrics.
func (s *SQLStore) execute(op string, fn func() error) error {
	start := time.Now()
	_, err := s.cb.Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
	}
	if isConnectionError(err) {
		logging.Warn().Str("operation", op).Err(err).Msg("Credential store connection error")
	}
	metrics.RecordStoreOperation(op, time.Since(start), errorType(err))
	return err
}

// BreakerState reports the current breaker state.
func (s *SQLStore) BreakerState() string {
	return s.cb.State().String()
}
