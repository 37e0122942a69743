// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package auth

import (
	"math"
	"time"

	"github.com/tomtom215/schoolgate/internal/audit"
	"github.com/tomtom215/schoolgate/internal/config"
	"github.com/tomtom215/schoolgate/internal/models"
)

// Default lockout values used when the configuration leaves them unset.
const (
	DefaultMaxAttempts     = 5
	DefaultLockoutDuration = 15 * time.Minute
)

// lockoutPolicy decides the outcome of a login attempt against a known
// identity. It works on the persisted counters only; there is no in-memory
// tracking, so a restart does not reset a lockout.
type lockoutPolicy struct {
	maxAttempts int
	duration    time.Duration
}

func newLockoutPolicy(cfg config.LockoutConfig) lockoutPolicy {
	p := lockoutPolicy{maxAttempts: cfg.MaxAttempts, duration: cfg.Duration}
	if p.maxAttempts <= 0 {
		p.maxAttempts = DefaultMaxAttempts
	}
	if p.duration <= 0 {
		p.duration = DefaultLockoutDuration
	}
	return p
}

// attempt is the evaluated outcome of one login attempt.
type attempt struct {
	// action is the access log action to record.
	action string
	// err is nil on success.
	err *Error
	// persist is true when the identity was modified and must be written.
	persist bool
}

// evaluate applies one attempt to ident, mutating its counters in place.
// match is the result of comparing the supplied secret with the stored hash.
func (p lockoutPolicy) evaluate(ident *models.Identity, match bool, now time.Time) attempt {
	if ident.IsLocked(now) {
		return attempt{
			action: audit.ActionLoginLocked,
			err:    accountLocked(remainingMinutes(*ident.LockedUntil, now)),
		}
	}

	var persist bool
	if ident.LockExpired(now) {
		ident.LockedUntil = nil
		ident.FailedAttempts = 0
		ident.UpdatedAt = now
		persist = true
	}

	if !ident.Active {
		return attempt{action: audit.ActionLoginInactive, err: accountInactive(), persist: persist}
	}

	if !match {
		ident.FailedAttempts++
		ident.UpdatedAt = now
		if ident.FailedAttempts >= p.maxAttempts {
			until := now.Add(p.duration)
			ident.LockedUntil = &until
			return attempt{
				action:  audit.ActionLoginLockout,
				err:     accountLocked(remainingMinutes(until, now)),
				persist: true,
			}
		}
		return attempt{
			action:  audit.ActionLoginFailure,
			err:     invalidCredentials(p.maxAttempts - ident.FailedAttempts),
			persist: true,
		}
	}

	ident.FailedAttempts = 0
	ident.LockedUntil = nil
	ident.LastAccessAt = &now
	ident.UpdatedAt = now
	return attempt{action: audit.ActionLoginSuccess, persist: true}
}

// remainingMinutes rounds the time left until until up to whole minutes,
// never returning less than one.
func remainingMinutes(until, now time.Time) int {
	m := int(math.Ceil(until.Sub(now).Minutes()))
	if m < 1 {
		return 1
	}
	return m
}
