// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package audit

import (
	"slices"
	"time"

	"github.com/tomtom215/schoolgate/internal/models"
)

// Access log actions.
const (
	// Authentication
	ActionLoginSuccess     = "login.success"
	ActionLoginFailure     = "login.failure"
	ActionLoginUnknownUser = "login.unknown_user"
	ActionLoginLocked      = "login.locked"
	ActionLoginLockout     = "login.lockout"
	ActionLoginInactive    = "login.inactive"
	ActionLogout           = "logout"

	// Credentials
	ActionCredentialChanged      = "credential.changed"
	ActionCredentialChangeFailed = "credential.change_failed"
	ActionCredentialReset        = "credential.reset"

	// Identity administration
	ActionIdentityCreated     = "identity.created"
	ActionIdentityActivated   = "identity.activated"
	ActionIdentityDeactivated = "identity.deactivated"
)

// Actions lists every known action.
var Actions = []string{
	ActionLoginSuccess,
	ActionLoginFailure,
	ActionLoginUnknownUser,
	ActionLoginLocked,
	ActionLoginLockout,
	ActionLoginInactive,
	ActionLogout,
	ActionCredentialChanged,
	ActionCredentialChangeFailed,
	ActionCredentialReset,
	ActionIdentityCreated,
	ActionIdentityActivated,
	ActionIdentityDeactivated,
}

// KnownAction reports whether action is part of the vocabulary.
func KnownAction(action string) bool {
	return slices.Contains(Actions, action)
}

// Severity indicates how interesting an entry is to a reviewer.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Outcome indicates whether the recorded action succeeded.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// SeverityOf classifies an action.
func SeverityOf(action string) Severity {
	switch action {
	case ActionLoginLockout:
		return SeverityCritical
	case ActionLoginFailure, ActionLoginUnknownUser, ActionLoginLocked,
		ActionLoginInactive, ActionCredentialChangeFailed,
		ActionCredentialReset, ActionIdentityDeactivated:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// OutcomeOf reports whether an action records a success.
func OutcomeOf(action string) Outcome {
	switch action {
	case ActionLoginFailure, ActionLoginUnknownUser, ActionLoginLocked,
		ActionLoginLockout, ActionLoginInactive, ActionCredentialChangeFailed:
		return OutcomeFailure
	default:
		return OutcomeSuccess
	}
}

// Filter selects access log entries. Zero fields match everything.
type Filter struct {
	// IdentityID matches entries about that identity.
	IdentityID string `json:"identity_id,omitempty"`

	// ActorID matches entries performed by that administrator.
	ActorID string `json:"actor_id,omitempty"`

	// Actions restricts to the listed actions.
	Actions []string `json:"actions,omitempty"`

	// Since is inclusive.
	Since *time.Time `json:"since,omitempty"`

	// Until is exclusive.
	Until *time.Time `json:"until,omitempty"`

	// Limit caps the number of entries. Zero or negative means DefaultLimit.
	Limit int `json:"limit,omitempty"`

	// Offset skips entries for pagination.
	Offset int `json:"offset,omitempty"`

	// Descending returns the newest entries first.
	Descending bool `json:"descending,omitempty"`
}

const (
	// DefaultLimit is used when a filter sets no limit.
	DefaultLimit = 100

	// MaxLimit bounds a single query.
	MaxLimit = 10000
)

// EffectiveLimit returns Limit clamped to [1, MaxLimit].
func (f *Filter) EffectiveLimit() int {
	switch {
	case f.Limit <= 0:
		return DefaultLimit
	case f.Limit > MaxLimit:
		return MaxLimit
	default:
		return f.Limit
	}
}

// Matches reports whether entry satisfies every set field of the filter.
// Limit, Offset and Descending are not considered.
func (f *Filter) Matches(entry *models.AccessLogEntry) bool {
	if f.IdentityID != "" && entry.IdentityID != f.IdentityID {
		return false
	}
	if f.ActorID != "" && entry.ActorID != f.ActorID {
		return false
	}
	if len(f.Actions) > 0 && !slices.Contains(f.Actions, entry.Action) {
		return false
	}
	if f.Since != nil && entry.Timestamp.Before(*f.Since) {
		return false
	}
	if f.Until != nil && !entry.Timestamp.Before(*f.Until) {
		return false
	}
	return true
}
