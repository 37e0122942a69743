// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package models

import (
	"strings"
	"time"
)

// Identity is an authenticatable account linked to a staff record.
// Identities are never removed; they are deactivated instead.
type Identity struct {
	// ID is a UUID assigned on creation.
	ID string `json:"id"`

	// StaffRef links the identity to a staff record. Unique.
	StaffRef string `json:"staff_ref"`

	// LoginName is unique and stored normalized (see NormalizeLoginName).
	LoginName string `json:"login_name"`

	// CredentialHash is the bcrypt hash of the secret. Never serialized.
	CredentialHash string `json:"-"`

	Role                Role `json:"role"`
	Active              bool `json:"active"`
	MustResetCredential bool `json:"must_reset_credential"`

	// LastAccessAt is set on every successful login.
	LastAccessAt *time.Time `json:"last_access_at,omitempty"`

	// FailedAttempts counts consecutive failed logins since the last success or reset.
	FailedAttempts int `json:"failed_attempts"`

	// LockedUntil is nil unless the account is (or was) locked out.
	LockedUntil *time.Time `json:"locked_until,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NormalizeLoginName trims surrounding whitespace and lower-cases a login name.
func NormalizeLoginName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// IsLocked reports whether the lockout window is still open at now.
func (i *Identity) IsLocked(now time.Time) bool {
	return i.LockedUntil != nil && now.Before(*i.LockedUntil)
}

// LockExpired reports whether a lockout was set and has since elapsed.
func (i *Identity) LockExpired(now time.Time) bool {
	return i.LockedUntil != nil && !now.Before(*i.LockedUntil)
}

// Clone returns a deep copy of the identity.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	if i.LastAccessAt != nil {
		t := *i.LastAccessAt
		c.LastAccessAt = &t
	}
	if i.LockedUntil != nil {
		t := *i.LockedUntil
		c.LockedUntil = &t
	}
	return &c
}
