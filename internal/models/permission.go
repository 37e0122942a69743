// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package models

import "fmt"

// Permission is an immutable catalog entry.
type Permission struct {
	// Code is the stable namespaced identifier, e.g. "students.create".
	Code        string `json:"code"`
	Description string `json:"description"`
	// Module is the application area that owns the permission.
	Module string `json:"module"`
}

// OverrideKind says whether an override adds or removes a permission.
type OverrideKind uint8

const (
	overrideUnknown OverrideKind = iota
	OverrideAdd
	OverrideRemove
)

// String returns "add" or "remove".
func (k OverrideKind) String() string {
	switch k {
	case OverrideAdd:
		return "add"
	case OverrideRemove:
		return "remove"
	case overrideUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("override(%d)", uint8(k))
	}
}

// ParseOverrideKind converts "add" or "remove" into an OverrideKind.
func ParseOverrideKind(s string) (OverrideKind, error) {
	switch s {
	case "add":
		return OverrideAdd, nil
	case "remove":
		return OverrideRemove, nil
	default:
		return overrideUnknown, fmt.Errorf("invalid override kind %q", s)
	}
}

// Override is a per-identity addition or removal layered on top of the role baseline.
type Override struct {
	IdentityID string       `json:"identity_id"`
	Code       string       `json:"code"`
	Kind       OverrideKind `json:"kind"`
}

// RoleGrant assigns a permission to a role as part of its baseline.
type RoleGrant struct {
	Role Role   `json:"role"`
	Code string `json:"code"`
}
