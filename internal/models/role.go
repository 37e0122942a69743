// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
)

// Role is the coarse-grained category carrying a baseline permission grant.
// The zero value is not a valid role.
type Role uint8

const (
	roleUnknown Role = iota

	// RoleAdministrator implicitly holds every permission.
	RoleAdministrator

	// RoleCoordinator sees every organizational unit.
	RoleCoordinator

	// RoleTeacher is restricted to the units they teach.
	RoleTeacher
)

// ErrInvalidRole is returned when a role name does not match a known role.
var ErrInvalidRole = errors.New("invalid role")

// Roles lists every valid role in declaration order.
var Roles = []Role{RoleAdministrator, RoleCoordinator, RoleTeacher}

// ParseRole converts a role name into a Role. Matching is case-insensitive.
func ParseRole(name string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "administrator", "admin":
		return RoleAdministrator, nil
	case "coordinator":
		return RoleCoordinator, nil
	case "teacher":
		return RoleTeacher, nil
	default:
		return roleUnknown, fmt.Errorf("%w: %q", ErrInvalidRole, name)
	}
}

// String returns the canonical lower-case role name.
func (r Role) String() string {
	switch r {
	case RoleAdministrator:
		return "administrator"
	case RoleCoordinator:
		return "coordinator"
	case RoleTeacher:
		return "teacher"
	case roleUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdministrator, RoleCoordinator, RoleTeacher:
		return true
	case roleUnknown:
		return false
	default:
		return false
	}
}

// Value implements driver.Valuer so roles are stored by name.
func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRole, uint8(r))
	}
	return r.String(), nil
}

// Scan implements sql.Scanner.
func (r *Role) Scan(src any) error {
	var name string
	switch v := src.(type) {
	case string:
		name = v
	case []byte:
		name = string(v)
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrInvalidRole, src)
	}
	parsed, err := ParseRole(name)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRole, uint8(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
