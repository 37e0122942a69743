// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package models

import (
	"errors"
	"testing"
	"time"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		input   string
		want    Role
		wantErr bool
	}{
		{"administrator", RoleAdministrator, false},
		{"Admin", RoleAdministrator, false},
		{"  COORDINATOR ", RoleCoordinator, false},
		{"teacher", RoleTeacher, false},
		{"student", roleUnknown, true},
		{"", roleUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRole(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRole(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRole) {
				t.Errorf("expected ErrInvalidRole, got %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseRole(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestRoleRoundTrip(t *testing.T) {
	for _, r := range Roles {
		if !r.Valid() {
			t.Errorf("%v should be valid", r)
		}
		parsed, err := ParseRole(r.String())
		if err != nil || parsed != r {
			t.Errorf("ParseRole(%q) = %v, %v", r.String(), parsed, err)
		}
	}
	if Role(0).Valid() {
		t.Error("zero role must not be valid")
	}
	if _, err := Role(0).Value(); err == nil {
		t.Error("expected error storing zero role")
	}
}

func TestRoleScan(t *testing.T) {
	var r Role
	if err := r.Scan([]byte("coordinator")); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if r != RoleCoordinator {
		t.Errorf("got %v", r)
	}
	if err := r.Scan(42); err == nil {
		t.Error("expected error scanning int")
	}
}

func TestNormalizeLoginName(t *testing.T) {
	if got := NormalizeLoginName("  Ines.Silva \t"); got != "ines.silva" {
		t.Errorf("NormalizeLoginName = %q", got)
	}
}

func TestIdentityLockState(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	future := now.Add(time.Minute)
	past := now.Add(-time.Minute)

	id := &Identity{}
	if id.IsLocked(now) || id.LockExpired(now) {
		t.Error("no lock set")
	}

	id.LockedUntil = &future
	if !id.IsLocked(now) || id.LockExpired(now) {
		t.Error("expected locked")
	}

	id.LockedUntil = &past
	if id.IsLocked(now) || !id.LockExpired(now) {
		t.Error("expected expired lock")
	}
}

func TestIdentityClone(t *testing.T) {
	ts := time.Now()
	orig := &Identity{ID: "a", LockedUntil: &ts}
	c := orig.Clone()
	*c.LockedUntil = ts.Add(time.Hour)
	if !orig.LockedUntil.Equal(ts) {
		t.Error("clone shares LockedUntil pointer")
	}
	if (*Identity)(nil).Clone() != nil {
		t.Error("nil clone should be nil")
	}
}

func TestParseOverrideKind(t *testing.T) {
	if k, err := ParseOverrideKind("add"); err != nil || k != OverrideAdd {
		t.Errorf("add: %v %v", k, err)
	}
	if k, err := ParseOverrideKind("remove"); err != nil || k != OverrideRemove {
		t.Errorf("remove: %v %v", k, err)
	}
	if _, err := ParseOverrideKind("grant"); err == nil {
		t.Error("expected error")
	}
}
