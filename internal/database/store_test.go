// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/schoolgate/internal/audit"
	"github.com/tomtom215/schoolgate/internal/config"
	"github.com/tomtom215/schoolgate/internal/models"
)

var errBoom = errors.New("boom")

// testConfig returns a SQLite config pointing at a fresh temp file.
func testConfig(t *testing.T) *config.DatabaseConfig {
	t.Helper()
	return &config.DatabaseConfig{
		Driver:             "sqlite",
		Path:               filepath.Join(t.TempDir(), "schoolgate.db"),
		BusyTimeout:        time.Second,
		BreakerMaxRequests: 1,
		BreakerInterval:    time.Minute,
		BreakerTimeout:     time.Minute,
		BreakerFailures:    3,
	}
}

func setupSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := Open(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// storeFactories runs each contract test against every Store implementation.
var storeFactories = map[string]func(t *testing.T) Store{
	"memory": func(t *testing.T) Store { return NewMemoryStore() },
	"sqlite": func(t *testing.T) Store { return setupSQLStore(t) },
}

func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			fn(t, factory(t))
		})
	}
}

func newIdentity(loginName string, role models.Role) *models.Identity {
	now := time.Date(2026, 9, 1, 7, 30, 0, 0, time.UTC)
	return &models.Identity{
		ID:             uuid.NewString(),
		StaffRef:       "staff-" + loginName,
		LoginName:      loginName,
		CredentialHash: "$2a$04$hash",
		Role:           role,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func insert(t *testing.T, s Store, ident *models.Identity) {
	t.Helper()
	err := s.WithTx(context.Background(), func(tx Tx) error {
		return tx.InsertIdentity(context.Background(), ident)
	})
	if err != nil {
		t.Fatalf("InsertIdentity(%s): %v", ident.LoginName, err)
	}
}

func TestIdentityRoundTrip(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		ident := newIdentity("  Ines.Garcia ", models.RoleTeacher)
		insert(t, s, ident)

		got, err := s.IdentityByLoginName(ctx, "INES.GARCIA")
		if err != nil {
			t.Fatalf("IdentityByLoginName: %v", err)
		}
		if got.ID != ident.ID || got.LoginName != "ines.garcia" || got.Role != models.RoleTeacher {
			t.Errorf("unexpected identity %+v", got)
		}
		if got.LastAccessAt != nil || got.LockedUntil != nil {
			t.Error("nullable times should be nil")
		}
		if !got.CreatedAt.Equal(ident.CreatedAt) {
			t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, ident.CreatedAt)
		}

		locked := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
		got.FailedAttempts = 5
		got.LockedUntil = &locked
		got.MustResetCredential = true
		err = s.WithTx(ctx, func(tx Tx) error { return tx.UpdateIdentity(ctx, got) })
		if err != nil {
			t.Fatalf("UpdateIdentity: %v", err)
		}

		again, err := s.IdentityByID(ctx, ident.ID)
		if err != nil {
			t.Fatalf("IdentityByID: %v", err)
		}
		if again.FailedAttempts != 5 || again.LockedUntil == nil || !again.LockedUntil.Equal(locked) || !again.MustResetCredential {
			t.Errorf("update not persisted: %+v", again)
		}
	})
}

func TestIdentityNotFound(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		if _, err := s.IdentityByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("IdentityByID: expected ErrNotFound, got %v", err)
		}
		if _, err := s.IdentityByLoginName(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("IdentityByLoginName: expected ErrNotFound, got %v", err)
		}
		err := s.WithTx(ctx, func(tx Tx) error {
			return tx.UpdateIdentity(ctx, newIdentity("ghost", models.RoleTeacher))
		})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("UpdateIdentity: expected ErrNotFound, got %v", err)
		}
	})
}

func TestIdentityUniqueness(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		insert(t, s, newIdentity("marc", models.RoleTeacher))

		dupLogin := newIdentity("MARC", models.RoleCoordinator)
		dupLogin.StaffRef = "other"
		err := s.WithTx(ctx, func(tx Tx) error { return tx.InsertIdentity(ctx, dupLogin) })
		if !errors.Is(err, ErrConflict) {
			t.Errorf("duplicate login: expected ErrConflict, got %v", err)
		}

		dupStaff := newIdentity("marc2", models.RoleTeacher)
		dupStaff.StaffRef = "staff-marc"
		err = s.WithTx(ctx, func(tx Tx) error { return tx.InsertIdentity(ctx, dupStaff) })
		if !errors.Is(err, ErrConflict) {
			t.Errorf("duplicate staff ref: expected ErrConflict, got %v", err)
		}
	})
}

func TestWithTxRollsBack(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		ident := newIdentity("rollback", models.RoleTeacher)
		insert(t, s, ident)

		err := s.WithTx(ctx, func(tx Tx) error {
			ident.FailedAttempts = 3
			if err := tx.UpdateIdentity(ctx, ident); err != nil {
				return err
			}
			if err := tx.AppendAccessLog(ctx, audit.LoginEntry(audit.ActionLoginFailure, ident.ID, "rollback", "", "", time.Now())); err != nil {
				return err
			}
			return errBoom
		})
		if !errors.Is(err, errBoom) {
			t.Fatalf("expected callback error, got %v", err)
		}

		got, err := s.IdentityByID(ctx, ident.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.FailedAttempts != 0 {
			t.Errorf("FailedAttempts = %d after rollback", got.FailedAttempts)
		}
		entries, err := s.QueryAccessLog(ctx, audit.Filter{})
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 0 {
			t.Errorf("expected no log entries after rollback, got %d", len(entries))
		}
	})
}

func TestCountActiveAdministrators(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		insert(t, s, newIdentity("root", models.RoleAdministrator))
		off := newIdentity("old-root", models.RoleAdministrator)
		off.Active = false
		insert(t, s, off)
		insert(t, s, newIdentity("teach", models.RoleTeacher))

		n, err := s.CountActiveAdministrators(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Errorf("CountActiveAdministrators = %d, want 1", n)
		}

		all, err := s.ListIdentities(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(all) != 3 || all[0].LoginName != "old-root" {
			t.Errorf("ListIdentities = %v", all)
		}
	})
}

func TestSeedAndGrants(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		catalog := []models.Permission{
			{Code: "grades.view", Module: "grades", Description: "View grades"},
			{Code: "grades.edit", Module: "grades", Description: "Edit grades"},
			{Code: "students.create", Module: "students", Description: "Create students"},
		}
		grants := []models.RoleGrant{
			{Role: models.RoleTeacher, Code: "grades.view"},
			{Role: models.RoleTeacher, Code: "grades.view"},
			{Role: models.RoleCoordinator, Code: "grades.view"},
			{Role: models.RoleCoordinator, Code: "students.create"},
		}

		// Run twice: seeding is idempotent.
		for i := 0; i < 2; i++ {
			if err := Seed(ctx, s, catalog, grants); err != nil {
				t.Fatalf("Seed: %v", err)
			}
		}

		perms, err := s.Permissions(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(perms) != 3 {
			t.Errorf("Permissions = %d, want 3", len(perms))
		}

		teacher, err := s.RoleGrants(ctx, models.RoleTeacher)
		if err != nil {
			t.Fatal(err)
		}
		if len(teacher) != 1 || teacher[0] != "grades.view" {
			t.Errorf("teacher grants = %v", teacher)
		}

		admin, err := s.RoleGrants(ctx, models.RoleAdministrator)
		if err != nil {
			t.Fatal(err)
		}
		if len(admin) != 0 {
			t.Errorf("administrator grants must never be stored: %v", admin)
		}
	})
}

func TestSeedRejectsAdministratorGrant(t *testing.T) {
	err := Seed(context.Background(), NewMemoryStore(), nil,
		[]models.RoleGrant{{Role: models.RoleAdministrator, Code: "grades.view"}})
	if !errors.Is(err, ErrAdministratorGrant) {
		t.Fatalf("expected ErrAdministratorGrant, got %v", err)
	}
}

func TestOverrides(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		err := s.WithTx(ctx, func(tx Tx) error {
			if err := tx.SetOverride(ctx, models.Override{IdentityID: "i1", Code: "grades.edit", Kind: models.OverrideAdd}); err != nil {
				return err
			}
			if err := tx.SetOverride(ctx, models.Override{IdentityID: "i1", Code: "grades.view", Kind: models.OverrideAdd}); err != nil {
				return err
			}
			// Replaces the kind of the existing override.
			return tx.SetOverride(ctx, models.Override{IdentityID: "i1", Code: "grades.view", Kind: models.OverrideRemove})
		})
		if err != nil {
			t.Fatalf("SetOverride: %v", err)
		}

		got, err := s.Overrides(ctx, "i1")
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 || got[0].Code != "grades.edit" || got[1].Kind != models.OverrideRemove {
			t.Errorf("Overrides = %+v", got)
		}

		err = s.WithTx(ctx, func(tx Tx) error { return tx.DeleteOverride(ctx, "i1", "grades.edit") })
		if err != nil {
			t.Fatal(err)
		}
		got, _ = s.Overrides(ctx, "i1")
		if len(got) != 1 {
			t.Errorf("after delete: %+v", got)
		}
	})
}

func TestPeriodsAndAssignments(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		if _, err := s.CurrentPeriod(ctx); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound with no periods, got %v", err)
		}

		p1 := &models.AcademicPeriod{ID: "2025", Name: "2025-2026",
			StartsOn: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), EndsOn: time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC), Current: true}
		p2 := &models.AcademicPeriod{ID: "2026", Name: "2026-2027",
			StartsOn: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), EndsOn: time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC), Current: true}

		err := s.WithTx(ctx, func(tx Tx) error {
			if err := tx.SavePeriod(ctx, p1); err != nil {
				return err
			}
			if err := tx.SavePeriod(ctx, p2); err != nil {
				return err
			}
			for _, unit := range []int64{12, 7} {
				if err := tx.AssignUnit(ctx, models.TeachingAssignment{IdentityID: "ines", UnitID: unit, PeriodID: "2026"}); err != nil {
					return err
				}
			}
			// Duplicate assignment is ignored.
			if err := tx.AssignUnit(ctx, models.TeachingAssignment{IdentityID: "ines", UnitID: 7, PeriodID: "2026"}); err != nil {
				return err
			}
			return tx.AssignUnit(ctx, models.TeachingAssignment{IdentityID: "ines", UnitID: 99, PeriodID: "2025"})
		})
		if err != nil {
			t.Fatalf("setup: %v", err)
		}

		current, err := s.CurrentPeriod(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if current.ID != "2026" {
			t.Errorf("current period = %s, want 2026 (only one may be current)", current.ID)
		}

		periods, err := s.Periods(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(periods) != 2 || periods[0].Current {
			t.Errorf("Periods = %+v", periods)
		}

		units, err := s.AssignedUnits(ctx, "ines", "2026")
		if err != nil {
			t.Fatal(err)
		}
		if len(units) != 2 || units[0] != 7 || units[1] != 12 {
			t.Errorf("AssignedUnits = %v, want [7 12]", units)
		}

		err = s.WithTx(ctx, func(tx Tx) error {
			return tx.UnassignUnit(ctx, models.TeachingAssignment{IdentityID: "ines", UnitID: 7, PeriodID: "2026"})
		})
		if err != nil {
			t.Fatal(err)
		}
		units, _ = s.AssignedUnits(ctx, "ines", "2026")
		if len(units) != 1 || units[0] != 12 {
			t.Errorf("after unassign: %v", units)
		}
	})
}

func TestAccessLogQuery(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		base := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

		entries := []*models.AccessLogEntry{
			audit.LoginEntry(audit.ActionLoginFailure, "a", "ana", "desk-1", "", base),
			audit.LoginEntry(audit.ActionLoginSuccess, "a", "ana", "desk-1", "", base.Add(time.Minute)),
			audit.LoginEntry(audit.ActionLoginUnknownUser, "", "nobody", "desk-2", "", base.Add(2*time.Minute)),
			audit.AdminEntry(audit.ActionCredentialReset, "b", "a", "", base.Add(3*time.Minute)),
		}
		err := s.WithTx(ctx, func(tx Tx) error {
			for _, e := range entries {
				if err := tx.AppendAccessLog(ctx, e); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			t.Fatalf("AppendAccessLog: %v", err)
		}
		for i, e := range entries {
			if e.ID == 0 {
				t.Errorf("entry %d has no id", i)
			}
		}

		since := base.Add(time.Minute)
		tests := []struct {
			name    string
			filter  audit.Filter
			actions []string
		}{
			{"all ascending", audit.Filter{}, []string{audit.ActionLoginFailure, audit.ActionLoginSuccess, audit.ActionLoginUnknownUser, audit.ActionCredentialReset}},
			{"descending with limit", audit.Filter{Descending: true, Limit: 2}, []string{audit.ActionCredentialReset, audit.ActionLoginUnknownUser}},
			{"offset", audit.Filter{Offset: 3}, []string{audit.ActionCredentialReset}},
			{"by identity", audit.Filter{IdentityID: "a"}, []string{audit.ActionLoginFailure, audit.ActionLoginSuccess}},
			{"by actor", audit.Filter{ActorID: "a"}, []string{audit.ActionCredentialReset}},
			{"by actions", audit.Filter{Actions: []string{audit.ActionLoginUnknownUser, audit.ActionLoginFailure}}, []string{audit.ActionLoginFailure, audit.ActionLoginUnknownUser}},
			{"since", audit.Filter{Since: &since}, []string{audit.ActionLoginSuccess, audit.ActionLoginUnknownUser, audit.ActionCredentialReset}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := s.QueryAccessLog(ctx, tt.filter)
				if err != nil {
					t.Fatal(err)
				}
				if len(got) != len(tt.actions) {
					t.Fatalf("got %d entries, want %d", len(got), len(tt.actions))
				}
				for i := range got {
					if got[i].Action != tt.actions[i] {
						t.Errorf("entry %d action = %s, want %s", i, got[i].Action, tt.actions[i])
					}
				}
			})
		}

		unknown, _ := s.QueryAccessLog(ctx, audit.Filter{Actions: []string{audit.ActionLoginUnknownUser}})
		if len(unknown) != 1 || unknown[0].IdentityID != "" || unknown[0].LoginAttempted != "nobody" || unknown[0].Origin != "desk-2" {
			t.Errorf("unknown-user entry = %+v", unknown)
		}
		if !unknown[0].Timestamp.Equal(base.Add(2 * time.Minute)) {
			t.Errorf("timestamp = %v", unknown[0].Timestamp)
		}
	})
}

func TestMemoryStoreFaultAbortsTransaction(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	ident := newIdentity("faulty", models.RoleTeacher)
	insert(t, s, ident)

	s.SetFault(func(op string) error {
		if op == "append_access_log" {
			return ErrStoreUnavailable
		}
		return nil
	})

	err := s.WithTx(ctx, func(tx Tx) error {
		ident.FailedAttempts = 1
		if err := tx.UpdateIdentity(ctx, ident); err != nil {
			return err
		}
		return tx.AppendAccessLog(ctx, &models.AccessLogEntry{Action: audit.ActionLoginFailure})
	})
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}

	s.SetFault(nil)
	got, _ := s.IdentityByID(ctx, ident.ID)
	if got.FailedAttempts != 0 {
		t.Error("failed transaction leaked state")
	}
	if len(s.AccessLog()) != 0 {
		t.Error("failed transaction leaked a log entry")
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	ident := newIdentity("copy", models.RoleTeacher)
	insert(t, s, ident)

	got, _ := s.IdentityByID(ctx, ident.ID)
	got.FailedAttempts = 42

	again, _ := s.IdentityByID(ctx, ident.ID)
	if again.FailedAttempts != 0 {
		t.Error("mutating a returned identity changed the store")
	}
}
