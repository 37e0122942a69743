// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/schoolgate/internal/audit"
	"github.com/tomtom215/schoolgate/internal/config"
	"github.com/tomtom215/schoolgate/internal/database"
	"github.com/tomtom215/schoolgate/internal/models"
)

func TestChangeCredentialRoundTrip(t *testing.T) {
	f := setup(t)
	const newSecret = "Window-Garden-88"

	require.NoError(t, f.svc.ChangeCredential(f.ctx, f.teacher.ID, teacherSecret, newSecret))
	assert.Equal(t, audit.ActionCredentialChanged, f.lastEntry(t).Action)

	_, err := f.svc.Login(f.ctx, "ines", teacherSecret, "")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "old secret no longer works")

	_, err = f.svc.Login(f.ctx, "ines", newSecret, "")
	assert.NoError(t, err)
}

func TestChangeCredentialMismatch(t *testing.T) {
	f := setup(t)
	before := f.identity(t, f.teacher.ID)

	err := f.svc.ChangeCredential(f.ctx, f.teacher.ID, "not-the-secret", "Window-Garden-88")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	last := f.lastEntry(t)
	assert.Equal(t, audit.ActionCredentialChangeFailed, last.Action)
	assert.Equal(t, f.teacher.ID, last.IdentityID)
	assert.Equal(t, before.CredentialHash, f.identity(t, f.teacher.ID).CredentialHash)
}

func TestChangeCredentialMismatchWithWeakSecretIsLogged(t *testing.T) {
	f := setup(t)
	before := f.logLen()

	err := f.svc.ChangeCredential(f.ctx, f.teacher.ID, "not-the-secret", "password123")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	assert.NotErrorIs(t, err, ErrValidation)

	assert.Equal(t, before+1, f.logLen())
	assert.Equal(t, audit.ActionCredentialChangeFailed, f.lastEntry(t).Action)
}

func TestChangeCredentialValidation(t *testing.T) {
	f := setup(t)
	before := f.logLen()

	tests := []struct {
		name           string
		id, old, fresh string
	}{
		{"missing id", "", teacherSecret, "Window-Garden-88"},
		{"missing old", f.teacher.ID, "", "Window-Garden-88"},
		{"missing new", f.teacher.ID, teacherSecret, " "},
		{"unchanged", f.teacher.ID, teacherSecret, teacherSecret},
		{"too short", f.teacher.ID, teacherSecret, "Ab1"},
		{"common", f.teacher.ID, teacherSecret, "password123"},
		{"contains login", f.teacher.ID, teacherSecret, "Ines-Secret-99"},
		{"too long", f.teacher.ID, teacherSecret, strings.Repeat("Ab1-", 20)},
		{"unknown identity", "missing", teacherSecret, "Window-Garden-88"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.ChangeCredential(f.ctx, tt.id, tt.old, tt.fresh)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	weak := f.svc.ChangeCredential(f.ctx, f.teacher.ID, teacherSecret, "password123")
	assert.ErrorIs(t, weak, config.ErrWeakCredential)
	assert.Equal(t, before, f.logLen())
}

func TestResetCredentialForcesChange(t *testing.T) {
	f := setup(t)

	for i := 0; i < 5; i++ {
		_, _ = f.svc.Login(f.ctx, "ines", "wrong-secret", "")
	}
	require.True(t, f.identity(t, f.teacher.ID).IsLocked(f.clock.Now()))

	temp, err := f.svc.ResetCredential(f.ctx, f.teacher.ID, f.admin.ID)
	require.NoError(t, err)
	assert.Len(t, temp, 16)

	last := f.lastEntry(t)
	assert.Equal(t, audit.ActionCredentialReset, last.Action)
	assert.Equal(t, f.teacher.ID, last.IdentityID)
	assert.Equal(t, f.admin.ID, last.ActorID)

	ident := f.identity(t, f.teacher.ID)
	assert.Zero(t, ident.FailedAttempts)
	assert.Nil(t, ident.LockedUntil)
	assert.True(t, ident.MustResetCredential)
	assert.NotContains(t, ident.CredentialHash, temp)

	p, err := f.svc.Login(f.ctx, "ines", temp, "")
	require.NoError(t, err)
	assert.True(t, p.MustResetCredential())

	require.NoError(t, f.svc.ChangeCredential(f.ctx, f.teacher.ID, temp, "Window-Garden-88"))
	assert.False(t, f.identity(t, f.teacher.ID).MustResetCredential)
}

func TestAdministrationRequiresAdministrator(t *testing.T) {
	f := setup(t)

	ops := map[string]func(actor string) error{
		"reset": func(actor string) error {
			_, err := f.svc.ResetCredential(f.ctx, f.teacher.ID, actor)
			return err
		},
		"create": func(actor string) error {
			_, err := f.svc.CreateIdentity(f.ctx, NewIdentity{StaffRef: "T-9", LoginName: "rui", Role: "teacher", ActorID: actor})
			return err
		},
		"activate":   func(actor string) error { return f.svc.Activate(f.ctx, f.teacher.ID, actor) },
		"deactivate": func(actor string) error { return f.svc.Deactivate(f.ctx, f.admin.ID, actor) },
	}

	for name, op := range ops {
		for _, actor := range []string{f.teacher.ID, "missing"} {
			err := op(actor)
			var authErr *Error
			require.ErrorAs(t, err, &authErr, "%s by %s", name, actor)
			assert.Equal(t, KindValidation, authErr.Kind)
			assert.Equal(t, errAdministratorRequired, authErr.Message)
		}
	}
}

func TestCreateIdentity(t *testing.T) {
	f := setup(t)

	created, err := f.svc.CreateIdentity(f.ctx, NewIdentity{
		StaffRef:  "C-1",
		LoginName: " Marta.Silva ",
		Role:      "coordinator",
		ActorID:   f.admin.ID,
	})
	require.NoError(t, err)

	ident := created.Identity
	assert.Equal(t, "marta.silva", ident.LoginName)
	assert.Equal(t, models.RoleCoordinator, ident.Role)
	assert.True(t, ident.Active)
	assert.True(t, ident.MustResetCredential)
	assert.Len(t, created.TemporarySecret, 16)
	assert.NotEmpty(t, ident.CredentialHash)

	last := f.lastEntry(t)
	assert.Equal(t, audit.ActionIdentityCreated, last.Action)
	assert.Equal(t, ident.ID, last.IdentityID)
	assert.Equal(t, f.admin.ID, last.ActorID)
	assert.Equal(t, "role=coordinator", last.Detail)

	p, err := f.svc.Login(f.ctx, "marta.silva", created.TemporarySecret, "")
	require.NoError(t, err)
	assert.True(t, p.MustResetCredential())
}

func TestCreateIdentityRejectsInvalidInput(t *testing.T) {
	f := setup(t)
	before := f.logLen()

	tests := []struct {
		name string
		in   NewIdentity
	}{
		{"duplicate login", NewIdentity{StaffRef: "T-2", LoginName: "INES", Role: "teacher"}},
		{"duplicate staff ref", NewIdentity{StaffRef: "T-1", LoginName: "rui", Role: "teacher"}},
		{"bad login charset", NewIdentity{StaffRef: "T-3", LoginName: "rui silva", Role: "teacher"}},
		{"short login", NewIdentity{StaffRef: "T-3", LoginName: "ru", Role: "teacher"}},
		{"unknown role", NewIdentity{StaffRef: "T-3", LoginName: "rui", Role: "janitor"}},
		{"missing staff ref", NewIdentity{LoginName: "rui", Role: "teacher"}},
		{"weak secret", NewIdentity{StaffRef: "T-3", LoginName: "rui", Role: "teacher", Secret: "12345678"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.ActorID = f.admin.ID
			_, err := f.svc.CreateIdentity(f.ctx, tt.in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
	assert.Equal(t, before, f.logLen())
}

func TestActivateDeactivate(t *testing.T) {
	f := setup(t)

	require.NoError(t, f.svc.Deactivate(f.ctx, f.teacher.ID, f.admin.ID))
	assert.False(t, f.identity(t, f.teacher.ID).Active)
	assert.Equal(t, audit.ActionIdentityDeactivated, f.lastEntry(t).Action)

	require.NoError(t, f.svc.Activate(f.ctx, f.teacher.ID, f.admin.ID))
	assert.True(t, f.identity(t, f.teacher.ID).Active)
	last := f.lastEntry(t)
	assert.Equal(t, audit.ActionIdentityActivated, last.Action)
	assert.Equal(t, f.admin.ID, last.ActorID)

	_, err := f.svc.Login(f.ctx, "ines", teacherSecret, "")
	assert.NoError(t, err)
}

func TestDeactivateSelfIsRejected(t *testing.T) {
	f := setup(t)
	before := f.logLen()

	err := f.svc.Deactivate(f.ctx, f.admin.ID, f.admin.ID)
	require.ErrorIs(t, err, ErrValidation)
	assert.True(t, f.identity(t, f.admin.ID).Active)
	assert.Equal(t, before, f.logLen())
}

func TestDeactivatedAdministratorCannotAct(t *testing.T) {
	f := setup(t)

	second, err := f.svc.CreateIdentity(f.ctx, NewIdentity{
		StaffRef: "A-2", LoginName: "deputy", Role: "administrator", ActorID: f.admin.ID,
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Deactivate(f.ctx, f.admin.ID, second.Identity.ID))

	// The deactivated administrator can no longer act.
	err = f.svc.Deactivate(f.ctx, second.Identity.ID, f.admin.ID)
	require.ErrorIs(t, err, ErrValidation)
	assert.True(t, f.identity(t, second.Identity.ID).Active)
}

func TestBootstrapOnlyOnce(t *testing.T) {
	f := setup(t)

	_, err := f.svc.BootstrapAdministrator(f.ctx, "A-9", "second", "Quiet-River-55")
	require.ErrorIs(t, err, ErrValidation)

	n, err := f.store.CountActiveAdministrators(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBootstrapRequiresSecret(t *testing.T) {
	store := database.NewMemoryStore()
	svc, err := NewService(store, testServiceConfig())
	require.NoError(t, err)

	_, err = svc.BootstrapAdministrator(t.Context(), "A-1", "director", "")
	assert.ErrorIs(t, err, ErrValidation)

	admin, err := svc.BootstrapAdministrator(t.Context(), "A-1", "director", adminSecret)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdministrator, admin.Role)
	assert.False(t, admin.MustResetCredential)
}

func TestErrorMatchesByKind(t *testing.T) {
	err := accountLocked(3)
	assert.ErrorIs(t, err, ErrAccountLocked)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
	assert.Contains(t, err.Error(), "3 minute")

	wrapped := storeError(database.ErrStoreUnavailable)
	assert.ErrorIs(t, wrapped, ErrStoreUnavailable)
	assert.ErrorIs(t, wrapped, database.ErrStoreUnavailable)
	assert.Same(t, err, storeError(err).(*Error))

	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
	assert.Equal(t, "unknown", Kind(0).String())
}

func TestRemainingMinutes(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		left time.Duration
		want int
	}{
		{15 * time.Minute, 15},
		{14*time.Minute + time.Second, 15},
		{30 * time.Second, 1},
		{0, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, remainingMinutes(now.Add(tt.left), now), tt.left.String())
	}
}
