// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/tomtom215/schoolgate/internal/audit"
	"github.com/tomtom215/schoolgate/internal/database"
	"github.com/tomtom215/schoolgate/internal/metrics"
	"github.com/tomtom215/schoolgate/internal/models"
	"github.com/tomtom215/schoolgate/internal/validation"
)

func newIdentityID() string {
	return uuid.NewString()
}

// NewIdentity is the input to CreateIdentity.
type NewIdentity struct {
	StaffRef  string `validate:"required,max=64"`
	LoginName string `validate:"required,loginname"`
	Role      string `validate:"required,role"`

	// Secret is optional. When empty a temporary secret is generated and the
	// identity must change it at first login.
	Secret string

	ActorID string `validate:"required"`
}

// CreatedIdentity is the result of CreateIdentity.
type CreatedIdentity struct {
	Identity *models.Identity

	// TemporarySecret is set only when the secret was generated. It is
	// returned once and never stored.
	TemporarySecret string
}

// CreateIdentity adds an active identity. The acting identity must be an
// active administrator.
func (s *Service) CreateIdentity(ctx context.Context, in NewIdentity) (created *CreatedIdentity, err error) {
	defer func() { metrics.RecordCredentialOperation("create", err) }()

	if err := validation.ValidateStruct(&in); err != nil {
		return nil, validationError("invalid identity", err)
	}
	if _, err := requireAdministrator(ctx, s.store, in.ActorID); err != nil {
		return nil, err
	}

	role, _ := models.ParseRole(in.Role)
	ident, temp, err := s.buildIdentity(strings.TrimSpace(in.StaffRef), in.LoginName, role, in.Secret)
	if err != nil {
		return nil, err
	}

	if err := s.insert(ctx, ident, in.ActorID); err != nil {
		return nil, err
	}

	s.logEvent(audit.ActionIdentityCreated, ident.ID, in.ActorID, ident.LoginName, "", nil)
	return &CreatedIdentity{Identity: ident.Clone(), TemporarySecret: temp}, nil
}

// BootstrapAdministrator creates the first administrator. It refuses to run
// once any active administrator exists.
func (s *Service) BootstrapAdministrator(ctx context.Context, staffRef, loginName, secret string) (ident *models.Identity, err error) {
	defer func() { metrics.RecordCredentialOperation("bootstrap", err) }()

	in := NewIdentity{
		StaffRef:  staffRef,
		LoginName: loginName,
		Role:      models.RoleAdministrator.String(),
		Secret:    secret,
		ActorID:   "bootstrap",
	}
	if err := validation.ValidateStruct(&in); err != nil {
		return nil, validationError("invalid identity", err)
	}
	if strings.TrimSpace(secret) == "" {
		return nil, validationError("secret is required", nil)
	}

	ident, _, err = s.buildIdentity(strings.TrimSpace(staffRef), loginName, models.RoleAdministrator, secret)
	if err != nil {
		return nil, err
	}

	err = s.store.WithTx(ctx, func(tx database.Tx) error {
		n, err := tx.CountActiveAdministrators(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return validationError("an administrator already exists", nil)
		}
		return insertWithEntry(ctx, tx, ident, ident.ID)
	})
	if err != nil {
		return nil, mapInsertError(err)
	}

	s.logEvent(audit.ActionIdentityCreated, ident.ID, ident.ID, ident.LoginName, "bootstrap", nil)
	return ident.Clone(), nil
}

// buildIdentity prepares a new identity. It returns the generated temporary
// secret when secret is empty.
func (s *Service) buildIdentity(staffRef, loginName string, role models.Role, secret string) (*models.Identity, string, error) {
	name := models.NormalizeLoginName(loginName)

	var temp string
	if secret == "" {
		var err error
		if temp, err = generateSecret(s.tempLen); err != nil {
			return nil, "", storeError(err)
		}
		secret = temp
	} else if err := s.checkSecret(secret, name); err != nil {
		return nil, "", err
	}

	hash, err := s.hashSecret(secret)
	if err != nil {
		return nil, "", err
	}

	now := s.clock()
	return &models.Identity{
		ID:                  s.newID(),
		StaffRef:            staffRef,
		LoginName:           name,
		CredentialHash:      hash,
		Role:                role,
		Active:              true,
		MustResetCredential: temp != "",
		CreatedAt:           now,
		UpdatedAt:           now,
	}, temp, nil
}

func (s *Service) insert(ctx context.Context, ident *models.Identity, actorID string) error {
	err := s.store.WithTx(ctx, func(tx database.Tx) error {
		return insertWithEntry(ctx, tx, ident, actorID)
	})
	return mapInsertError(err)
}

func insertWithEntry(ctx context.Context, tx database.Tx, ident *models.Identity, actorID string) error {
	if err := tx.InsertIdentity(ctx, ident); err != nil {
		return err
	}
	entry := audit.AdminEntry(audit.ActionIdentityCreated, ident.ID, actorID, "role="+ident.Role.String(), ident.CreatedAt)
	return tx.AppendAccessLog(ctx, entry)
}

func mapInsertError(err error) error {
	if errors.Is(err, database.ErrConflict) {
		return validationError("login name or staff reference already in use", err)
	}
	return storeError(err)
}

// Activate marks identityID active again.
func (s *Service) Activate(ctx context.Context, identityID, actingAdminID string) error {
	return s.setActive(ctx, identityID, actingAdminID, true)
}

// Deactivate blocks identityID from logging in. Administrators cannot
// deactivate themselves, so at least one active administrator always remains.
func (s *Service) Deactivate(ctx context.Context, identityID, actingAdminID string) error {
	if identityID != "" && identityID == actingAdminID {
		err := validationError("administrators cannot deactivate themselves", nil)
		metrics.RecordCredentialOperation("deactivate", err)
		return err
	}
	return s.setActive(ctx, identityID, actingAdminID, false)
}

func (s *Service) setActive(ctx context.Context, identityID, actingAdminID string, active bool) (err error) {
	action, op := audit.ActionIdentityActivated, "activate"
	if !active {
		action, op = audit.ActionIdentityDeactivated, "deactivate"
	}
	defer func() { metrics.RecordCredentialOperation(op, err) }()

	if _, err := requireAdministrator(ctx, s.store, actingAdminID); err != nil {
		return err
	}
	if _, err := loadIdentity(ctx, s.store, identityID); err != nil {
		return err
	}

	err = s.store.WithTx(ctx, func(tx database.Tx) error {
		ident, err := tx.IdentityByID(ctx, identityID)
		if err != nil {
			return err
		}
		now := s.clock()
		ident.Active = active
		ident.UpdatedAt = now
		if err := tx.UpdateIdentity(ctx, ident); err != nil {
			return err
		}
		return tx.AppendAccessLog(ctx, audit.AdminEntry(action, identityID, actingAdminID, "", now))
	})
	if err != nil {
		return storeError(err)
	}

	s.logEvent(action, identityID, actingAdminID, "", "", nil)
	return nil
}
