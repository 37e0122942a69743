// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package auth

import (
	"context"
	"strings"

	"github.com/tomtom215/schoolgate/internal/audit"
	"github.com/tomtom215/schoolgate/internal/database"
	"github.com/tomtom215/schoolgate/internal/metrics"
)

// ChangeCredential replaces the secret of identityID after verifying
// oldSecret. A successful change clears MustResetCredential.
func (s *Service) ChangeCredential(ctx context.Context, identityID, oldSecret, newSecret string) (err error) {
	defer func() { metrics.RecordCredentialOperation("change", err) }()

	if identityID == "" || strings.TrimSpace(oldSecret) == "" || strings.TrimSpace(newSecret) == "" {
		return validationError("identity, current secret and new secret are required", nil)
	}
	if oldSecret == newSecret {
		return validationError("new secret must differ from the current one", nil)
	}

	ident, err := loadIdentity(ctx, s.store, identityID)
	if err != nil {
		return err
	}
	if !s.verify(ident.CredentialHash, oldSecret) {
		entry := audit.SelfEntry(audit.ActionCredentialChangeFailed, ident.ID, "current secret mismatch", s.clock())
		if err := s.store.WithTx(ctx, func(tx database.Tx) error {
			return tx.AppendAccessLog(ctx, entry)
		}); err != nil {
			return storeError(err)
		}
		failure := invalidCredentials(0)
		s.logEvent(audit.ActionCredentialChangeFailed, ident.ID, "", ident.LoginName, "", failure)
		return failure
	}
	if err := s.checkSecret(newSecret, ident.LoginName); err != nil {
		return err
	}

	hash, err := s.hashSecret(newSecret)
	if err != nil {
		return err
	}

	err = s.store.WithTx(ctx, func(tx database.Tx) error {
		fresh, err := tx.IdentityByID(ctx, ident.ID)
		if err != nil {
			return err
		}
		now := s.clock()
		fresh.CredentialHash = hash
		fresh.MustResetCredential = false
		fresh.UpdatedAt = now
		if err := tx.UpdateIdentity(ctx, fresh); err != nil {
			return err
		}
		return tx.AppendAccessLog(ctx, audit.SelfEntry(audit.ActionCredentialChanged, ident.ID, "", now))
	})
	if err != nil {
		return storeError(err)
	}

	s.logEvent(audit.ActionCredentialChanged, ident.ID, "", ident.LoginName, "", nil)
	return nil
}

// ResetCredential replaces the secret of identityID with a random temporary
// one and returns it. The identity must change it at next login. The lockout
// and attempt counter are cleared. The plaintext is not stored anywhere.
func (s *Service) ResetCredential(ctx context.Context, identityID, actingAdminID string) (secret string, err error) {
	defer func() { metrics.RecordCredentialOperation("reset", err) }()

	if _, err := requireAdministrator(ctx, s.store, actingAdminID); err != nil {
		return "", err
	}
	if _, err := loadIdentity(ctx, s.store, identityID); err != nil {
		return "", err
	}

	temp, err := generateSecret(s.tempLen)
	if err != nil {
		return "", storeError(err)
	}
	hash, err := s.hashSecret(temp)
	if err != nil {
		return "", err
	}

	err = s.store.WithTx(ctx, func(tx database.Tx) error {
		ident, err := tx.IdentityByID(ctx, identityID)
		if err != nil {
			return err
		}
		now := s.clock()
		ident.CredentialHash = hash
		ident.MustResetCredential = true
		ident.FailedAttempts = 0
		ident.LockedUntil = nil
		ident.UpdatedAt = now
		if err := tx.UpdateIdentity(ctx, ident); err != nil {
			return err
		}
		return tx.AppendAccessLog(ctx, audit.AdminEntry(audit.ActionCredentialReset, identityID, actingAdminID, "", now))
	})
	if err != nil {
		return "", storeError(err)
	}

	s.logEvent(audit.ActionCredentialReset, identityID, actingAdminID, "", "", nil)
	return temp, nil
}
