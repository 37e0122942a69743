// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package auth

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/schoolgate/internal/audit"
	"github.com/tomtom215/schoolgate/internal/database"
	"github.com/tomtom215/schoolgate/internal/logging"
	"github.com/tomtom215/schoolgate/internal/metrics"
	"github.com/tomtom215/schoolgate/internal/models"
	"github.com/tomtom215/schoolgate/internal/session"
)

// Login authenticates loginName with secret. origin names the workstation or
// console the attempt came from and is recorded in the access log.
//
// Every attempt that reaches the store writes exactly one access log entry,
// committed together with any change to the identity's counters. The bcrypt
// comparison runs outside the transaction, so two concurrent failures against
// the same identity may be counted once.
func (s *Service) Login(ctx context.Context, loginName, secret, origin string) (*Principal, error) {
	start := time.Now()
	name := models.NormalizeLoginName(loginName)
	if name == "" || strings.TrimSpace(secret) == "" {
		err := validationError("login name and secret are required", nil)
		metrics.RecordLogin(loginOutcome(err), time.Since(start))
		return nil, err
	}

	if err := s.throttle(ctx); err != nil {
		metrics.RecordLogin(loginOutcome(err), time.Since(start))
		return nil, err
	}

	principal, action, identityID, err := s.login(ctx, name, secret, origin)
	metrics.RecordLogin(loginOutcome(err), time.Since(start))
	if action == audit.ActionLoginLockout {
		metrics.RecordLockout()
	}
	if action != "" {
		s.logEvent(action, identityID, "", name, origin, err)
	}
	if KindOf(err) == KindStoreUnavailable {
		logging.Ctx(ctx).Error().Err(err).Str("login", logging.SanitizeLoginName(name)).Msg("Login failed: credential store unavailable")
	}
	return principal, err
}

// login returns the recorded action alongside the outcome. action is empty
// when nothing was committed.
func (s *Service) login(ctx context.Context, name, secret, origin string) (*Principal, string, string, error) {
	known, err := s.store.IdentityByLoginName(ctx, name)
	if errors.Is(err, database.ErrNotFound) {
		s.burn(secret)
		entry := audit.LoginEntry(audit.ActionLoginUnknownUser, "", name, origin, "", s.clock())
		err := s.store.WithTx(ctx, func(tx database.Tx) error {
			return tx.AppendAccessLog(ctx, entry)
		})
		if err != nil {
			return nil, "", "", storeError(err)
		}
		return nil, audit.ActionLoginUnknownUser, "", invalidCredentials(0)
	}
	if err != nil {
		return nil, "", "", storeError(err)
	}

	match := s.verify(known.CredentialHash, secret)

	var (
		result    attempt
		principal *Principal
	)
	err = s.store.WithTx(ctx, func(tx database.Tx) error {
		principal = nil

		// Re-read so counters written by a concurrent attempt are not lost.
		ident, err := tx.IdentityByID(ctx, known.ID)
		if err != nil {
			return err
		}
		if ident.CredentialHash != known.CredentialHash {
			// The secret changed between the comparison and now.
			match = s.verify(ident.CredentialHash, secret)
		}

		now := s.clock()
		result = s.lockout.evaluate(ident, match, now)
		if result.persist {
			if err := tx.UpdateIdentity(ctx, ident); err != nil {
				return err
			}
		}

		var detail string
		if result.err == nil {
			perms, err := resolvePermissions(ctx, tx, ident)
			if err != nil {
				return err
			}
			principal = &Principal{Identity: ident, Permissions: perms}
		} else if result.action == audit.ActionLoginFailure {
			detail = "attempt " + strconv.Itoa(ident.FailedAttempts)
		}

		return tx.AppendAccessLog(ctx, audit.LoginEntry(result.action, ident.ID, name, origin, detail, now))
	})
	if err != nil {
		return nil, "", "", storeError(err)
	}
	if result.err != nil {
		return nil, result.action, known.ID, result.err
	}
	return principal, result.action, known.ID, nil
}

// Logout records a logout for the identity held by sess and clears it.
// It is a no-op on an empty session. If the entry cannot be written the
// session is left intact.
func (s *Service) Logout(ctx context.Context, sess *session.Context) error {
	ident, ok := sess.Get()
	if !ok {
		sess.Clear()
		return nil
	}

	entry := audit.SelfEntry(audit.ActionLogout, ident.ID, "", s.clock())
	err := s.store.WithTx(ctx, func(tx database.Tx) error {
		return tx.AppendAccessLog(ctx, entry)
	})
	if err != nil {
		return storeError(err)
	}

	sess.Clear()
	s.logEvent(audit.ActionLogout, ident.ID, "", ident.LoginName, "", nil)
	return nil
}

// loginOutcome maps a Login result to its metrics label.
func loginOutcome(err error) string {
	switch KindOf(err) {
	case 0:
		if err != nil {
			return "error"
		}
		return "success"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindAccountLocked:
		return "locked"
	case KindAccountInactive:
		return "inactive"
	case KindValidation:
		return "validation"
	default:
		return "store_unavailable"
	}
}
