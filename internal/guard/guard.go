// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package guard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/schoolgate/internal/logging"
	"github.com/tomtom215/schoolgate/internal/metrics"
	"github.com/tomtom215/schoolgate/internal/models"
	"github.com/tomtom215/schoolgate/internal/session"
)

// Mode selects how a Requirement combines its permissions.
type Mode uint8

const (
	// AnyOf is satisfied by at least one listed permission.
	AnyOf Mode = iota
	// AllOf requires every listed permission.
	AllOf
)

func (m Mode) String() string {
	if m == AllOf {
		return "all_of"
	}
	return "any_of"
}

// Requirement describes what a protected operation needs.
// Empty Permissions or Roles impose no constraint of that kind, so the zero
// Requirement only requires a logged-in identity.
type Requirement struct {
	Permissions []string
	Mode        Mode

	// Roles is satisfied when the identity holds any one of them.
	Roles []models.Role
}

// Permission requires a single permission.
func Permission(code string) Requirement {
	return Requirement{Permissions: []string{code}}
}

// AnyPermission requires at least one of codes.
func AnyPermission(codes ...string) Requirement {
	return Requirement{Permissions: codes, Mode: AnyOf}
}

// AllPermissions requires every one of codes.
func AllPermissions(codes ...string) Requirement {
	return Requirement{Permissions: codes, Mode: AllOf}
}

// Role requires any one of roles.
func Role(roles ...models.Role) Requirement {
	return Requirement{Roles: roles}
}

// Reason classifies a denial.
type Reason string

const (
	ReasonNotLoggedIn       Reason = "not_logged_in"
	ReasonMissingPermission Reason = "missing_permission"
	ReasonRoleMismatch      Reason = "role_mismatch"
)

// ErrDenied matches every *Denial with errors.Is.
var ErrDenied = errors.New("access denied")

// Denial explains why a requirement was not met.
type Denial struct {
	Reason Reason

	// Missing lists the required permissions the identity lacks. For AnyOf
	// requirements it lists all of them.
	Missing []string

	// Roles is the accepted role list when the role check failed.
	Roles []models.Role
}

func (d *Denial) Error() string {
	switch d.Reason {
	case ReasonNotLoggedIn:
		return "access denied: must be logged in"
	case ReasonMissingPermission:
		return fmt.Sprintf("access denied: missing permission %s", strings.Join(d.Missing, ", "))
	case ReasonRoleMismatch:
		names := make([]string, len(d.Roles))
		for i, r := range d.Roles {
			names[i] = r.String()
		}
		return fmt.Sprintf("access denied: requires role %s", strings.Join(names, " or "))
	default:
		return ErrDenied.Error()
	}
}

func (d *Denial) Is(target error) bool {
	return target == ErrDenied
}

// Check evaluates req against the session. It returns nil when access is
// allowed. While enforcement is switched off every requirement passes.
func Check(sess *session.Context, req Requirement) *Denial {
	if !sess.Enforced() {
		metrics.RecordGuardDecision(true, "bypass")
		return nil
	}

	d := evaluate(sess, req)
	if d == nil {
		metrics.RecordGuardDecision(true, "granted")
		return nil
	}

	metrics.RecordGuardDecision(false, string(d.Reason))
	logging.Debug().
		Str("reason", string(d.Reason)).
		Strs("missing", d.Missing).
		Msg("Access denied")
	return d
}

func evaluate(sess *session.Context, req Requirement) *Denial {
	if !sess.IsLoggedIn() {
		return &Denial{Reason: ReasonNotLoggedIn}
	}

	if len(req.Permissions) > 0 {
		perms := sess.Permissions()
		switch req.Mode {
		case AllOf:
			if missing := perms.Missing(req.Permissions...); len(missing) > 0 {
				return &Denial{Reason: ReasonMissingPermission, Missing: missing}
			}
		default:
			if !perms.HasAny(req.Permissions...) {
				return &Denial{Reason: ReasonMissingPermission, Missing: append([]string(nil), req.Permissions...)}
			}
		}
	}

	if len(req.Roles) > 0 && !hasAnyRole(sess, req.Roles) {
		return &Denial{Reason: ReasonRoleMismatch, Roles: append([]models.Role(nil), req.Roles...)}
	}
	return nil
}

func hasAnyRole(sess *session.Context, roles []models.Role) bool {
	for _, r := range roles {
		if sess.IsRole(r) {
			return true
		}
	}
	return false
}

// Wrap returns op guarded by req. The check runs on every call, against the
// session state at that moment. A denied call returns the zero T and a
// *Denial without running op.
func Wrap[T any](sess *session.Context, req Requirement, op func(context.Context) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		if d := Check(sess, req); d != nil {
			var zero T
			logging.Ctx(ctx).Debug().Str("reason", string(d.Reason)).Msg("Guarded operation skipped")
			return zero, d
		}
		return op(ctx)
	}
}

// Do runs op if req is satisfied, otherwise returns the *Denial.
func Do(ctx context.Context, sess *session.Context, req Requirement, op func(context.Context) error) error {
	_, err := Wrap(sess, req, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})(ctx)
	return err
}
