// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package scope

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/schoolgate/internal/database"
	"github.com/tomtom215/schoolgate/internal/logging"
	"github.com/tomtom215/schoolgate/internal/metrics"
	"github.com/tomtom215/schoolgate/internal/models"
	"github.com/tomtom215/schoolgate/internal/session"
)

// AssignmentSource is the subset of the credential store the resolver reads.
// database.Store satisfies it.
type AssignmentSource interface {
	CurrentPeriod(ctx context.Context) (*models.AcademicPeriod, error)
	AssignedUnits(ctx context.Context, identityID, periodID string) ([]int64, error)
}

var _ AssignmentSource = (database.Store)(nil)

// Resolver computes the visible units of an identity.
type Resolver struct {
	source      AssignmentSource
	enforcement session.Enforcement
}

// NewResolver creates a resolver reading teaching assignments from source.
// A nil enforcement is treated as always on.
func NewResolver(source AssignmentSource, enforcement session.Enforcement) *Resolver {
	return &Resolver{source: source, enforcement: enforcement}
}

// VisibleUnits returns the scope of ident.
//
// Administrators and coordinators are unrestricted. Teachers see the units
// they are assigned in the current academic period; with no current period
// or no assignments they see nothing. A nil identity sees nothing. Store
// failures are returned as errors, never as a wider scope.
func (r *Resolver) VisibleUnits(ctx context.Context, ident *models.Identity) (Scope, error) {
	if r.enforcement != nil && !r.enforcement.Enabled() {
		metrics.RecordScopeResolution("bypass")
		return Unrestricted(), nil
	}
	if ident == nil {
		metrics.RecordScopeResolution("empty")
		return RestrictedTo(), nil
	}

	switch ident.Role {
	case models.RoleAdministrator, models.RoleCoordinator:
		metrics.RecordScopeResolution("unrestricted")
		return Unrestricted(), nil
	case models.RoleTeacher:
	default:
		metrics.RecordScopeResolution("empty")
		return RestrictedTo(), nil
	}

	period, err := r.source.CurrentPeriod(ctx)
	if errors.Is(err, database.ErrNotFound) {
		logging.Ctx(ctx).Debug().Str("identity_id", logging.SanitizeIdentityID(ident.ID)).Msg("No current academic period, scope is empty")
		metrics.RecordScopeResolution("empty")
		return RestrictedTo(), nil
	}
	if err != nil {
		metrics.RecordScopeResolution("error")
		return Scope{}, fmt.Errorf("resolve scope: current period: %w", err)
	}

	units, err := r.source.AssignedUnits(ctx, ident.ID, period.ID)
	if err != nil {
		metrics.RecordScopeResolution("error")
		return Scope{}, fmt.Errorf("resolve scope: assigned units: %w", err)
	}

	if len(units) == 0 {
		metrics.RecordScopeResolution("empty")
	} else {
		metrics.RecordScopeResolution("restricted")
	}
	return RestrictedTo(units...), nil
}

// SessionUnits resolves the scope of the identity held by sess.
func (r *Resolver) SessionUnits(ctx context.Context, sess *session.Context) (Scope, error) {
	ident, _ := sess.Get()
	return r.VisibleUnits(ctx, ident)
}
