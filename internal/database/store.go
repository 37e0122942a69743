// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package database

import (
	"context"
	"errors"

	"github.com/tomtom215/schoolgate/internal/audit"
	"github.com/tomtom215/schoolgate/internal/models"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("conflicts with an existing record")

	// ErrStoreUnavailable is returned for driver and connection failures and
	// while the circuit breaker is open.
	ErrStoreUnavailable = errors.New("credential store unavailable")
)

// Queries are the read operations shared by the store and its transactions.
type Queries interface {
	IdentityByID(ctx context.Context, id string) (*models.Identity, error)
	IdentityByLoginName(ctx context.Context, loginName string) (*models.Identity, error)
	ListIdentities(ctx context.Context) ([]models.Identity, error)

	// CountActiveAdministrators is used by bootstrap and self-deactivation checks.
	CountActiveAdministrators(ctx context.Context) (int, error)

	Permissions(ctx context.Context) ([]models.Permission, error)
	RoleGrants(ctx context.Context, role models.Role) ([]string, error)
	Overrides(ctx context.Context, identityID string) ([]models.Override, error)

	// CurrentPeriod returns ErrNotFound when no period is marked current.
	CurrentPeriod(ctx context.Context) (*models.AcademicPeriod, error)
	Periods(ctx context.Context) ([]models.AcademicPeriod, error)
	AssignedUnits(ctx context.Context, identityID, periodID string) ([]int64, error)

	QueryAccessLog(ctx context.Context, filter audit.Filter) ([]models.AccessLogEntry, error)
}

// Tx is a unit of work. Writes are only reachable through a transaction.
type Tx interface {
	Queries

	// InsertIdentity returns ErrConflict for a duplicate login name or staff ref.
	InsertIdentity(ctx context.Context, identity *models.Identity) error

	// UpdateIdentity persists the mutable fields. LoginName and StaffRef are fixed.
	UpdateIdentity(ctx context.Context, identity *models.Identity) error

	// AppendAccessLog assigns entry.ID.
	AppendAccessLog(ctx context.Context, entry *models.AccessLogEntry) error

	UpsertPermission(ctx context.Context, permission models.Permission) error
	ReplaceRoleGrants(ctx context.Context, role models.Role, codes []string) error

	// SetOverride keeps one override per identity and code; the kind is replaced.
	SetOverride(ctx context.Context, override models.Override) error
	DeleteOverride(ctx context.Context, identityID, code string) error

	// SavePeriod inserts or updates a period. Saving a current period clears
	// the flag on every other period.
	SavePeriod(ctx context.Context, period *models.AcademicPeriod) error
	AssignUnit(ctx context.Context, assignment models.TeachingAssignment) error
	UnassignUnit(ctx context.Context, assignment models.TeachingAssignment) error
}

// Store is the credential store.
type Store interface {
	Queries

	// WithTx runs fn in a transaction. A non-nil error from fn rolls back
	// and is returned unchanged.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
}
