// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/schoolgate/internal/logging"
	"github.com/tomtom215/schoolgate/internal/models"
)

// ErrAdministratorGrant is returned when seed data lists grants for the
// administrator role, whose permissions are implicit.
var ErrAdministratorGrant = errors.New("administrator grants are implicit and cannot be stored")

// Seed loads the permission catalog and replaces the baseline grants of every
// non-administrator role in one transaction. It is safe to run on every start.
func Seed(ctx context.Context, store Store, catalog []models.Permission, grants []models.RoleGrant) error {
	byRole := make(map[models.Role][]string)
	for _, g := range grants {
		if g.Role == models.RoleAdministrator {
			return fmt.Errorf("%w: %s", ErrAdministratorGrant, g.Code)
		}
		if !g.Role.Valid() {
			return fmt.Errorf("seed grant %s: %w", g.Code, models.ErrInvalidRole)
		}
		byRole[g.Role] = append(byRole[g.Role], g.Code)
	}

	err := store.WithTx(ctx, func(tx Tx) error {
		for _, p := range catalog {
			if err := tx.UpsertPermission(ctx, p); err != nil {
				return err
			}
		}
		for _, role := range models.Roles {
			if role == models.RoleAdministrator {
				continue
			}
			if err := tx.ReplaceRoleGrants(ctx, role, byRole[role]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed credential store: %w", err)
	}

	logging.Debug().Int("permissions", len(catalog)).Int("grants", len(grants)).Msg("Credential store seeded")
	return nil
}
