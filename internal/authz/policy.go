// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package authz

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/tomtom215/schoolgate/internal/models"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// ErrUnknownPermission is returned when a policy grants a code missing from the catalog.
var ErrUnknownPermission = errors.New("policy references unknown permission")

// Policy is the default role baseline backed by a Casbin enforcer.
type Policy struct {
	enforcer *casbin.SyncedEnforcer
}

// NewPolicy loads the role baseline. An empty path uses the embedded policy.
func NewPolicy(policyPath string) (*Policy, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	if policyPath != "" {
		if _, statErr := os.Stat(policyPath); statErr != nil {
			return nil, fmt.Errorf("policy file %s: %w", policyPath, statErr)
		}
		enforcer, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(policyPath))
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
		if err == nil {
			err = loadEmbeddedPolicy(enforcer, embeddedPolicy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	p := &Policy{enforcer: enforcer}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// loadEmbeddedPolicy parses and loads the embedded policy CSV.
func loadEmbeddedPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) < 3 {
			return fmt.Errorf("malformed policy line %q", line)
		}

		switch parts[0] {
		case "p":
			if _, err := enforcer.AddPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("failed to add policy %v: %w", parts[1:], err)
			}
		case "g":
			if _, err := enforcer.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("failed to add grouping policy %v: %w", parts[1:], err)
			}
		default:
			return fmt.Errorf("unknown policy type %q", parts[0])
		}
	}
	return nil
}

// validate checks that every granted code is in the catalog.
func (p *Policy) validate() error {
	for _, role := range models.Roles {
		codes, err := p.RoleGrants(role)
		if err != nil {
			return err
		}
		for _, c := range codes {
			if !InCatalog(c) {
				return fmt.Errorf("%w: %s granted to %s", ErrUnknownPermission, c, role)
			}
		}
	}
	return nil
}

// RoleGrants returns the sorted baseline codes for role, including inherited grants.
// Administrator has no explicit grants.
func (p *Policy) RoleGrants(role models.Role) ([]string, error) {
	rules, err := p.enforcer.GetImplicitPermissionsForUser(role.String())
	if err != nil {
		return nil, fmt.Errorf("failed to expand grants for %s: %w", role, err)
	}
	seen := make(map[string]struct{}, len(rules))
	codes := make([]string, 0, len(rules))
	for _, rule := range rules {
		if len(rule) < 2 {
			continue
		}
		if _, dup := seen[rule[1]]; dup {
			continue
		}
		seen[rule[1]] = struct{}{}
		codes = append(codes, rule[1])
	}
	sort.Strings(codes)
	return codes, nil
}

// Grants returns the expanded baseline for every role, ready to seed the store.
func (p *Policy) Grants() ([]models.RoleGrant, error) {
	var out []models.RoleGrant
	for _, role := range models.Roles {
		codes, err := p.RoleGrants(role)
		if err != nil {
			return nil, err
		}
		for _, c := range codes {
			out = append(out, models.RoleGrant{Role: role, Code: c})
		}
	}
	return out, nil
}

// Enforce reports whether the baseline for role includes code.
// Administrator is always allowed.
func (p *Policy) Enforce(role models.Role, code string) (bool, error) {
	if role == models.RoleAdministrator {
		return true, nil
	}
	allowed, err := p.enforcer.Enforce(role.String(), code)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}
	return allowed, nil
}
