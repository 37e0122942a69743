// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package authz

import (
	"sort"

	"github.com/tomtom215/schoolgate/internal/models"
)

// Set is a resolved permission set. The zero value is the empty set.
// Sets are immutable once built.
type Set struct {
	all   bool
	codes map[string]struct{}
}

// All returns the sentinel set that holds every permission.
func All() Set {
	return Set{all: true}
}

// NewSet returns a set holding exactly the given codes.
func NewSet(codes ...string) Set {
	s := Set{codes: make(map[string]struct{}, len(codes))}
	for _, c := range codes {
		s.codes[c] = struct{}{}
	}
	return s
}

// IsAll reports whether s is the All sentinel.
func (s Set) IsAll() bool {
	return s.all
}

// Has reports whether code is in the set.
func (s Set) Has(code string) bool {
	if s.all {
		return true
	}
	_, ok := s.codes[code]
	return ok
}

// HasAny reports whether at least one of codes is in the set.
// An empty list is never satisfied.
func (s Set) HasAny(codes ...string) bool {
	for _, c := range codes {
		if s.Has(c) {
			return true
		}
	}
	return false
}

// HasAll reports whether every one of codes is in the set.
// An empty list is always satisfied.
func (s Set) HasAll(codes ...string) bool {
	for _, c := range codes {
		if !s.Has(c) {
			return false
		}
	}
	return true
}

// Missing returns the codes that are not in the set, in input order.
func (s Set) Missing(codes ...string) []string {
	var missing []string
	for _, c := range codes {
		if !s.Has(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// Codes returns the sorted codes. It returns nil for the All sentinel.
func (s Set) Codes() []string {
	if s.all {
		return nil
	}
	out := make([]string, 0, len(s.codes))
	for c := range s.codes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of codes, or -1 for the All sentinel.
func (s Set) Len() int {
	if s.all {
		return -1
	}
	return len(s.codes)
}

// Resolve merges a role baseline with per-identity overrides. It is pure.
//
// Administrator always yields All regardless of grants or overrides.
// For every other role the result is (grants ∪ adds) \ removes, so a
// Remove wins over an Add of the same code.
func Resolve(role models.Role, grants []string, overrides []models.Override) Set {
	switch role {
	case models.RoleAdministrator:
		return All()
	case models.RoleCoordinator, models.RoleTeacher:
	default:
		// Unknown roles resolve to the empty set.
		return NewSet()
	}

	s := NewSet(grants...)
	for _, o := range overrides {
		if o.Kind == models.OverrideAdd {
			s.codes[o.Code] = struct{}{}
		}
	}
	for _, o := range overrides {
		if o.Kind == models.OverrideRemove {
			delete(s.codes, o.Code)
		}
	}
	return s
}
