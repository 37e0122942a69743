// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package scope

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/tomtom215/schoolgate/internal/logging"
)

// Scope is the set of organizational units an identity may see. It is either
// unrestricted or an explicit, possibly empty, set of unit IDs.
// The zero value is the empty restricted scope.
type Scope struct {
	unrestricted bool
	units        map[int64]struct{}
}

// Unrestricted returns the scope that sees every unit.
func Unrestricted() Scope {
	return Scope{unrestricted: true}
}

// RestrictedTo returns a scope limited to ids. With no ids nothing is visible.
func RestrictedTo(ids ...int64) Scope {
	s := Scope{units: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		s.units[id] = struct{}{}
	}
	return s
}

func (s Scope) IsUnrestricted() bool {
	return s.unrestricted
}

// IsEmpty reports whether the scope sees no unit at all.
func (s Scope) IsEmpty() bool {
	return !s.unrestricted && len(s.units) == 0
}

// Contains reports whether unitID is visible.
func (s Scope) Contains(unitID int64) bool {
	if s.unrestricted {
		return true
	}
	_, ok := s.units[unitID]
	return ok
}

// Units returns the visible unit IDs in ascending order, or nil when
// unrestricted.
func (s Scope) Units() []int64 {
	if s.unrestricted {
		return nil
	}
	out := make([]int64, 0, len(s.units))
	for id := range s.units {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (s Scope) String() string {
	switch {
	case s.unrestricted:
		return "unrestricted"
	case len(s.units) == 0:
		return "restricted to none"
	default:
		ids := s.Units()
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = strconv.FormatInt(id, 10)
		}
		return "restricted to " + strings.Join(parts, ",")
	}
}

var columnPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// SQLPredicate returns a WHERE fragment restricting column to the scope, with
// its placeholder arguments. Unrestricted yields "1 = 1" and an empty scope
// yields "1 = 0". column must be a plain or table-qualified identifier;
// anything else yields "1 = 0".
func (s Scope) SQLPredicate(column string) (string, []any) {
	if s.unrestricted {
		return "1 = 1", nil
	}
	if !columnPattern.MatchString(column) {
		logging.Warn().Str("column", column).Msg("Refusing scope predicate on invalid column name")
		return "1 = 0", nil
	}
	if len(s.units) == 0 {
		return "1 = 0", nil
	}

	ids := s.Units()
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	return column + " IN (" + placeholders + ")", args
}

// IsUnitVisible reports whether unitID is visible in s.
func IsUnitVisible(s Scope, unitID int64) bool {
	return s.Contains(unitID)
}

// FilterRecordsByUnit returns the records whose unit is visible in s, in
// their original order. An unrestricted scope returns records unchanged;
// an empty scope returns an empty slice.
func FilterRecordsByUnit[T any](s Scope, records []T, unitOf func(T) int64) []T {
	if s.unrestricted {
		return records
	}
	out := make([]T, 0, len(records))
	for _, r := range records {
		if s.Contains(unitOf(r)) {
			out = append(out, r)
		}
	}
	return out
}
