// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

// Package scope restricts which organizational units (classes, sections) an
// identity may see.
//
// A Scope composes into data access either in memory or in SQL:
//
//	sc, err := resolver.VisibleUnits(ctx, ident)
//	if err != nil {
//	    return err // never fall back to unrestricted
//	}
//	where, args := sc.SQLPredicate("g.class_id")
//	rows, err := db.QueryContext(ctx, "SELECT ... FROM grades g WHERE "+where, args...)
package scope
