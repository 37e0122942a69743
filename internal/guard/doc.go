// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

// Package guard gates operations on the permissions held by a session.
//
// Guards are plain higher-order functions around the operation they protect:
//
//	saveGrades := guard.Wrap(sess, guard.Permission(authz.PermGradesEdit), repo.SaveGrades)
//	n, err := saveGrades(ctx)
//	var denial *guard.Denial
//	if errors.As(err, &denial) {
//	    // show denial.Error() to the user
//	}
//
// Denials are counted in metrics and logged at debug level. They are not
// written to the access log.
package guard
