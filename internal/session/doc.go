// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

// Package session holds the identity currently logged in on a workstation.
//
// A Context is owned by the UI loop but is safe for concurrent use, so
// dispatcher workers and tests may read it. The permission set is resolved
// once at login and cached until the next Set or Clear; catalog or override
// changes take effect on the next login.
//
// Every query honours the access control switch:
//
//	sess := session.New(sw) // sw is a *config.Switch
//	sess.Set(principal.Identity, principal.Permissions)
//	if sess.HasPermission(authz.PermGradesEdit) { ... }
package session
