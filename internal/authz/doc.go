// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

/*
Package authz resolves what an identity is allowed to do.

Resolve is the single place where a role baseline and per-identity overrides
are merged:

	final = (role grants ∪ adds) \ removes

Administrators short-circuit to the All sentinel, so permissions added to the
catalog later are granted without a data change. The result is computed once
at login and cached on the session; a catalog or grant change needs a new
login to take effect.

The default role baseline is a Casbin policy (model.conf, policy.csv) embedded
in the binary. Policy expands role inheritance (coordinator inherits teacher)
and the database bootstrap copies the expanded grants into role_permissions.
From then on the store is the source of truth.
*/
package authz
