// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

/*
Package database provides the credential store.

The store holds identities, the permission catalog, role baseline grants,
per-identity overrides, academic periods, teaching assignments and the
append-only access log.

# Drivers

Two database/sql drivers are supported, selected by database.driver:

  - sqlite (default): modernc.org/sqlite, pure Go, a single file next to the
    desktop application.
  - duckdb: github.com/duckdb/duckdb-go/v2, for installs that already ship
    DuckDB for reporting.

Both use the same schema and `?` placeholders. Timestamps are stored as
fixed-width UTC text so range filters compare lexically on either engine.

# Transactions

Every state change and its access log entry are written through WithTx and
commit or roll back together:

	err := store.WithTx(ctx, func(tx database.Tx) error {
	    if err := tx.UpdateIdentity(ctx, ident); err != nil {
	        return err
	    }
	    return tx.AppendAccessLog(ctx, entry)
	})

# Errors

Missing rows map to ErrNotFound and unique violations to ErrConflict.
Everything else the driver reports, and every call rejected by the open
circuit breaker (sony/gobreaker), maps to ErrStoreUnavailable.

# Testing

MemoryStore implements Store without a database and supports fault injection
for outage tests. SQLStore tests run against a temporary SQLite file.
*/
package database
