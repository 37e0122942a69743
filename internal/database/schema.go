// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package database

import (
	"context"
	"fmt"
)

// dialect identifies the SQL engine behind a store.
type dialect string

const (
	dialectSQLite dialect = "sqlite"
	dialectDuckDB dialect = "duckdb"
)

// accessLogTable differs only in how the autoincrement id is declared.
func accessLogTable(d dialect) []string {
	const columns = `
			identity_id TEXT,
			actor_id TEXT,
			login_attempted TEXT,
			action TEXT NOT NULL,
			detail TEXT,
			origin TEXT,
			occurred_at TEXT NOT NULL
		)`

	if d == dialectDuckDB {
		return []string{
			`CREATE SEQUENCE IF NOT EXISTS access_log_id_seq START 1`,
			`CREATE TABLE IF NOT EXISTS access_log (
			id BIGINT PRIMARY KEY DEFAULT nextval('access_log_id_seq'),` + columns,
		}
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS access_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,` + columns,
	}
}

// schema returns the DDL for d. Every statement is idempotent.
//
// Identifiers are text UUIDs. There are no foreign keys: identities are never
// deleted and the access log must outlive anything it references.
func schema(d dialect) []string {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS identities (
			id TEXT PRIMARY KEY,
			staff_ref TEXT NOT NULL UNIQUE,
			login_name TEXT NOT NULL UNIQUE,
			credential_hash TEXT NOT NULL,
			role TEXT NOT NULL,
			active BOOLEAN NOT NULL,
			must_reset_credential BOOLEAN NOT NULL,
			last_access_at TEXT,
			failed_attempts INTEGER NOT NULL DEFAULT 0,
			locked_until TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS permissions (
			code TEXT PRIMARY KEY,
			description TEXT NOT NULL,
			module TEXT NOT NULL
		)`,
		// No key: grants are replaced per role as a set.
		`CREATE TABLE IF NOT EXISTS role_permissions (
			role TEXT NOT NULL,
			code TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS permission_overrides (
			identity_id TEXT NOT NULL,
			code TEXT NOT NULL,
			kind TEXT NOT NULL,
			PRIMARY KEY (identity_id, code)
		)`,
		`CREATE TABLE IF NOT EXISTS academic_periods (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			starts_on TEXT NOT NULL,
			ends_on TEXT NOT NULL,
			is_current BOOLEAN NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS teaching_assignments (
			identity_id TEXT NOT NULL,
			unit_id BIGINT NOT NULL,
			period_id TEXT NOT NULL,
			PRIMARY KEY (identity_id, unit_id, period_id)
		)`,
	}

	queries = append(queries, accessLogTable(d)...)

	queries = append(queries,
		`CREATE INDEX IF NOT EXISTS idx_role_permissions_role ON role_permissions(role)`,
		`CREATE INDEX IF NOT EXISTS idx_access_log_identity ON access_log(identity_id)`,
		`CREATE INDEX IF NOT EXISTS idx_access_log_occurred ON access_log(occurred_at)`,
		`CREATE INDEX IF NOT EXISTS idx_teaching_assignments_period ON teaching_assignments(period_id, identity_id)`,
	)
	return queries
}

// initialize creates the schema.
func (s *SQLStore) initialize(ctx context.Context) error {
	for _, q := range schema(s.dialect) {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
