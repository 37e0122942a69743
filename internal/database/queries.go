// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package database

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/tomtom215/schoolgate/internal/audit"
	"github.com/tomtom215/schoolgate/internal/models"
)

const (
	// timeLayout is fixed width so stored timestamps sort lexically.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
	dateLayout = "2006-01-02"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// sqlOps implements Tx on top of a querier.
type sqlOps struct {
	q querier
}

var _ Tx = (*sqlOps)(nil)

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// nullableTime returns nil for a nil time so the column stores NULL.
// Plain values are passed instead of sql.Null* so both drivers bind them natively.
func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// ---------------------------------------------------------------------------
// Identities
// ---------------------------------------------------------------------------

const identityColumns = `id, staff_ref, login_name, credential_hash, role, active,
	must_reset_credential, last_access_at, failed_attempts, locked_until, created_at, updated_at`

// scanIdentity scans a row into an Identity, handling nullable fields.
func scanIdentity(row rowScanner) (*models.Identity, error) {
	var (
		ident                   models.Identity
		lastAccess, lockedUntil sql.NullString
		createdAt, updatedAt    string
	)
	err := row.Scan(
		&ident.ID, &ident.StaffRef, &ident.LoginName, &ident.CredentialHash, &ident.Role, &ident.Active,
		&ident.MustResetCredential, &lastAccess, &ident.FailedAttempts, &lockedUntil, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if ident.LastAccessAt, err = parseNullTime(lastAccess); err != nil {
		return nil, err
	}
	if ident.LockedUntil, err = parseNullTime(lockedUntil); err != nil {
		return nil, err
	}
	if ident.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if ident.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &ident, nil
}

func (o *sqlOps) IdentityByID(ctx context.Context, id string) (*models.Identity, error) {
	row := o.q.QueryRowContext(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = ?`, id)
	ident, err := scanIdentity(row)
	return ident, classify("identity by id", err)
}

func (o *sqlOps) IdentityByLoginName(ctx context.Context, loginName string) (*models.Identity, error) {
	row := o.q.QueryRowContext(ctx, `SELECT `+identityColumns+` FROM identities WHERE login_name = ?`,
		models.NormalizeLoginName(loginName))
	ident, err := scanIdentity(row)
	return ident, classify("identity by login name", err)
}

func (o *sqlOps) ListIdentities(ctx context.Context) ([]models.Identity, error) {
	rows, err := o.q.QueryContext(ctx, `SELECT `+identityColumns+` FROM identities ORDER BY login_name`)
	if err != nil {
		return nil, classify("list identities", err)
	}
	defer closeWithLog(rows, "rows")

	var out []models.Identity
	for rows.Next() {
		ident, err := scanIdentity(rows)
		if err != nil {
			return nil, classify("list identities", err)
		}
		out = append(out, *ident)
	}
	return out, classify("list identities", rows.Err())
}

func (o *sqlOps) CountActiveAdministrators(ctx context.Context) (int, error) {
	var n int
	err := o.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM identities WHERE role = ? AND active = ?`,
		models.RoleAdministrator.String(), true,
	).Scan(&n)
	return n, classify("count administrators", err)
}

func (o *sqlOps) InsertIdentity(ctx context.Context, ident *models.Identity) error {
	if ident.ID == "" {
		return fmt.Errorf("insert identity: empty id")
	}
	_, err := o.q.ExecContext(ctx, `INSERT INTO identities (`+identityColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ident.ID, ident.StaffRef, models.NormalizeLoginName(ident.LoginName), ident.CredentialHash,
		ident.Role.String(), ident.Active, ident.MustResetCredential, nullableTime(ident.LastAccessAt),
		ident.FailedAttempts, nullableTime(ident.LockedUntil),
		formatTime(ident.CreatedAt), formatTime(ident.UpdatedAt),
	)
	return classify("insert identity", err)
}

func (o *sqlOps) UpdateIdentity(ctx context.Context, ident *models.Identity) error {
	res, err := o.q.ExecContext(ctx, `UPDATE identities SET
			credential_hash = ?,
			role = ?,
			active = ?,
			must_reset_credential = ?,
			last_access_at = ?,
			failed_attempts = ?,
			locked_until = ?,
			updated_at = ?
		WHERE id = ?`,
		ident.CredentialHash, ident.Role.String(), ident.Active, ident.MustResetCredential,
		nullableTime(ident.LastAccessAt), ident.FailedAttempts, nullableTime(ident.LockedUntil),
		formatTime(ident.UpdatedAt), ident.ID,
	)
	if err != nil {
		return classify("update identity", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("update identity", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Permissions, grants and overrides
// ---------------------------------------------------------------------------

func (o *sqlOps) Permissions(ctx context.Context) ([]models.Permission, error) {
	rows, err := o.q.QueryContext(ctx, `SELECT code, description, module FROM permissions ORDER BY module, code`)
	if err != nil {
		return nil, classify("permissions", err)
	}
	defer closeWithLog(rows, "rows")

	var out []models.Permission
	for rows.Next() {
		var p models.Permission
		if err := rows.Scan(&p.Code, &p.Description, &p.Module); err != nil {
			return nil, classify("permissions", err)
		}
		out = append(out, p)
	}
	return out, classify("permissions", rows.Err())
}

func (o *sqlOps) UpsertPermission(ctx context.Context, p models.Permission) error {
	_, err := o.q.ExecContext(ctx, `INSERT INTO permissions (code, description, module) VALUES (?, ?, ?)
		ON CONFLICT (code) DO UPDATE SET description = excluded.description, module = excluded.module`,
		p.Code, p.Description, p.Module)
	return classify("upsert permission", err)
}

func (o *sqlOps) RoleGrants(ctx context.Context, role models.Role) ([]string, error) {
	return o.textColumn(ctx, "role grants",
		`SELECT DISTINCT code FROM role_permissions WHERE role = ? ORDER BY code`, role.String())
}

func (o *sqlOps) ReplaceRoleGrants(ctx context.Context, role models.Role, codes []string) error {
	if !role.Valid() {
		return fmt.Errorf("replace role grants: %w", models.ErrInvalidRole)
	}
	if _, err := o.q.ExecContext(ctx, `DELETE FROM role_permissions WHERE role = ?`, role.String()); err != nil {
		return classify("replace role grants", err)
	}

	unique := slices.Clone(codes)
	slices.Sort(unique)
	unique = slices.Compact(unique)
	for _, code := range unique {
		if _, err := o.q.ExecContext(ctx, `INSERT INTO role_permissions (role, code) VALUES (?, ?)`,
			role.String(), code); err != nil {
			return classify("replace role grants", err)
		}
	}
	return nil
}

func (o *sqlOps) Overrides(ctx context.Context, identityID string) ([]models.Override, error) {
	rows, err := o.q.QueryContext(ctx,
		`SELECT code, kind FROM permission_overrides WHERE identity_id = ? ORDER BY code`, identityID)
	if err != nil {
		return nil, classify("overrides", err)
	}
	defer closeWithLog(rows, "rows")

	var out []models.Override
	for rows.Next() {
		var code, kind string
		if err := rows.Scan(&code, &kind); err != nil {
			return nil, classify("overrides", err)
		}
		k, err := models.ParseOverrideKind(kind)
		if err != nil {
			return nil, classify("overrides", err)
		}
		out = append(out, models.Override{IdentityID: identityID, Code: code, Kind: k})
	}
	return out, classify("overrides", rows.Err())
}

func (o *sqlOps) SetOverride(ctx context.Context, ov models.Override) error {
	_, err := o.q.ExecContext(ctx, `INSERT INTO permission_overrides (identity_id, code, kind) VALUES (?, ?, ?)
		ON CONFLICT (identity_id, code) DO UPDATE SET kind = excluded.kind`,
		ov.IdentityID, ov.Code, ov.Kind.String())
	return classify("set override", err)
}

func (o *sqlOps) DeleteOverride(ctx context.Context, identityID, code string) error {
	_, err := o.q.ExecContext(ctx,
		`DELETE FROM permission_overrides WHERE identity_id = ? AND code = ?`, identityID, code)
	return classify("delete override", err)
}

// ---------------------------------------------------------------------------
// Academic periods and teaching assignments
// ---------------------------------------------------------------------------

const periodColumns = `id, name, starts_on, ends_on, is_current`

func scanPeriod(row rowScanner) (*models.AcademicPeriod, error) {
	var (
		p              models.AcademicPeriod
		startsOn, ends string
		err            error
	)
	if err = row.Scan(&p.ID, &p.Name, &startsOn, &ends, &p.Current); err != nil {
		return nil, err
	}
	if p.StartsOn, err = time.Parse(dateLayout, startsOn); err != nil {
		return nil, err
	}
	if p.EndsOn, err = time.Parse(dateLayout, ends); err != nil {
		return nil, err
	}
	return &p, nil
}

func (o *sqlOps) CurrentPeriod(ctx context.Context) (*models.AcademicPeriod, error) {
	row := o.q.QueryRowContext(ctx,
		`SELECT `+periodColumns+` FROM academic_periods WHERE is_current = ? LIMIT 1`, true)
	p, err := scanPeriod(row)
	return p, classify("current period", err)
}

func (o *sqlOps) Periods(ctx context.Context) ([]models.AcademicPeriod, error) {
	rows, err := o.q.QueryContext(ctx, `SELECT `+periodColumns+` FROM academic_periods ORDER BY starts_on`)
	if err != nil {
		return nil, classify("periods", err)
	}
	defer closeWithLog(rows, "rows")

	var out []models.AcademicPeriod
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, classify("periods", err)
		}
		out = append(out, *p)
	}
	return out, classify("periods", rows.Err())
}

func (o *sqlOps) SavePeriod(ctx context.Context, p *models.AcademicPeriod) error {
	if p.Current {
		if _, err := o.q.ExecContext(ctx,
			`UPDATE academic_periods SET is_current = ? WHERE id <> ? AND is_current = ?`, false, p.ID, true); err != nil {
			return classify("save period", err)
		}
	}
	_, err := o.q.ExecContext(ctx, `INSERT INTO academic_periods (`+periodColumns+`) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			starts_on = excluded.starts_on,
			ends_on = excluded.ends_on,
			is_current = excluded.is_current`,
		p.ID, p.Name, p.StartsOn.Format(dateLayout), p.EndsOn.Format(dateLayout), p.Current)
	return classify("save period", err)
}

func (o *sqlOps) AssignedUnits(ctx context.Context, identityID, periodID string) ([]int64, error) {
	rows, err := o.q.QueryContext(ctx,
		`SELECT unit_id FROM teaching_assignments WHERE identity_id = ? AND period_id = ? ORDER BY unit_id`,
		identityID, periodID)
	if err != nil {
		return nil, classify("assigned units", err)
	}
	defer closeWithLog(rows, "rows")

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, classify("assigned units", err)
		}
		out = append(out, id)
	}
	return out, classify("assigned units", rows.Err())
}

func (o *sqlOps) AssignUnit(ctx context.Context, a models.TeachingAssignment) error {
	_, err := o.q.ExecContext(ctx, `INSERT INTO teaching_assignments (identity_id, unit_id, period_id)
		VALUES (?, ?, ?) ON CONFLICT DO NOTHING`, a.IdentityID, a.UnitID, a.PeriodID)
	return classify("assign unit", err)
}

func (o *sqlOps) UnassignUnit(ctx context.Context, a models.TeachingAssignment) error {
	_, err := o.q.ExecContext(ctx,
		`DELETE FROM teaching_assignments WHERE identity_id = ? AND unit_id = ? AND period_id = ?`,
		a.IdentityID, a.UnitID, a.PeriodID)
	return classify("unassign unit", err)
}

// ---------------------------------------------------------------------------
// Access log
// ---------------------------------------------------------------------------

func (o *sqlOps) AppendAccessLog(ctx context.Context, e *models.AccessLogEntry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	err := o.q.QueryRowContext(ctx, `INSERT INTO access_log
		(identity_id, actor_id, login_attempted, action, detail, origin, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		nullable(e.IdentityID), nullable(e.ActorID), nullable(e.LoginAttempted),
		e.Action, nullable(e.Detail), nullable(e.Origin), formatTime(e.Timestamp),
	).Scan(&e.ID)
	return classify("append access log", err)
}

// buildAccessLogQuery renders filter as SQL with positional arguments.
func buildAccessLogQuery(f audit.Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if f.IdentityID != "" {
		where = append(where, "identity_id = ?")
		args = append(args, f.IdentityID)
	}
	if f.ActorID != "" {
		where = append(where, "actor_id = ?")
		args = append(args, f.ActorID)
	}
	if len(f.Actions) > 0 {
		where = append(where, "action IN (?"+strings.Repeat(", ?", len(f.Actions)-1)+")")
		for _, a := range f.Actions {
			args = append(args, a)
		}
	}
	if f.Since != nil {
		where = append(where, "occurred_at >= ?")
		args = append(args, formatTime(*f.Since))
	}
	if f.Until != nil {
		where = append(where, "occurred_at < ?")
		args = append(args, formatTime(*f.Until))
	}

	var sb strings.Builder
	sb.WriteString(`SELECT id, identity_id, actor_id, login_attempted, action, detail, origin, occurred_at FROM access_log`)
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	if f.Descending {
		sb.WriteString(" ORDER BY id DESC")
	} else {
		sb.WriteString(" ORDER BY id")
	}
	sb.WriteString(" LIMIT ? OFFSET ?")
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, f.EffectiveLimit(), offset)
	return sb.String(), args
}

func (o *sqlOps) QueryAccessLog(ctx context.Context, f audit.Filter) ([]models.AccessLogEntry, error) {
	query, args := buildAccessLogQuery(f)
	rows, err := o.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("query access log", err)
	}
	defer closeWithLog(rows, "rows")

	var out []models.AccessLogEntry
	for rows.Next() {
		var (
			e                                          models.AccessLogEntry
			identityID, actorID, login, detail, origin sql.NullString
			occurred                                   string
		)
		if err := rows.Scan(&e.ID, &identityID, &actorID, &login, &e.Action, &detail, &origin, &occurred); err != nil {
			return nil, classify("query access log", err)
		}
		e.IdentityID = identityID.String
		e.ActorID = actorID.String
		e.LoginAttempted = login.String
		e.Detail = detail.String
		e.Origin = origin.String
		if e.Timestamp, err = parseTime(occurred); err != nil {
			return nil, classify("query access log", err)
		}
		out = append(out, e)
	}
	return out, classify("query access log", rows.Err())
}

// textColumn runs a single-column text query.
func (o *sqlOps) textColumn(ctx context.Context, op, query string, args ...any) ([]string, error) {
	rows, err := o.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer closeWithLog(rows, "rows")

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, classify(op, err)
		}
		out = append(out, s)
	}
	return out, classify(op, rows.Err())
}
