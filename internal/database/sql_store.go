// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	gobreaker "github.com/sony/gobreaker/v2"
	_ "modernc.org/sqlite"

	"github.com/tomtom215/schoolgate/internal/audit"
	"github.com/tomtom215/schoolgate/internal/config"
	"github.com/tomtom215/schoolgate/internal/logging"
	"github.com/tomtom215/schoolgate/internal/models"
)

// maxConflictRetries bounds retries of DuckDB optimistic transaction conflicts.
const maxConflictRetries = 3

// SQLStore implements Store over database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	ops     *sqlOps
	cb      *gobreaker.CircuitBreaker[struct{}]
}

var _ Store = (*SQLStore)(nil)

// Open opens (creating if needed) the credential store described by cfg and
// applies the schema.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*SQLStore, error) {
	d := dialect(cfg.Driver)
	if d == "" {
		d = dialectSQLite
	}

	// Ensure parent directory exists for database file
	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	var (
		conn *sql.DB
		err  error
	)
	switch d {
	case dialectSQLite:
		conn, err = sql.Open("sqlite", sqliteDSN(cfg))
	case dialectDuckDB:
		conn, err = sql.Open("duckdb", cfg.Path+"?access_mode=read_write")
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLStore{
		db:      conn,
		dialect: d,
		ops:     &sqlOps{q: conn},
		cb:      newBreaker(cfg),
	}
	s.configureConnectionPool()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		closeWithLog(conn, "database connection")
		return nil, fmt.Errorf("%w: ping: %w", ErrStoreUnavailable, err)
	}

	if err := s.initialize(ctx); err != nil {
		closeWithLog(conn, "database connection")
		return nil, err
	}

	logging.Info().Str("driver", string(d)).Str("path", cfg.Path).Msg("Credential store opened")
	return s, nil
}

// sqliteDSN builds a modernc.org/sqlite DSN. Write transactions take the
// lock up front so concurrent writers wait on busy_timeout instead of failing
// on lock upgrade.
func sqliteDSN(cfg *config.DatabaseConfig) string {
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate",
		cfg.Path, busy.Milliseconds())
}

// configureConnectionPool sets connection pool parameters.
// The desktop client runs a handful of dispatcher workers, so a small pool suffices.
func (s *SQLStore) configureConnectionPool() {
	s.db.SetMaxOpenConns(4)
	s.db.SetMaxIdleConns(2)
	s.db.SetConnMaxLifetime(time.Hour)
	s.db.SetConnMaxIdleTime(5 * time.Minute)
}

// Driver returns the configured driver name.
func (s *SQLStore) Driver() string {
	return string(s.dialect)
}

// Ping verifies the store is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.execute("ping", func() error {
		return classify("ping", s.db.PingContext(ctx))
	})
}

// Close closes the underlying connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// WithTx implements Store.
func (s *SQLStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.execute("tx", func() error {
		var err error
		for attempt := 0; attempt < maxConflictRetries; attempt++ {
			err = s.runTx(ctx, fn)
			if !isTransactionConflict(err) {
				return err
			}
			logging.Debug().Int("attempt", attempt+1).Msg("Retrying conflicted transaction")
		}
		return classify("commit", err)
	})
}

func (s *SQLStore) runTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin", err)
	}
	if err := fn(&sqlOps{q: tx}); err != nil {
		rollbackQuietly(tx)
		return err
	}
	if err := tx.Commit(); err != nil {
		if isTransactionConflict(err) {
			return err
		}
		return classify("commit", err)
	}
	return nil
}

// read runs a query outside a transaction through the breaker.
func read[T any](s *SQLStore, op string, fn func(o *sqlOps) (T, error)) (T, error) {
	var out T
	err := s.execute(op, func() error {
		var err error
		out, err = fn(s.ops)
		return err
	})
	return out, err
}

func (s *SQLStore) IdentityByID(ctx context.Context, id string) (*models.Identity, error) {
	return read(s, "identity_by_id", func(o *sqlOps) (*models.Identity, error) {
		return o.IdentityByID(ctx, id)
	})
}

func (s *SQLStore) IdentityByLoginName(ctx context.Context, loginName string) (*models.Identity, error) {
	return read(s, "identity_by_login_name", func(o *sqlOps) (*models.Identity, error) {
		return o.IdentityByLoginName(ctx, loginName)
	})
}

func (s *SQLStore) ListIdentities(ctx context.Context) ([]models.Identity, error) {
	return read(s, "list_identities", func(o *sqlOps) ([]models.Identity, error) {
		return o.ListIdentities(ctx)
	})
}

func (s *SQLStore) CountActiveAdministrators(ctx context.Context) (int, error) {
	return read(s, "count_administrators", func(o *sqlOps) (int, error) {
		return o.CountActiveAdministrators(ctx)
	})
}

func (s *SQLStore) Permissions(ctx context.Context) ([]models.Permission, error) {
	return read(s, "permissions", func(o *sqlOps) ([]models.Permission, error) {
		return o.Permissions(ctx)
	})
}

func (s *SQLStore) RoleGrants(ctx context.Context, role models.Role) ([]string, error) {
	return read(s, "role_grants", func(o *sqlOps) ([]string, error) {
		return o.RoleGrants(ctx, role)
	})
}

func (s *SQLStore) Overrides(ctx context.Context, identityID string) ([]models.Override, error) {
	return read(s, "overrides", func(o *sqlOps) ([]models.Override, error) {
		return o.Overrides(ctx, identityID)
	})
}

func (s *SQLStore) CurrentPeriod(ctx context.Context) (*models.AcademicPeriod, error) {
	return read(s, "current_period", func(o *sqlOps) (*models.AcademicPeriod, error) {
		return o.CurrentPeriod(ctx)
	})
}

func (s *SQLStore) Periods(ctx context.Context) ([]models.AcademicPeriod, error) {
	return read(s, "periods", func(o *sqlOps) ([]models.AcademicPeriod, error) {
		return o.Periods(ctx)
	})
}

func (s *SQLStore) AssignedUnits(ctx context.Context, identityID, periodID string) ([]int64, error) {
	return read(s, "assigned_units", func(o *sqlOps) ([]int64, error) {
		return o.AssignedUnits(ctx, identityID, periodID)
	})
}

func (s *SQLStore) QueryAccessLog(ctx context.Context, filter audit.Filter) ([]models.AccessLogEntry, error) {
	return read(s, "query_access_log", func(o *sqlOps) ([]models.AccessLogEntry, error) {
		return o.QueryAccessLog(ctx, filter)
	})
}
