// Package sqlstore provides database/sql implementations of the store
// ports for SQLite (mattn/go-sqlite3) and PostgreSQL (pgx stdlib).
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"

	"github.com/efreitasn/minibroker/internal/store"
)

// Dialect selects the SQL flavour a Store speaks.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// driverName returns the database/sql driver registered for the dialect.
func (d Dialect) driverName() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite3"
}

// Store holds the database handle shared by all SQL repositories.
type Store struct {
	db      *sql.DB
	dialect Dialect
	txm     *TxManager
	logger  *slog.Logger
}

// New wraps an open database. It does not create the schema.
func New(db *sql.DB, dialect Dialect, logger *slog.Logger) (*Store, error) {
	if dialect != SQLite && dialect != Postgres {
		return nil, fmt.Errorf("unsupported sql dialect %q", dialect)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "sqlstore", "dialect", string(dialect))

	txm, err := NewTxManager(db, logger)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, dialect: dialect, txm: txm, logger: logger}, nil
}

// Open connects to the database, verifies the connection and ensures the
// schema exists.
func Open(ctx context.Context, dialect Dialect, dsn string, logger *slog.Logger) (*Store, error) {
	if dialect == SQLite {
		dsn = sqliteDSN(dsn)
	}

	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dialect == SQLite {
		// SQLite allows one writer; a single connection also keeps
		// in-memory databases shared across callers.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s, err := New(db, dialect, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// sqliteDSN makes every transaction start with BEGIN IMMEDIATE so the
// write lock is taken before the first read.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_txlock=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_txlock=immediate&_busy_timeout=5000"
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Repositories exposes the store through the store ports.
func (s *Store) Repositories() *store.Repositories {
	return &store.Repositories{
		Accounts:    &AccountRepository{s: s},
		Instruments: &InstrumentRepository{s: s},
		Holdings:    &HoldingRepository{s: s},
		Orders:      &OrderRepository{s: s},
		Alerts:      &AlertRepository{s: s},
		Watchlist:   &WatchlistRepository{s: s},
		Webhooks:    &WebhookRepository{s: s},
		Ledger:      &Ledger{s: s},
	}
}

// rebind rewrites ? placeholders to $N for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// forUpdate returns the row-locking suffix for the dialect. SQLite
// transactions already hold the database write lock.
func (s *Store) forUpdate() string {
	if s.dialect == Postgres {
		return " FOR UPDATE"
	}
	return ""
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// isUniqueViolation reports whether err is a unique constraint failure in
// either backend.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
