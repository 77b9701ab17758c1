// Package db is the relational note store. It speaks Postgres through lib/pq
// or an embedded SQLite file through modernc.org/sqlite; the dialect is chosen
// from the connection string.
package db

import (
	"context"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"modernc.org/sqlite"

	"github.com/hpungsan/folio/internal/logger"
)

// Dialect identifies the SQL flavour behind a connection.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// sqliteLower is a Unicode case-folding lower(). SQLite's built-in LOWER
// only folds ASCII.
const sqliteLower = "folio_lower"

func init() {
	// modernc registers as "sqlite", which sqlx does not know by default.
	sqlx.BindDriver(string(SQLite), sqlx.QUESTION)
	sqlite.MustRegisterDeterministicScalarFunction(sqliteLower, 1, foldLower)
}

func foldLower(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// sqlitePragmas apply to every connection in the pool.
const sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// PoolOptions tune the connection pool. Zero values keep driver defaults.
type PoolOptions struct {
	MaxOpenConns int
	MaxIdleConns int
}

// ParseDSN detects the dialect of a connection string and returns the
// driver-level DSN.
//
//	postgres://..., postgresql://..., host=... dbname=...  -> Postgres
//	sqlite:path, sqlite://path, file:path, *.db, *.sqlite  -> SQLite
func ParseDSN(dsn string) (Dialect, string, error) {
	dsn = strings.TrimSpace(dsn)
	lower := strings.ToLower(dsn)

	switch {
	case dsn == "":
		return "", "", fmt.Errorf("empty connection string")
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return Postgres, dsn, nil
	case strings.HasPrefix(lower, "sqlite://"):
		return SQLite, dsn[len("sqlite://"):], nil
	case strings.HasPrefix(lower, "sqlite:"):
		return SQLite, dsn[len("sqlite:"):], nil
	case strings.HasPrefix(lower, "file:"):
		return SQLite, dsn, nil
	}

	path := lower
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if strings.HasSuffix(path, ".db") || strings.HasSuffix(path, ".sqlite") || strings.HasSuffix(path, ".sqlite3") {
		return SQLite, dsn, nil
	}
	if strings.Contains(dsn, "=") {
		return Postgres, dsn, nil
	}
	return "", "", fmt.Errorf("unrecognized connection string: expected a postgres URL, key=value DSN or SQLite path")
}

// Open connects to the database named by dsn, applies pool limits and runs
// pending migrations.
func Open(ctx context.Context, dsn string, pool PoolOptions, log logger.Logger) (*Store, error) {
	dialect, driverDSN, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	if dialect == SQLite {
		driverDSN, err = prepareSQLite(driverDSN)
		if err != nil {
			return nil, err
		}
	}

	conn, err := sqlx.Open(string(dialect), driverDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	ConfigurePool(conn, pool)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := NewStore(conn, dialect, log)
	if err := s.Migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// prepareSQLite creates the parent directory of a plain file path and
// appends the connection pragmas.
func prepareSQLite(dsn string) (string, error) {
	path := dsn
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if !strings.HasPrefix(path, "file:") && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	if strings.Contains(dsn, "_pragma=") {
		return dsn, nil
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + sqlitePragmas, nil
}

// ConfigurePool applies connection pool settings.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(conn *sqlx.DB, pool PoolOptions) {
	if pool.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(pool.MaxIdleConns)
	}
}
