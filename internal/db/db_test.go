package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hpungsan/folio/internal/logger"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "folio.db")
	s, err := Open(context.Background(), path, PoolOptions{}, logger.NewNop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestParseDSN(t *testing.T) {
	tests := []struct {
		dsn     string
		dialect Dialect
		driver  string
	}{
		{"postgres://user:pw@localhost:5432/folio?sslmode=disable", Postgres, "postgres://user:pw@localhost:5432/folio?sslmode=disable"},
		{"postgresql://localhost/folio", Postgres, "postgresql://localhost/folio"},
		{"host=localhost dbname=folio sslmode=disable", Postgres, "host=localhost dbname=folio sslmode=disable"},
		{"sqlite:data/folio.db", SQLite, "data/folio.db"},
		{"sqlite:///tmp/folio.db", SQLite, "/tmp/folio.db"},
		{"file:folio.db?mode=rwc", SQLite, "file:folio.db?mode=rwc"},
		{"/var/lib/folio/notes.db", SQLite, "/var/lib/folio/notes.db"},
		{"notes.sqlite", SQLite, "notes.sqlite"},
	}

	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			dialect, driver, err := ParseDSN(tt.dsn)
			if err != nil {
				t.Fatalf("ParseDSN() error = %v", err)
			}
			if dialect != tt.dialect {
				t.Errorf("dialect = %s, want %s", dialect, tt.dialect)
			}
			if driver != tt.driver {
				t.Errorf("driver dsn = %q, want %q", driver, tt.driver)
			}
		})
	}
}

func TestParseDSN_Invalid(t *testing.T) {
	for _, dsn := range []string{"", "   ", "mysql-ish-thing"} {
		if _, _, err := ParseDSN(dsn); err == nil {
			t.Errorf("ParseDSN(%q) expected error", dsn)
		}
	}
}

func TestOpen_SQLite(t *testing.T) {
	base := filepath.Join(t.TempDir(), "nested", "dir")
	path := filepath.Join(base, "folio.db")

	s, err := Open(context.Background(), "sqlite:"+path, PoolOptions{MaxOpenConns: 4, MaxIdleConns: 2}, logger.NewNop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("database file not created at %s", path)
	}
	if s.Dialect() != SQLite {
		t.Errorf("Dialect() = %s, want sqlite", s.Dialect())
	}

	// Verify WAL mode is active
	var journalMode string
	if err := s.db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		t.Fatalf("failed to query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %s, want wal", journalMode)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "folio.db")
	ctx := context.Background()

	s1, err := Open(ctx, path, PoolOptions{}, logger.NewNop())
	if err != nil {
		t.Fatalf("first Open() error = %v", err)
	}
	s1.Close()

	// Second Open on same DB should succeed (migrations skip if already applied)
	s2, err := Open(ctx, path, PoolOptions{}, logger.NewNop())
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	defer s2.Close()

	if err := s2.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	version, err := s2.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if version != CurrentSchemaVersion {
		t.Errorf("schema version = %d, want %d", version, CurrentSchemaVersion)
	}

	var rows int
	if err := s2.db.Get(&rows, "SELECT COUNT(*) FROM schema_version"); err != nil {
		t.Fatalf("count schema_version: %v", err)
	}
	if rows != CurrentSchemaVersion {
		t.Errorf("schema_version rows = %d, want %d", rows, CurrentSchemaVersion)
	}
}

func TestMigrate_SchemaIndexes(t *testing.T) {
	s := openTestStore(t)

	indexes := []string{
		"idx_notes_locale",
		"idx_notes_type",
		"idx_notes_date",
	}

	for _, idx := range indexes {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&name)
		if err != nil {
			t.Errorf("index %s not found: %v", idx, err)
		}
	}
}

func TestMigrationsCoverEveryDialect(t *testing.T) {
	for _, d := range []Dialect{Postgres, SQLite} {
		if got := len(migrations[d]); got != CurrentSchemaVersion {
			t.Errorf("%s has %d migrations, want %d", d, got, CurrentSchemaVersion)
		}
	}
}

func TestSQLiteLower_FoldsUnicode(t *testing.T) {
	s := openTestStore(t)

	tests := []struct{ in, want string }{
		{"ABC", "abc"},
		{"Über", "über"},
		{"ΩMEGA", "ωmega"},
		{"ТИШИНА", "тишина"},
	}
	for _, tt := range tests {
		var got string
		if err := s.db.Get(&got, `SELECT `+sqliteLower+`(?)`, tt.in); err != nil {
			t.Fatalf("%s(%q) error = %v", sqliteLower, tt.in, err)
		}
		if got != tt.want {
			t.Errorf("%s(%q) = %q, want %q", sqliteLower, tt.in, got, tt.want)
		}
	}

	var null *string
	if err := s.db.Get(&null, `SELECT `+sqliteLower+`(NULL)`); err != nil {
		t.Fatalf("%s(NULL) error = %v", sqliteLower, err)
	}
	if null != nil {
		t.Errorf("%s(NULL) = %q, want NULL", sqliteLower, *null)
	}
}
