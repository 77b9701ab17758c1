package db

import (
	"context"
	"fmt"

	"github.com/hpungsan/folio/internal/logger"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// migrations[i] moves the schema from version i to i+1.
var migrations = map[Dialect][][]string{
	Postgres: {
		{
			`CREATE TABLE IF NOT EXISTS notes (
				id         TEXT NOT NULL,
				type       TEXT NOT NULL,
				title      TEXT NOT NULL,
				content    TEXT NOT NULL,
				tags       TEXT[] NOT NULL DEFAULT '{}',
				date       TEXT NOT NULL,
				locale     TEXT NOT NULL,
				mood       TEXT,
				source     TEXT,
				source_url TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (id, locale)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_notes_locale ON notes(locale)`,
			`CREATE INDEX IF NOT EXISTS idx_notes_type ON notes(type)`,
			`CREATE INDEX IF NOT EXISTS idx_notes_date ON notes(date DESC)`,
			`CREATE INDEX IF NOT EXISTS idx_notes_tags ON notes USING GIN(tags)`,
		},
	},
	SQLite: {
		{
			`CREATE TABLE IF NOT EXISTS notes (
				id         TEXT NOT NULL,
				type       TEXT NOT NULL,
				title      TEXT NOT NULL,
				content    TEXT NOT NULL,
				tags       TEXT NOT NULL DEFAULT '[]',
				date       TEXT NOT NULL,
				locale     TEXT NOT NULL,
				mood       TEXT,
				source     TEXT,
				source_url TEXT,
				created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (id, locale)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_notes_locale ON notes(locale)`,
			`CREATE INDEX IF NOT EXISTS idx_notes_type ON notes(type)`,
			`CREATE INDEX IF NOT EXISTS idx_notes_date ON notes(date DESC)`,
		},
	},
}

// Migrate applies pending migrations. It is safe to run repeatedly.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("failed to create schema_version: %w", err)
	}

	version, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	steps := migrations[s.dialect]
	for v := version; v < len(steps); v++ {
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("migration %d failed: %w", v+1, err)
		}
		for _, stmt := range steps[v] {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("migration %d failed: %w", v+1, err)
			}
		}
		if _, err := tx.ExecContext(ctx, s.db.Rebind(`INSERT INTO schema_version (version) VALUES (?)`), v+1); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d failed: %w", v+1, err)
		}
		s.log.Info("schema migrated", logger.String("dialect", string(s.dialect)), logger.Int("version", v+1))
	}
	return nil
}

// SchemaVersion returns the highest applied migration, 0 for a fresh database.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.GetContext(ctx, &version, `SELECT COALESCE(MAX(version), 0) FROM schema_version`); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
