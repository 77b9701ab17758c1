package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/hpungsan/folio/internal/errors"
	"github.com/hpungsan/folio/internal/logger"
	"github.com/hpungsan/folio/internal/note"
)

const noteColumns = `id, type, title, content, tags, date, locale, mood, source, source_url`

// Store is the relational note store. Every query failure is returned to
// the caller; nothing is swallowed.
type Store struct {
	db      *sqlx.DB
	dialect Dialect
	log     logger.Logger
}

// NewStore wraps an open connection. It does not run migrations.
func NewStore(conn *sqlx.DB, dialect Dialect, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNop()
	}
	return &Store{
		db:      conn,
		dialect: dialect,
		log:     log.With(logger.String("backend", "db"), logger.String("dialect", string(dialect))),
	}
}

// Dialect reports which SQL flavour the store speaks.
func (s *Store) Dialect() Dialect { return s.dialect }

// Close closes the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

type noteRow struct {
	ID        string         `db:"id"`
	Type      string         `db:"type"`
	Title     string         `db:"title"`
	Content   string         `db:"content"`
	Tags      tagList        `db:"tags"`
	Date      string         `db:"date"`
	Locale    string         `db:"locale"`
	Mood      sql.NullString `db:"mood"`
	Source    sql.NullString `db:"source"`
	SourceURL sql.NullString `db:"source_url"`
}

func (r noteRow) toNote() note.Note {
	tags := []string(r.Tags)
	if tags == nil {
		tags = []string{}
	}
	return note.Note{
		ID:        r.ID,
		Type:      note.Kind(r.Type),
		Title:     r.Title,
		Content:   r.Content,
		Tags:      tags,
		Date:      r.Date,
		Locale:    r.Locale,
		Mood:      r.Mood.String,
		Source:    r.Source.String,
		SourceURL: r.SourceURL.String,
		Body:      r.Content,
	}
}

// selectNotes runs a SELECT over notes and keeps only complete records.
func (s *Store) selectNotes(ctx context.Context, where string, args ...any) ([]note.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE ` + where + ` ORDER BY date DESC, id`

	var rows []noteRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("query notes: %w", err))
	}

	notes := make([]note.Note, 0, len(rows))
	for _, r := range rows {
		n := r.toNote()
		if n.Complete() {
			notes = append(notes, n)
		}
	}
	return notes, nil
}

// List returns the notes of a locale, newest first.
func (s *Store) List(ctx context.Context, locale string) ([]note.Note, error) {
	return s.selectNotes(ctx, `locale = ?`, locale)
}

// Get returns the note, or nil when no row matches.
func (s *Store) Get(ctx context.Context, id, locale string) (*note.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE id = ? AND locale = ?`

	var r noteRow
	err := s.db.GetContext(ctx, &r, s.db.Rebind(query), id, locale)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("get note: %w", err))
	}

	n := r.toNote()
	if !n.Complete() {
		return nil, nil
	}
	return &n, nil
}

// ByType returns the notes of one kind.
func (s *Store) ByType(ctx context.Context, kind note.Kind, locale string) ([]note.Note, error) {
	return s.selectNotes(ctx, `locale = ? AND type = ?`, locale, string(kind))
}

// ByTag returns the notes whose tags contain tag exactly.
func (s *Store) ByTag(ctx context.Context, tag, locale string) ([]note.Note, error) {
	var cond string
	if s.dialect == Postgres {
		cond = `locale = ? AND ? = ANY(tags)`
	} else {
		cond = `locale = ? AND EXISTS (SELECT 1 FROM json_each(notes.tags) AS t WHERE t.value = ?)`
	}
	return s.selectNotes(ctx, cond, locale, tag)
}

// Search matches query case-insensitively against title, content and every
// tag element inside the database.
func (s *Store) Search(ctx context.Context, query, locale string) ([]note.Note, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"

	lower := "LOWER"
	tagCond := `EXISTS (SELECT 1 FROM unnest(tags) AS tag WHERE LOWER(tag) LIKE ? ESCAPE '\')`
	if s.dialect == SQLite {
		lower = sqliteLower
		tagCond = `EXISTS (SELECT 1 FROM json_each(notes.tags) AS t WHERE ` + lower + `(t.value) LIKE ? ESCAPE '\')`
	}
	cond := `locale = ? AND (` + lower + `(title) LIKE ? ESCAPE '\' OR ` + lower + `(content) LIKE ? ESCAPE '\' OR ` + tagCond + `)`
	return s.selectNotes(ctx, cond, locale, pattern, pattern, pattern)
}

// escapeLike escapes LIKE wildcards so the query matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Tags returns the sorted distinct tags of a locale.
func (s *Store) Tags(ctx context.Context, locale string) ([]string, error) {
	var query string
	if s.dialect == Postgres {
		query = `SELECT DISTINCT tag FROM notes, unnest(notes.tags) AS tag WHERE notes.locale = ?`
	} else {
		query = `SELECT DISTINCT t.value FROM notes, json_each(notes.tags) AS t WHERE notes.locale = ?`
	}
	query += ` AND ` + complete("notes.")

	tags := []string{}
	if err := s.db.SelectContext(ctx, &tags, s.db.Rebind(query), locale); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("query tags: %w", err))
	}
	// Sorted here so both dialects agree regardless of collation.
	sort.Strings(tags)
	return tags, nil
}

// Statistics counts the complete notes of a locale in one query.
func (s *Store) Statistics(ctx context.Context, locale string) (note.Stats, error) {
	var tagCount string
	if s.dialect == Postgres {
		tagCount = `(SELECT COUNT(DISTINCT tag) FROM notes AS n2, unnest(n2.tags) AS tag WHERE n2.locale = ? AND ` + complete("n2.") + `)`
	} else {
		tagCount = `(SELECT COUNT(DISTINCT t.value) FROM notes AS n2, json_each(n2.tags) AS t WHERE n2.locale = ? AND ` + complete("n2.") + `)`
	}
	query := `SELECT
		COUNT(*) AS total,
		COALESCE(SUM(CASE WHEN type = 'thought' THEN 1 ELSE 0 END), 0) AS thoughts,
		COALESCE(SUM(CASE WHEN type = 'note' THEN 1 ELSE 0 END), 0) AS notes,
		` + tagCount + ` AS tags
	FROM notes WHERE locale = ? AND ` + complete("")

	var stats note.Stats
	row := s.db.QueryRowxContext(ctx, s.db.Rebind(query), locale, locale)
	if err := row.Scan(&stats.Total, &stats.Thoughts, &stats.Notes, &stats.Tags); err != nil {
		return note.Stats{}, errors.NewInternal(fmt.Errorf("query statistics: %w", err))
	}
	return stats, nil
}

// complete excludes the rows selectNotes would drop. prefix qualifies the
// columns, e.g. "n2.".
func complete(prefix string) string {
	return prefix + `title <> '' AND ` + prefix + `content <> '' AND ` +
		prefix + `date <> '' AND ` + prefix + `type <> ''`
}

// Create inserts a note. A duplicate (id, locale) is a conflict.
func (s *Store) Create(ctx context.Context, n note.Note) (*note.Note, error) {
	tags, err := s.tagsArg(n.Tags)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	query := `INSERT INTO notes (` + noteColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, s.db.Rebind(query),
		n.ID, string(n.Type), n.Title, n.Content, tags, n.Date, n.Locale,
		nullable(n.Mood), nullable(n.Source), nullable(n.SourceURL),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errors.NewAlreadyExists(n.ID, n.Locale)
		}
		return nil, errors.NewInternal(fmt.Errorf("insert note: %w", err))
	}

	s.log.Info("note created", logger.String("id", n.ID), logger.String("locale", n.Locale))
	if n.Tags == nil {
		n.Tags = []string{}
	}
	n.Body = n.Content
	return &n, nil
}

// Update patches only the fields present in p and bumps updated_at.
func (s *Store) Update(ctx context.Context, id, locale string, p note.Patch) (*note.Note, error) {
	var tags any
	if p.Tags != nil {
		v, err := s.tagsArg(*p.Tags)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		tags = v
	}
	var kind *string
	if p.Type != nil {
		k := string(*p.Type)
		kind = &k
	}

	query := `UPDATE notes SET
		type = COALESCE(?, type),
		title = COALESCE(?, title),
		content = COALESCE(?, content),
		tags = COALESCE(?, tags),
		date = COALESCE(?, date),
		mood = COALESCE(?, mood),
		source = COALESCE(?, source),
		source_url = COALESCE(?, source_url),
		updated_at = CURRENT_TIMESTAMP
	WHERE id = ? AND locale = ?`

	result, err := s.db.ExecContext(ctx, s.db.Rebind(query),
		kind, p.Title, p.Content, tags, p.Date, p.Mood, p.Source, p.SourceURL,
		id, locale,
	)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("update note: %w", err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return nil, errors.NewNotFound(id, locale)
	}

	s.log.Info("note updated", logger.String("id", id), logger.String("locale", locale))
	n, err := s.Get(ctx, id, locale)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, errors.NewNotFound(id, locale)
	}
	return n, nil
}

// Delete removes a note.
func (s *Store) Delete(ctx context.Context, id, locale string) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM notes WHERE id = ? AND locale = ?`), id, locale)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("delete note: %w", err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(id, locale)
	}

	s.log.Info("note deleted", logger.String("id", id), logger.String("locale", locale))
	return nil
}

// isUniqueViolation recognizes a unique/primary key violation from either driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
