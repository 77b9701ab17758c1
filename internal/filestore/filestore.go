// Package filestore keeps notes as frontmatter files, one per note, under
// <root>/notes/<locale>/<id>.mdx.
//
// Reads fail open: an unreadable directory or file is logged and treated as
// absent, because a missing content directory is a normal empty state.
// Writes fail closed and return coded errors.
package filestore

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/hpungsan/folio/internal/errors"
	"github.com/hpungsan/folio/internal/frontmatter"
	"github.com/hpungsan/folio/internal/logger"
	"github.com/hpungsan/folio/internal/note"
)

// Ext is the extension of note files.
const Ext = ".mdx"

const filePattern = "*" + Ext

// Store is the file-backed note store.
type Store struct {
	root string
	log  logger.Logger
}

// New returns a store rooted at contentDir. Notes live in contentDir/notes.
func New(contentDir string, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNop()
	}
	return &Store{
		root: filepath.Join(contentDir, "notes"),
		log:  log.With(logger.String("backend", "file")),
	}
}

func (s *Store) localeDir(locale string) string {
	return filepath.Join(s.root, locale)
}

func (s *Store) path(id, locale string) string {
	return filepath.Join(s.localeDir(locale), id+Ext)
}

// List returns the valid notes of a locale, newest first.
func (s *Store) List(ctx context.Context, locale string) ([]note.Note, error) {
	dir := s.localeDir(locale)
	names, err := doublestar.Glob(os.DirFS(dir), filePattern, doublestar.WithFilesOnly())
	if err != nil {
		s.log.Warn("list notes", logger.String("dir", dir), logger.Error(err))
		return []note.Note{}, nil
	}

	notes := make([]note.Note, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, ok := s.read(filepath.Join(dir, name), strings.TrimSuffix(name, Ext), locale)
		if ok {
			notes = append(notes, n)
		}
	}
	note.SortByDate(notes)
	return notes, nil
}

// read parses one file. ok is false for unreadable or incomplete records.
func (s *Store) read(path, id, locale string) (note.Note, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !stderrors.Is(err, fs.ErrNotExist) {
			s.log.Warn("read note", logger.String("path", path), logger.Error(err))
		}
		return note.Note{}, false
	}
	doc, err := frontmatter.Parse(string(data))
	if err != nil {
		s.log.Debug("skip note without frontmatter", logger.String("path", path))
		return note.Note{}, false
	}

	h := doc.Header
	n := note.Note{
		ID:        id,
		Type:      note.Kind(h.Type),
		Title:     h.Title,
		Content:   h.Description,
		Tags:      h.Tags,
		Date:      h.Date,
		Locale:    locale,
		Mood:      h.Mood,
		Source:    h.Source,
		SourceURL: h.SourceURL,
		Body:      strings.TrimRight(doc.Body, "\r\n"),
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
	if !n.Complete() {
		s.log.Debug("skip incomplete note", logger.String("path", path))
		return note.Note{}, false
	}
	return n, true
}

// Get returns the note, or nil when it does not exist or is invalid.
func (s *Store) Get(ctx context.Context, id, locale string) (*note.Note, error) {
	if err := note.ValidateID(id); err != nil {
		return nil, err
	}
	n, ok := s.read(s.path(id, locale), id, locale)
	if !ok {
		return nil, nil
	}
	return &n, nil
}

// ByType returns the notes of one kind.
func (s *Store) ByType(ctx context.Context, kind note.Kind, locale string) ([]note.Note, error) {
	return s.filter(ctx, locale, func(n *note.Note) bool { return n.Type == kind })
}

// ByTag returns the notes carrying tag exactly.
func (s *Store) ByTag(ctx context.Context, tag, locale string) ([]note.Note, error) {
	return s.filter(ctx, locale, func(n *note.Note) bool { return n.HasTag(tag) })
}

// Search returns the notes whose title, content or any tag contains query,
// ignoring case.
func (s *Store) Search(ctx context.Context, query, locale string) ([]note.Note, error) {
	return s.filter(ctx, locale, func(n *note.Note) bool { return n.Matches(query) })
}

func (s *Store) filter(ctx context.Context, locale string, keep func(*note.Note) bool) ([]note.Note, error) {
	notes, err := s.List(ctx, locale)
	if err != nil {
		return nil, err
	}
	return note.Filter(notes, keep), nil
}

// Tags returns the sorted distinct tags of a locale.
func (s *Store) Tags(ctx context.Context, locale string) ([]string, error) {
	notes, err := s.List(ctx, locale)
	if err != nil {
		return nil, err
	}
	return note.DistinctTags(notes), nil
}

// Statistics counts the notes of a locale.
func (s *Store) Statistics(ctx context.Context, locale string) (note.Stats, error) {
	notes, err := s.List(ctx, locale)
	if err != nil {
		return note.Stats{}, err
	}
	return note.Count(notes), nil
}

// Create writes a new note file. An existing id in the locale is a conflict.
func (s *Store) Create(ctx context.Context, n note.Note) (*note.Note, error) {
	if err := note.ValidateID(n.ID); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.localeDir(n.Locale), 0o755); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("create locale dir: %w", err))
	}
	if n.Body == "" {
		n.Body = n.Content
	}

	f, err := os.OpenFile(s.path(n.ID, n.Locale), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if stderrors.Is(err, fs.ErrExist) {
			return nil, errors.NewAlreadyExists(n.ID, n.Locale)
		}
		return nil, errors.NewInternal(fmt.Errorf("create note file: %w", err))
	}
	if _, err := f.WriteString(encode(n)); err != nil {
		f.Close()
		return nil, errors.NewInternal(fmt.Errorf("write note file: %w", err))
	}
	if err := f.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("close note file: %w", err))
	}

	s.log.Info("note created", logger.String("id", n.ID), logger.String("locale", n.Locale))
	return &n, nil
}

// Update applies the patch and rewrites the whole file.
func (s *Store) Update(ctx context.Context, id, locale string, p note.Patch) (*note.Note, error) {
	cur, err := s.Get(ctx, id, locale)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, errors.NewNotFound(id, locale)
	}

	updated := p.Apply(*cur)
	if err := writeFileAtomic(s.path(id, locale), []byte(encode(updated))); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("rewrite note file: %w", err))
	}

	s.log.Info("note updated", logger.String("id", id), logger.String("locale", locale))
	return &updated, nil
}

// Delete removes the note file.
func (s *Store) Delete(ctx context.Context, id, locale string) error {
	if err := note.ValidateID(id); err != nil {
		return err
	}
	if err := os.Remove(s.path(id, locale)); err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return errors.NewNotFound(id, locale)
		}
		return errors.NewInternal(fmt.Errorf("remove note file: %w", err))
	}

	s.log.Info("note deleted", logger.String("id", id), logger.String("locale", locale))
	return nil
}

func encode(n note.Note) string {
	return frontmatter.Encode(frontmatter.Header{
		Title:       n.Title,
		Description: n.Content,
		Date:        n.Date,
		Type:        string(n.Type),
		Tags:        n.Tags,
		Mood:        n.Mood,
		Source:      n.Source,
		SourceURL:   n.SourceURL,
	}, n.Text())
}

// writeFileAtomic writes through a temp file in the same directory and
// renames it over path, so readers never see a half-written note.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".folio-*"+Ext+".tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
