// Package content is the single entry point for note access. It picks the
// backing store once, validates every call and forwards it to that store.
package content

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hpungsan/folio/internal/db"
	"github.com/hpungsan/folio/internal/errors"
	"github.com/hpungsan/folio/internal/filestore"
	"github.com/hpungsan/folio/internal/i18n"
	"github.com/hpungsan/folio/internal/logger"
	"github.com/hpungsan/folio/internal/note"
)

// Backend is a note store. Both the file store and the relational store
// implement it with the same observable semantics.
type Backend interface {
	List(ctx context.Context, locale string) ([]note.Note, error)
	Get(ctx context.Context, id, locale string) (*note.Note, error)
	ByType(ctx context.Context, kind note.Kind, locale string) ([]note.Note, error)
	ByTag(ctx context.Context, tag, locale string) ([]note.Note, error)
	Search(ctx context.Context, query, locale string) ([]note.Note, error)
	Tags(ctx context.Context, locale string) ([]string, error)
	Statistics(ctx context.Context, locale string) (note.Stats, error)
	Create(ctx context.Context, n note.Note) (*note.Note, error)
	Update(ctx context.Context, id, locale string, p note.Patch) (*note.Note, error)
	Delete(ctx context.Context, id, locale string) error
}

// Mode names the backend in use.
type Mode string

const (
	ModeFile     Mode = "file"
	ModeDatabase Mode = "database"
)

// Options configure New.
type Options struct {
	// DatabaseURL selects the relational backend when non-empty.
	DatabaseURL string
	// ContentDir is the root of the file backend.
	ContentDir string
	// ReadOnly makes every write fail with CAPABILITY_UNAVAILABLE.
	ReadOnly bool
	Pool     db.PoolOptions
	Logger   logger.Logger
}

// Repository routes every operation to the backend chosen at construction.
// The choice never changes afterwards, so a Repository is safe to share.
type Repository struct {
	backend  Backend
	mode     Mode
	readOnly bool
	closer   func() error
	log      logger.Logger
	now      func() time.Time
}

// New opens the backend named by opts.
func New(ctx context.Context, opts Options) (*Repository, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}

	if strings.TrimSpace(opts.DatabaseURL) != "" {
		store, err := db.Open(ctx, opts.DatabaseURL, opts.Pool, log)
		if err != nil {
			return nil, fmt.Errorf("open relational backend: %w", err)
		}
		r := NewWithBackend(store, ModeDatabase, opts.ReadOnly, log)
		r.closer = store.Close
		log.Info("content backend selected", logger.String("mode", string(ModeDatabase)), logger.String("dialect", string(store.Dialect())))
		return r, nil
	}

	dir := opts.ContentDir
	if dir == "" {
		dir = "content"
	}
	log.Info("content backend selected", logger.String("mode", string(ModeFile)), logger.String("dir", dir))
	return NewWithBackend(filestore.New(dir, log), ModeFile, opts.ReadOnly, log), nil
}

// NewWithBackend wraps an already constructed backend.
func NewWithBackend(b Backend, mode Mode, readOnly bool, log logger.Logger) *Repository {
	if log == nil {
		log = logger.NewNop()
	}
	return &Repository{
		backend:  b,
		mode:     mode,
		readOnly: readOnly,
		log:      log,
		now:      time.Now,
	}
}

// Mode reports the backend in use.
func (r *Repository) Mode() Mode { return r.mode }

// ReadOnly reports whether writes are disabled.
func (r *Repository) ReadOnly() bool { return r.readOnly }

// Close releases the backend's resources.
func (r *Repository) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer()
}

func checkLocale(locale string) error {
	if locale == "" {
		return errors.NewInvalidRequest("locale is required")
	}
	if !i18n.IsSupported(locale) {
		return errors.NewInvalidRequest(fmt.Sprintf("unsupported locale %q (supported: %s)", locale, strings.Join(i18n.Supported(), ", ")))
	}
	return nil
}

// List returns every valid note of a locale, newest first.
func (r *Repository) List(ctx context.Context, locale string) ([]note.Note, error) {
	if err := checkLocale(locale); err != nil {
		return nil, err
	}
	return r.backend.List(ctx, locale)
}

// Get returns the note, or nil when it does not exist.
func (r *Repository) Get(ctx context.Context, id, locale string) (*note.Note, error) {
	if err := checkLocale(locale); err != nil {
		return nil, err
	}
	if err := note.ValidateID(id); err != nil {
		return nil, err
	}
	return r.backend.Get(ctx, id, locale)
}

// GetContentBody returns the long-form text of a note. ok is false when the
// note does not exist.
func (r *Repository) GetContentBody(ctx context.Context, id, locale string) (body string, ok bool, err error) {
	n, err := r.Get(ctx, id, locale)
	if err != nil || n == nil {
		return "", false, err
	}
	return n.Text(), true, nil
}

// ByType returns the notes of one kind.
func (r *Repository) ByType(ctx context.Context, kind note.Kind, locale string) ([]note.Note, error) {
	if err := checkLocale(locale); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("type must be %q or %q", note.KindThought, note.KindNote))
	}
	return r.backend.ByType(ctx, kind, locale)
}

// ByTag returns the notes tagged exactly with tag.
func (r *Repository) ByTag(ctx context.Context, tag, locale string) ([]note.Note, error) {
	if err := checkLocale(locale); err != nil {
		return nil, err
	}
	return r.backend.ByTag(ctx, tag, locale)
}

// Search returns the notes whose title, content or tags contain query.
func (r *Repository) Search(ctx context.Context, query, locale string) ([]note.Note, error) {
	if err := checkLocale(locale); err != nil {
		return nil, err
	}
	return r.backend.Search(ctx, query, locale)
}

// Query narrows a listing by at most one criterion.
type Query struct {
	Type string
	Tag  string
	Q    string
}

// Query applies the first non-empty criterion in the order type, tag, q.
// With none set it lists everything.
func (r *Repository) Query(ctx context.Context, q Query, locale string) ([]note.Note, error) {
	switch {
	case q.Type != "":
		return r.ByType(ctx, note.Kind(q.Type), locale)
	case q.Tag != "":
		return r.ByTag(ctx, q.Tag, locale)
	case q.Q != "":
		return r.Search(ctx, q.Q, locale)
	default:
		return r.List(ctx, locale)
	}
}

// Tags returns the sorted distinct tags of a locale.
func (r *Repository) Tags(ctx context.Context, locale string) ([]string, error) {
	if err := checkLocale(locale); err != nil {
		return nil, err
	}
	return r.backend.Tags(ctx, locale)
}

// Statistics counts the notes of a locale.
func (r *Repository) Statistics(ctx context.Context, locale string) (note.Stats, error) {
	if err := checkLocale(locale); err != nil {
		return note.Stats{}, err
	}
	return r.backend.Statistics(ctx, locale)
}

// Create validates and stores a new note. An empty id is replaced with the
// current Unix time in milliseconds.
func (r *Repository) Create(ctx context.Context, n note.Note) (*note.Note, error) {
	if r.readOnly {
		return nil, errors.NewCapabilityUnavailable("create")
	}
	if err := checkLocale(n.Locale); err != nil {
		return nil, err
	}
	if n.ID == "" {
		n.ID = strconv.FormatInt(r.now().UnixMilli(), 10)
	}
	if err := note.ValidateID(n.ID); err != nil {
		return nil, err
	}

	n.Title = strings.TrimSpace(n.Title)
	n.Date = strings.TrimSpace(n.Date)
	n.Tags = note.NormalizeTags(n.Tags)
	if err := note.ValidateNew(&n); err != nil {
		return nil, err
	}
	n.Body = ""

	return r.backend.Create(ctx, n)
}

// Update applies the fields present in p. Fields left nil keep their value.
func (r *Repository) Update(ctx context.Context, id, locale string, p note.Patch) (*note.Note, error) {
	if r.readOnly {
		return nil, errors.NewCapabilityUnavailable("update")
	}
	if err := checkLocale(locale); err != nil {
		return nil, err
	}
	if err := note.ValidateID(id); err != nil {
		return nil, err
	}
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		p.Title = &title
	}
	if p.Date != nil {
		date := strings.TrimSpace(*p.Date)
		p.Date = &date
	}
	if p.Tags != nil {
		tags := note.NormalizeTags(*p.Tags)
		p.Tags = &tags
	}
	if err := note.ValidatePatch(p); err != nil {
		return nil, err
	}

	return r.backend.Update(ctx, id, locale, p)
}

// Delete removes a note.
func (r *Repository) Delete(ctx context.Context, id, locale string) error {
	if r.readOnly {
		return errors.NewCapabilityUnavailable("delete")
	}
	if err := checkLocale(locale); err != nil {
		return err
	}
	if err := note.ValidateID(id); err != nil {
		return err
	}
	return r.backend.Delete(ctx, id, locale)
}

var (
	_ Backend = (*filestore.Store)(nil)
	_ Backend = (*db.Store)(nil)
)
