// Package article serves long-form blog posts from frontmatter files under
// <root>/articles/<locale>/<slug>.mdx. It is read-only.
package article

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/hpungsan/folio/internal/errors"
	"github.com/hpungsan/folio/internal/frontmatter"
	"github.com/hpungsan/folio/internal/logger"
)

// Article is one blog post.
type Article struct {
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	// ReadingTime is in minutes; 0 when the header had no usable value.
	ReadingTime int    `json:"readingTime"`
	Locale      string `json:"locale"`

	// Body is the markdown after the header.
	Body string `json:"-"`
}

// Store reads articles from disk. Reads fail open: unreadable files and
// directories are logged and skipped.
type Store struct {
	root string
	log  logger.Logger
}

// New returns a store rooted at contentDir. Articles live in contentDir/articles.
func New(contentDir string, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNop()
	}
	return &Store{
		root: filepath.Join(contentDir, "articles"),
		log:  log.With(logger.String("store", "articles")),
	}
}

// List returns the valid articles of a locale, newest first.
func (s *Store) List(ctx context.Context, locale string) ([]Article, error) {
	dir := filepath.Join(s.root, locale)
	names, err := doublestar.Glob(os.DirFS(dir), "*.mdx", doublestar.WithFilesOnly())
	if err != nil {
		s.log.Warn("list articles", logger.String("dir", dir), logger.Error(err))
		return []Article{}, nil
	}

	articles := make([]Article, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if a, ok := s.read(filepath.Join(dir, name), strings.TrimSuffix(name, ".mdx"), locale); ok {
			articles = append(articles, a)
		}
	}
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].Date > articles[j].Date
	})
	return articles, nil
}

// Get returns the article, or nil when it is missing or invalid.
func (s *Store) Get(ctx context.Context, slug, locale string) (*Article, error) {
	if slug == "" || strings.ContainsAny(slug, `/\`) || strings.Contains(slug, "..") || strings.HasPrefix(slug, ".") {
		return nil, errors.NewInvalidRequest("invalid article slug")
	}
	a, ok := s.read(filepath.Join(s.root, locale, slug+".mdx"), slug, locale)
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *Store) read(path, slug, locale string) (Article, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !stderrors.Is(err, fs.ErrNotExist) {
			s.log.Warn("read article", logger.String("path", path), logger.Error(err))
		}
		return Article{}, false
	}
	doc, err := frontmatter.Parse(string(data))
	if err != nil {
		return Article{}, false
	}

	h := doc.Header
	if h.Title == "" || h.Description == "" || h.Date == "" {
		return Article{}, false
	}
	tags := h.Tags
	if tags == nil {
		tags = []string{}
	}
	return Article{
		Slug:        slug,
		Title:       h.Title,
		Description: h.Description,
		Date:        h.Date,
		Category:    h.Category,
		Tags:        tags,
		ReadingTime: h.ReadingTime.Minutes,
		Locale:      locale,
		Body:        doc.Body,
	}, true
}

// Filter keeps the articles whose title, description or any tag contains
// query, ignoring case. An empty query matches nothing.
func Filter(articles []Article, query string) []Article {
	out := []Article{}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return out
	}
	for _, a := range articles {
		if matches(a, q) {
			out = append(out, a)
		}
	}
	return out
}

func matches(a Article, q string) bool {
	if strings.Contains(strings.ToLower(a.Title), q) || strings.Contains(strings.ToLower(a.Description), q) {
		return true
	}
	for _, t := range a.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}
