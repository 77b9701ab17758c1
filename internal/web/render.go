package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/hpungsan/folio/internal/article"
	"github.com/hpungsan/folio/internal/errors"
	"github.com/hpungsan/folio/internal/i18n"
	"github.com/hpungsan/folio/internal/logger"
	"github.com/hpungsan/folio/internal/note"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title     string
	Version   string
	Locale    string
	Alternate string
	Nav       string // active nav item: "home", "blog", "notes", "search", "chat", "about"
	// Path is the request path below the locale prefix, for the language switcher.
	Path string
}

// HomePageData is the template data for the locale home page.
type HomePageData struct {
	PageData
	Articles []article.Article
	Notes    []note.Note
	Stats    note.Stats
}

// BlogPageData is the template data for the article list.
type BlogPageData struct {
	PageData
	Articles []article.Article
}

// ArticlePageData is the template data for a single article.
type ArticlePageData struct {
	PageData
	Article      *article.Article
	RenderedHTML template.HTML
}

// NotesPageData is the template data for the note list.
type NotesPageData struct {
	PageData
	Notes []note.Note
	Tags  []string
	Stats note.Stats
	Type  string
	Tag   string
	Query string
	// Editable shows the authoring links; false when writes are disabled.
	Editable bool
}

// NotePageData is the template data for a single note.
type NotePageData struct {
	PageData
	Note         *note.Note
	RenderedHTML template.HTML
	Editable     bool
}

// NoteFormPageData is the template data for the create and edit forms.
type NoteFormPageData struct {
	PageData
	Action  string
	Editing bool
	Form    noteForm
	Error   string
}

// SearchPageData is the template data for the search page.
type SearchPageData struct {
	PageData
	Query    string
	HasQuery bool
	Articles []article.Article
	Notes    []note.Note
}

// ChatPageData is the template data for the assistant page.
type ChatPageData struct {
	PageData
	Message  string
	Reply    string
	Provider string
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	markdown  goldmark.Markdown
	version   string
	log       logger.Logger
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string, log logger.Logger) *Renderer {
	if log == nil {
		log = logger.NewNop()
	}
	funcMap := template.FuncMap{
		"t":        i18n.T,
		"join":     strings.Join,
		"notEmpty": func(s string) bool { return strings.TrimSpace(s) != "" },
		"excerpt":  excerpt,
	}

	// Parse layout as the base template
	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"home":      "home.html",
		"blog":      "blog.html",
		"article":   "article.html",
		"notes":     "notes.html",
		"note":      "note.html",
		"note_form": "note_form.html",
		"search":    "search.html",
		"chat":      "chat.html",
		"about":     "about.html",
		"error":     "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
		version: version,
		log:     log,
	}
}

// page builds the common page fields for a locale.
func (r *Renderer) page(locale, title, nav, path string) PageData {
	return PageData{
		Title:     title,
		Version:   r.version,
		Locale:    locale,
		Alternate: i18n.Alternate(locale),
		Nav:       nav,
		Path:      path,
	}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, req *http.Request, name string, data any) {
	r.renderPageStatus(w, req, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
// For HTMX requests, only the "content" block is rendered to avoid duplicating the layout.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	log := r.log
	if req != nil {
		log = logger.FromContext(req.Context(), r.log)
	}

	t, ok := r.templates[name]
	if !ok {
		log.Error("template not found", logger.String("template", name))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	block := "layout"
	if req != nil && req.Header.Get("HX-Request") == "true" {
		block = "content"
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		log.Error("template execution failed", logger.String("template", name), logger.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, locale string, err error) {
	fErr := errors.As(err)
	logError(req, r.log, fErr)

	status := fErr.Status
	message := fErr.Message
	if fErr.Code == errors.ErrNotFound {
		message = i18n.T(locale, "error.notfound")
	}

	// HTMX request: return HTML fragment
	if req.Header.Get("HX-Request") == "true" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprintf(w, `<div class="error-message">%s</div>`, template.HTMLEscapeString(message))
		return
	}

	// JSON request
	if strings.Contains(req.Header.Get("Accept"), "application/json") {
		writeError(w, req, r.log, err)
		return
	}

	// Full error page
	r.renderPageStatus(w, req, status, "error", ErrorPageData{
		PageData:   r.page(locale, fmt.Sprintf("%s %d", i18n.T(locale, "error.generic"), status), "", ""),
		StatusCode: status,
		Message:    message,
	})
}

// renderMarkdown converts markdown text to HTML using goldmark.
func (r *Renderer) renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes the coded error body used by every API endpoint.
func writeError(w http.ResponseWriter, req *http.Request, log logger.Logger, err error) {
	fErr := errors.As(err)
	logError(req, log, fErr)
	renderJSON(w, fErr.Status, map[string]any{
		"error": map[string]any{
			"code":    string(fErr.Code),
			"message": fErr.Message,
			"status":  fErr.Status,
		},
	})
}

// logError logs server-side failures. Client errors are only visible in the
// access log.
func logError(req *http.Request, fallback logger.Logger, fErr *errors.FolioError) {
	if fErr.Status < http.StatusInternalServerError {
		return
	}
	log := logger.FromContext(req.Context(), fallback)
	fields := []logger.Field{logger.String("code", string(fErr.Code)), logger.Error(fErr)}
	if detail, ok := fErr.Details["internal_error"].(string); ok {
		fields = append(fields, logger.String("cause", detail))
	}
	log.Error("request failed", fields...)
}

// excerpt shortens s to at most n runes on a word boundary where possible.
func excerpt(n int, s string) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	cut := string(runes[:n])
	if i := strings.LastIndexByte(cut, ' '); i > n/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}
