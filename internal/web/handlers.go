package web

import (
	"net/http"
	"strings"

	"github.com/hpungsan/folio/internal/article"
	"github.com/hpungsan/folio/internal/chat"
	"github.com/hpungsan/folio/internal/content"
	"github.com/hpungsan/folio/internal/errors"
	"github.com/hpungsan/folio/internal/i18n"
	"github.com/hpungsan/folio/internal/logger"
	"github.com/hpungsan/folio/internal/metrics"
	"github.com/hpungsan/folio/internal/note"
)

// homeLimit is how many articles and notes the home page shows.
const homeLimit = 5

// Handlers contains HTTP route handlers for the pages and the JSON API.
type Handlers struct {
	content  *content.Repository
	articles *article.Store
	chat     *chat.Service
	metrics  *metrics.Metrics
	renderer *Renderer
	log      logger.Logger
}

// pageLocale returns the {locale} path segment, or writes a 404 and returns
// false when it is not a supported locale.
func (h *Handlers) pageLocale(w http.ResponseWriter, r *http.Request) (string, bool) {
	locale := r.PathValue("locale")
	if !i18n.IsSupported(locale) {
		h.renderer.renderError(w, r, i18n.Default, errors.NewNotFound(r.URL.Path, locale))
		return "", false
	}
	return locale, true
}

// HandleNotFound renders the 404 page for unmatched GET paths, in the locale
// named by the first path segment when there is one.
func (h *Handlers) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	first, _, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	h.renderer.renderError(w, r, i18n.Resolve(first), errors.NewNotFound(r.URL.Path, first))
}

// subPath strips the locale prefix from the request path.
func subPath(r *http.Request, locale string) string {
	return strings.TrimPrefix(r.URL.Path, "/"+locale)
}

// HandleHome handles GET /{locale}: recent articles, recent notes and counts.
func (h *Handlers) HandleHome(w http.ResponseWriter, r *http.Request) {
	locale, ok := h.pageLocale(w, r)
	if !ok {
		return
	}

	articles, err := h.articles.List(r.Context(), locale)
	if err != nil {
		h.renderer.renderError(w, r, locale, err)
		return
	}
	notes, err := h.content.List(r.Context(), locale)
	if err != nil {
		h.renderer.renderError(w, r, locale, err)
		return
	}

	h.renderer.renderPage(w, r, "home", HomePageData{
		PageData: h.renderer.page(locale, i18n.T(locale, "site.title"), "home", subPath(r, locale)),
		Articles: articles[:min(homeLimit, len(articles))],
		Notes:    notes[:min(homeLimit, len(notes))],
		Stats:    note.Count(notes),
	})
}

// HandleBlog handles GET /{locale}/blog.
func (h *Handlers) HandleBlog(w http.ResponseWriter, r *http.Request) {
	locale, ok := h.pageLocale(w, r)
	if !ok {
		return
	}

	articles, err := h.articles.List(r.Context(), locale)
	if err != nil {
		h.renderer.renderError(w, r, locale, err)
		return
	}

	h.renderer.renderPage(w, r, "blog", BlogPageData{
		PageData: h.renderer.page(locale, i18n.T(locale, "nav.blog"), "blog", subPath(r, locale)),
		Articles: articles,
	})
}

// HandleArticle handles GET /{locale}/blog/{slug}.
func (h *Handlers) HandleArticle(w http.ResponseWriter, r *http.Request) {
	locale, ok := h.pageLocale(w, r)
	if !ok {
		return
	}

	slug := r.PathValue("slug")
	a, err := h.articles.Get(r.Context(), slug, locale)
	if err != nil {
		h.renderer.renderError(w, r, locale, err)
		return
	}
	if a == nil {
		h.renderer.renderError(w, r, locale, errors.NewNotFound(slug, locale))
		return
	}

	h.renderer.renderPage(w, r, "article", ArticlePageData{
		PageData:     h.renderer.page(locale, a.Title, "blog", subPath(r, locale)),
		Article:      a,
		RenderedHTML: h.renderer.renderMarkdown(a.Body),
	})
}

// HandleNotes handles GET /{locale}/notes?type=&tag=&q=.
func (h *Handlers) HandleNotes(w http.ResponseWriter, r *http.Request) {
	locale, ok := h.pageLocale(w, r)
	if !ok {
		return
	}

	q := content.Query{
		Type: r.URL.Query().Get("type"),
		Tag:  r.URL.Query().Get("tag"),
		Q:    strings.TrimSpace(r.URL.Query().Get("q")),
	}
	notes, err := h.content.Query(r.Context(), q, locale)
	if err != nil {
		h.renderer.renderError(w, r, locale, err)
		return
	}
	tags, err := h.content.Tags(r.Context(), locale)
	if err != nil {
		h.renderer.renderError(w, r, locale, err)
		return
	}
	stats, err := h.content.Statistics(r.Context(), locale)
	if err != nil {
		h.renderer.renderError(w, r, locale, err)
		return
	}

	h.renderer.renderPage(w, r, "notes", NotesPageData{
		PageData: h.renderer.page(locale, i18n.T(locale, "nav.notes"), "notes", subPath(r, locale)),
		Notes:    notes,
		Tags:     tags,
		Stats:    stats,
		Type:     q.Type,
		Tag:      q.Tag,
		Query:    q.Q,
		Editable: !h.content.ReadOnly(),
	})
}

// HandleNote handles GET /{locale}/notes/{id}.
func (h *Handlers) HandleNote(w http.ResponseWriter, r *http.Request) {
	locale, ok := h.pageLocale(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	n, err := h.content.Get(r.Context(), id, locale)
	if err != nil {
		h.renderer.renderError(w, r, locale, err)
		return
	}
	if n == nil {
		h.renderer.renderError(w, r, locale, errors.NewNotFound(id, locale))
		return
	}

	h.renderer.renderPage(w, r, "note", NotePageData{
		PageData:     h.renderer.page(locale, n.Title, "notes", subPath(r, locale)),
		Note:         n,
		RenderedHTML: h.renderer.renderMarkdown(n.Text()),
		Editable:     !h.content.ReadOnly(),
	})
}

// HandleSearch handles GET /{locale}/search?q= across articles and notes.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	locale, ok := h.pageLocale(w, r)
	if !ok {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	data := SearchPageData{
		PageData: h.renderer.page(locale, i18n.T(locale, "nav.search"), "search", subPath(r, locale)),
		Query:    query,
		HasQuery: query != "",
	}

	if data.HasQuery {
		articles, err := h.articles.List(r.Context(), locale)
		if err != nil {
			h.renderer.renderError(w, r, locale, err)
			return
		}
		notes, err := h.content.Search(r.Context(), query, locale)
		if err != nil {
			h.renderer.renderError(w, r, locale, err)
			return
		}
		data.Articles = article.Filter(articles, query)
		data.Notes = notes
	}

	h.renderer.renderPage(w, r, "search", data)
}

// HandleChat handles GET and POST /{locale}/chat. POST sends the form's
// message and shows the reply; upstream failures show the apology text.
func (h *Handlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	locale, ok := h.pageLocale(w, r)
	if !ok {
		return
	}

	data := ChatPageData{
		PageData: h.renderer.page(locale, i18n.T(locale, "chat.title"), "chat", subPath(r, locale)),
		Provider: h.chat.Provider(),
	}

	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			h.renderer.renderError(w, r, locale, errors.NewInvalidRequest("invalid form data"))
			return
		}
		data.Message = r.FormValue("message")
		reply, err := h.chat.Reply(r.Context(), data.Message, locale)
		switch {
		case errors.Is(err, errors.ErrUpstream):
			h.metrics.RecordChat(data.Provider, "error")
		case err != nil:
			h.renderer.renderError(w, r, locale, err)
			return
		case data.Provider == "":
			h.metrics.RecordChat(data.Provider, "unconfigured")
		default:
			h.metrics.RecordChat(data.Provider, "ok")
		}
		data.Reply = reply
	}

	h.renderer.renderPage(w, r, "chat", data)
}
