package web

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strings"

	"github.com/hpungsan/folio/internal/article"
	"github.com/hpungsan/folio/internal/content"
	"github.com/hpungsan/folio/internal/errors"
	"github.com/hpungsan/folio/internal/i18n"
	"github.com/hpungsan/folio/internal/note"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// queryLocale returns ?locale=, defaulting to the site default when absent.
// An unsupported value is passed through so the repository rejects it.
func queryLocale(r *http.Request) string {
	if l := r.URL.Query().Get("locale"); l != "" {
		return l
	}
	return i18n.Default
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case stderrors.As(err, &tooLarge):
			return errors.NewInvalidRequest("request body too large")
		case stderrors.Is(err, io.EOF):
			return errors.NewInvalidRequest("request body is required")
		default:
			return errors.NewInvalidRequest("invalid JSON: " + err.Error())
		}
	}
	return nil
}

// APIListNotes handles GET /api/notes?locale=&type=&tag=&q=.
func (h *Handlers) APIListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	notes, err := h.content.Query(r.Context(), content.Query{
		Type: q.Get("type"),
		Tag:  q.Get("tag"),
		Q:    q.Get("q"),
	}, queryLocale(r))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	renderJSON(w, http.StatusOK, notes)
}

// createNoteRequest is a note without an id. Locale may also come from the
// query string.
type createNoteRequest struct {
	ID        string    `json:"id"`
	Type      note.Kind `json:"type"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	Date      string    `json:"date"`
	Locale    string    `json:"locale"`
	Mood      string    `json:"mood"`
	Source    string    `json:"source"`
	SourceURL string    `json:"sourceUrl"`
}

// APICreateNote handles POST /api/notes.
func (h *Handlers) APICreateNote(w http.ResponseWriter, r *http.Request) {
	var req createNoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	locale := req.Locale
	if locale == "" {
		locale = queryLocale(r)
	}

	created, err := h.content.Create(r.Context(), note.Note{
		ID:        req.ID,
		Type:      req.Type,
		Title:     req.Title,
		Content:   req.Content,
		Tags:      req.Tags,
		Date:      req.Date,
		Locale:    locale,
		Mood:      req.Mood,
		Source:    req.Source,
		SourceURL: req.SourceURL,
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.Header().Set("Location", "/api/notes/"+created.ID+"?locale="+created.Locale)
	renderJSON(w, http.StatusCreated, created)
}

// APIGetNote handles GET /api/notes/{id}?locale=.
func (h *Handlers) APIGetNote(w http.ResponseWriter, r *http.Request) {
	id, locale := r.PathValue("id"), queryLocale(r)
	n, err := h.content.Get(r.Context(), id, locale)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if n == nil {
		writeError(w, r, h.log, errors.NewNotFound(id, locale))
		return
	}
	renderJSON(w, http.StatusOK, n)
}

// APIUpdateNote handles PUT /api/notes/{id}?locale=. The body is a partial note.
func (h *Handlers) APIUpdateNote(w http.ResponseWriter, r *http.Request) {
	var patch note.Patch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	updated, err := h.content.Update(r.Context(), r.PathValue("id"), queryLocale(r), patch)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	renderJSON(w, http.StatusOK, updated)
}

// APIDeleteNote handles DELETE /api/notes/{id}?locale=.
func (h *Handlers) APIDeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.content.Delete(r.Context(), r.PathValue("id"), queryLocale(r)); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"success": true})
}

// APITags handles GET /api/notes/tags?locale=.
func (h *Handlers) APITags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.content.Tags(r.Context(), queryLocale(r))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	renderJSON(w, http.StatusOK, tags)
}

// APIStats handles GET /api/notes/stats?locale=.
func (h *Handlers) APIStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.content.Statistics(r.Context(), queryLocale(r))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	renderJSON(w, http.StatusOK, stats)
}

// APISearch handles GET /api/search?q=&locale= over articles. An empty
// query returns no articles without reading the disk.
func (h *Handlers) APISearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		renderJSON(w, http.StatusOK, map[string]any{"articles": []article.Article{}})
		return
	}
	locale := queryLocale(r)
	if !i18n.IsSupported(locale) {
		writeError(w, r, h.log, errors.NewInvalidRequest("unsupported locale "+locale))
		return
	}

	articles, err := h.articles.List(r.Context(), locale)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"articles": article.Filter(articles, query)})
}

type chatRequest struct {
	Message string `json:"message"`
	Locale  string `json:"locale"`
}

// APIChat handles POST /api/chat. Upstream failures still carry a
// human-readable reply, with status 500.
func (h *Handlers) APIChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	locale := i18n.Resolve(req.Locale)

	reply, err := h.chat.Reply(r.Context(), req.Message, locale)
	provider := h.chat.Provider()
	switch {
	case errors.Is(err, errors.ErrUpstream):
		h.metrics.RecordChat(provider, "error")
		renderJSON(w, http.StatusInternalServerError, map[string]any{"reply": reply})
	case err != nil:
		writeError(w, r, h.log, err)
	case provider == "":
		h.metrics.RecordChat(provider, "unconfigured")
		renderJSON(w, http.StatusOK, map[string]any{"reply": reply})
	default:
		h.metrics.RecordChat(provider, "ok")
		renderJSON(w, http.StatusOK, map[string]any{"reply": reply})
	}
}

// APIHealth handles GET /api/health.
func (h *Handlers) APIHealth(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"backend":  string(h.content.Mode()),
		"readOnly": h.content.ReadOnly(),
		"chat":     h.chat.Provider(),
		"version":  h.renderer.version,
	})
}
