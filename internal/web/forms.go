package web

import (
	"net/http"
	"strings"
	"time"

	"github.com/hpungsan/folio/internal/errors"
	"github.com/hpungsan/folio/internal/i18n"
	"github.com/hpungsan/folio/internal/note"
)

// noteForm holds the raw form fields so a rejected submission can be shown
// again as typed.
type noteForm struct {
	ID        string
	Type      string
	Title     string
	Content   string
	Tags      string
	Date      string
	Mood      string
	Source    string
	SourceURL string
}

func formFromNote(n *note.Note) noteForm {
	return noteForm{
		ID:        n.ID,
		Type:      string(n.Type),
		Title:     n.Title,
		Content:   n.Text(),
		Tags:      strings.Join(n.Tags, ", "),
		Date:      n.Date,
		Mood:      n.Mood,
		Source:    n.Source,
		SourceURL: n.SourceURL,
	}
}

func formFromRequest(r *http.Request) noteForm {
	return noteForm{
		ID:        strings.TrimSpace(r.FormValue("id")),
		Type:      r.FormValue("type"),
		Title:     r.FormValue("title"),
		Content:   r.FormValue("content"),
		Tags:      r.FormValue("tags"),
		Date:      r.FormValue("date"),
		Mood:      r.FormValue("mood"),
		Source:    r.FormValue("source"),
		SourceURL: r.FormValue("source_url"),
	}
}

func (f noteForm) tags() []string {
	if strings.TrimSpace(f.Tags) == "" {
		return []string{}
	}
	return strings.Split(f.Tags, ",")
}

func (f noteForm) note(locale string) note.Note {
	return note.Note{
		ID:        f.ID,
		Type:      note.Kind(f.Type),
		Title:     f.Title,
		Content:   f.Content,
		Tags:      f.tags(),
		Date:      f.Date,
		Locale:    locale,
		Mood:      f.Mood,
		Source:    f.Source,
		SourceURL: f.SourceURL,
	}
}

// patch sets every field, so clearing an optional input clears the value.
func (f noteForm) patch() note.Patch {
	kind := note.Kind(f.Type)
	tags := f.tags()
	return note.Patch{
		Type:      &kind,
		Title:     &f.Title,
		Content:   &f.Content,
		Tags:      &tags,
		Date:      &f.Date,
		Mood:      &f.Mood,
		Source:    &f.Source,
		SourceURL: &f.SourceURL,
	}
}

// formError reports whether err belongs next to the form rather than on the
// error page.
func formError(err error) bool {
	return errors.Is(err, errors.ErrInvalidRequest) || errors.Is(err, errors.ErrConflict)
}

// redirect sends the browser to target after a successful form post.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handlers) renderNoteForm(w http.ResponseWriter, r *http.Request, locale string, data NoteFormPageData, err error) {
	status := http.StatusOK
	if err != nil {
		fErr := errors.As(err)
		status = fErr.Status
		data.Error = fErr.Message
	}
	h.renderer.renderPageStatus(w, r, status, "note_form", data)
}

// HandleNewNote handles GET and POST /{locale}/notes/new.
func (h *Handlers) HandleNewNote(w http.ResponseWriter, r *http.Request) {
	locale, ok := h.pageLocale(w, r)
	if !ok {
		return
	}
	if h.content.ReadOnly() {
		h.renderer.renderError(w, r, locale, errors.NewCapabilityUnavailable("create"))
		return
	}

	data := NoteFormPageData{
		PageData: h.renderer.page(locale, i18n.T(locale, "notes.new"), "notes", subPath(r, locale)),
		Action:   "/" + locale + "/notes/new",
		Form:     noteForm{Type: string(note.KindThought), Date: time.Now().Format("2006-01-02")},
	}

	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			h.renderer.renderError(w, r, locale, errors.NewInvalidRequest("invalid form data"))
			return
		}
		data.Form = formFromRequest(r)
		created, err := h.content.Create(r.Context(), data.Form.note(locale))
		switch {
		case formError(err):
			h.renderNoteForm(w, r, locale, data, err)
			return
		case err != nil:
			h.renderer.renderError(w, r, locale, err)
			return
		}
		redirect(w, r, "/"+locale+"/notes/"+created.ID)
		return
	}

	h.renderNoteForm(w, r, locale, data, nil)
}

// HandleEditNote handles GET and POST /{locale}/notes/{id}/edit.
func (h *Handlers) HandleEditNote(w http.ResponseWriter, r *http.Request) {
	locale, ok := h.pageLocale(w, r)
	if !ok {
		return
	}
	if h.content.ReadOnly() {
		h.renderer.renderError(w, r, locale, errors.NewCapabilityUnavailable("update"))
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

	data := NoteFormPageData{
		PageData: h.renderer.page(locale, i18n.T(locale, "notes.edit")+": "+n.Title, "notes", subPath(r, locale)),
		Action:   "/" + locale + "/notes/" + id + "/edit",
		Editing:  true,
		Form:     formFromNote(n),
	}

	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			h.renderer.renderError(w, r, locale, errors.NewInvalidRequest("invalid form data"))
			return
		}
		data.Form = formFromRequest(r)
		data.Form.ID = id
		_, err := h.content.Update(r.Context(), id, locale, data.Form.patch())
		switch {
		case formError(err):
			h.renderNoteForm(w, r, locale, data, err)
			return
		case err != nil:
			h.renderer.renderError(w, r, locale, err)
			return
		}
		redirect(w, r, "/"+locale+"/notes/"+id)
		return
	}

	h.renderNoteForm(w, r, locale, data, nil)
}

// HandleDeleteNote handles POST /{locale}/notes/{id}/delete. The form must
// carry confirm=true.
func (h *Handlers) HandleDeleteNote(w http.ResponseWriter, r *http.Request) {
	locale, ok := h.pageLocale(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, locale, errors.NewInvalidRequest("invalid form data"))
		return
	}
	if r.FormValue("confirm") != "true" {
		h.renderer.renderError(w, r, locale, errors.NewInvalidRequest("delete must be confirmed"))
		return
	}

	if err := h.content.Delete(r.Context(), r.PathValue("id"), locale); err != nil {
		h.renderer.renderError(w, r, locale, err)
		return
	}
	redirect(w, r, "/"+locale+"/notes")
}

// HandleAbout handles GET /{locale}/about.
func (h *Handlers) HandleAbout(w http.ResponseWriter, r *http.Request) {
	locale, ok := h.pageLocale(w, r)
	if !ok {
		return
	}
	h.renderer.renderPage(w, r, "about", h.renderer.page(locale, i18n.T(locale, "about.title"), "about", subPath(r, locale)))
}
