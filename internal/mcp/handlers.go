package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/folio/internal/article"
	"github.com/hpungsan/folio/internal/content"
	"github.com/hpungsan/folio/internal/errors"
	"github.com/hpungsan/folio/internal/i18n"
	"github.com/hpungsan/folio/internal/logger"
	"github.com/hpungsan/folio/internal/note"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	content  *content.Repository
	articles *article.Store
	log      logger.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(repo *content.Repository, articles *article.Store, log logger.Logger) *Handlers {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handlers{content: repo, articles: articles, log: log.With(logger.String("component", "mcp"))}
}

// Request types for each tool

// NotesListRequest represents the arguments for notes_list.
type NotesListRequest struct {
	Locale string `json:"locale,omitempty"`
	Type   string `json:"type,omitempty"`
	Tag    string `json:"tag,omitempty"`
	Q      string `json:"q,omitempty"`
}

// NoteRef identifies a note for notes_get and notes_delete.
type NoteRef struct {
	ID     string `json:"id"`
	Locale string `json:"locale,omitempty"`
}

// SearchRequest represents the arguments for notes_search and articles_search.
type SearchRequest struct {
	Query  string `json:"query"`
	Locale string `json:"locale,omitempty"`
}

// LocaleRequest represents the arguments for tools that only take a locale.
type LocaleRequest struct {
	Locale string `json:"locale,omitempty"`
}

// NotesCreateRequest represents the arguments for notes_create.
type NotesCreateRequest struct {
	ID        string   `json:"id,omitempty"`
	Type      string   `json:"type"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Date      string   `json:"date"`
	Tags      []string `json:"tags,omitempty"`
	Locale    string   `json:"locale,omitempty"`
	Mood      string   `json:"mood,omitempty"`
	Source    string   `json:"source,omitempty"`
	SourceURL string   `json:"sourceUrl,omitempty"`
}

// NotesUpdateRequest represents the arguments for notes_update.
type NotesUpdateRequest struct {
	ID     string `json:"id"`
	Locale string `json:"locale,omitempty"`
	note.Patch
}

// ArticleRef identifies an article for articles_get.
type ArticleRef struct {
	Slug   string `json:"slug"`
	Locale string `json:"locale,omitempty"`
}

// NoteOutput is a note with its long-form body.
type NoteOutput struct {
	*note.Note
	Body string `json:"body"`
}

// ArticleOutput is an article with its markdown body.
type ArticleOutput struct {
	*article.Article
	Body string `json:"body"`
}

// localeOrDefault fills in the default locale.
func localeOrDefault(locale string) string {
	if locale == "" {
		return i18n.Default
	}
	return locale
}

// Handler implementations

// HandleNotesList handles the notes_list tool call.
func (h *Handlers) HandleNotesList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[NotesListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	notes, err := h.content.Query(ctx, content.Query{Type: input.Type, Tag: input.Tag, Q: input.Q}, localeOrDefault(input.Locale))
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"notes": notes, "count": len(notes)})
}

// HandleNotesGet handles the notes_get tool call.
func (h *Handlers) HandleNotesGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[NoteRef](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	locale := localeOrDefault(input.Locale)

	n, err := h.content.Get(ctx, input.ID, locale)
	if err != nil {
		return errorResult(err), nil
	}
	if n == nil {
		return errorResult(errors.NewNotFound(input.ID, locale)), nil
	}
	return successResult(NoteOutput{Note: n, Body: n.Text()})
}

// HandleNotesSearch handles the notes_search tool call.
func (h *Handlers) HandleNotesSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Query == "" {
		return errorResult(errors.NewInvalidRequest("query is required")), nil
	}

	notes, err := h.content.Search(ctx, input.Query, localeOrDefault(input.Locale))
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"notes": notes, "count": len(notes)})
}

// HandleNotesTags handles the notes_tags tool call.
func (h *Handlers) HandleNotesTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LocaleRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	tags, err := h.content.Tags(ctx, localeOrDefault(input.Locale))
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"tags": tags})
}

// HandleNotesStats handles the notes_stats tool call.
func (h *Handlers) HandleNotesStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LocaleRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	stats, err := h.content.Statistics(ctx, localeOrDefault(input.Locale))
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(stats)
}

// HandleNotesCreate handles the notes_create tool call.
func (h *Handlers) HandleNotesCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[NotesCreateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	created, err := h.content.Create(ctx, note.Note{
		ID:        input.ID,
		Type:      note.Kind(input.Type),
		Title:     input.Title,
		Content:   input.Content,
		Tags:      input.Tags,
		Date:      input.Date,
		Locale:    localeOrDefault(input.Locale),
		Mood:      input.Mood,
		Source:    input.Source,
		SourceURL: input.SourceURL,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(created)
}

// HandleNotesUpdate handles the notes_update tool call.
func (h *Handlers) HandleNotesUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[NotesUpdateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	updated, err := h.content.Update(ctx, input.ID, localeOrDefault(input.Locale), input.Patch)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(updated)
}

// HandleNotesDelete handles the notes_delete tool call.
func (h *Handlers) HandleNotesDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[NoteRef](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	locale := localeOrDefault(input.Locale)

	if err := h.content.Delete(ctx, input.ID, locale); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"deleted": true, "id": input.ID, "locale": locale})
}

// HandleArticlesList handles the articles_list tool call.
func (h *Handlers) HandleArticlesList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LocaleRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	locale, err := checkLocale(input.Locale)
	if err != nil {
		return errorResult(err), nil
	}

	articles, err := h.articles.List(ctx, locale)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"articles": articles, "count": len(articles)})
}

// HandleArticlesGet handles the articles_get tool call.
func (h *Handlers) HandleArticlesGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ArticleRef](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	locale, err := checkLocale(input.Locale)
	if err != nil {
		return errorResult(err), nil
	}

	a, err := h.articles.Get(ctx, input.Slug, locale)
	if err != nil {
		return errorResult(err), nil
	}
	if a == nil {
		return errorResult(errors.NewNotFound(input.Slug, locale)), nil
	}
	return successResult(ArticleOutput{Article: a, Body: a.Body})
}

// HandleArticlesSearch handles the articles_search tool call.
func (h *Handlers) HandleArticlesSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	locale, err := checkLocale(input.Locale)
	if err != nil {
		return errorResult(err), nil
	}

	articles, err := h.articles.List(ctx, locale)
	if err != nil {
		return errorResult(err), nil
	}
	found := article.Filter(articles, input.Query)
	return successResult(map[string]any{"articles": found, "count": len(found)})
}

// checkLocale defaults and validates a locale for the article tools, which
// do not go through the content repository.
func checkLocale(locale string) (string, error) {
	locale = localeOrDefault(locale)
	if !i18n.IsSupported(locale) {
		return "", errors.NewInvalidRequest("unsupported locale " + locale)
	}
	return locale, nil
}

// errorResult converts an error into an MCP error result with the coded payload.
func errorResult(err error) *mcp.CallToolResult {
	fErr := errors.As(err)
	errorObj := map[string]any{
		"code":    fErr.Code,
		"message": fErr.Message,
		"status":  fErr.Status,
	}
	// Only include details for non-internal errors to avoid leaking
	// sensitive info like file paths or SQL errors
	if fErr.Code != errors.ErrInternal && fErr.Details != nil {
		errorObj["details"] = fErr.Details
	}

	payload, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(payload)}},
		IsError: true,
	}
}

// successResult creates a successful MCP result with JSON content.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
