package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/folio/internal/article"
	"github.com/hpungsan/folio/internal/config"
	"github.com/hpungsan/folio/internal/content"
	"github.com/hpungsan/folio/internal/errors"
)

const testArticle = `---
title: "Building Folio"
description: "How the notes store works"
date: "2025-02-01"
tags: ["go"]
---

Article body.
`

// testSetup creates a file-backed repository and article store in a temp dir.
func testSetup(t *testing.T) (*content.Repository, *article.Store, *config.Config) {
	t.Helper()

	dir := t.TempDir()
	articleDir := filepath.Join(dir, "articles", "zh")
	if err := os.MkdirAll(articleDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(articleDir, "building.mdx"), []byte(testArticle), 0o644); err != nil {
		t.Fatalf("write article: %v", err)
	}

	repo, err := content.New(context.Background(), content.Options{ContentDir: dir})
	if err != nil {
		t.Fatalf("content.New: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return repo, article.New(dir, nil), config.DefaultConfig()
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func seed(t *testing.T, h *Handlers, args map[string]any) map[string]any {
	t.Helper()
	result, err := h.HandleNotesCreate(context.Background(), makeRequest(args))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return parseOutput(t, result)
}

func TestHandleNotesCreate(t *testing.T) {
	repo, articles, _ := testSetup(t)
	h := NewHandlers(repo, articles, nil)
	ctx := context.Background()

	tests := []struct {
		name      string
		args      map[string]any
		wantError bool
		errorCode string
	}{
		{
			name: "create valid note",
			args: map[string]any{
				"id": "n1", "type": "note", "title": "T", "content": "C",
				"date": "2025-01-01", "tags": []any{"go", "go", " ai "},
			},
		},
		{
			name:      "create duplicate id",
			args:      map[string]any{"id": "n1", "type": "note", "title": "T", "content": "C", "date": "2025-01-01"},
			wantError: true,
			errorCode: "CONFLICT",
		},
		{
			name:      "same id in another locale",
			args:      map[string]any{"id": "n1", "type": "note", "title": "T", "content": "C", "date": "2025-01-01", "locale": "en-US"},
			wantError: false,
		},
		{
			name:      "missing title",
			args:      map[string]any{"type": "note", "content": "C", "date": "2025-01-01"},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
		{
			name:      "bad type",
			args:      map[string]any{"type": "essay", "title": "T", "content": "C", "date": "2025-01-01"},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
		{
			name:      "tags of wrong shape",
			args:      map[string]any{"type": "note", "title": "T", "content": "C", "date": "2025-01-01", "tags": "go"},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleNotesCreate(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}

			if tt.wantError {
				if !result.IsError {
					t.Errorf("expected error result, got success")
				}
				if tt.errorCode != "" {
					assertErrorCode(t, result, tt.errorCode)
				}
			} else if result.IsError {
				t.Errorf("expected success, got error: %v", extractErrorMessage(result))
			}
		})
	}

	got, err := h.HandleNotesGet(ctx, makeRequest(map[string]any{"id": "n1"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	out := parseOutput(t, got)
	tags, _ := out["tags"].([]any)
	if len(tags) != 2 || tags[0] != "go" || tags[1] != "ai" {
		t.Errorf("tags = %v, want normalized [go ai]", out["tags"])
	}
}

func TestHandleNotesGet(t *testing.T) {
	repo, articles, _ := testSetup(t)
	h := NewHandlers(repo, articles, nil)
	ctx := context.Background()

	seed(t, h, map[string]any{"id": "g1", "type": "thought", "title": "T", "content": "Body text", "date": "2025-01-01", "mood": "calm"})

	result, err := h.HandleNotesGet(ctx, makeRequest(map[string]any{"id": "g1", "locale": "zh"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	out := parseOutput(t, result)
	if out["id"] != "g1" || out["mood"] != "calm" || out["body"] != "Body text" {
		t.Errorf("output = %v", out)
	}

	result, _ = h.HandleNotesGet(ctx, makeRequest(map[string]any{"id": "g1", "locale": "en-US"}))
	assertErrorCode(t, result, "NOT_FOUND")

	result, _ = h.HandleNotesGet(ctx, makeRequest(map[string]any{"id": "../secret"}))
	assertErrorCode(t, result, "INVALID_REQUEST")

	result, _ = h.HandleNotesGet(ctx, makeRequest(map[string]any{"id": "g1", "locale": "fr"}))
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestHandleNotesList(t *testing.T) {
	repo, articles, _ := testSetup(t)
	h := NewHandlers(repo, articles, nil)
	ctx := context.Background()

	seed(t, h, map[string]any{"id": "a", "type": "thought", "title": "Old thought", "content": "x", "date": "2024-01-01", "tags": []any{"life"}})
	seed(t, h, map[string]any{"id": "b", "type": "note", "title": "New note", "content": "rust ownership", "date": "2025-01-01", "tags": []any{"rust"}})

	tests := []struct {
		name string
		args map[string]any
		want []string
	}{
		{"all newest first", map[string]any{}, []string{"b", "a"}},
		{"by type", map[string]any{"type": "thought"}, []string{"a"}},
		{"by tag", map[string]any{"tag": "rust"}, []string{"b"}},
		{"by query", map[string]any{"q": "OWNERSHIP"}, []string{"b"}},
		{"type beats tag", map[string]any{"type": "thought", "tag": "rust"}, []string{"a"}},
		{"other locale", map[string]any{"locale": "en-US"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleNotesList(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}
			out := parseOutput(t, result)
			notes, _ := out["notes"].([]any)
			ids := make([]string, 0, len(notes))
			for _, n := range notes {
				ids = append(ids, n.(map[string]any)["id"].(string))
			}
			if fmt.Sprint(ids) != fmt.Sprint(tt.want) {
				t.Errorf("ids = %v, want %v", ids, tt.want)
			}
			if int(out["count"].(float64)) != len(tt.want) {
				t.Errorf("count = %v, want %d", out["count"], len(tt.want))
			}
		})
	}
}

func TestDecode_RejectsUnknownArguments(t *testing.T) {
	repo, articles, _ := testSetup(t)
	h := NewHandlers(repo, articles, nil)

	result, err := h.HandleNotesList(context.Background(), makeRequest(map[string]any{"lcoale": "en-US"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assertErrorCode(t, result, "INVALID_REQUEST")

	if _, err := decode[NoteRef](makeRequest(nil)); err != nil {
		t.Errorf("no arguments should decode to the zero value, got %v", err)
	}
}

func TestHandleNotesSearch(t *testing.T) {
	repo, articles, _ := testSetup(t)
	h := NewHandlers(repo, articles, nil)
	ctx := context.Background()

	seed(t, h, map[string]any{"id": "s", "type": "note", "title": "Learning Go", "content": "x", "date": "2025-01-01"})

	result, _ := h.HandleNotesSearch(ctx, makeRequest(map[string]any{"query": "go"}))
	if out := parseOutput(t, result); out["count"].(float64) != 1 {
		t.Errorf("count = %v, want 1", out["count"])
	}

	result, _ = h.HandleNotesSearch(ctx, makeRequest(map[string]any{}))
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestHandleNotesTagsAndStats(t *testing.T) {
	repo, articles, _ := testSetup(t)
	h := NewHandlers(repo, articles, nil)
	ctx := context.Background()

	seed(t, h, map[string]any{"id": "a", "type": "thought", "title": "A", "content": "a", "date": "2025-01-02", "tags": []any{"z", "m"}})
	seed(t, h, map[string]any{"id": "b", "type": "note", "title": "B", "content": "b", "date": "2025-01-01", "tags": []any{"m"}})

	result, _ := h.HandleNotesTags(ctx, makeRequest(nil))
	out := parseOutput(t, result)
	if fmt.Sprint(out["tags"]) != "[m z]" {
		t.Errorf("tags = %v", out["tags"])
	}

	result, _ = h.HandleNotesStats(ctx, makeRequest(map[string]any{"locale": "zh"}))
	out = parseOutput(t, result)
	if out["total"].(float64) != 2 || out["thoughts"].(float64) != 1 || out["notes"].(float64) != 1 || out["tags"].(float64) != 2 {
		t.Errorf("stats = %v", out)
	}
}

func TestHandleNotesUpdate(t *testing.T) {
	repo, articles, _ := testSetup(t)
	h := NewHandlers(repo, articles, nil)
	ctx := context.Background()

	seed(t, h, map[string]any{"id": "u", "type": "note", "title": "Old", "content": "Body", "date": "2025-01-01", "tags": []any{"x"}})

	result, err := h.HandleNotesUpdate(ctx, makeRequest(map[string]any{"id": "u", "title": "New", "tags": []any{"y"}}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	out := parseOutput(t, result)
	if out["title"] != "New" || out["content"] != "Body" || fmt.Sprint(out["tags"]) != "[y]" {
		t.Errorf("updated = %v", out)
	}

	result, _ = h.HandleNotesUpdate(ctx, makeRequest(map[string]any{"id": "u"}))
	assertErrorCode(t, result, "INVALID_REQUEST")

	result, _ = h.HandleNotesUpdate(ctx, makeRequest(map[string]any{"id": "missing", "title": "x"}))
	assertErrorCode(t, result, "NOT_FOUND")
}

func TestHandleNotesDelete(t *testing.T) {
	repo, articles, _ := testSetup(t)
	h := NewHandlers(repo, articles, nil)
	ctx := context.Background()

	seed(t, h, map[string]any{"id": "d", "type": "note", "title": "T", "content": "C", "date": "2025-01-01"})

	result, _ := h.HandleNotesDelete(ctx, makeRequest(map[string]any{"id": "d"}))
	if out := parseOutput(t, result); out["deleted"] != true {
		t.Errorf("output = %v", out)
	}

	result, _ = h.HandleNotesDelete(ctx, makeRequest(map[string]any{"id": "d"}))
	assertErrorCode(t, result, "NOT_FOUND")
}

func TestHandleNotes_ReadOnly(t *testing.T) {
	dir := t.TempDir()
	repo, err := content.New(context.Background(), content.Options{ContentDir: dir, ReadOnly: true})
	if err != nil {
		t.Fatalf("content.New: %v", err)
	}
	h := NewHandlers(repo, article.New(dir, nil), nil)
	ctx := context.Background()

	result, _ := h.HandleNotesCreate(ctx, makeRequest(map[string]any{"type": "note", "title": "T", "content": "C", "date": "2025-01-01"}))
	assertErrorCode(t, result, "CAPABILITY_UNAVAILABLE")
	result, _ = h.HandleNotesDelete(ctx, makeRequest(map[string]any{"id": "x"}))
	assertErrorCode(t, result, "CAPABILITY_UNAVAILABLE")
}

func TestHandleArticles(t *testing.T) {
	repo, articles, _ := testSetup(t)
	h := NewHandlers(repo, articles, nil)
	ctx := context.Background()

	result, _ := h.HandleArticlesList(ctx, makeRequest(nil))
	out := parseOutput(t, result)
	if out["count"].(float64) != 1 {
		t.Errorf("list count = %v", out["count"])
	}
	first := out["articles"].([]any)[0].(map[string]any)
	if _, ok := first["body"]; ok {
		t.Error("articles_list should not include bodies")
	}

	result, _ = h.HandleArticlesGet(ctx, makeRequest(map[string]any{"slug": "building"}))
	out = parseOutput(t, result)
	if out["title"] != "Building Folio" || out["body"] == "" {
		t.Errorf("article = %v", out)
	}

	result, _ = h.HandleArticlesGet(ctx, makeRequest(map[string]any{"slug": "nope"}))
	assertErrorCode(t, result, "NOT_FOUND")

	result, _ = h.HandleArticlesSearch(ctx, makeRequest(map[string]any{"query": "NOTES STORE"}))
	if out := parseOutput(t, result); out["count"].(float64) != 1 {
		t.Errorf("search count = %v", out["count"])
	}

	result, _ = h.HandleArticlesSearch(ctx, makeRequest(map[string]any{"query": ""}))
	if out := parseOutput(t, result); out["count"].(float64) != 0 {
		t.Errorf("empty query count = %v", out["count"])
	}

	result, _ = h.HandleArticlesList(ctx, makeRequest(map[string]any{"locale": "fr"}))
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestServerRegistration(t *testing.T) {
	repo, articles, cfg := testSetup(t)

	s := NewServer(repo, articles, cfg, "test", nil)
	tools := s.ListTools()
	if tools == nil {
		t.Fatal("expected tools to be registered, got nil")
	}

	expectedTools := []string{
		"notes_list",
		"notes_get",
		"notes_search",
		"notes_tags",
		"notes_stats",
		"notes_create",
		"notes_update",
		"notes_delete",
		"articles_list",
		"articles_get",
		"articles_search",
	}

	if len(tools) != len(expectedTools) {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(expectedTools))
	}

	for _, name := range expectedTools {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	repo, articles, cfg := testSetup(t)

	cfg.DisabledTools = []string{"notes_create", "notes_update", "notes_delete", "notes_delete"}
	s := NewServer(repo, articles, cfg, "test", nil)
	tools := s.ListTools()

	if len(tools) != 8 {
		t.Errorf("registered tool count = %d, want 8", len(tools))
	}
	for _, name := range cfg.DisabledTools {
		if _, ok := tools[name]; ok {
			t.Errorf("disabled tool %q should not be registered", name)
		}
	}
	if _, ok := tools["notes_list"]; !ok {
		t.Error("notes_list should be registered")
	}
}

func TestServerRegistration_WithDisabledTypes(t *testing.T) {
	repo, articles, cfg := testSetup(t)

	cfg.DisabledTypes = []string{"articles"}
	s := NewServer(repo, articles, cfg, "test", nil)
	tools := s.ListTools()

	if len(tools) != 8 {
		t.Errorf("registered tool count = %d, want 8", len(tools))
	}
	for name := range tools {
		if GetTypeForTool(name) == "articles" {
			t.Errorf("tool %q of disabled type should not be registered", name)
		}
	}
}

func TestServerRegistration_AllToolsDisabled(t *testing.T) {
	repo, articles, cfg := testSetup(t)

	cfg.DisabledTools = AllToolNames()
	s := NewServer(repo, articles, cfg, "test", nil)

	if tools := s.ListTools(); len(tools) != 0 {
		t.Errorf("registered tool count = %d, want 0 (all disabled)", len(tools))
	}
}

func TestValidateDisabled(t *testing.T) {
	if unknown := ValidateDisabledTools([]string{"notes_delete", "fake_tool"}); len(unknown) != 1 || unknown[0] != "fake_tool" {
		t.Errorf("ValidateDisabledTools() = %v", unknown)
	}
	if unknown := ValidateDisabledTools(AllToolNames()); len(unknown) != 0 {
		t.Errorf("AllToolNames() returned invalid names: %v", unknown)
	}
	if unknown := ValidateDisabledTypes([]string{"notes", "drafts"}); len(unknown) != 1 || unknown[0] != "drafts" {
		t.Errorf("ValidateDisabledTypes() = %v", unknown)
	}
}

func TestExpandTypesToTools(t *testing.T) {
	got := ExpandTypesToTools([]string{"articles"})
	want := []string{"articles_get", "articles_list", "articles_search"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("ExpandTypesToTools() = %v, want %v", got, want)
	}
	if ExpandTypesToTools(nil) != nil {
		t.Error("no types should expand to nil")
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	r := errorResult(errors.NewInternal(fmt.Errorf("sql error: open /tmp/secret.db: permission denied")))
	if !r.IsError {
		t.Fatal("expected IsError=true")
	}

	errObj := errorObject(t, r)
	if errObj["code"] != string(errors.ErrInternal) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrInternal)
	}
	if _, ok := errObj["details"]; ok {
		t.Fatal("expected INTERNAL errors to omit details")
	}
}

func TestErrorResult_PlainErrorIsInternal(t *testing.T) {
	errObj := errorObject(t, errorResult(fmt.Errorf("boom")))
	if errObj["code"] != string(errors.ErrInternal) || errObj["status"].(float64) != 500 {
		t.Errorf("error = %v", errObj)
	}
}

func TestErrorResult_NonInternalIncludesDetails(t *testing.T) {
	errObj := errorObject(t, errorResult(errors.NewNotFound("abc", "zh")))

	if errObj["code"] != string(errors.ErrNotFound) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrNotFound)
	}
	if _, ok := errObj["details"]; !ok {
		t.Fatal("expected non-INTERNAL errors to include details when present")
	}
}

// Helper functions

func errorObject(t *testing.T, r *mcp.CallToolResult) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal([]byte(r.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	return payload["error"].(map[string]any)
}

// parseOutput extracts and unmarshals the JSON output from an MCP result.
func parseOutput(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %v", extractErrorMessage(result))
	}
	var output map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &output); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return output
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()

	if !result.IsError {
		t.Errorf("expected error %s, got success", expectedCode)
		return
	}
	if len(result.Content) == 0 {
		t.Errorf("no content in error result")
		return
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Errorf("content is not TextContent")
		return
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(text.Text), &payload); err != nil {
		t.Errorf("failed to unmarshal error payload: %v", err)
		return
	}

	errorObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Errorf("no error object in payload")
		return
	}

	if code, _ := errorObj["code"].(string); code != expectedCode {
		t.Errorf("got error code %q, want %q", code, expectedCode)
	}
}

func extractErrorMessage(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return "<no content>"
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "<not text content>"
	}

	return text.Text
}
