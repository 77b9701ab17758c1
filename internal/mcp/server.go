package mcp

import (
	"context"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/folio/internal/article"
	"github.com/hpungsan/folio/internal/config"
	"github.com/hpungsan/folio/internal/content"
	"github.com/hpungsan/folio/internal/logger"
)

// KnownTypes lists all valid tool group names.
var KnownTypes = []string{"notes", "articles"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"notes_list": {
		def:     notesListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleNotesList },
	},
	"notes_get": {
		def:     notesGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleNotesGet },
	},
	"notes_search": {
		def:     notesSearchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleNotesSearch },
	},
	"notes_tags": {
		def:     notesTagsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleNotesTags },
	},
	"notes_stats": {
		def:     notesStatsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleNotesStats },
	},
	"notes_create": {
		def:     notesCreateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleNotesCreate },
	},
	"notes_update": {
		def:     notesUpdateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleNotesUpdate },
	},
	"notes_delete": {
		def:     notesDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleNotesDelete },
	},
	"articles_list": {
		def:     articlesListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleArticlesList },
	},
	"articles_get": {
		def:     articlesGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleArticlesGet },
	},
	"articles_search": {
		def:     articlesSearchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleArticlesSearch },
	},
}

// AllToolNames returns all valid tool names, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the group name from a tool name.
// Tool names follow the pattern "group_action" (e.g., "notes_get" → "notes").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		if typeSet[GetTypeForTool(name)] {
			tools = append(tools, name)
		}
	}
	sort.Strings(tools)
	return tools
}

// NewServer creates a new MCP server with Folio tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration.
func NewServer(repo *content.Repository, articles *article.Store, cfg *config.Config, version string, log logger.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		"folio",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(repo, articles, log)

	if unknown := ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		h.log.Warn("unknown tools in disabled_tools", logger.Strings("tools", unknown))
	}
	if unknown := ValidateDisabledTypes(cfg.DisabledTypes); len(unknown) > 0 {
		h.log.Warn("unknown types in disabled_types", logger.Strings("types", unknown))
	}

	// Build set of disabled tools: first expand types, then add individual tools
	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run serves the MCP server over stdio until stdin closes.
func Run(repo *content.Repository, articles *article.Store, cfg *config.Config, version string, log logger.Logger) error {
	s := NewServer(repo, articles, cfg, version, log)
	return server.ServeStdio(s)
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
