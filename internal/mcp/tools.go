package mcp

import "github.com/mark3labs/mcp-go/mcp"

func localeProp() mcp.ToolOption {
	return mcp.WithString("locale",
		mcp.Description(`Locale of the content: "zh" (default) or "en-US"`),
		mcp.Enum("zh", "en-US"),
	)
}

var notesListToolDef = mcp.NewTool("notes_list",
	mcp.WithDescription("List notes of a locale, newest first. At most one filter applies, in the order type, tag, q."),
	mcp.WithReadOnlyHintAnnotation(true),
	localeProp(),
	mcp.WithString("type", mcp.Description("Only notes of this type"), mcp.Enum("thought", "note")),
	mcp.WithString("tag", mcp.Description("Only notes carrying this exact tag")),
	mcp.WithString("q", mcp.Description("Case-insensitive substring of title, content or a tag")),
)

var notesGetToolDef = mcp.NewTool("notes_get",
	mcp.WithDescription("Fetch one note by id, including its long-form body."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	localeProp(),
)

var notesSearchToolDef = mcp.NewTool("notes_search",
	mcp.WithDescription("Search notes by case-insensitive substring over title, content and tags."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("query", mcp.Required(), mcp.Description("Text to look for")),
	localeProp(),
)

var notesTagsToolDef = mcp.NewTool("notes_tags",
	mcp.WithDescription("List the distinct tags used by notes of a locale, sorted."),
	mcp.WithReadOnlyHintAnnotation(true),
	localeProp(),
)

var notesStatsToolDef = mcp.NewTool("notes_stats",
	mcp.WithDescription("Count notes of a locale: total, thoughts, notes and distinct tags."),
	mcp.WithReadOnlyHintAnnotation(true),
	localeProp(),
)

var notesCreateToolDef = mcp.NewTool("notes_create",
	mcp.WithDescription("Create a note. The id defaults to the current time in milliseconds."),
	mcp.WithString("id", mcp.Description("Optional id; must be a valid file name stem")),
	mcp.WithString("type", mcp.Required(), mcp.Enum("thought", "note"), mcp.Description("Note type")),
	mcp.WithString("title", mcp.Required(), mcp.Description("Title")),
	mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content")),
	mcp.WithString("date", mcp.Required(), mcp.Description("Date, e.g. 2025-06-01")),
	mcp.WithArray("tags", mcp.WithStringItems(), mcp.Description("Tags")),
	localeProp(),
	mcp.WithString("mood", mcp.Description("Mood, for thoughts")),
	mcp.WithString("source", mcp.Description("Source title, for notes")),
	mcp.WithString("sourceUrl", mcp.Description("Source URL, for notes")),
)

var notesUpdateToolDef = mcp.NewTool("notes_update",
	mcp.WithDescription("Update fields of a note. Omitted fields keep their value."),
	mcp.WithIdempotentHintAnnotation(true),
	mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	localeProp(),
	mcp.WithString("type", mcp.Enum("thought", "note"), mcp.Description("Note type")),
	mcp.WithString("title", mcp.Description("Title")),
	mcp.WithString("content", mcp.Description("Markdown content")),
	mcp.WithString("date", mcp.Description("Date")),
	mcp.WithArray("tags", mcp.WithStringItems(), mcp.Description("Replacement tag list")),
	mcp.WithString("mood", mcp.Description("Mood")),
	mcp.WithString("source", mcp.Description("Source title")),
	mcp.WithString("sourceUrl", mcp.Description("Source URL")),
)

var notesDeleteToolDef = mcp.NewTool("notes_delete",
	mcp.WithDescription("Delete a note permanently."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	localeProp(),
)

var articlesListToolDef = mcp.NewTool("articles_list",
	mcp.WithDescription("List blog articles of a locale, newest first. Bodies are omitted."),
	mcp.WithReadOnlyHintAnnotation(true),
	localeProp(),
)

var articlesGetToolDef = mcp.NewTool("articles_get",
	mcp.WithDescription("Fetch one blog article by slug, including its markdown body."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("slug", mcp.Required(), mcp.Description("Article slug (file name without .mdx)")),
	localeProp(),
)

var articlesSearchToolDef = mcp.NewTool("articles_search",
	mcp.WithDescription("Search blog articles by case-insensitive substring over title, description and tags."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("query", mcp.Required(), mcp.Description("Text to look for")),
	localeProp(),
)
