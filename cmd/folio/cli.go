package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/folio/internal/article"
	"github.com/hpungsan/folio/internal/chat"
	"github.com/hpungsan/folio/internal/config"
	"github.com/hpungsan/folio/internal/content"
	"github.com/hpungsan/folio/internal/db"
	"github.com/hpungsan/folio/internal/errors"
	"github.com/hpungsan/folio/internal/i18n"
	"github.com/hpungsan/folio/internal/logger"
	"github.com/hpungsan/folio/internal/mcp"
	"github.com/hpungsan/folio/internal/metrics"
	"github.com/hpungsan/folio/internal/note"
	"github.com/hpungsan/folio/internal/transfer"
	"github.com/hpungsan/folio/internal/web"
)

// env carries what the commands need. Fields may be nil for --help and --version.
type env struct {
	repo     *content.Repository
	articles *article.Store
	cfg      *config.Config
	log      logger.Logger
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(e *env) *cli.App {
	app := &cli.App{
		Name:    "folio",
		Usage:   "Notes and articles for a bilingual blog",
		Version: Version,
		Commands: []*cli.Command{
			serveCmd(e),
			mcpCmd(e),
			listCmd(e),
			getCmd(e),
			createCmd(e),
			updateCmd(e),
			deleteCmd(e),
			tagsCmd(e),
			statsCmd(e),
			articlesCmd(e),
			exportCmd(e),
			importCmd(e),
			dbCmd(e),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func localeFlag() cli.Flag {
	return &cli.StringFlag{Name: "locale", Aliases: []string{"l"}, Value: i18n.Default, Usage: "Locale (zh or en-US)"}
}

// serveCmd creates the serve command.
func serveCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web site and JSON API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Listen address (defaults to config)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Listen port (defaults to config)"},
		},
		Action: func(c *cli.Context) error {
			bind, port := e.cfg.Bind, e.cfg.Port
			if c.IsSet("bind") {
				bind = c.String("bind")
			}
			if c.IsSet("port") {
				port = c.Int("port")
			}

			srv, err := web.NewServer(web.Deps{
				Content:  e.repo,
				Articles: e.articles,
				Chat: chat.New(chat.Config{
					GLMAPIKey:    e.cfg.GLMAPIKey,
					GLMURL:       e.cfg.GLMURL,
					OpenAIAPIKey: e.cfg.OpenAIAPIKey,
					OpenAIURL:    e.cfg.OpenAIURL,
				}, nil, e.log),
				Metrics: metrics.New(),
				Logger:  e.log,
				Version: Version,
			}, bind, port)
			if err != nil {
				return outputError(err)
			}
			return web.Run(c.Context, srv, e.log)
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP tool server on stdio",
		Action: func(_ *cli.Context) error {
			return mcp.Run(e.repo, e.articles, e.cfg, Version, e.log)
		},
	}
}

// listCmd creates the list command.
func listCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List notes, optionally filtered by type, tag or text",
		Flags: []cli.Flag{
			localeFlag(),
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "thought|note"},
			&cli.StringFlag{Name: "tag", Usage: "Exact tag"},
			&cli.StringFlag{Name: "q", Usage: "Search text"},
		},
		Action: func(c *cli.Context) error {
			notes, err := e.repo.Query(c.Context, content.Query{
				Type: c.String("type"),
				Tag:  c.String("tag"),
				Q:    c.String("q"),
			}, c.String("locale"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, map[string]any{"notes": notes, "count": len(notes)})
		},
	}
}

// getCmd creates the get command.
func getCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Show one note with its body",
		ArgsUsage: "<id>",
		Flags:     []cli.Flag{localeFlag()},
		Action: func(c *cli.Context) error {
			id, locale := c.Args().First(), c.String("locale")
			n, err := e.repo.Get(c.Context, id, locale)
			if err != nil {
				return outputError(err)
			}
			if n == nil {
				return outputError(errors.NewNotFound(id, locale))
			}
			return outputJSON(c, mcp.NoteOutput{Note: n, Body: n.Text()})
		},
	}
}

// createCmd creates the create command.
func createCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create a note (content from --content or stdin)",
		Flags: []cli.Flag{
			localeFlag(),
			&cli.StringFlag{Name: "id", Usage: "Note id (defaults to the current time in ms)"},
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Value: string(note.KindNote), Usage: "thought|note"},
			&cli.StringFlag{Name: "title", Usage: "Title", Required: true},
			&cli.StringFlag{Name: "content", Aliases: []string{"c"}, Usage: "Content (reads stdin when omitted)"},
			&cli.StringFlag{Name: "date", Aliases: []string{"d"}, Usage: "Date, e.g. 2025-06-01", Required: true},
			&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
			&cli.StringFlag{Name: "mood", Usage: "Mood (thoughts)"},
			&cli.StringFlag{Name: "source", Usage: "Source (notes)"},
			&cli.StringFlag{Name: "source-url", Usage: "Source URL (notes)"},
		},
		Action: func(c *cli.Context) error {
			text, err := contentArg(c)
			if err != nil {
				return outputError(err)
			}

			created, err := e.repo.Create(c.Context, note.Note{
				ID:        c.String("id"),
				Type:      note.Kind(c.String("type")),
				Title:     c.String("title"),
				Content:   text,
				Tags:      parseTags(c.String("tags")),
				Date:      c.String("date"),
				Locale:    c.String("locale"),
				Mood:      c.String("mood"),
				Source:    c.String("source"),
				SourceURL: c.String("source-url"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, created)
		},
	}
}

// updateCmd creates the update command. Only flags that are set change the note.
func updateCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Update fields of a note (content from --content or stdin)",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			localeFlag(),
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "thought|note"},
			&cli.StringFlag{Name: "title", Usage: "New title"},
			&cli.StringFlag{Name: "content", Aliases: []string{"c"}, Usage: "New content"},
			&cli.StringFlag{Name: "date", Aliases: []string{"d"}, Usage: "New date"},
			&cli.StringFlag{Name: "tags", Usage: "New comma-separated tags"},
			&cli.StringFlag{Name: "mood", Usage: "New mood"},
			&cli.StringFlag{Name: "source", Usage: "New source"},
			&cli.StringFlag{Name: "source-url", Usage: "New source URL"},
		},
		Action: func(c *cli.Context) error {
			var p note.Patch
			if c.IsSet("type") {
				kind := note.Kind(c.String("type"))
				p.Type = &kind
			}
			p.Title = stringFlag(c, "title")
			p.Date = stringFlag(c, "date")
			p.Mood = stringFlag(c, "mood")
			p.Source = stringFlag(c, "source")
			p.SourceURL = stringFlag(c, "source-url")
			if c.IsSet("tags") {
				tags := parseTags(c.String("tags"))
				p.Tags = &tags
			}
			if c.IsSet("content") {
				p.Content = stringFlag(c, "content")
			} else if stdinHasData(c.App.Reader) {
				text, err := readAll(c.App.Reader)
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				if text != "" {
					p.Content = &text
				}
			}

			updated, err := e.repo.Update(c.Context, c.Args().First(), c.String("locale"), p)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, updated)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a note",
		ArgsUsage: "<id>",
		Flags:     []cli.Flag{localeFlag()},
		Action: func(c *cli.Context) error {
			id, locale := c.Args().First(), c.String("locale")
			if err := e.repo.Delete(c.Context, id, locale); err != nil {
				return outputError(err)
			}
			return outputJSON(c, map[string]any{"deleted": true, "id": id, "locale": locale})
		},
	}
}

// tagsCmd creates the tags command.
func tagsCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "tags",
		Usage: "List the distinct note tags of a locale",
		Flags: []cli.Flag{localeFlag()},
		Action: func(c *cli.Context) error {
			tags, err := e.repo.Tags(c.Context, c.String("locale"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, map[string]any{"tags": tags})
		},
	}
}

// statsCmd creates the stats command.
func statsCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show note counts for a locale",
		Flags: []cli.Flag{localeFlag()},
		Action: func(c *cli.Context) error {
			stats, err := e.repo.Statistics(c.Context, c.String("locale"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, stats)
		},
	}
}

// articlesCmd creates the articles command.
func articlesCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "articles",
		Usage: "List articles, or search them with --q",
		Flags: []cli.Flag{
			localeFlag(),
			&cli.StringFlag{Name: "q", Usage: "Search title, description and tags"},
		},
		Action: func(c *cli.Context) error {
			locale := c.String("locale")
			if !i18n.IsSupported(locale) {
				return outputError(errors.NewInvalidRequest("unsupported locale " + locale))
			}
			articles, err := e.articles.List(c.Context, locale)
			if err != nil {
				return outputError(err)
			}
			if c.IsSet("q") {
				articles = article.Filter(articles, c.String("q"))
			}
			return outputJSON(c, map[string]any{"articles": articles, "count": len(articles)})
		},
	}
}

// exportCmd creates the export command.
func exportCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export notes as JSONL (to stdout unless --out is given)",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "locale", Aliases: []string{"l"}, Usage: "Locales to export (default: all)"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Destination .jsonl file"},
		},
		Action: func(c *cli.Context) error {
			locales := c.StringSlice("locale")
			for _, l := range locales {
				if !i18n.IsSupported(l) {
					return outputError(errors.NewInvalidRequest("unsupported locale " + l))
				}
			}

			if path := c.String("out"); path != "" {
				output, err := transfer.ExportFile(c.Context, e.repo, path, locales)
				if err != nil {
					return outputError(err)
				}
				return outputJSON(c, output)
			}
			if _, err := transfer.Export(c.Context, e.repo, c.App.Writer, locales); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// importCmd creates the import command.
func importCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import notes from a JSONL export",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: string(transfer.ImportModeError), Usage: "Collision mode: error|replace|rename"},
		},
		Action: func(c *cli.Context) error {
			output, err := transfer.ImportFile(c.Context, e.repo, c.Args().First(), transfer.ImportMode(c.String("mode")))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// dbCmd creates the db command group.
func dbCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "db",
		Usage: "Relational backend maintenance",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Create or migrate the notes table",
				Action: func(c *cli.Context) error {
					if e.cfg.DatabaseURL == "" {
						return outputError(errors.NewInvalidRequest("POSTGRES_URL or DATABASE_URL must be set"))
					}
					version, dialect, err := initDatabase(c.Context, e.cfg, e.log)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, map[string]any{"dialect": dialect, "schema_version": version})
				},
			},
		},
	}
}

// initDatabase opens the database, which applies pending migrations.
func initDatabase(ctx context.Context, cfg *config.Config, log logger.Logger) (int, db.Dialect, error) {
	store, err := db.Open(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	}, log)
	if err != nil {
		return 0, "", err
	}
	defer store.Close()

	version, err := store.SchemaVersion(ctx)
	if err != nil {
		return 0, "", err
	}
	return version, store.Dialect(), nil
}

// Helper functions

// outputJSON writes v to the app's writer as indented JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	fErr := errors.As(err)
	return cli.Exit(fmt.Sprintf("[%s] %s", fErr.Code, fErr.Message), 1)
}

// stringFlag returns a pointer to the flag value, or nil when the flag is unset.
func stringFlag(c *cli.Context, name string) *string {
	if !c.IsSet(name) {
		return nil
	}
	v := c.String(name)
	return &v
}

// contentArg returns --content, or stdin when the flag is absent.
func contentArg(c *cli.Context) (string, error) {
	if c.IsSet("content") {
		return c.String("content"), nil
	}
	if !stdinHasData(c.App.Reader) {
		return "", errors.NewInvalidRequest("content must be given with --content or piped via stdin")
	}
	text, err := readAll(c.App.Reader)
	if err != nil {
		return "", errors.NewInternal(err)
	}
	return text, nil
}

// stdinHasData reports whether r has piped data. Readers other than a
// terminal file are assumed to carry input.
func stdinHasData(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return r != nil
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readAll reads all content from r.
func readAll(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// parseTags splits a comma-separated string into a slice of tags.
func parseTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
