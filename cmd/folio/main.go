package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hpungsan/folio/internal/article"
	"github.com/hpungsan/folio/internal/config"
	"github.com/hpungsan/folio/internal/content"
	"github.com/hpungsan/folio/internal/db"
	"github.com/hpungsan/folio/internal/logger"
	"github.com/hpungsan/folio/internal/mcp"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"serve": true, "mcp": true,
	"list": true, "get": true, "create": true, "update": true, "delete": true,
	"tags": true, "stats": true, "articles": true,
	"export": true, "import": true, "db": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode(args []string) bool {
	if len(args) < 2 {
		return false // No args → MCP server
	}
	arg := args[1]
	// Known subcommand → CLI
	if cliCommands[arg] {
		return true
	}
	// --help or --version → CLI
	return isHelpOrVersion(args)
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion(args []string) bool {
	if len(args) < 2 {
		return false
	}
	arg := args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   __       _ _
  / _| ___ | (_) ___
 | |_ / _ \| | |/ _ \
 |  _| (_) | | | (_) |
 |_|  \___/|_|_|\___/

  Notes and articles for a bilingual blog

  Usage: folio <command> [options]
         folio --help

  MCP server mode requires piped input.`)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before opening any backend
	if isHelpOrVersion(os.Args) {
		app := newCLIApp(&env{})
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && !isCLIMode(os.Args) && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'folio --help' for usage.\n")
		os.Exit(1)
	}

	if err := run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run loads configuration, opens the content backend and dispatches to the
// CLI or, by default, the MCP server.
func run(args []string) error {
	cfg, err := config.FromEnvironment(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel})
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	repo, err := content.New(ctx, content.Options{
		DatabaseURL: cfg.DatabaseURL,
		ContentDir:  cfg.ContentDir,
		ReadOnly:    cfg.ReadOnly,
		Pool: db.PoolOptions{
			MaxOpenConns: cfg.DBMaxOpenConns,
			MaxIdleConns: cfg.DBMaxIdleConns,
		},
		Logger: log,
	})
	if err != nil {
		return fmt.Errorf("failed to open content backend: %w", err)
	}
	defer repo.Close()

	articles := article.New(cfg.ContentDir, log)

	if isCLIMode(args) {
		return newCLIApp(&env{repo: repo, articles: articles, cfg: cfg, log: log}).RunContext(ctx, args)
	}

	// MCP server mode (default)
	return mcp.Run(repo, articles, cfg, Version, log)
}
