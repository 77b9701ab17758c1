package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hpungsan/folio/internal/article"
	"github.com/hpungsan/folio/internal/chat"
	"github.com/hpungsan/folio/internal/content"
	"github.com/hpungsan/folio/internal/i18n"
	"github.com/hpungsan/folio/internal/logger"
	"github.com/hpungsan/folio/internal/metrics"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Deps are the services the HTTP layer serves.
type Deps struct {
	Content  *content.Repository
	Articles *article.Store
	Chat     *chat.Service
	Metrics  *metrics.Metrics
	Logger   logger.Logger
	Version  string
}

// NewHandler builds the routed handler with all middleware applied.
func NewHandler(deps Deps) (http.Handler, error) {
	// Create sub-FS for templates (strip "templates/" prefix)
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("template sub-FS: %w", err)
	}

	// Create sub-FS for static files (strip "static/" prefix)
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static sub-FS: %w", err)
	}

	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.New()
	}
	m.SetBackend(string(deps.Content.Mode()))
	if deps.Articles == nil {
		deps.Articles = article.New("content", log)
	}
	if deps.Chat == nil {
		deps.Chat = chat.New(chat.Config{}, nil, log)
	}

	h := &Handlers{
		content:  deps.Content,
		articles: deps.Articles,
		chat:     deps.Chat,
		metrics:  m,
		renderer: NewRenderer(templateSub, deps.Version, log),
		log:      log,
	}

	mux := http.NewServeMux()

	// JSON API
	mux.HandleFunc("GET /api/notes", h.APIListNotes)
	mux.HandleFunc("POST /api/notes", h.APICreateNote)
	mux.HandleFunc("GET /api/notes/tags", h.APITags)
	mux.HandleFunc("GET /api/notes/stats", h.APIStats)
	mux.HandleFunc("GET /api/notes/{id}", h.APIGetNote)
	mux.HandleFunc("PUT /api/notes/{id}", h.APIUpdateNote)
	mux.HandleFunc("DELETE /api/notes/{id}", h.APIDeleteNote)
	mux.HandleFunc("GET /api/search", h.APISearch)
	mux.HandleFunc("POST /api/chat", h.APIChat)
	mux.HandleFunc("GET /api/health", h.APIHealth)
	mux.Handle("GET /metrics", m.Handler())

	// Pages
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/"+preferredLocale(r), http.StatusFound)
	})
	// Page routes are registered per locale. A {locale} wildcard would
	// conflict with /static/ and /api/ on the mux.
	for _, locale := range i18n.Supported() {
		prefix := "GET /" + locale
		mux.HandleFunc(prefix, withLocale(locale, h.HandleHome))
		mux.HandleFunc(prefix+"/blog", withLocale(locale, h.HandleBlog))
		mux.HandleFunc(prefix+"/blog/{slug}", withLocale(locale, h.HandleArticle))
		mux.HandleFunc(prefix+"/notes", withLocale(locale, h.HandleNotes))
		mux.HandleFunc(prefix+"/notes/{id}", withLocale(locale, h.HandleNote))
		mux.HandleFunc(prefix+"/notes/new", withLocale(locale, h.HandleNewNote))
		mux.HandleFunc("POST /"+locale+"/notes/new", withLocale(locale, h.HandleNewNote))
		mux.HandleFunc(prefix+"/notes/{id}/edit", withLocale(locale, h.HandleEditNote))
		mux.HandleFunc("POST /"+locale+"/notes/{id}/edit", withLocale(locale, h.HandleEditNote))
		mux.HandleFunc("POST /"+locale+"/notes/{id}/delete", withLocale(locale, h.HandleDeleteNote))
		mux.HandleFunc(prefix+"/search", withLocale(locale, h.HandleSearch))
		mux.HandleFunc(prefix+"/chat", withLocale(locale, h.HandleChat))
		mux.HandleFunc("POST /"+locale+"/chat", withLocale(locale, h.HandleChat))
		mux.HandleFunc(prefix+"/about", withLocale(locale, h.HandleAbout))
	}
	mux.HandleFunc("GET /", h.HandleNotFound)

	// Static file server
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	route := func(r *http.Request) string {
		_, pattern := mux.Handler(r)
		return pattern
	}

	var handler http.Handler = securityHeaders(mux)
	handler = m.Middleware(route, handler)
	handler = requestLogger(log, handler)
	return handler, nil
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, bind string, port int) (*http.Server, error) {
	handler, err := NewHandler(deps)
	if err != nil {
		return nil, err
	}
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

// withLocale sets the {locale} path value for a per-locale route.
func withLocale(locale string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.SetPathValue("locale", locale)
		next(w, r)
	}
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM
// or when ctx is cancelled.
func Run(ctx context.Context, srv *http.Server, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info("folio listening", logger.String("url", "http://"+srv.Addr))

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
