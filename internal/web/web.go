// Package web implements the local web application.
//
// The app mirrors the CLI sort flow in a browser: a status page, a Spotify
// OAuth flow, and a sort trigger that renders a per-genre report. It serves
// on 127.0.0.1:5000 by default and is only intended for loopback use.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/genrify/internal/server"
	"github.com/desertthunder/genrify/internal/services"
	"github.com/desertthunder/genrify/internal/shared"
	"github.com/desertthunder/genrify/internal/tasks"
)

//go:embed templates/*.html
var templateFiles embed.FS

// App holds the web application's dependencies and per-session state.
type App struct {
	config     *shared.Config
	configPath string
	spotify    services.OAuthService
	engine     tasks.SortEngine
	logger     *log.Logger
	templates  *template.Template

	mu            sync.Mutex
	oauthState    string
	authenticated bool
	sorting       bool
	lastResult    *tasks.SortResult
}

// AppOpts contains configuration options for creating an App.
type AppOpts struct {
	Config     *shared.Config
	ConfigPath string
	Spotify    services.OAuthService
	Engine     tasks.SortEngine
	Logger     *log.Logger
}

// NewApp creates the web application.
func NewApp(opts AppOpts) (*App, error) {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = "config.toml"
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	tmpl, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	app := &App{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		spotify:    opts.Spotify,
		engine:     opts.Engine,
		logger:     opts.Logger,
		templates:  tmpl,
	}

	if token := opts.Config.Credentials.Spotify.Token(); token != nil && opts.Spotify != nil {
		if err := opts.Spotify.OAuthenticate(context.Background(), token); err == nil {
			app.authenticated = true
		}
	}

	return app, nil
}

// Router builds the app's route table with logging middleware applied.
func (a *App) Router() *server.BasicRouter {
	router := server.NewBasicRouter()
	router.Use(a.logRequests)

	router.Handle(http.MethodGet, "/{$}", http.HandlerFunc(a.handleIndex))
	router.Handle(http.MethodGet, "/auth/spotify", http.HandlerFunc(a.handleAuth))
	router.Handle(http.MethodGet, "/callback", http.HandlerFunc(a.handleCallback))
	router.Handle(http.MethodGet, "/healthz", http.HandlerFunc(a.handleHealth))

	// The sort trigger accepts GET for the index page links and POST for
	// well-behaved clients.
	router.Handle(http.MethodGet, "/sort", http.HandlerFunc(a.handleSort))
	router.Handle(http.MethodPost, "/sort", http.HandlerFunc(a.handleSort))

	return router
}

// Serve runs the HTTP server until the context is canceled, then shuts down gracefully.
func (a *App) Serve(ctx context.Context) error {
	addr := a.config.Server.Addr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: a.Router(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		a.logger.Infof("web app listening at http://%s", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	return nil
}

// logRequests is a [server.Middleware] that logs method, path, and duration.
func (a *App) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		a.logger.Info("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

type indexData struct {
	Authenticated bool
	Sorting       bool
	LastResult    *tasks.SortResult
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	data := indexData{
		Authenticated: a.authenticated,
		Sorting:       a.sorting,
		LastResult:    a.lastResult,
	}
	a.mu.Unlock()

	a.render(w, "index.html", data)
}

func (a *App) handleAuth(w http.ResponseWriter, r *http.Request) {
	if a.spotify == nil {
		http.Error(w, "Spotify credentials are not configured", http.StatusServiceUnavailable)
		return
	}

	state, err := shared.GenerateState()
	if err != nil {
		a.logger.Error("failed to generate state", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	a.mu.Lock()
	a.oauthState = state
	a.mu.Unlock()

	http.Redirect(w, r, a.spotify.GetAuthURL(state), http.StatusFound)
}

func (a *App) handleCallback(w http.ResponseWriter, r *http.Request) {
	if a.spotify == nil {
		http.Error(w, "Spotify credentials are not configured", http.StatusServiceUnavailable)
		return
	}

	a.mu.Lock()
	expected := a.oauthState
	a.oauthState = ""
	a.mu.Unlock()

	if expected == "" || r.URL.Query().Get("state") != expected {
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := a.spotify.GetOAuthConfig().Exchange(r.Context(), code)
	if err != nil {
		a.logger.Error("token exchange failed", "error", err)
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	if err := a.spotify.OAuthenticate(r.Context(), token); err != nil {
		http.Error(w, "Authentication failed", http.StatusInternalServerError)
		return
	}

	if err := a.config.Credentials.Spotify.Update(token); err == nil {
		if err := shared.SaveConfig(a.configPath, a.config); err != nil {
			a.logger.Warn("failed to persist tokens", "error", err)
		}
	}

	a.mu.Lock()
	a.authenticated = true
	a.mu.Unlock()

	http.Redirect(w, r, "/", http.StatusFound)
}

func (a *App) handleSort(w http.ResponseWriter, r *http.Request) {
	if a.engine == nil {
		http.Error(w, "Sort engine is not configured", http.StatusServiceUnavailable)
		return
	}

	a.mu.Lock()
	if !a.authenticated {
		a.mu.Unlock()
		http.Redirect(w, r, "/auth/spotify", http.StatusFound)
		return
	}
	if a.sorting {
		a.mu.Unlock()
		http.Error(w, "A sort is already running", http.StatusConflict)
		return
	}
	a.sorting = true
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.sorting = false
		a.mu.Unlock()
	}()

	opts := tasks.SortOptions{DryRun: r.URL.Query().Get("dry-run") == "true"}

	result, err := a.engine.Run(r.Context(), opts, nil)
	if err != nil {
		a.logger.Error("sort failed", "error", err)
		http.Error(w, fmt.Sprintf("Sort failed: %v", err), http.StatusBadGateway)
		return
	}

	a.mu.Lock()
	a.lastResult = result
	a.mu.Unlock()

	a.render(w, "report.html", result)
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	payload := map[string]any{
		"status":        "ok",
		"authenticated": a.authenticated,
		"sorting":       a.sorting,
	}
	a.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.logger.Error("failed to encode health response", "error", err)
	}
}

// render executes a template, logging instead of panicking on failure.
func (a *App) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := a.templates.ExecuteTemplate(w, name, data); err != nil {
		a.logger.Error("template error", "template", name, "error", err)
	}
}
