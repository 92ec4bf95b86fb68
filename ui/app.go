package ui

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"requiem/app"
	"requiem/internal/scheduler"
	"requiem/internal/session"
	"requiem/ports"
)

//go:embed templates/* static/*
var embeddedFiles embed.FS

// reportRegion is the id of the report container on the page
const reportRegion = scheduler.DefaultRegion

// clientCookie identifies a browser across requests
const clientCookie = "requiem_client"

// App represents the UI application
type App struct {
	router    *chi.Mux
	config    Config
	hub       *SSEHub
	sessions  *session.Registry
	templates *template.Template

	server *http.Server

	mu      sync.Mutex
	clients map[string]*client
}

// Config holds UI application configuration
type Config struct {
	Port       string
	Backend    ports.AnalysisBackend
	Translator ports.ChartTranslator

	RequestTimeout time.Duration
	FrameInterval  time.Duration
	TypesetDelay   time.Duration

	DefaultThreshold  float64
	DefaultConfidence float64

	// StaticDir serves assets from disk instead of the embedded copy
	StaticDir string
}

// client is one browser: its report host, its orchestrator and the context
// that bounds its runs
type client struct {
	id      string
	host    *Host
	service *app.AnalysisService
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewApp creates a new UI application
func NewApp(config Config) (*App, error) {
	if config.Backend == nil || config.Translator == nil {
		return nil, fmt.Errorf("ui: backend and chart translator are required")
	}
	templates, err := template.ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	a := &App{
		router:    chi.NewRouter(),
		config:    config,
		hub:       NewSSEHub(),
		sessions:  session.NewRegistry(),
		templates: templates,
		clients:   make(map[string]*client),
	}
	a.server = &http.Server{Handler: a.router, ReadHeaderTimeout: 10 * time.Second}

	if err := a.setupMiddleware(); err != nil {
		return nil, err
	}
	a.setupRoutes()
	return a, nil
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() error {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)

	var static http.Handler
	if a.config.StaticDir != "" {
		log.Printf("[UI] Serving static files from %s", a.config.StaticDir)
		static = http.FileServer(http.Dir(a.config.StaticDir))
	} else {
		staticFS, err := fs.Sub(embeddedFiles, "static")
		if err != nil {
			return fmt.Errorf("failed to open embedded static files: %w", err)
		}
		static = http.FileServer(http.FS(staticFS))
	}
	// the event stream must not be buffered by the compressor
	a.router.With(middleware.Compress(5)).Handle("/static/*", http.StripPrefix("/static/", static))
	return nil
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	a.router.With(middleware.Compress(5)).Get("/", a.handleIndex)
	a.router.Get("/ui/events", a.handleEvents)
	a.router.Post("/ui/upload", a.handleUpload)
	a.router.Post("/ui/sample", a.handleSample)
	a.router.Post("/ui/analysis", a.handleAnalysis)
	a.router.Get("/health", a.handleHealth)
}

// Handler exposes the router, mainly for tests
func (a *App) Handler() http.Handler {
	return a.router
}

// Start starts the HTTP server
func (a *App) Start() error {
	port := a.config.Port
	if port == "" {
		port = "8080"
	}
	a.server.Addr = ":" + port

	log.Printf("[UI] Starting report UI on :%s", port)
	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server and every client's run
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	ids := make([]string, 0, len(a.clients))
	for id := range a.clients {
		ids = append(ids, id)
	}
	a.mu.Unlock()

	for _, id := range ids {
		a.removeClient(id)
	}
	return a.server.Shutdown(ctx)
}

// clientFor returns the browser's client, issuing a cookie on first visit
func (a *App) clientFor(w http.ResponseWriter, r *http.Request) *client {
	id := ""
	if c, err := r.Cookie(clientCookie); err == nil {
		if _, perr := uuid.Parse(c.Value); perr == nil {
			id = c.Value
		}
	}
	if id == "" {
		id = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     clientCookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if c, ok := a.clients[id]; ok {
		c.service.Session().Touch()
		return c
	}

	host := NewHost(id, a.hub)
	ctx, cancel := context.WithCancel(context.Background())
	svc := app.NewAnalysisService(a.sessions.Get(id), a.config.Backend, host, app.AnalysisServiceOptions{
		Translator:     a.config.Translator,
		Yielder:        scheduler.FrameYielder{Interval: a.config.FrameInterval},
		RequestTimeout: a.config.RequestTimeout,
		TypesetDelay:   a.config.TypesetDelay,
		Region:         reportRegion,
	})
	svc.OnTransition(func(t scheduler.Transition) {
		log.Printf("[UI] Client %s: %s", id[:8], t)
	})
	c := &client{id: id, host: host, service: svc, ctx: ctx, cancel: cancel}
	a.clients[id] = c
	log.Printf("[UI] New client %s (%d active)", id[:8], len(a.clients))
	return c
}

func (a *App) removeClient(id string) {
	a.mu.Lock()
	c, ok := a.clients[id]
	delete(a.clients, id)
	a.mu.Unlock()
	if !ok {
		return
	}
	c.cancel()
	a.sessions.Remove(id)
	a.hub.Remove(id)
}

// CleanupIdle forgets clients that have been idle for longer than maxIdle.
// A client with a connected page is never idle.
func (a *App) CleanupIdle(maxIdle time.Duration) int {
	a.mu.Lock()
	clients := make([]*client, 0, len(a.clients))
	for _, c := range a.clients {
		clients = append(clients, c)
	}
	a.mu.Unlock()

	for _, c := range clients {
		if a.hub.GetClientCount(c.id) > 0 {
			c.service.Session().Touch()
		}
	}
	a.sessions.CleanupIdle(maxIdle)

	removed := 0
	for _, c := range clients {
		if _, ok := a.sessions.Lookup(c.id); !ok {
			a.removeClient(c.id)
			removed++
		}
	}
	return removed
}

// ClientCount returns the number of tracked browsers
func (a *App) ClientCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.clients)
}

// RunCleanup calls CleanupIdle every interval until ctx is done
func (a *App) RunCleanup(ctx context.Context, maxIdle, interval time.Duration) {
	if maxIdle <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := a.CleanupIdle(maxIdle); n > 0 {
				log.Printf("[UI] Cleaned up %d idle clients", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

// renderTemplate writes an HTML template
func (a *App) renderTemplate(w http.ResponseWriter, templateName string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := a.templates.ExecuteTemplate(w, templateName, data); err != nil {
		log.Printf("[UI] Template error: %v", err)
		http.Error(w, "Template error", http.StatusInternalServerError)
	}
}
