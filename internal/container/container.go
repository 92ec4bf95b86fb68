package container

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/jmoiron/sqlx"

	"requiem/adapters/backend"
	"requiem/adapters/plotly"
	"requiem/adapters/postgres"
	"requiem/adapters/terminal"
	"requiem/app"
	"requiem/internal/analysis"
	"requiem/internal/api"
	"requiem/internal/config"
	"requiem/internal/scheduler"
	"requiem/internal/session"
	"requiem/ports"
	"requiem/ui"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config

	// Infrastructure
	DB *sqlx.DB

	// Reference analysis service
	Store  ports.DatasetStore
	Engine *analysis.Engine

	// Report hosts side
	Backend    ports.AnalysisBackend
	Translator ports.ChartTranslator
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	c := &Container{
		Config:     cfg,
		Translator: plotly.NewTranslator(),
		Backend: backend.NewClient(backend.Config{
			BaseURL: cfg.Backend.BaseURL,
			Timeout: cfg.Backend.RequestTimeout,
		}),
	}
	return c, nil
}

// InitAnalysis sets up the dataset store and the engine of the reference
// service. Datasets go to PostgreSQL when a database URL is configured and
// stay in memory otherwise.
func (c *Container) InitAnalysis(ctx context.Context) error {
	if c.Config.Database.URL != "" {
		db, err := postgres.Connect(ctx, c.Config.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		c.DB = db
		c.Store = postgres.NewDatasetRepository(db)
		log.Printf("[Container] Datasets stored in PostgreSQL")
	} else {
		c.Store = analysis.NewMemoryStore()
		log.Printf("[Container] Datasets kept in memory")
	}

	c.Engine = analysis.NewEngine(c.Store, analysis.EngineConfig{
		MaxConcurrency: c.Config.Analysis.MaxConcurrency,
		CacheSize:      c.Config.Analysis.CacheSize,
	})
	return nil
}

// APIServer builds the gin server of the reference service
func (c *Container) APIServer() (*api.Server, error) {
	if c.Engine == nil {
		return nil, fmt.Errorf("analysis engine not initialized")
	}
	return api.NewServer(c.Engine, c.Config.Analysis, c.Config.Server.GinMode), nil
}

// UIApp builds the browser report host
func (c *Container) UIApp() (*ui.App, error) {
	return ui.NewApp(ui.Config{
		Port:              c.Config.Server.UIPort,
		Backend:           c.Backend,
		Translator:        c.Translator,
		RequestTimeout:    c.Config.Backend.RequestTimeout,
		FrameInterval:     c.Config.Render.FrameInterval,
		TypesetDelay:      c.Config.Render.TypesetDelay,
		DefaultThreshold:  c.Config.Analysis.DefaultThreshold,
		DefaultConfidence: c.Config.Analysis.DefaultConfidence,
		StaticDir:         c.Config.Server.StaticDir,
	})
}

// TerminalService builds an orchestrator that renders to out
func (c *Container) TerminalService(out io.Writer, opts ...terminal.Option) *app.AnalysisService {
	host := terminal.NewHost(out, opts...)
	return app.NewAnalysisService(session.NewReportSession(), c.Backend, host, app.AnalysisServiceOptions{
		Translator:     c.Translator,
		Yielder:        scheduler.ImmediateYielder{},
		RequestTimeout: c.Config.Backend.RequestTimeout,
	})
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	// Close database connection
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
