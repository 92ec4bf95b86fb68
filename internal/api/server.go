// Package api is the HTTP front of the reference analysis service.
package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"requiem/adapters/excel"
	"requiem/internal/analysis"
	"requiem/internal/config"
)

// MaxUploadBytes bounds a multipart upload
const MaxUploadBytes = excel.MaxUploadBytes

// Server serves the analysis endpoints
type Server struct {
	router   *gin.Engine
	engine   *analysis.Engine
	defaults config.AnalysisConfig
	http     *http.Server
}

// NewServer creates the gin router for engine
func NewServer(engine *analysis.Engine, cfg config.AnalysisConfig, ginMode string) *Server {
	if ginMode != "" {
		gin.SetMode(ginMode)
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.MaxMultipartMemory = MaxUploadBytes

	s := &Server{
		router:   router,
		engine:   engine,
		defaults: cfg,
		http:     &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second},
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.POST("/analisis_completo", s.handleAnalysis)
		api.POST("/upload", s.handleUpload)
		api.POST("/generar_ejemplo", s.handleSample)
		api.POST("/analisis_rapido", s.handleHealth)
	}
	s.router.POST("/analysis/run", s.handleAnalysis)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on addr until Shutdown is called
func (s *Server) Start(addr string) error {
	s.http.Addr = addr
	log.Printf("[API] Analysis service listening on %s", addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// RunCleanup drops expired datasets every interval until ctx is done
func (s *Server) RunCleanup(ctx context.Context, ttl, interval time.Duration) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.engine.Cleanup(ctx, ttl)
			if err != nil {
				log.Printf("[API] Dataset cleanup failed: %v", err)
			} else if removed > 0 {
				log.Printf("[API] Dropped %d expired datasets", removed)
			}
		}
	}
}
