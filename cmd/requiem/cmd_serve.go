package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"requiem/adapters/backend"
	"requiem/internal/container"
)

const shutdownTimeout = 10 * time.Second

// runner is one HTTP server managed by runServers
type runner struct {
	name  string
	start func() error
	stop  func(ctx context.Context) error
}

func newAPICmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "api",
		Short: "Run the reference analysis service",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadContainer()
			if err != nil {
				return err
			}
			if port != "" {
				c.Config.Server.APIPort = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			api, err := apiRunner(ctx, c)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())
			return runServers(ctx, api)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "Listen port (default from API_PORT)")
	return cmd
}

func newUICmd() *cobra.Command {
	var port, backendURL string

	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Run the browser report host against an analysis service",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadContainer()
			if err != nil {
				return err
			}
			if port != "" {
				c.Config.Server.UIPort = port
			}
			if backendURL != "" {
				c.Backend = backend.NewClient(backend.Config{BaseURL: backendURL, Timeout: c.Config.Backend.RequestTimeout})
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ui, err := uiRunner(ctx, c)
			if err != nil {
				return err
			}
			return runServers(ctx, ui)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "Listen port (default from PORT)")
	cmd.Flags().StringVar(&backendURL, "backend", "", "Analysis service URL (default from REQUIEM_BACKEND_URL)")
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the analysis service and the browser host in one process",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadContainer()
			if err != nil {
				return err
			}
			c.Backend = backend.NewClient(backend.Config{
				BaseURL: "http://localhost:" + c.Config.Server.APIPort,
				Timeout: c.Config.Backend.RequestTimeout,
			})
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			api, err := apiRunner(ctx, c)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())
			ui, err := uiRunner(ctx, c)
			if err != nil {
				return err
			}
			return runServers(ctx, api, ui)
		},
	}
}

func apiRunner(ctx context.Context, c *container.Container) (runner, error) {
	if err := c.InitAnalysis(ctx); err != nil {
		return runner{}, err
	}
	srv, err := c.APIServer()
	if err != nil {
		return runner{}, err
	}
	ttl := c.Config.Analysis.SessionTTL
	go srv.RunCleanup(ctx, ttl, cleanupInterval(ttl))

	addr := ":" + c.Config.Server.APIPort
	return runner{name: "api", start: func() error { return srv.Start(addr) }, stop: srv.Shutdown}, nil
}

func uiRunner(ctx context.Context, c *container.Container) (runner, error) {
	app, err := c.UIApp()
	if err != nil {
		return runner{}, fmt.Errorf("failed to create UI app: %w", err)
	}
	ttl := c.Config.Analysis.SessionTTL
	go app.RunCleanup(ctx, ttl, cleanupInterval(ttl))
	return runner{name: "ui", start: app.Start, stop: app.Shutdown}, nil
}

func cleanupInterval(ttl time.Duration) time.Duration {
	return max(ttl/4, time.Minute)
}

// runServers starts every runner and stops them all when ctx is done or one
// of them fails
func runServers(ctx context.Context, runners ...runner) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range runners {
		g.Go(func() error {
			if err := r.start(); err != nil {
				return fmt.Errorf("%s server: %w", r.name, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Printf("Shutting down %d server(s)", len(runners))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, r := range runners {
			if err := r.stop(shutdownCtx); err != nil {
				log.Printf("Failed to stop %s server: %v", r.name, err)
			}
		}
		return nil
	})
	return g.Wait()
}
