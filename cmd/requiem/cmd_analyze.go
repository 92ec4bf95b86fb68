package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"requiem/adapters/backend"
	"requiem/adapters/terminal"
	"requiem/internal/api"
)

func newAnalyzeCmd() *cobra.Command {
	var (
		n                     int
		mean, stdDev          float64
		threshold, confidence float64
		backendURL            string
		local, plain          bool
		width                 int
	)

	cmd := &cobra.Command{
		Use:   "analyze [data-file]",
		Short: "Render the full report in the terminal",
		Long: `Load a CSV or Excel file, or generate a control sample when no file is
given, then render the five-chapter report in the terminal.

Example: requiem analyze hours.csv --threshold 6 --confidence 0.99
         requiem analyze --local --n 200 --mean 5.5 --sd 1.5`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadContainer()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			if !cmd.Flags().Changed("threshold") {
				threshold = c.Config.Analysis.DefaultThreshold
			}
			if !cmd.Flags().Changed("confidence") {
				confidence = c.Config.Analysis.DefaultConfidence
			}

			switch {
			case local:
				if err := c.InitAnalysis(ctx); err != nil {
					return err
				}
				defer c.Shutdown(context.Background())
				c.Backend = api.NewLocalBackend(c.Engine)
			case backendURL != "":
				c.Backend = backend.NewClient(backend.Config{BaseURL: backendURL, Timeout: c.Config.Backend.RequestTimeout})
			}

			opts := []terminal.Option{terminal.WithWidth(width)}
			if plain {
				opts = append(opts, terminal.WithPlainText())
			}
			svc := c.TerminalService(cmd.OutOrStdout(), opts...)

			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open data file: %w", err)
				}
				defer f.Close()
				if _, err := svc.UploadDataset(ctx, filepath.Base(args[0]), f); err != nil {
					return err
				}
			} else if _, err := svc.GenerateSample(ctx, n, mean, stdDev); err != nil {
				return err
			}

			run, err := svc.RunAnalysis(ctx, threshold, confidence)
			if err != nil {
				return err
			}
			sum, err := run.Wait(ctx)
			if err != nil {
				return err
			}
			rendered, failed, missing := sum.Counts()
			fmt.Fprintf(cmd.ErrOrStderr(), "%d chapters rendered, %d failed, %d missing, %d charts\n",
				rendered, failed, missing, sum.Charts)
			return nil
		},
	}

	cmd.Flags().IntVar(&n, "n", 100, "Control sample size")
	cmd.Flags().Float64Var(&mean, "mean", 5.5, "Control sample mean (hours)")
	cmd.Flags().Float64Var(&stdDev, "sd", 1.5, "Control sample standard deviation")
	cmd.Flags().Float64Var(&threshold, "threshold", 5.0, "Usage threshold in hours (H0 mean)")
	cmd.Flags().Float64Var(&confidence, "confidence", 0.95, "Confidence level")
	cmd.Flags().StringVar(&backendURL, "backend", "", "Analysis service URL (default from REQUIEM_BACKEND_URL)")
	cmd.Flags().BoolVar(&local, "local", false, "Compute the report in-process instead of calling a service")
	cmd.Flags().BoolVar(&plain, "plain", false, "Disable colors and borders")
	cmd.Flags().IntVar(&width, "width", 78, "Block width")
	return cmd
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the analysis service answers",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadContainer()
			if err != nil {
				return err
			}
			if err := c.Backend.CheckHealth(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "analysis service at %s is ready\n", c.Config.Backend.BaseURL)
			return nil
		},
	}
}
