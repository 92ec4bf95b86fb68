package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"requiem/internal/config"
	"requiem/internal/container"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "requiem",
		Short:         "Progressive statistical report of device usage samples",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newAPICmd(),
		newUICmd(),
		newServeCmd(),
		newAnalyzeCmd(),
		newHealthCmd(),
	)
	return rootCmd
}

// loadContainer reads the configuration and builds the dependency container
func loadContainer() (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return container.New(cfg)
}
