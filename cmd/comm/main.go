// Package main is the entry point for the comm community server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/atas-platform/atas/internal/config"
)

// Version information set via ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// envPrefix namespaces comm settings, e.g. COMM_PORT.
const envPrefix = "COMM"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "comm",
		Short:        "Community feed server",
		Long:         `comm serves posts, comments, likes and follows, and pushes notifications over WebSocket.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

// loadConfig loads COMM_-prefixed configuration from .env file and environment variables.
func loadConfig(envFile string) (config.AppConfig, error) {
	cfg, err := config.LoadConfigWithPrefix(envFile, envPrefix)
	if err != nil {
		return config.AppConfig{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
