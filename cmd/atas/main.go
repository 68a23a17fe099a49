// Package main is the entry point for the atas CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/atas-platform/atas"
	"github.com/atas-platform/atas/internal/config"
	"github.com/atas-platform/atas/internal/log"
)

// Version information set via ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:          "atas",
		Short:        "ATAS event and expert platform",
		Long:         `ATAS serves expert profiles, events and bookings with semantic search over both.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")

	cmd.AddCommand(serveCmd(&envFile))
	cmd.AddCommand(workerCmd(&envFile))
	cmd.AddCommand(migrateDimensionCmd(&envFile))
	cmd.AddCommand(reembedCmd(&envFile))
	cmd.AddCommand(seedCmd(&envFile))
	cmd.AddCommand(versionCmd())

	return cmd
}

// loadConfig loads configuration from .env file and environment variables.
func loadConfig(envFile string) (config.AppConfig, error) {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return config.AppConfig{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// openClient builds the logger and an atas Client from cfg and logs the
// effective settings.
func openClient(cfg config.AppConfig, msg string, extra ...atas.Option) (*atas.Client, *slog.Logger, error) {
	slogger := log.NewLogger(cfg).Slog()
	if cfg.InsecureJWTSecret() {
		slogger.Warn("JWT_SECRET is the development default; set it before exposing the server")
	}

	attrs := append([]slog.Attr{slog.String("version", version)}, cfg.LogAttrs()...)
	slogger.LogAttrs(context.Background(), slog.LevelInfo, msg, attrs...)

	opts := append([]atas.Option{atas.WithConfig(cfg), atas.WithLogger(slogger)}, extra...)
	client, err := atas.New(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("create atas client: %w", err)
	}
	return client, slogger, nil
}

// closeClient closes client and logs a failure.
func closeClient(client *atas.Client, logger *slog.Logger) {
	if err := client.Close(); err != nil {
		logger.Error("failed to close atas client", slog.Any("error", err))
	}
}
