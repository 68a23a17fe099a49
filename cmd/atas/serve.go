package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/atas-platform/atas/infrastructure/api"
	"github.com/atas-platform/atas/internal/config"
)

func serveCmd(envFile *string) *cobra.Command {
	var (
		host     string
		port     int
		noWorker bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server and, unless --no-worker is set, the
embedding worker and backfill sweep.

Configuration is loaded in the following order (later sources override earlier):
  1. Default values
  2. .env file (if --env-file specified or .env exists in current directory)
  3. Environment variables
  4. Command line flags

Environment variables:
  HOST                           Server host to bind to (default: 0.0.0.0)
  PORT                           Server port to listen on (default: 8080)
  DB_URL                         Database URL (default: sqlite:///atas.db)
  LOG_LEVEL                      Log level: DEBUG, INFO, WARN, ERROR (default: INFO)
  LOG_FORMAT                     Log format: pretty, json (default: pretty)
  JWT_SECRET                     Token signing secret
  JWT_TTL_MINUTES                Token lifetime (default: 1440)
  CORS_ORIGINS                   Comma-separated allowed origins (default: *)
  RATE_LIMIT_RPS                 Requests per second per client (default: 20, 0 disables)
  RATE_LIMIT_BURST               Burst per client (default: 40)

  WORKER_COUNT                   Embedding workers (default: 1)
  WORKER_POLL_MS                 Idle poll period (default: 1000)
  BACKFILL_INTERVAL_SECONDS      Missing-vector sweep period (default: 600, 0 disables)
  SEARCH_LIMIT                   Default top_k (default: 10)
  SEARCH_MAX_DISTANCE            Cosine distance cutoff (default: 2.0)

  EMBEDDING_*                    Embedding provider configuration
    PROVIDER                     openai, gemini or none (default: none)
    MODEL                        Model identifier
    DIMENSION                    Vector width
    API_KEY                      API key for authentication
    BASE_URL                     Endpoint override
    TIMEOUT                      Request timeout in seconds (default: 30)
    RPS                          Provider calls per second (default: 5)
    BREAKER_FAILURES             Failures before the circuit opens (default: 5)
    CACHE_SIZE                   Cached vectors per text (default: 512)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(*envFile, host, port, noWorker)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Server host to bind to (default: 0.0.0.0)")
	cmd.Flags().IntVar(&port, "port", 0, "Server port to listen on (default: 8080)")
	cmd.Flags().BoolVar(&noWorker, "no-worker", false, "Serve HTTP only; run the worker with 'atas worker'")

	return cmd
}

func runServe(envFile, host string, port int, noWorker bool) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}
	cfg = applyServeOverrides(cfg, host, port)

	client, slogger, err := openClient(cfg, "starting atas")
	if err != nil {
		return err
	}
	defer closeClient(client, slogger)

	apiServer := api.NewAPIServer(client,
		api.WithCORSOrigins(cfg.CORSOrigins()),
		api.WithRateLimit(cfg.RateLimitRPS(), cfg.RateLimitBurst()),
	)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return apiServer.ListenAndServe(gctx, cfg.Addr())
	})
	if !noWorker {
		g.Go(func() error {
			return client.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// applyServeOverrides applies command line flag overrides to the config.
func applyServeOverrides(cfg config.AppConfig, host string, port int) config.AppConfig {
	var opts []config.AppConfigOption

	if host != "" {
		opts = append(opts, config.WithHost(host))
	}
	if port != 0 {
		opts = append(opts, config.WithPort(port))
	}

	return cfg.Apply(opts...)
}
