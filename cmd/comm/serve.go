package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/atas-platform/atas"
	"github.com/atas-platform/atas/application/service"
	"github.com/atas-platform/atas/domain"
	"github.com/atas-platform/atas/infrastructure/api"
	"github.com/atas-platform/atas/infrastructure/realtime"
	"github.com/atas-platform/atas/internal/config"
	"github.com/atas-platform/atas/internal/log"
)

func serveCmd() *cobra.Command {
	var (
		envFile string
		host    string
		port    int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the community HTTP and WebSocket server",
		Long: `Start the community HTTP and WebSocket server.

Settings are read like the atas server's, with a COMM_ prefix:
COMM_PORT, COMM_DB_URL, COMM_JWT_SECRET, COMM_CORS_ORIGINS and so on.
Share COMM_DB_URL and COMM_JWT_SECRET with the atas server so tokens
and accounts work across both.

Clients connect to /ws?token=<access token> and receive one JSON
message per notification.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(envFile, host, port)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	cmd.Flags().StringVar(&host, "host", "", "Server host to bind to (default: 0.0.0.0)")
	cmd.Flags().IntVar(&port, "port", 0, "Server port to listen on (default: 8080)")

	return cmd
}

func runServe(envFile, host string, port int) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}
	var overrides []config.AppConfigOption
	if host != "" {
		overrides = append(overrides, config.WithHost(host))
	}
	if port != 0 {
		overrides = append(overrides, config.WithPort(port))
	}
	cfg = cfg.Apply(overrides...)

	slogger := log.NewLogger(cfg).Slog()
	attrs := append([]slog.Attr{slog.String("version", version)}, cfg.LogAttrs()...)
	slogger.LogAttrs(context.Background(), slog.LevelInfo, "starting comm", attrs...)

	// The hub publishes for the client and authenticates with it, so it
	// resolves the client lazily.
	var client *atas.Client
	hub := realtime.NewHub(realtime.AuthenticatorFunc(func(token string) (service.Actor, error) {
		if client == nil {
			return service.Actor{}, fmt.Errorf("%w: server starting", domain.ErrUnauthorized)
		}
		return client.Auth.Authenticate(token)
	}), originPatterns(cfg.CORSOrigins()), slogger)

	client, err = atas.New(
		atas.WithConfig(cfg),
		atas.WithLogger(slogger),
		atas.WithPublisher(hub),
		atas.WithCloser(hub),
	)
	if err != nil {
		return fmt.Errorf("create atas client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			slogger.Error("failed to close atas client", slog.Any("error", err))
		}
	}()

	apiServer := api.NewCommServer(client,
		api.WithCORSOrigins(cfg.CORSOrigins()),
		api.WithRateLimit(cfg.RateLimitRPS(), cfg.RateLimitBurst()),
		api.WithWebSocket(hub),
	)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Embedding work belongs to the atas worker; comm only serves.
	// Open sockets are hijacked connections, so the hub closes them
	// before shutdown waits on requests.
	return apiServer.ListenAndServe(ctx, cfg.Addr(), api.WithBeforeShutdown(func() { _ = hub.Close() }))
}

// originPatterns turns CORS origins into the host patterns the WebSocket
// origin check expects. "*" allows any origin.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, o)
	}
	return patterns
}
