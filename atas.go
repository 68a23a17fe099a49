// Package atas is the ATAS event and expert platform as a library.
//
// A Client owns the database, the embedding pipeline and every application
// service. HTTP servers and commands are thin layers over it.
//
// Basic usage:
//
//	client, err := atas.New(
//	    atas.WithSQLite("atas.db"),
//	    atas.WithJWT(os.Getenv("JWT_SECRET"), 24*time.Hour),
//	    atas.WithEmbedding(config.NewEmbeddingWithOptions(
//	        config.WithProvider(config.ProviderOpenAI),
//	        config.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    )),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Run the embedding worker until ctx is cancelled.
//	go client.Run(ctx)
//
//	// Semantic search, falling back to substring matching.
//	results, err := client.Search.Profiles(ctx, "free on Tuesday evenings",
//	    service.WithTopK(5),
//	)
package atas

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/atas-platform/atas/application/service"
	"github.com/atas-platform/atas/domain/embedding"
	"github.com/atas-platform/atas/infrastructure/persistence"
	"github.com/atas-platform/atas/infrastructure/provider"
	"github.com/atas-platform/atas/internal/database"
)

// Client is the main entry point for the atas library.
//
// Access services via struct fields:
//
//	client.Events.Create(ctx, actor, details)
//	client.Search.Events(ctx, "hands-on workshop")
//	client.Tasks.Count(ctx)
type Client struct {
	Auth          *service.Auth
	Profiles      *service.Profiles
	Events        *service.Events
	Bookings      *service.Bookings
	Organizations *service.Organizations
	Notifications *service.Notifications
	Community     *service.Community
	Search        *service.Search
	Tasks         *service.Queue
	Maintenance   *service.Maintenance

	db        database.Database
	generator embedding.Generator

	profileStore   persistence.ProfileStore
	eventStore     persistence.EventStore
	taskStore      persistence.TaskStore
	profileVectors embedding.Store
	eventVectors   embedding.Store

	registry *service.Registry
	worker   *service.Worker
	backfill *service.Backfill

	closers []io.Closer
	logger  *slog.Logger
	closed  atomic.Bool
	mu      sync.Mutex
}

// New creates a new Client with the given options. It opens the database,
// applies the schema and wires every service. Background processing starts
// with Run.
func New(opts ...Option) (*Client, error) {
	cfg := newClientConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.dbURL == "" {
		return nil, ErrNoDatabase
	}
	if cfg.jwtSecret == "" {
		return nil, ErrNoJWTSecret
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx := context.Background()
	db, err := database.NewDatabaseWithLogger(ctx, cfg.dbURL, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := persistence.AutoMigrate(db); err != nil {
		errClose := db.Close()
		return nil, errors.Join(err, errClose)
	}

	generator := cfg.generator
	if generator == nil {
		g, err := provider.FromConfig(ctx, cfg.embedding, logger)
		if err != nil {
			errClose := db.Close()
			return nil, errors.Join(fmt.Errorf("embedding provider: %w", err), errClose)
		}
		generator = g
	}

	profileVectors, err := persistence.NewEmbeddingStore(ctx, db, embedding.KindProfile, generator.Dimension(), logger)
	if err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("profile embedding store: %w", err), errClose)
	}
	eventVectors, err := persistence.NewEmbeddingStore(ctx, db, embedding.KindEvent, generator.Dimension(), logger)
	if err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("event embedding store: %w", err), errClose)
	}

	userStore := persistence.NewUserStore(db)
	profileStore := persistence.NewProfileStore(db)
	eventStore := persistence.NewEventStore(db)
	bookingStore := persistence.NewBookingStore(db)
	orgStore := persistence.NewOrganizationStore(db)
	taskStore := persistence.NewTaskStore(db)

	queue := service.NewQueue(taskStore, logger)
	notifications := service.NewNotifications(persistence.NewNotificationStore(db), cfg.publisher, logger)

	var authOpts []service.AuthOption
	if cfg.bcryptCost > 0 {
		authOpts = append(authOpts, service.WithBcryptCost(cfg.bcryptCost))
	}

	registry := service.NewRegistry()
	worker := service.NewWorker(taskStore, registry, logger).
		WithPollPeriod(cfg.workerPollPeriod).
		WithConcurrency(cfg.workerCount)

	backfillEvery := cfg.backfillInterval
	if !generatorEnabled(generator) {
		backfillEvery = 0
	}

	client := &Client{
		Auth:          service.NewAuth(userStore, profileStore, cfg.jwtSecret, cfg.jwtTTL, logger, authOpts...),
		Profiles:      service.NewProfiles(userStore, profileStore, queue, logger),
		Events:        service.NewEvents(eventStore, bookingStore, orgStore, eventVectors, queue, notifications, logger),
		Bookings:      service.NewBookings(eventStore, bookingStore, notifications, logger),
		Organizations: service.NewOrganizations(orgStore, userStore, notifications, logger),
		Notifications: notifications,
		Community:     service.NewCommunity(persistence.NewCommunityStore(db), notifications, logger),
		Search:        service.NewSearch(generator, profileVectors, eventVectors, profileStore, eventStore, cfg.searchLimit, cfg.maxDistance, logger),
		Tasks:         queue,
		Maintenance:   service.NewMaintenance(profileVectors, eventVectors, profileStore, eventStore, queue, generator, logger),

		db:             db,
		generator:      generator,
		profileStore:   profileStore,
		eventStore:     eventStore,
		taskStore:      taskStore,
		profileVectors: profileVectors,
		eventVectors:   eventVectors,
		registry:       registry,
		worker:         worker,
		backfill:       service.NewBackfill(backfillEvery, queue, logger, profileVectors, eventVectors),
		closers:        cfg.closers,
		logger:         logger,
	}

	if err := client.registerHandlers(); err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("register handlers: %w", err), errClose)
	}
	if err := client.validateHandlers(); err != nil {
		errClose := db.Close()
		return nil, errors.Join(err, errClose)
	}

	return client, nil
}

// Run processes embedding jobs and sweeps for missing vectors until ctx is
// cancelled.
func (c *Client) Run(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientClosed
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.worker.Run(ctx)
	})
	g.Go(func() error {
		c.backfill.Start(ctx)
		<-ctx.Done()
		c.backfill.Stop()
		return nil
	})
	return g.Wait()
}

// ProcessPending runs queued tasks in the calling goroutine until the queue
// is empty and returns how many ran.
func (c *Client) ProcessPending(ctx context.Context) (int, error) {
	if c.closed.Load() {
		return 0, ErrClientClosed
	}
	n := 0
	for {
		processed, err := c.worker.ProcessOne(ctx)
		if err != nil {
			return n, err
		}
		if !processed {
			return n, nil
		}
		n++
	}
}

// Backfill queues one batch of entities that have no stored vector.
func (c *Client) Backfill(ctx context.Context) int {
	return c.backfill.Sweep(ctx)
}

// EmbeddingsEnabled reports whether a provider is configured.
func (c *Client) EmbeddingsEnabled() bool {
	return generatorEnabled(c.generator)
}

// Ping checks the database connection.
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.db.GORM().DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases all resources.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClientClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.backfill.Stop()
	c.worker.Stop()

	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			c.logger.Error("failed to close resource", slog.Any("error", err))
		}
	}

	if err := c.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}

	c.logger.Info("atas client closed")
	return nil
}

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

func generatorEnabled(g embedding.Generator) bool {
	if e, ok := g.(interface{ Enabled() bool }); ok {
		return e.Enabled()
	}
	return g != nil
}
