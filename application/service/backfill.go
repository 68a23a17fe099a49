package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/atas-platform/atas/domain/embedding"
	"github.com/atas-platform/atas/internal/config"
)

// Backfill periodically queues entities that have no stored vector: rows
// cleared by a dimension migration, jobs that failed, or entities written
// while the provider was down.
type Backfill struct {
	stores   []embedding.Store
	queue    *Queue
	logger   *slog.Logger
	interval time.Duration
	batch    int

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewBackfill creates a Backfill over the given stores. A non-positive
// interval disables it.
func NewBackfill(interval time.Duration, queue *Queue, logger *slog.Logger, stores ...embedding.Store) *Backfill {
	return &Backfill{
		stores:   stores,
		queue:    queue,
		logger:   logger,
		interval: interval,
		batch:    config.DefaultBackfillBatch,
	}
}

// Start begins the sweep in a background goroutine.
// If disabled, this is a no-op.
func (b *Backfill) Start(ctx context.Context) {
	if b.interval <= 0 {
		b.logger.Info("embedding backfill disabled")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	ctx, b.cancel = context.WithCancel(ctx)
	b.wg.Go(func() {
		b.run(ctx)
	})

	b.logger.Info("embedding backfill started", slog.Duration("interval", b.interval))
}

// Stop cancels the background goroutine and waits for it to finish.
func (b *Backfill) Stop() {
	b.mu.Lock()
	cancel := b.cancel
	b.cancel = nil
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	b.wg.Wait()
}

func (b *Backfill) run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.Sweep(ctx)
		}
	}
}

// Sweep queues one batch of entities without vectors per store and
// returns how many tasks were queued.
func (b *Backfill) Sweep(ctx context.Context) int {
	total := 0
	for _, store := range b.stores {
		ids, err := store.Missing(ctx, b.batch)
		if err != nil {
			if ctx.Err() != nil {
				return total
			}
			b.logger.Error("backfill failed to find missing embeddings",
				slog.String("kind", string(store.Kind())),
				slog.String("error", err.Error()),
			)
			continue
		}
		n, err := b.queue.EnqueueAll(ctx, operationFor(store.Kind()), ids)
		total += n
		if err != nil {
			if ctx.Err() != nil {
				return total
			}
			b.logger.Warn("backfill failed to enqueue",
				slog.String("kind", string(store.Kind())),
				slog.String("error", err.Error()),
			)
		}
	}
	if total > 0 {
		b.logger.Debug("backfill enqueued", slog.Int("count", total))
	}
	return total
}
