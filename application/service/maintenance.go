package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/atas-platform/atas/domain/embedding"
	"github.com/atas-platform/atas/domain/task"
)

// EntityLister lists the ids of every entity of one kind.
type EntityLister interface {
	IDs(ctx context.Context) ([]int64, error)
}

// purger is implemented by generators that cache query vectors.
type purger interface {
	Purge()
}

// Maintenance runs administrative embedding jobs: re-embedding everything
// and changing the vector width.
type Maintenance struct {
	stores    map[embedding.Kind]embedding.Store
	listers   map[embedding.Kind]EntityLister
	queue     *Queue
	generator embedding.Generator
	logger    *slog.Logger
}

// NewMaintenance creates a Maintenance service.
func NewMaintenance(
	profileVectors, eventVectors embedding.Store,
	profiles, events EntityLister,
	queue *Queue,
	generator embedding.Generator,
	logger *slog.Logger,
) *Maintenance {
	return &Maintenance{
		stores: map[embedding.Kind]embedding.Store{
			embedding.KindProfile: profileVectors,
			embedding.KindEvent:   eventVectors,
		},
		listers: map[embedding.Kind]EntityLister{
			embedding.KindProfile: profiles,
			embedding.KindEvent:   events,
		},
		queue:     queue,
		generator: generator,
		logger:    logger,
	}
}

// Kinds parses "profile", "event" or "all".
func Kinds(s string) ([]embedding.Kind, error) {
	if s == "all" || s == "" {
		return []embedding.Kind{embedding.KindProfile, embedding.KindEvent}, nil
	}
	k, err := embedding.ParseKind(s)
	if err != nil {
		return nil, err
	}
	return []embedding.Kind{k}, nil
}

// Reembed queues an embedding job for every entity of the kinds. Jobs carry
// no source text, so each is rebuilt from the current database state.
func (s *Maintenance) Reembed(ctx context.Context, kinds ...embedding.Kind) (int, error) {
	total := 0
	for _, k := range kinds {
		ids, err := s.listers[k].IDs(ctx)
		if err != nil {
			return total, fmt.Errorf("list %s ids: %w", k, err)
		}
		n, err := s.queue.EnqueueAll(ctx, operationFor(k), ids)
		total += n
		if err != nil {
			return total, err
		}
		s.logger.Info("queued re-embedding", slog.String("kind", string(k)), slog.Int("count", n))
	}
	return total, nil
}

// MigrateDimension changes the vector width of the kinds' stores, drops
// cached query vectors and queues every entity for re-embedding. Row counts
// are unchanged; vectors stay empty until their job runs.
func (s *Maintenance) MigrateDimension(ctx context.Context, dimension int, kinds ...embedding.Kind) (int, error) {
	if dimension <= 0 {
		return 0, fmt.Errorf("%w: dimension must be positive", embedding.ErrInvalidInput)
	}
	for _, k := range kinds {
		store := s.stores[k]
		before, err := store.Count(ctx)
		if err != nil {
			return 0, err
		}
		if err := store.MigrateDimension(ctx, dimension); err != nil {
			return 0, fmt.Errorf("migrate %s embeddings: %w", k, err)
		}
		s.logger.Info("embedding dimension migrated",
			slog.String("kind", string(k)),
			slog.Int("dimension", dimension),
			slog.Int64("rows", before),
		)
	}
	if p, ok := s.generator.(purger); ok {
		p.Purge()
	}
	if s.generator != nil && s.generator.Dimension() != dimension {
		s.logger.Warn("configured embedding dimension differs from the migrated width, set EMBEDDING_DIMENSION before re-embedding",
			slog.Int("configured", s.generator.Dimension()),
			slog.Int("migrated", dimension),
		)
	}
	return s.Reembed(ctx, kinds...)
}

func operationFor(k embedding.Kind) task.Operation {
	if k == embedding.KindEvent {
		return task.OperationEmbedEvent
	}
	return task.OperationEmbedProfile
}
