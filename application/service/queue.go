package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/atas-platform/atas/domain/repository"
	"github.com/atas-platform/atas/domain/task"
)

// TaskListParams configures task listing.
type TaskListParams struct {
	Operation *task.Operation
	Limit     int
	Offset    int
}

// Queue provides the main interface for enqueuing and managing tasks.
type Queue struct {
	store  task.TaskStore
	logger *slog.Logger
}

// NewQueue creates a new queue service.
func NewQueue(store task.TaskStore, logger *slog.Logger) *Queue {
	return &Queue{
		store:  store,
		logger: logger,
	}
}

// Enqueue adds a task to the queue.
// If a task with the same dedup_key is pending, its payload and priority are
// refreshed instead.
func (s *Queue) Enqueue(ctx context.Context, t task.Task) error {
	if _, err := s.store.Save(ctx, t); err != nil {
		return fmt.Errorf("enqueue %s: %w", t.DedupKey(), err)
	}

	s.logger.Debug("task enqueued",
		slog.String("dedup_key", t.DedupKey()),
		slog.String("operation", t.Operation().String()),
	)
	return nil
}

// EnqueueEmbedding queues the (re)embedding of one entity. sourceText may be
// empty, in which case the handler rebuilds it from the database.
func (s *Queue) EnqueueEmbedding(ctx context.Context, operation task.Operation, entityID int64, sourceText string) error {
	return s.Enqueue(ctx, task.NewEmbeddingTask(operation, entityID, sourceText))
}

// EnqueueAll queues an embedding task per entity at background priority.
// It returns how many tasks were queued.
func (s *Queue) EnqueueAll(ctx context.Context, operation task.Operation, entityIDs []int64) (int, error) {
	for i, id := range entityIDs {
		t := task.NewTask(operation, task.PriorityBackground, map[string]any{task.KeyEntityID: id})
		if err := s.Enqueue(ctx, t); err != nil {
			return i, err
		}
	}
	return len(entityIDs), nil
}

// List returns tasks matching the given params.
// Tasks are sorted by priority (highest first) then by created_at (oldest first).
func (s *Queue) List(ctx context.Context, params *TaskListParams) ([]task.Task, error) {
	var options []repository.Option

	if params != nil && params.Operation != nil {
		options = append(options, repository.WithCondition("type", params.Operation.String()))
	}
	if params != nil && params.Limit > 0 {
		options = append(options, repository.WithPagination(params.Limit, params.Offset)...)
	}

	return s.store.FindPending(ctx, options...)
}

// Count returns the total number of pending tasks.
func (s *Queue) Count(ctx context.Context) (int64, error) {
	return s.store.CountPending(ctx)
}

// Get retrieves a task by ID.
func (s *Queue) Get(ctx context.Context, id int64) (task.Task, error) {
	return s.store.Get(ctx, id)
}

// DrainForEntity removes the pending task of operation for entityID, if any.
// Deleting an entity drains its job so the worker does not embed a ghost.
func (s *Queue) DrainForEntity(ctx context.Context, operation task.Operation, entityID int64) (int, error) {
	key := task.NewEmbeddingTask(operation, entityID, "").DedupKey()
	tasks, err := s.store.FindPending(ctx, repository.WithCondition("dedup_key", key))
	if err != nil {
		return 0, fmt.Errorf("find pending tasks: %w", err)
	}

	removed := 0
	for _, t := range tasks {
		if err := s.store.Delete(ctx, t); err != nil {
			return removed, fmt.Errorf("delete task %d: %w", t.ID(), err)
		}
		removed++
	}
	return removed, nil
}
