package task

import (
	"context"

	"github.com/atas-platform/atas/domain/repository"
)

// TaskStore persists queued tasks.
type TaskStore interface {
	// Get retrieves a task by ID.
	Get(ctx context.Context, id int64) (Task, error)

	// FindPending retrieves pending tasks, highest priority then oldest first.
	FindPending(ctx context.Context, options ...repository.Option) ([]Task, error)

	// Save creates a task, or refreshes the payload and priority of the
	// pending task with the same dedup key.
	Save(ctx context.Context, task Task) (Task, error)

	// Delete removes a task.
	Delete(ctx context.Context, task Task) error

	// CountPending returns the number of pending tasks.
	CountPending(ctx context.Context, options ...repository.Option) (int64, error)

	// Dequeue atomically removes and returns the next task.
	// found is false when the queue is empty.
	Dequeue(ctx context.Context) (task Task, found bool, err error)
}
