package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/atas-platform/atas/domain/repository"
	"github.com/atas-platform/atas/domain/task"
	"github.com/atas-platform/atas/internal/database"
)

// TaskStore implements task.TaskStore using GORM.
type TaskStore struct {
	database.Repository[task.Task, TaskModel]
	db database.Database
}

// NewTaskStore creates a new TaskStore.
func NewTaskStore(db database.Database) TaskStore {
	return TaskStore{
		Repository: database.NewRepository[task.Task, TaskModel](db, TaskMapper{}, "task"),
		db:         db,
	}
}

// Get retrieves a task by ID.
func (s TaskStore) Get(ctx context.Context, id int64) (task.Task, error) {
	t, err := s.FindOne(ctx, repository.WithID(id))
	return t, translate(err)
}

// FindPending retrieves pending tasks ordered by priority, then age.
func (s TaskStore) FindPending(ctx context.Context, options ...repository.Option) ([]task.Task, error) {
	options = append(options,
		repository.WithOrderDesc("priority"),
		repository.WithOrderAsc("created_at"),
		repository.WithOrderAsc("id"))
	return s.Find(ctx, options...)
}

// Save creates a task. When a task with the same dedup key is already
// pending, its payload and priority are replaced and its id kept, so the
// latest request wins.
func (s TaskStore) Save(ctx context.Context, t task.Task) (task.Task, error) {
	model := s.Mapper().ToModel(t)
	now := time.Now().UTC()
	if model.CreatedAt.IsZero() {
		model.CreatedAt = now
	}
	model.UpdatedAt = now

	err := s.db.Session(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dedup_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "priority", "updated_at"}),
	}).Create(&model).Error
	if err != nil {
		return task.Task{}, fmt.Errorf("save task: %w", err)
	}

	// The conflict path does not report the existing row id on every driver.
	var stored TaskModel
	if err := s.db.Session(ctx).Where("dedup_key = ?", model.DedupKey).First(&stored).Error; err != nil {
		return task.Task{}, fmt.Errorf("reload task: %w", err)
	}
	return s.Mapper().ToDomain(stored), nil
}

// Delete removes a task.
func (s TaskStore) Delete(ctx context.Context, t task.Task) error {
	if err := s.db.Session(ctx).Delete(&TaskModel{}, t.ID()).Error; err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// CountPending returns the number of pending tasks.
func (s TaskStore) CountPending(ctx context.Context, options ...repository.Option) (int64, error) {
	return s.Count(ctx, options...)
}

// Dequeue retrieves and removes the highest priority task. A task that
// another consumer claimed first is not returned.
func (s TaskStore) Dequeue(ctx context.Context) (task.Task, bool, error) {
	var model TaskModel

	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		q := tx.Order("priority DESC, created_at ASC, id ASC")
		if s.db.IsPostgres() {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		result := q.First(&model)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return nil
			}
			return result.Error
		}
		deleted := tx.Delete(&TaskModel{}, model.ID)
		if deleted.Error != nil {
			return deleted.Error
		}
		if deleted.RowsAffected == 0 {
			model = TaskModel{}
		}
		return nil
	})
	if err != nil {
		return task.Task{}, false, fmt.Errorf("dequeue task: %w", err)
	}

	if model.ID == 0 {
		return task.Task{}, false, nil
	}
	return s.Mapper().ToDomain(model), true, nil
}
