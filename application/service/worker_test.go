package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/atas-platform/atas/domain"
	"github.com/atas-platform/atas/domain/repository"
	"github.com/atas-platform/atas/domain/task"
)

// memTasks is a TaskStore kept in a slice, in dequeue order.
type memTasks struct {
	mu    sync.Mutex
	tasks []task.Task
}

func (m *memTasks) Get(_ context.Context, id int64) (task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tasks {
		if t.ID() == id {
			return t, nil
		}
	}
	return task.Task{}, domain.ErrNotFound
}

func (m *memTasks) FindPending(context.Context, ...repository.Option) ([]task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]task.Task(nil), m.tasks...), nil
}

func (m *memTasks) Save(_ context.Context, t task.Task) (task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, t)
	return t, nil
}

func (m *memTasks) Delete(_ context.Context, t task.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.tasks {
		if existing.DedupKey() == t.DedupKey() {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memTasks) CountPending(context.Context, ...repository.Option) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.tasks)), nil
}

func (m *memTasks) Dequeue(context.Context) (task.Task, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tasks) == 0 {
		return task.Task{}, false, nil
	}
	t := m.tasks[0]
	m.tasks = m.tasks[1:]
	return t, true, nil
}

type funcHandler func(ctx context.Context, payload map[string]any) error

func (f funcHandler) Execute(ctx context.Context, payload map[string]any) error {
	return f(ctx, payload)
}

func TestWorker_ProcessOne(t *testing.T) {
	ctx := context.Background()
	store := &memTasks{}
	registry := NewRegistry()

	var seen []int64
	registry.Register(task.OperationEmbedProfile, funcHandler(func(_ context.Context, payload map[string]any) error {
		id, _ := extractInt64(payload, task.KeyEntityID)
		seen = append(seen, id)
		return nil
	}))
	registry.Register(task.OperationEmbedEvent, funcHandler(func(context.Context, map[string]any) error {
		panic("boom")
	}))
	w := NewWorker(store, registry, quietLogger())

	_, _ = store.Save(ctx, task.NewEmbeddingTask(task.OperationEmbedEvent, 1, ""))
	_, _ = store.Save(ctx, task.NewEmbeddingTask(task.OperationEmbedProfile, 2, ""))
	_, _ = store.Save(ctx, task.NewEmbeddingTask(task.Operation("atas.unknown"), 3, ""))

	for range 3 {
		processed, err := w.ProcessOne(ctx)
		require.NoError(t, err, "panics and unknown operations are logged, not returned")
		assert.True(t, processed)
	}

	processed, err := w.ProcessOne(ctx)
	require.NoError(t, err)
	assert.False(t, processed)
	assert.Equal(t, []int64{2}, seen)
}

type failingDequeue struct{ memTasks }

func (*failingDequeue) Dequeue(context.Context) (task.Task, bool, error) {
	return task.Task{}, false, errors.New("database is locked")
}

func TestWorker_ProcessOneStoreError(t *testing.T) {
	w := NewWorker(&failingDequeue{}, NewRegistry(), quietLogger())
	_, err := w.ProcessOne(context.Background())
	assert.Error(t, err)
}

func TestWorker_StartStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store := &memTasks{}
	registry := NewRegistry()
	var done atomic.Int64
	registry.Register(task.OperationEmbedProfile, funcHandler(func(context.Context, map[string]any) error {
		done.Add(1)
		return nil
	}))

	for i := range 5 {
		_, _ = store.Save(context.Background(), task.NewEmbeddingTask(task.OperationEmbedProfile, int64(i+1), ""))
	}

	w := NewWorker(store, registry, quietLogger()).
		WithPollPeriod(5 * time.Millisecond).
		WithConcurrency(2)
	w.Start(context.Background())

	require.Eventually(t, func() bool { return done.Load() == 5 }, 2*time.Second, 5*time.Millisecond)
	w.Stop()
	w.Stop()
}

func TestWorker_RunReturnsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	w := NewWorker(&memTasks{}, NewRegistry(), quietLogger()).WithPollPeriod(time.Millisecond)

	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.HasHandler(task.OperationEmbedEvent))
	r.Register(task.OperationEmbedEvent, funcHandler(func(context.Context, map[string]any) error { return nil }))
	assert.True(t, r.HasHandler(task.OperationEmbedEvent))
	assert.Equal(t, []task.Operation{task.OperationEmbedEvent}, r.Operations())
}
