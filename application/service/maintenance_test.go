package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/atas-platform/atas/domain/account"
	"github.com/atas-platform/atas/domain/embedding"
	"github.com/atas-platform/atas/domain/task"
)

func TestKinds(t *testing.T) {
	all, err := Kinds("all")
	require.NoError(t, err)
	assert.Equal(t, []embedding.Kind{embedding.KindProfile, embedding.KindEvent}, all)

	one, err := Kinds("event")
	require.NoError(t, err)
	assert.Equal(t, []embedding.Kind{embedding.KindEvent}, one)

	_, err = Kinds("snippet")
	assert.Error(t, err)
}

func TestMaintenance_MigrateDimensionKeepsRows(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	ada, _ := seedExperts(t, e)

	before, err := e.profileVectors.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), before)

	queued, err := e.maintenance.MigrateDimension(ctx, 3, embedding.KindProfile)
	require.NoError(t, err)
	assert.Equal(t, 3, queued)

	after, err := e.profileVectors.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after, "migration clears vectors, not rows")

	rec, err := e.profileVectors.Get(ctx, ada.UserID)
	require.NoError(t, err)
	assert.False(t, rec.HasVector())
	assert.Contains(t, rec.SourceText(), "Weekdays after 7pm")

	res, err := e.search.Profiles(ctx, "Tuesday evening")
	require.NoError(t, err)
	assert.Equal(t, ModeText, res.Mode, "no vectors until the jobs run")

	assert.Equal(t, 3, e.drain(t))
	res, err = e.search.Profiles(ctx, "Tuesday evening")
	require.NoError(t, err)
	assert.Equal(t, ModeSemantic, res.Mode)
	assert.Equal(t, ada.UserID, res.Hits[0].Item.User.ID())

	_, err = e.maintenance.MigrateDimension(ctx, 0, embedding.KindProfile)
	assert.ErrorIs(t, err, embedding.ErrInvalidInput)
}

func TestMaintenance_Reembed(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	seedExperts(t, e)

	n, err := e.maintenance.Reembed(ctx, embedding.KindProfile, embedding.KindEvent)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	pending, err := e.queue.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	for _, p := range pending {
		assert.Equal(t, task.OperationEmbedProfile, p.Operation())
		assert.NotContains(t, p.Payload(), task.KeySourceText, "text is rebuilt by the handler")
	}
}

func TestBackfill_Sweep(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	seedExperts(t, e)
	late := e.register(t, "late@example.com", "Late Evening", account.RoleExpert)

	b := NewBackfill(time.Minute, e.queue, quietLogger(), e.profileVectors, e.eventVectors)
	assert.Equal(t, 1, b.Sweep(ctx))
	assert.Equal(t, 1, e.drain(t))

	rec, err := e.profileVectors.Get(ctx, late.UserID)
	require.NoError(t, err)
	assert.True(t, rec.HasVector())
	assert.Zero(t, b.Sweep(ctx))
}

func TestBackfill_StartStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	q := NewQueue(&memTasks{}, quietLogger())
	NewBackfill(0, q, quietLogger()).Start(context.Background())

	b := NewBackfill(time.Millisecond, q, quietLogger())
	b.Start(context.Background())
	time.Sleep(5 * time.Millisecond)
	b.Stop()
	b.Stop()
}

func TestQueue_DedupAndDrain(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	require.NoError(t, e.queue.EnqueueEmbedding(ctx, task.OperationEmbedProfile, 7, "first"))
	require.NoError(t, e.queue.EnqueueEmbedding(ctx, task.OperationEmbedProfile, 7, "second"))
	require.NoError(t, e.queue.EnqueueEmbedding(ctx, task.OperationEmbedEvent, 7, "event"))

	n, err := e.queue.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	op := task.OperationEmbedProfile
	pending, err := e.queue.List(ctx, &TaskListParams{Operation: &op})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "second", pending[0].Payload()[task.KeySourceText], "last writer wins")

	got, err := e.queue.Get(ctx, pending[0].ID())
	require.NoError(t, err)
	assert.Equal(t, pending[0].DedupKey(), got.DedupKey())

	removed, err := e.queue.DrainForEntity(ctx, task.OperationEmbedProfile, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	removed, err = e.queue.DrainForEntity(ctx, task.OperationEmbedProfile, 7)
	require.NoError(t, err)
	assert.Zero(t, removed)

	n, err = e.queue.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
