package persistence

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"

	"github.com/atas-platform/atas/domain/account"
	"github.com/atas-platform/atas/domain/embedding"
	"github.com/atas-platform/atas/domain/event"
	"github.com/atas-platform/atas/domain/repository"
	"github.com/atas-platform/atas/internal/database"
)

// newTestDB creates an in-memory SQLite database with the schema applied.
// Cannot use testdb package here due to import cycle (testdb imports persistence).
func newTestDB(t *testing.T) database.Database {
	t.Helper()
	db, err := database.NewDatabaseWithLogger(context.Background(), "sqlite:///:memory:", slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, AutoMigrate(db))
	return db
}

func seedExpert(t *testing.T, db database.Database, email, name string, visibility account.Visibility) account.User {
	t.Helper()
	ctx := context.Background()
	u, err := account.NewUser(email, "hash", name, account.RoleExpert)
	require.NoError(t, err)
	u, err = NewUserStore(db).Save(ctx, u)
	require.NoError(t, err)
	p := account.RestoreProfile(u.ID(), "Engineer", "", nil, nil, "", visibility, u.CreatedAt())
	_, err = NewProfileStore(db).Save(ctx, p)
	require.NoError(t, err)
	return u
}

func newProfileEmbeddings(t *testing.T, db database.Database, dim int) embedding.Store {
	t.Helper()
	store, err := NewEmbeddingStore(context.Background(), db, embedding.KindProfile, dim, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return store
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float64
		ok       bool
	}{
		{name: "identical vectors", a: []float32{1, 0, 0}, b: []float32{1, 0, 0}, expected: 0, ok: true},
		{name: "opposite vectors", a: []float32{1, 0, 0}, b: []float32{-1, 0, 0}, expected: 2, ok: true},
		{name: "orthogonal vectors", a: []float32{1, 0, 0}, b: []float32{0, 1, 0}, expected: 1, ok: true},
		{name: "scaled vectors", a: []float32{1, 1}, b: []float32{3, 3}, expected: 0, ok: true},
		{name: "zero vector", a: []float32{0, 0, 0}, b: []float32{1, 0, 0}, ok: false},
		{name: "empty vectors", a: []float32{}, b: []float32{}, ok: false},
		{name: "mismatched lengths", a: []float32{1, 0}, b: []float32{1, 0, 0}, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CosineDistance(tt.a, tt.b)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.expected, got, 1e-6)
			}
		})
	}
}

func TestRankNearest(t *testing.T) {
	candidates := []storedVector{
		{entityID: 3, vector: []float32{0, 1}},
		{entityID: 1, vector: []float32{1, 0}},
		{entityID: 2, vector: []float32{1, 0}},
		{entityID: 4, vector: []float32{-1, 0}},
	}

	t.Run("orders by distance then id", func(t *testing.T) {
		got := rankNearest([]float32{1, 0}, candidates, 10, 0)
		assert.Equal(t, []int64{1, 2, 3, 4}, embedding.IDs(got))
	})

	t.Run("threshold excludes far matches", func(t *testing.T) {
		got := rankNearest([]float32{1, 0}, candidates, 10, 1.0)
		assert.Equal(t, []int64{1, 2}, embedding.IDs(got))
	})

	t.Run("truncates to k", func(t *testing.T) {
		got := rankNearest([]float32{1, 0}, candidates, 1, 0)
		assert.Equal(t, []int64{1}, embedding.IDs(got))
	})

	t.Run("zero k", func(t *testing.T) {
		assert.Empty(t, rankNearest([]float32{1, 0}, candidates, 0, 0))
	})
}

func TestSQLiteEmbeddingStore_UpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	u := seedExpert(t, db, "a@example.com", "Ada", account.VisibilityPublic)
	store := newProfileEmbeddings(t, db, 3)

	require.NoError(t, store.Upsert(ctx, embedding.NewRecord(u.ID(), "first", []float32{1, 0, 0}, "m1")))
	require.NoError(t, store.Upsert(ctx, embedding.NewRecord(u.ID(), "second", []float32{0, 1, 0}, "m2")))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err := store.Get(ctx, u.ID())
	require.NoError(t, err)
	assert.Equal(t, "second", got.SourceText())
	assert.Equal(t, "m2", got.Model())
	assert.Equal(t, []float32{0, 1, 0}, got.Vector())
	assert.Equal(t, 2, got.Version())
}

func TestSQLiteEmbeddingStore_UpsertWithoutVectorIsIgnored(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	store := newProfileEmbeddings(t, db, 3)

	require.NoError(t, store.Upsert(ctx, embedding.NewRecord(7, "text", nil, "m")))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSQLiteEmbeddingStore_UpsertRejectsWrongWidth(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	store := newProfileEmbeddings(t, db, 3)

	err := store.Upsert(ctx, embedding.NewRecord(7, "text", []float32{1, 2}, "m"))
	assert.ErrorIs(t, err, embedding.ErrDimensionMismatch)
}

func TestSQLiteEmbeddingStore_Nearest(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	near := seedExpert(t, db, "near@example.com", "Near", account.VisibilityPublic)
	far := seedExpert(t, db, "far@example.com", "Far", account.VisibilityPublic)
	hidden := seedExpert(t, db, "hidden@example.com", "Hidden", account.VisibilityPrivate)
	store := newProfileEmbeddings(t, db, 2)

	require.NoError(t, store.Upsert(ctx, embedding.NewRecord(near.ID(), "near", []float32{1, 0.1}, "m")))
	require.NoError(t, store.Upsert(ctx, embedding.NewRecord(far.ID(), "far", []float32{0, 1}, "m")))
	require.NoError(t, store.Upsert(ctx, embedding.NewRecord(hidden.ID(), "hidden", []float32{1, 0}, "m")))

	t.Run("ranks ascending distance", func(t *testing.T) {
		got, err := store.Nearest(ctx, embedding.NearestQuery{Vector: []float32{1, 0}, TopK: 10, MaxDistance: 2})
		require.NoError(t, err)
		assert.Equal(t, []int64{hidden.ID(), near.ID(), far.ID()}, embedding.IDs(got))
	})

	t.Run("filters by owner columns", func(t *testing.T) {
		got, err := store.Nearest(ctx, embedding.NearestQuery{
			Vector:      []float32{1, 0},
			TopK:        10,
			MaxDistance: 2,
			Options:     []repository.Option{account.WithVisibility(account.VisibilityPublic)},
		})
		require.NoError(t, err)
		assert.Equal(t, []int64{near.ID(), far.ID()}, embedding.IDs(got))
	})

	t.Run("top k bounds result", func(t *testing.T) {
		got, err := store.Nearest(ctx, embedding.NearestQuery{Vector: []float32{1, 0}, TopK: 1, MaxDistance: 2})
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("query of wrong width", func(t *testing.T) {
		_, err := store.Nearest(ctx, embedding.NearestQuery{Vector: []float32{1, 0, 0}, TopK: 1})
		assert.ErrorIs(t, err, embedding.ErrDimensionMismatch)
	})
}

func TestSQLiteEmbeddingStore_NearestSkipsOrphans(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	store := newProfileEmbeddings(t, db, 2)

	require.NoError(t, store.Upsert(ctx, embedding.NewRecord(999, "orphan", []float32{1, 0}, "m")))

	got, err := store.Nearest(ctx, embedding.NearestQuery{Vector: []float32{1, 0}, TopK: 5})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteEmbeddingStore_EventFilters(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	events := NewEventStore(db)

	organizer := seedExpert(t, db, "org@example.com", "Org", account.VisibilityPublic)
	draft, err := event.NewEvent(organizer.ID(), event.Details{Title: "Draft", Format: event.FormatOnline, StartsAt: organizer.CreatedAt()})
	require.NoError(t, err)
	draft, err = events.Save(ctx, draft)
	require.NoError(t, err)
	live, err := event.NewEvent(organizer.ID(), event.Details{Title: "Live", Format: event.FormatOnline, StartsAt: organizer.CreatedAt()})
	require.NoError(t, err)
	live, err = live.Publish()
	require.NoError(t, err)
	live, err = events.Save(ctx, live)
	require.NoError(t, err)

	store, err := NewEmbeddingStore(ctx, db, embedding.KindEvent, 2, nil)
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, embedding.NewRecord(draft.ID(), "draft", []float32{1, 0}, "m")))
	require.NoError(t, store.Upsert(ctx, embedding.NewRecord(live.ID(), "live", []float32{1, 0}, "m")))

	got, err := store.Nearest(ctx, embedding.NearestQuery{
		Vector:  []float32{1, 0},
		TopK:    5,
		Options: []repository.Option{event.WithStatus(event.StatusPublished)},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{live.ID()}, embedding.IDs(got))
}

func TestSQLiteEmbeddingStore_GetAndDelete(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	store := newProfileEmbeddings(t, db, 2)

	_, err := store.Get(ctx, 1)
	assert.True(t, errors.Is(err, embedding.ErrNotFound))

	require.NoError(t, store.Upsert(ctx, embedding.NewRecord(1, "x", []float32{1, 0}, "m")))
	require.NoError(t, store.Delete(ctx, 1))
	require.NoError(t, store.Delete(ctx, 1))

	_, err = store.Get(ctx, 1)
	assert.ErrorIs(t, err, embedding.ErrNotFound)
}

func TestSQLiteEmbeddingStore_MigrateDimension(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	store := newProfileEmbeddings(t, db, 2)

	require.NoError(t, store.Upsert(ctx, embedding.NewRecord(1, "one", []float32{1, 0}, "m")))
	require.NoError(t, store.Upsert(ctx, embedding.NewRecord(2, "two", []float32{0, 1}, "m")))

	require.NoError(t, store.MigrateDimension(ctx, 3))
	assert.Equal(t, 3, store.Dimension())

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	rec, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, rec.HasVector())
	assert.Equal(t, "one", rec.SourceText())

	require.NoError(t, store.Upsert(ctx, embedding.NewRecord(1, "one", []float32{1, 0, 0}, "m")))
	assert.ErrorIs(t, store.MigrateDimension(ctx, 0), embedding.ErrInvalidInput)
}

func TestNewEmbeddingStore_RejectsBadInput(t *testing.T) {
	db := newTestDB(t)
	_, err := NewEmbeddingStore(context.Background(), db, embedding.Kind("nope"), 3, nil)
	assert.ErrorIs(t, err, embedding.ErrInvalidInput)
	_, err = NewEmbeddingStore(context.Background(), db, embedding.KindEvent, 0, nil)
	assert.ErrorIs(t, err, embedding.ErrInvalidInput)
}

func TestSQLiteEmbeddingStore_Missing(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	store := newProfileEmbeddings(t, db, 2)

	a := seedExpert(t, db, "a@example.com", "A", account.VisibilityPublic)
	b := seedExpert(t, db, "b@example.com", "B", account.VisibilityPublic)
	c := seedExpert(t, db, "c@example.com", "C", account.VisibilityPrivate)

	require.NoError(t, store.Upsert(ctx, embedding.NewRecord(b.ID(), "b", []float32{1, 0}, "m")))

	missing, err := store.Missing(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID(), c.ID()}, missing)

	require.NoError(t, store.MigrateDimension(ctx, 3))
	missing, err = store.Missing(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID(), b.ID()}, missing)
}

func TestSQLiteEmbeddingStore_ReopenAdoptsStoredWidth(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	store := newProfileEmbeddings(t, db, 2)
	require.NoError(t, store.Upsert(ctx, embedding.NewRecord(1, "one", []float32{1, 0}, "m")))

	reopened := newProfileEmbeddings(t, db, 3)
	assert.Equal(t, 2, reopened.Dimension())

	err := reopened.Upsert(ctx, embedding.NewRecord(2, "two", []float32{1, 0, 0}, "m"))
	assert.ErrorIs(t, err, embedding.ErrDimensionMismatch)
	require.NoError(t, reopened.Upsert(ctx, embedding.NewRecord(2, "two", []float32{0, 1}, "m")))

	fresh := newProfileEmbeddings(t, newTestDB(t), 3)
	assert.Equal(t, 3, fresh.Dimension())
}

func TestVectorJSON_IsAPlainColumn(t *testing.T) {
	s, err := schema.Parse(&sqliteEmbeddingModel{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)
	field := s.LookUpField("embedding")
	require.NotNil(t, field)
	assert.Equal(t, schema.DataType("text"), field.DataType)
	assert.Empty(t, s.Relationships.Relations)
}
