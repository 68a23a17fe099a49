package persistence

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/atas-platform/atas/domain/embedding"
	"github.com/atas-platform/atas/internal/database"
)

// statementLog records the SQL GORM builds in dry-run mode.
type statementLog struct {
	mu  sync.Mutex
	sql []string
}

func (l *statementLog) LogMode(logger.LogLevel) logger.Interface { return l }
func (l *statementLog) Info(context.Context, string, ...any)     {}
func (l *statementLog) Warn(context.Context, string, ...any)     {}
func (l *statementLog) Error(context.Context, string, ...any)    {}

func (l *statementLog) Trace(_ context.Context, _ time.Time, fc func() (string, int64), _ error) {
	stmt, _ := fc()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sql = append(l.sql, stmt)
}

func (l *statementLog) statements() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.sql...)
}

var errOffline = errors.New("no database connection")

// offlinePool satisfies GORM's connection interfaces without a server.
// Dry-run sessions never reach it except to open and close transactions.
type offlinePool struct{}

func (offlinePool) PrepareContext(context.Context, string) (*sql.Stmt, error) {
	return nil, errOffline
}

func (offlinePool) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, errOffline
}

func (offlinePool) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errOffline
}

func (offlinePool) QueryRowContext(context.Context, string, ...any) *sql.Row { return nil }

func (p offlinePool) BeginTx(context.Context, *sql.TxOptions) (gorm.ConnPool, error) {
	return &offlineTx{p}, nil
}

type offlineTx struct{ offlinePool }

func (offlineTx) Commit() error   { return nil }
func (offlineTx) Rollback() error { return nil }

func newDryRunPgvectorStore(t *testing.T, kind embedding.Kind, dimension int) (*PgvectorEmbeddingStore, *statementLog) {
	t.Helper()
	log := &statementLog{}
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: offlinePool{}}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               log,
	})
	require.NoError(t, err)

	s := &PgvectorEmbeddingStore{db: database.FromGORM(gdb), kind: kind, logger: slog.New(slog.DiscardHandler)}
	s.dimension.Store(int64(dimension))
	return s, log
}

func TestPgvectorEmbeddingStore_MigrateDimensionRebuildsIndex(t *testing.T) {
	s, log := newDryRunPgvectorStore(t, embedding.KindEvent, 3)

	require.NoError(t, s.MigrateDimension(context.Background(), 5))
	assert.Equal(t, 5, s.Dimension())

	stmts := log.statements()
	require.Len(t, stmts, 3)
	assert.Equal(t, `DROP INDEX IF EXISTS "event_embeddings_embedding_hnsw_idx"`, stmts[0])
	assert.Equal(t, `ALTER TABLE "event_embeddings" ALTER COLUMN embedding TYPE vector(5) USING NULL`, stmts[1])
	assert.Contains(t, stmts[2], `CREATE INDEX IF NOT EXISTS "event_embeddings_embedding_hnsw_idx"`)
	assert.Contains(t, stmts[2], "USING hnsw (embedding vector_cosine_ops)")

	assert.ErrorIs(t, s.MigrateDimension(context.Background(), 0), embedding.ErrInvalidInput)
	assert.Len(t, log.statements(), 3)
}

func TestPgvectorEmbeddingStore_NearestQuery(t *testing.T) {
	s, log := newDryRunPgvectorStore(t, embedding.KindEvent, 3)

	_, err := s.Nearest(context.Background(), embedding.NearestQuery{
		Vector:      []float32{1, 0, 0},
		TopK:        5,
		MaxDistance: 0.5,
	})
	assert.ErrorIs(t, err, gorm.ErrDryRunModeUnsupported)

	stmts := log.statements()
	require.NotEmpty(t, stmts)
	q := stmts[len(stmts)-1]
	assert.Contains(t, q, "event_embeddings.embedding <=> '[1,0,0]'::vector AS distance")
	assert.Contains(t, q, "JOIN events ON events.id = event_embeddings.entity_id")
	assert.Contains(t, q, "event_embeddings.embedding IS NOT NULL")
	assert.Contains(t, q, "event_embeddings.embedding <=> '[1,0,0]'::vector < 0.5")
	assert.Contains(t, q, "ORDER BY distance ASC, entity_id ASC LIMIT 5")
}

func TestPgvectorEmbeddingStore_NearestRejectsWrongWidth(t *testing.T) {
	s, log := newDryRunPgvectorStore(t, embedding.KindProfile, 3)

	_, err := s.Nearest(context.Background(), embedding.NearestQuery{Vector: []float32{1, 0}, TopK: 5})
	assert.ErrorIs(t, err, embedding.ErrDimensionMismatch)
	assert.Empty(t, log.statements())
}

func TestPgvectorEmbeddingStore_UpsertBumpsVersion(t *testing.T) {
	s, log := newDryRunPgvectorStore(t, embedding.KindEvent, 3)

	require.NoError(t, s.Upsert(context.Background(), embedding.NewRecord(9, "Go meetup", []float32{1, 2, 3}, "m")))

	stmts := log.statements()
	require.NotEmpty(t, stmts)
	q := stmts[len(stmts)-1]
	assert.Contains(t, q, `INSERT INTO "event_embeddings"`)
	assert.Contains(t, q, "'[1,2,3]'")
	assert.Contains(t, q, `ON CONFLICT ("entity_id") DO UPDATE SET`)
	assert.Contains(t, q, `"embedding"="excluded"."embedding"`)
	assert.Contains(t, q, `"embedding_version"=event_embeddings.embedding_version + 1`)
}
