package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/atas-platform/atas/domain/embedding"
	"github.com/atas-platform/atas/internal/database"
)

// SQL specific to pgvector (extension, index, catalog).
const (
	pgvCreateExtension = `CREATE EXTENSION IF NOT EXISTS vector`

	pgvCreateTableTemplate = `
CREATE TABLE IF NOT EXISTS %s (
    entity_id BIGINT PRIMARY KEY,
    source_text TEXT NOT NULL DEFAULT '',
    embedding VECTOR(%d),
    model_name VARCHAR(255) NOT NULL DEFAULT '',
    embedding_version INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

	pgvCreateIndexTemplate = `
CREATE INDEX IF NOT EXISTS %s
ON %s
USING hnsw (embedding vector_cosine_ops)`

	pgvCheckDimension = `
SELECT a.atttypmod AS dimension
FROM pg_attribute a
JOIN pg_class c ON a.attrelid = c.oid
WHERE c.relname = ?
AND a.attname = 'embedding'`
)

// ErrPgvectorInitializationFailed indicates pgvector initialization failed.
var ErrPgvectorInitializationFailed = errors.New("failed to initialize pgvector store")

// pgEmbeddingModel is a row of an embedding table on PostgreSQL.
type pgEmbeddingModel struct {
	EmbeddingMeta
	Embedding *pgvector.Vector `gorm:"column:embedding"`
}

// PgvectorEmbeddingStore implements embedding.Store with the pgvector
// extension and an HNSW cosine index.
type PgvectorEmbeddingStore struct {
	db        database.Database
	kind      embedding.Kind
	dimension atomic.Int64
	logger    *slog.Logger
}

// NewPgvectorEmbeddingStore creates the extension, table, and index when
// missing. A column of another width is kept as-is and reported; the
// store then uses that width until MigrateDimension runs.
func NewPgvectorEmbeddingStore(ctx context.Context, db database.Database, kind embedding.Kind, dimension int, logger *slog.Logger) (*PgvectorEmbeddingStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &PgvectorEmbeddingStore{db: db, kind: kind, logger: logger}
	s.dimension.Store(int64(dimension))

	rawDB := db.Session(ctx)
	if err := rawDB.Exec(pgvCreateExtension).Error; err != nil {
		return nil, errors.Join(ErrPgvectorInitializationFailed, fmt.Errorf("create extension: %w", err))
	}
	if err := rawDB.Exec(fmt.Sprintf(pgvCreateTableTemplate, s.quotedTable(), dimension)).Error; err != nil {
		return nil, errors.Join(ErrPgvectorInitializationFailed, fmt.Errorf("create table: %w", err))
	}
	s.createIndex(rawDB)

	var dbDimension int
	result := rawDB.Raw(pgvCheckDimension, kind.Table()).Scan(&dbDimension)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, errors.Join(ErrPgvectorInitializationFailed, fmt.Errorf("check dimension: %w", result.Error))
	}
	if result.RowsAffected > 0 && dbDimension > 0 && dbDimension != dimension {
		logger.Warn("vector column does not match configured dimension; run migrate-dimension",
			"stored", dbDimension, "configured", dimension)
		s.dimension.Store(int64(dbDimension))
	}

	return s, nil
}

func (s *PgvectorEmbeddingStore) quotedTable() string {
	return pq.QuoteIdentifier(s.kind.Table())
}

func (s *PgvectorEmbeddingStore) indexName() string {
	return pq.QuoteIdentifier(s.kind.Table() + "_embedding_hnsw_idx")
}

// createIndex builds the HNSW index. HNSW caps indexed widths, so failure
// leaves the table usable through sequential scans.
func (s *PgvectorEmbeddingStore) createIndex(db *gorm.DB) {
	sql := fmt.Sprintf(pgvCreateIndexTemplate, s.indexName(), s.quotedTable())
	if err := db.Exec(sql).Error; err != nil {
		s.logger.Warn("failed to create vector index", "error", err)
	}
}

// Kind returns the entity kind.
func (s *PgvectorEmbeddingStore) Kind() embedding.Kind { return s.kind }

// Dimension returns the vector width.
func (s *PgvectorEmbeddingStore) Dimension() int { return int(s.dimension.Load()) }

// Upsert writes the entity's embedding in one statement.
func (s *PgvectorEmbeddingStore) Upsert(ctx context.Context, record embedding.Record) error {
	if !record.HasVector() {
		return nil
	}
	vec := record.Vector()
	if err := embedding.ValidateDimension(vec, s.Dimension()); err != nil {
		return err
	}
	v := pgvector.NewVector(vec)
	model := pgEmbeddingModel{EmbeddingMeta: newEmbeddingMeta(record), Embedding: &v}
	table := s.kind.Table()
	if err := s.db.Session(ctx).Table(table).Clauses(upsertClause(table)).Create(&model).Error; err != nil {
		return fmt.Errorf("upsert %s: %w", table, err)
	}
	return nil
}

// Nearest orders rows by the <=> cosine operator, which the HNSW index serves.
func (s *PgvectorEmbeddingStore) Nearest(ctx context.Context, query embedding.NearestQuery) ([]embedding.Match, error) {
	if err := embedding.ValidateDimension(query.Vector, s.Dimension()); err != nil {
		return nil, err
	}
	if query.TopK <= 0 {
		return []embedding.Match{}, nil
	}
	table := s.kind.Table()
	vec := pgvector.NewVector(query.Vector)
	distance := table + ".embedding <=> ?::vector"

	db := s.db.Session(ctx).Table(table).
		Select(table+".entity_id AS entity_id, "+distance+" AS distance", vec).
		Joins(ownerJoin(s.kind)).
		Where(table + ".embedding IS NOT NULL")
	db = database.ApplyConditions(db, query.Options...)
	if query.MaxDistance > 0 {
		db = db.Where(distance+" < ?", vec, query.MaxDistance)
	}

	var rows []struct {
		EntityID int64   `gorm:"column:entity_id"`
		Distance float64 `gorm:"column:distance"`
	}
	if err := db.Order("distance ASC, entity_id ASC").Limit(query.TopK).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("nearest %s: %w", table, err)
	}

	matches := make([]embedding.Match, len(rows))
	for i, r := range rows {
		matches[i] = embedding.NewMatch(r.EntityID, r.Distance)
	}
	return matches, nil
}

// Get returns the entity's row.
func (s *PgvectorEmbeddingStore) Get(ctx context.Context, entityID int64) (embedding.Record, error) {
	var model pgEmbeddingModel
	err := s.db.Session(ctx).Table(s.kind.Table()).Where("entity_id = ?", entityID).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return embedding.Record{}, fmt.Errorf("%w: %s %d", embedding.ErrNotFound, s.kind, entityID)
	}
	if err != nil {
		return embedding.Record{}, fmt.Errorf("get %s: %w", s.kind.Table(), err)
	}
	var vec []float32
	if model.Embedding != nil {
		vec = model.Embedding.Slice()
	}
	return model.toRecord(vec), nil
}

// Delete removes the entity's row.
func (s *PgvectorEmbeddingStore) Delete(ctx context.Context, entityID int64) error {
	return deleteRow(s.db.Session(ctx), s.kind.Table(), entityID)
}

// Count returns the number of rows.
func (s *PgvectorEmbeddingStore) Count(ctx context.Context) (int64, error) {
	return countRows(s.db.Session(ctx), s.kind.Table())
}

// Missing lists owners without a stored vector.
func (s *PgvectorEmbeddingStore) Missing(ctx context.Context, limit int) ([]int64, error) {
	return missingIDs(s.db.Session(ctx), s.kind, limit)
}

// MigrateDimension retypes the vector column. Vectors of the old width
// cannot be cast, so they are cleared; the index is rebuilt afterwards.
func (s *PgvectorEmbeddingStore) MigrateDimension(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", embedding.ErrInvalidInput, dimension)
	}
	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Exec("DROP INDEX IF EXISTS " + s.indexName()).Error; err != nil {
			return fmt.Errorf("drop index: %w", err)
		}
		alter := fmt.Sprintf("ALTER TABLE %s ALTER COLUMN embedding TYPE vector(%d) USING NULL", s.quotedTable(), dimension)
		if err := tx.Exec(alter).Error; err != nil {
			return fmt.Errorf("alter column: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("migrate %s dimension: %w", s.kind.Table(), err)
	}
	s.createIndex(s.db.Session(ctx))
	previous := s.dimension.Swap(int64(dimension))
	s.logger.Info("embedding dimension migrated", "from", previous, "to", dimension)
	return nil
}
