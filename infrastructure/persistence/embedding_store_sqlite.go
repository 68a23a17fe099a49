package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"gorm.io/gorm"

	"github.com/atas-platform/atas/domain/embedding"
	"github.com/atas-platform/atas/internal/database"
)

// sqliteEmbeddingModel is a row of an embedding table on SQLite, where
// vectors are JSON text.
type sqliteEmbeddingModel struct {
	EmbeddingMeta
	Embedding vectorJSON `gorm:"column:embedding"`
}

// SQLiteEmbeddingStore implements embedding.Store for SQLite.
// Vectors are stored as JSON and ranked in-process.
type SQLiteEmbeddingStore struct {
	db        database.Database
	kind      embedding.Kind
	dimension atomic.Int64
	logger    *slog.Logger
}

// NewSQLiteEmbeddingStore creates the store and its table.
func NewSQLiteEmbeddingStore(ctx context.Context, db database.Database, kind embedding.Kind, dimension int, logger *slog.Logger) (*SQLiteEmbeddingStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SQLiteEmbeddingStore{db: db, kind: kind, logger: logger}
	s.dimension.Store(int64(dimension))

	createTableSQL := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    entity_id INTEGER PRIMARY KEY,
    source_text TEXT NOT NULL DEFAULT '',
    embedding TEXT,
    model_name VARCHAR(255) NOT NULL DEFAULT '',
    embedding_version INTEGER NOT NULL DEFAULT 1,
    created_at DATETIME NOT NULL
)`, kind.Table())
	if err := db.Session(ctx).Exec(createTableSQL).Error; err != nil {
		return nil, fmt.Errorf("create table %s: %w", kind.Table(), err)
	}

	// An existing table keeps its width until migrated.
	var sample sqliteEmbeddingModel
	err := db.Session(ctx).Table(kind.Table()).Where("embedding IS NOT NULL").Limit(1).Take(&sample).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil:
		return nil, fmt.Errorf("inspect %s: %w", kind.Table(), err)
	case len(sample.Embedding) != dimension:
		logger.Warn("stored vectors do not match configured dimension; run migrate-dimension",
			"stored", len(sample.Embedding), "configured", dimension)
		s.dimension.Store(int64(len(sample.Embedding)))
	}

	return s, nil
}

// Kind returns the entity kind.
func (s *SQLiteEmbeddingStore) Kind() embedding.Kind { return s.kind }

// Dimension returns the vector width.
func (s *SQLiteEmbeddingStore) Dimension() int { return int(s.dimension.Load()) }

// Upsert writes the entity's embedding in one statement.
func (s *SQLiteEmbeddingStore) Upsert(ctx context.Context, record embedding.Record) error {
	if !record.HasVector() {
		return nil
	}
	vec := record.Vector()
	if err := embedding.ValidateDimension(vec, s.Dimension()); err != nil {
		return err
	}
	model := sqliteEmbeddingModel{EmbeddingMeta: newEmbeddingMeta(record), Embedding: vectorJSON(vec)}
	table := s.kind.Table()
	if err := s.db.Session(ctx).Table(table).Clauses(upsertClause(table)).Create(&model).Error; err != nil {
		return fmt.Errorf("upsert %s: %w", table, err)
	}
	return nil
}

// Nearest ranks stored vectors of entities matching the query options.
func (s *SQLiteEmbeddingStore) Nearest(ctx context.Context, query embedding.NearestQuery) ([]embedding.Match, error) {
	if err := embedding.ValidateDimension(query.Vector, s.Dimension()); err != nil {
		return nil, err
	}
	table := s.kind.Table()

	var rows []struct {
		EntityID  int64      `gorm:"column:entity_id"`
		Embedding vectorJSON `gorm:"column:embedding"`
	}
	db := s.db.Session(ctx).Table(table).
		Select(table + ".entity_id, " + table + ".embedding").
		Joins(ownerJoin(s.kind)).
		Where(table + ".embedding IS NOT NULL")
	db = database.ApplyConditions(db, query.Options...)
	if err := db.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("load %s: %w", table, err)
	}

	candidates := make([]storedVector, 0, len(rows))
	for _, r := range rows {
		if len(r.Embedding) != s.Dimension() {
			s.logger.Debug("skipping vector of wrong width", "entity_id", r.EntityID, "width", len(r.Embedding))
			continue
		}
		candidates = append(candidates, storedVector{entityID: r.EntityID, vector: r.Embedding})
	}
	return rankNearest(query.Vector, candidates, query.TopK, query.MaxDistance), nil
}

// Get returns the entity's row.
func (s *SQLiteEmbeddingStore) Get(ctx context.Context, entityID int64) (embedding.Record, error) {
	var model sqliteEmbeddingModel
	err := s.db.Session(ctx).Table(s.kind.Table()).Where("entity_id = ?", entityID).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return embedding.Record{}, fmt.Errorf("%w: %s %d", embedding.ErrNotFound, s.kind, entityID)
	}
	if err != nil {
		return embedding.Record{}, fmt.Errorf("get %s: %w", s.kind.Table(), err)
	}
	return model.toRecord(model.Embedding), nil
}

// Delete removes the entity's row.
func (s *SQLiteEmbeddingStore) Delete(ctx context.Context, entityID int64) error {
	return deleteRow(s.db.Session(ctx), s.kind.Table(), entityID)
}

// Count returns the number of rows.
func (s *SQLiteEmbeddingStore) Count(ctx context.Context) (int64, error) {
	return countRows(s.db.Session(ctx), s.kind.Table())
}

// Missing lists owners without a stored vector.
func (s *SQLiteEmbeddingStore) Missing(ctx context.Context, limit int) ([]int64, error) {
	return missingIDs(s.db.Session(ctx), s.kind, limit)
}

// MigrateDimension clears every vector and adopts the new width. SQLite
// has no typed vector column, so only the data changes.
func (s *SQLiteEmbeddingStore) MigrateDimension(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", embedding.ErrInvalidInput, dimension)
	}
	if err := s.db.Session(ctx).Exec("UPDATE " + s.kind.Table() + " SET embedding = NULL").Error; err != nil {
		return fmt.Errorf("clear %s vectors: %w", s.kind.Table(), err)
	}
	previous := s.dimension.Swap(int64(dimension))
	s.logger.Info("embedding dimension migrated", "from", previous, "to", dimension)
	return nil
}
