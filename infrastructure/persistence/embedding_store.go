package persistence

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/atas-platform/atas/domain/embedding"
	"github.com/atas-platform/atas/internal/database"
)

// upsertColumns are replaced wholesale when an entity is re-embedded.
var upsertColumns = []string{"source_text", "embedding", "model_name", "created_at"}

// NewEmbeddingStore opens the embedding store for kind on whichever backend
// db points at, creating its table when missing.
func NewEmbeddingStore(ctx context.Context, db database.Database, kind embedding.Kind, dimension int, logger *slog.Logger) (embedding.Store, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: kind %q", embedding.ErrInvalidInput, kind)
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", embedding.ErrInvalidInput, dimension)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "embedding_store", "kind", string(kind))
	if db.IsPostgres() {
		return NewPgvectorEmbeddingStore(ctx, db, kind, dimension, logger)
	}
	return NewSQLiteEmbeddingStore(ctx, db, kind, dimension, logger)
}

// ownerJoin joins an embedding table to the rows it describes so that
// nearest-neighbour filters can use the owner's columns.
func ownerJoin(kind embedding.Kind) string {
	table := kind.Table()
	switch kind {
	case embedding.KindProfile:
		return fmt.Sprintf("JOIN profiles ON profiles.user_id = %s.entity_id JOIN users ON users.id = profiles.user_id", table)
	default:
		return fmt.Sprintf("JOIN events ON events.id = %s.entity_id", table)
	}
}

// ownerKey returns the owner table and its id column for kind.
func ownerKey(kind embedding.Kind) (table, column string) {
	if kind == embedding.KindProfile {
		return "profiles", "user_id"
	}
	return "events", "id"
}

// missingIDs lists owners that have no row or a row without a vector,
// lowest id first.
func missingIDs(db *gorm.DB, kind embedding.Kind, limit int) ([]int64, error) {
	owner, key := ownerKey(kind)
	table := kind.Table()
	q := db.Table(owner).
		Joins(fmt.Sprintf("LEFT JOIN %s ON %s.entity_id = %s.%s", table, table, owner, key)).
		Where(table + ".embedding IS NULL").
		Order(owner + "." + key + " ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var ids []int64
	if err := q.Pluck(owner+"."+key, &ids).Error; err != nil {
		return nil, fmt.Errorf("find %s without embeddings: %w", owner, err)
	}
	return ids, nil
}

// upsertClause inserts a row or overwrites it in place, counting versions.
func upsertClause(table string) clause.OnConflict {
	set := clause.AssignmentColumns(upsertColumns)
	set = append(set, clause.Assignment{
		Column: clause.Column{Name: "embedding_version"},
		Value:  gorm.Expr(table + ".embedding_version + 1"),
	})
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "entity_id"}},
		DoUpdates: set,
	}
}

// countRows counts every row of an embedding table.
func countRows(db *gorm.DB, table string) (int64, error) {
	var n int64
	if err := db.Table(table).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// deleteRow removes an entity's row; a missing row is not an error.
func deleteRow(db *gorm.DB, table string, entityID int64) error {
	if err := db.Exec("DELETE FROM "+table+" WHERE entity_id = ?", entityID).Error; err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return nil
}

// vectorJSON stores a []float32 as JSON text; nil maps to NULL.
type vectorJSON []float32

// Scan implements sql.Scanner.
func (v *vectorJSON) Scan(value any) error {
	data, err := scanBytes(value)
	if err != nil || len(data) == 0 {
		*v = nil
		return err
	}
	var out []float32
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("decode vector: %w", err)
	}
	*v = out
	return nil
}

// GormDataType keeps GORM from treating the slice as an association.
func (vectorJSON) GormDataType() string { return "text" }

// Value implements driver.Valuer.
func (v vectorJSON) Value() (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal([]float32(v))
	return string(raw), err
}

// EmbeddingMeta holds the columns shared by both embedding table layouts.
type EmbeddingMeta struct {
	EntityID         int64     `gorm:"column:entity_id;primaryKey;autoIncrement:false"`
	SourceText       string    `gorm:"column:source_text"`
	ModelName        string    `gorm:"column:model_name"`
	EmbeddingVersion int       `gorm:"column:embedding_version"`
	CreatedAt        time.Time `gorm:"column:created_at"`
}

func newEmbeddingMeta(r embedding.Record) EmbeddingMeta {
	return EmbeddingMeta{
		EntityID:         r.EntityID(),
		SourceText:       r.SourceText(),
		ModelName:        r.Model(),
		EmbeddingVersion: 1,
		CreatedAt:        time.Now().UTC(),
	}
}

func (m EmbeddingMeta) toRecord(vector []float32) embedding.Record {
	return embedding.RestoreRecord(m.EntityID, m.SourceText, vector, m.ModelName, m.EmbeddingVersion, m.CreatedAt)
}

// CosineDistance returns 1 - cos(a, b), in 0..2. Vectors of different
// length or zero magnitude are not comparable and report ok=false.
func CosineDistance(a, b []float32) (distance float64, ok bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}
	var dot, magA, magB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		magA += x * x
		magB += y * y
	}
	if magA == 0 || magB == 0 {
		return 0, false
	}
	return 1 - dot/(math.Sqrt(magA)*math.Sqrt(magB)), true
}

// storedVector is a candidate for in-process ranking.
type storedVector struct {
	entityID int64
	vector   []float32
}

// rankNearest scores candidates against query and returns the closest k,
// ties broken by entity id. maxDistance <= 0 disables the threshold.
func rankNearest(query []float32, candidates []storedVector, k int, maxDistance float64) []embedding.Match {
	if k <= 0 {
		return []embedding.Match{}
	}
	matches := make([]embedding.Match, 0, len(candidates))
	for _, c := range candidates {
		d, ok := CosineDistance(query, c.vector)
		if !ok {
			continue
		}
		if maxDistance > 0 && d >= maxDistance {
			continue
		}
		matches = append(matches, embedding.NewMatch(c.entityID, d))
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Distance() != matches[j].Distance() {
			return matches[i].Distance() < matches[j].Distance()
		}
		return matches[i].EntityID() < matches[j].EntityID()
	})
	if k < len(matches) {
		matches = matches[:k]
	}
	return matches
}
