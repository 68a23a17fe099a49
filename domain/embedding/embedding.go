// Package embedding holds the vector types behind semantic search: the
// stored record per entity, the store contract, and the generator contract.
package embedding

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atas-platform/atas/domain"
)

// Kind names the entity type an embedding belongs to.
type Kind string

// Kind values.
const (
	KindProfile Kind = "profile"
	KindEvent   Kind = "event"
)

// Table returns the embedding table name for the kind.
func (k Kind) Table() string {
	return string(k) + "_embeddings"
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindProfile || k == KindEvent
}

// ParseKind converts a string to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: unknown embedding kind %q", ErrInvalidInput, s)
	}
	return k, nil
}

// Errors returned by stores and generators.
var (
	ErrNotFound          = fmt.Errorf("embedding %w", domain.ErrNotFound)
	ErrInvalidInput      = fmt.Errorf("invalid embedding input: %w", domain.ErrValidation)
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Record is the latest embedding of one entity.
type Record struct {
	entityID   int64
	sourceText string
	vector     []float32
	model      string
	version    int
	createdAt  time.Time
}

// NewRecord creates a Record ready to be upserted.
func NewRecord(entityID int64, sourceText string, vector []float32, model string) Record {
	return Record{
		entityID:   entityID,
		sourceText: sourceText,
		vector:     copyVector(vector),
		model:      model,
	}
}

// RestoreRecord reconstructs a stored Record.
func RestoreRecord(entityID int64, sourceText string, vector []float32, model string, version int, createdAt time.Time) Record {
	r := NewRecord(entityID, sourceText, vector, model)
	r.version = version
	r.createdAt = createdAt
	return r
}

// EntityID returns the owning entity id.
func (r Record) EntityID() int64 { return r.entityID }

// SourceText returns the text that was embedded.
func (r Record) SourceText() string { return r.sourceText }

// Vector returns a copy of the vector; nil when the row holds no vector.
func (r Record) Vector() []float32 { return copyVector(r.vector) }

// HasVector reports whether the record carries a vector.
func (r Record) HasVector() bool { return len(r.vector) > 0 }

// Model returns the provider model id.
func (r Record) Model() string { return r.model }

// Version counts overwrites of this entity's row, starting at 1.
func (r Record) Version() int { return r.version }

// CreatedAt returns when the row was last written.
func (r Record) CreatedAt() time.Time { return r.createdAt }

// Match is one nearest-neighbour hit.
type Match struct {
	entityID int64
	distance float64
}

// NewMatch creates a Match.
func NewMatch(entityID int64, distance float64) Match {
	return Match{entityID: entityID, distance: distance}
}

// EntityID returns the matched entity.
func (m Match) EntityID() int64 { return m.entityID }

// Distance is the cosine distance: 0 identical, 2 opposite.
func (m Match) Distance() float64 { return m.distance }

// Similarity maps distance onto 0..1, higher is closer.
func (m Match) Similarity() float64 { return 1 - m.distance/2 }

// IDs returns the entity ids of matches in order.
func IDs(matches []Match) []int64 {
	ids := make([]int64, len(matches))
	for i, m := range matches {
		ids[i] = m.entityID
	}
	return ids
}

// ValidateDimension checks v has exactly dim elements.
func ValidateDimension(v []float32, dim int) error {
	if len(v) != dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), dim)
	}
	return nil
}

func copyVector(v []float32) []float32 {
	if v == nil {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
