package embedding

import (
	"context"

	"github.com/atas-platform/atas/domain/repository"
)

// NearestQuery describes a nearest-neighbour lookup.
type NearestQuery struct {
	Vector []float32
	TopK   int
	// MaxDistance excludes matches at or beyond this cosine distance.
	MaxDistance float64
	// Options restrict candidates by columns of the owning entity's tables,
	// e.g. "profiles.visibility" or "events.status".
	Options []repository.Option
}

// Store persists one embedding per entity for a single Kind.
type Store interface {
	// Kind returns the entity kind this store serves.
	Kind() Kind

	// Dimension returns the vector width of the store.
	Dimension() int

	// Upsert inserts or replaces the entity's row in one statement. A record
	// without a vector is ignored.
	Upsert(ctx context.Context, record Record) error

	// Nearest returns rows with a vector ranked by ascending cosine distance.
	Nearest(ctx context.Context, query NearestQuery) ([]Match, error)

	// Get returns the entity's row or ErrNotFound.
	Get(ctx context.Context, entityID int64) (Record, error)

	// Delete removes the entity's row. Missing rows are not an error.
	Delete(ctx context.Context, entityID int64) error

	// Count returns the number of rows, with or without a vector.
	Count(ctx context.Context) (int64, error)

	// Missing returns owning entity ids that have no stored vector, lowest
	// first, at most limit when limit is positive.
	Missing(ctx context.Context, limit int) ([]int64, error)

	// MigrateDimension changes the vector width. Existing vectors are
	// cleared; rows and their source text stay.
	MigrateDimension(ctx context.Context, dimension int) error
}

// Generator turns text into a vector. ok is false whenever no usable
// vector could be produced; callers treat that as a normal outcome.
type Generator interface {
	Generate(ctx context.Context, text string) (vector []float32, ok bool)
	Model() string
	Dimension() int
}
