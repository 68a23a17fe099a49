package persistence

import (
	"errors"
	"fmt"

	"github.com/atas-platform/atas/domain"
	"github.com/atas-platform/atas/internal/database"
)

// translate maps storage errors onto domain errors so callers above the
// persistence layer never import the database package.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, database.ErrNotFound):
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	case errors.Is(err, database.ErrDuplicate):
		return fmt.Errorf("%w: %w", domain.ErrConflict, err)
	default:
		return err
	}
}
