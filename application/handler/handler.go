// Package handler holds the contract between queued tasks and the code
// that executes them.
package handler

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/atas-platform/atas/domain"
	"github.com/atas-platform/atas/domain/task"
)

// EmbeddingJob is the decoded payload of an embedding task.
type EmbeddingJob struct {
	EntityID int64
	// SourceText is empty when the text must be rebuilt from the database.
	SourceText string
}

// DecodeEmbeddingJob reads entity_id and the optional source_text from a
// task payload. Payloads round-trip through JSON, so numbers may arrive as
// float64 or json.Number; fractional or non-positive ids are rejected.
func DecodeEmbeddingJob(payload map[string]any) (EmbeddingJob, error) {
	id, err := entityID(payload[task.KeyEntityID])
	if err != nil {
		return EmbeddingJob{}, err
	}
	job := EmbeddingJob{EntityID: id}

	switch text := payload[task.KeySourceText].(type) {
	case nil:
	case string:
		job.SourceText = text
	default:
		return EmbeddingJob{}, fmt.Errorf("%w: %s must be a string, got %T", domain.ErrValidation, task.KeySourceText, text)
	}
	return job, nil
}

func entityID(v any) (int64, error) {
	var id int64
	switch n := v.(type) {
	case nil:
		return 0, fmt.Errorf("%w: %s is required", domain.ErrValidation, task.KeyEntityID)
	case int64:
		id = n
	case int:
		id = int64(n)
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%w: %s %v is not an integer", domain.ErrValidation, task.KeyEntityID, n)
		}
		id = int64(n)
	case json.Number:
		parsed, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %w", domain.ErrValidation, task.KeyEntityID, err)
		}
		id = parsed
	default:
		return 0, fmt.Errorf("%w: %s has type %T", domain.ErrValidation, task.KeyEntityID, v)
	}
	if id < 1 {
		return 0, fmt.Errorf("%w: %s must be positive", domain.ErrValidation, task.KeyEntityID)
	}
	return id, nil
}
