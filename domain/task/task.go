// Package task provides task queue domain types for async work processing.
package task

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// Priority represents task queue priority levels.
type Priority int

// Priority values.
const (
	PriorityBackground    Priority = 1000
	PriorityNormal        Priority = 2000
	PriorityUserInitiated Priority = 5000
)

// Payload keys understood by the embedding handlers.
const (
	KeyEntityID   = "entity_id"
	KeySourceText = "source_text"
)

// Task is an item waiting in the queue. Existence implies pending; a task
// is deleted once a worker has run it, whether it succeeded or not.
type Task struct {
	id        int64
	dedupKey  string
	operation Operation
	priority  int
	payload   map[string]any
	createdAt time.Time
	updatedAt time.Time
}

// NewTask creates a Task. Tasks for the same operation and entity share a
// dedup key, so enqueuing again while one is pending refreshes it instead
// of adding a second.
func NewTask(operation Operation, priority Priority, payload map[string]any) Task {
	p := copyPayload(payload)
	return Task{
		dedupKey:  createDedupKey(operation, p),
		operation: operation,
		priority:  int(priority),
		payload:   p,
	}
}

// NewEmbeddingTask builds the job that (re)embeds one entity. An empty
// sourceText tells the handler to rebuild the text from the database.
func NewEmbeddingTask(operation Operation, entityID int64, sourceText string) Task {
	payload := map[string]any{KeyEntityID: entityID}
	if sourceText != "" {
		payload[KeySourceText] = sourceText
	}
	return NewTask(operation, PriorityNormal, payload)
}

// NewTaskWithID creates a Task with all fields (used by stores).
func NewTaskWithID(
	id int64,
	dedupKey string,
	operation Operation,
	priority int,
	payload map[string]any,
	createdAt, updatedAt time.Time,
) Task {
	return Task{
		id:        id,
		dedupKey:  dedupKey,
		operation: operation,
		priority:  priority,
		payload:   copyPayload(payload),
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// ID returns the task ID.
func (t Task) ID() int64 { return t.id }

// DedupKey returns the deduplication key.
func (t Task) DedupKey() string { return t.dedupKey }

// Operation returns the task operation.
func (t Task) Operation() Operation { return t.operation }

// Priority returns the task priority.
func (t Task) Priority() int { return t.priority }

// Payload returns a copy of the task payload.
func (t Task) Payload() map[string]any {
	return copyPayload(t.payload)
}

// CreatedAt returns when the task was created.
func (t Task) CreatedAt() time.Time { return t.createdAt }

// UpdatedAt returns when the task was last updated.
func (t Task) UpdatedAt() time.Time { return t.updatedAt }

// PayloadJSON returns the payload as JSON bytes.
func (t Task) PayloadJSON() ([]byte, error) {
	return json.Marshal(t.payload)
}

// createDedupKey formats "{operation}:{entity_id}". Payloads without an
// entity fall back to their JSON encoding, which sorts map keys.
func createDedupKey(operation Operation, payload map[string]any) string {
	if id, ok := payload[KeyEntityID]; ok {
		return fmt.Sprintf("%s:%v", operation, id)
	}
	raw, _ := json.Marshal(payload)
	return fmt.Sprintf("%s:%s", operation, raw)
}

func copyPayload(payload map[string]any) map[string]any {
	if payload == nil {
		return make(map[string]any)
	}
	result := make(map[string]any, len(payload))
	maps.Copy(result, payload)
	return result
}
