package task

import "strings"

// Operation represents the type of task operation.
type Operation string

// Operation values for the task queue system.
const (
	OperationEmbedProfile Operation = "atas.embedding.profile"
	OperationEmbedEvent   Operation = "atas.embedding.event"
)

// String returns the string representation of the operation.
func (o Operation) String() string {
	return string(o)
}

// IsEmbeddingOperation returns true for operations that write an embedding.
func (o Operation) IsEmbeddingOperation() bool {
	return strings.HasPrefix(string(o), "atas.embedding.")
}

// All returns every operation a worker must be able to handle.
func All() []Operation {
	return []Operation{OperationEmbedProfile, OperationEmbedEvent}
}
