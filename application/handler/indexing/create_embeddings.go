// Package indexing holds the task handlers that keep the embedding tables
// in step with profiles and events.
package indexing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/atas-platform/atas/application/handler"
	"github.com/atas-platform/atas/domain"
	"github.com/atas-platform/atas/domain/embedding"
	"github.com/atas-platform/atas/domain/task"
)

// TextSource rebuilds an entity's embedding text from the database. It
// returns domain.ErrNotFound when the entity no longer exists.
type TextSource interface {
	EmbeddingText(ctx context.Context, entityID int64) (string, error)
}

// CreateEmbedding embeds one entity and upserts the result.
type CreateEmbedding struct {
	kind      embedding.Kind
	source    TextSource
	generator embedding.Generator
	store     embedding.Store
	logger    *slog.Logger
}

// NewCreateEmbedding creates a handler for the store's kind.
func NewCreateEmbedding(
	source TextSource,
	generator embedding.Generator,
	store embedding.Store,
	logger *slog.Logger,
) (*CreateEmbedding, error) {
	if source == nil {
		return nil, fmt.Errorf("NewCreateEmbedding: nil source")
	}
	if generator == nil {
		return nil, fmt.Errorf("NewCreateEmbedding: nil generator")
	}
	if store == nil {
		return nil, fmt.Errorf("NewCreateEmbedding: nil store")
	}
	return &CreateEmbedding{
		kind:      store.Kind(),
		source:    source,
		generator: generator,
		store:     store,
		logger:    logger.With(slog.String("kind", string(store.Kind()))),
	}, nil
}

// Operation returns the task operation this handler serves.
func (h *CreateEmbedding) Operation() task.Operation {
	if h.kind == embedding.KindEvent {
		return task.OperationEmbedEvent
	}
	return task.OperationEmbedProfile
}

// Execute processes an embedding task. A payload without source_text is
// completed from the database. When no vector can be generated the
// previous embedding is kept and the task still succeeds.
func (h *CreateEmbedding) Execute(ctx context.Context, payload map[string]any) error {
	job, err := handler.DecodeEmbeddingJob(payload)
	if err != nil {
		return err
	}
	entityID, text := job.EntityID, job.SourceText

	if text == "" {
		text, err = h.source.EmbeddingText(ctx, entityID)
		if errors.Is(err, domain.ErrNotFound) {
			h.logger.Info("entity gone, skipping embedding", slog.Int64("entity_id", entityID))
			return nil
		}
		if err != nil {
			return fmt.Errorf("rebuild %s text: %w", h.kind, err)
		}
	}
	if strings.TrimSpace(text) == "" {
		h.logger.Debug("nothing to embed", slog.Int64("entity_id", entityID))
		return nil
	}

	vector, ok := h.generator.Generate(ctx, text)
	if !ok {
		h.logger.Warn("no embedding generated, keeping previous", slog.Int64("entity_id", entityID))
		return nil
	}

	record := embedding.NewRecord(entityID, text, vector, h.generator.Model())
	if err := h.store.Upsert(ctx, record); err != nil {
		return fmt.Errorf("upsert %s embedding %d: %w", h.kind, entityID, err)
	}

	h.logger.Info("embedding stored", slog.Int64("entity_id", entityID), slog.Int("dimension", len(vector)))
	return nil
}
