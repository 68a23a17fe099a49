package atas

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/atas-platform/atas/application/handler/indexing"
	"github.com/atas-platform/atas/domain/task"
)

// registerHandlers registers all task handlers with the worker registry.
func (c *Client) registerHandlers() error {
	profiles, err := indexing.NewCreateEmbedding(indexing.NewProfileText(c.profileStore), c.generator, c.profileVectors, c.logger)
	if err != nil {
		return fmt.Errorf("profile embedding handler: %w", err)
	}
	c.registry.Register(profiles.Operation(), profiles)

	events, err := indexing.NewCreateEmbedding(indexing.NewEventText(c.eventStore), c.generator, c.eventVectors, c.logger)
	if err != nil {
		return fmt.Errorf("event embedding handler: %w", err)
	}
	c.registry.Register(events.Operation(), events)

	c.logger.Info("registered task handlers", slog.Int("count", len(c.registry.Operations())))
	return nil
}

// validateHandlers checks that every queued operation has a handler.
func (c *Client) validateHandlers() error {
	var missing []string
	for _, op := range task.All() {
		if !c.registry.HasHandler(op) {
			missing = append(missing, op.String())
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing handlers for operations: [%s]", strings.Join(missing, ", "))
}
