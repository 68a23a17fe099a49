package provider

import (
	"context"
	"log/slog"
	"strings"

	"github.com/atas-platform/atas/domain/embedding"
)

// Generator adapts an Embedder to embedding.Generator. Every failure is
// logged and reported as "no vector".
type Generator struct {
	embedder  Embedder
	cache     *CachedEmbedder
	model     string
	dimension int
	logger    *slog.Logger
}

// NewGenerator creates a Generator. embedder may be nil, in which case the
// generator never produces a vector.
func NewGenerator(embedder Embedder, model string, dimension int, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Generator{embedder: embedder, model: model, dimension: dimension, logger: logger}
	if c, ok := embedder.(*CachedEmbedder); ok {
		g.cache = c
	}
	return g
}

// Disabled returns a Generator that never calls a provider.
func Disabled(dimension int, logger *slog.Logger) *Generator {
	return NewGenerator(nil, "", dimension, logger)
}

// Generate embeds text. ok is false for blank text, a disabled generator,
// any provider error, or a vector of the wrong width.
func (g *Generator) Generate(ctx context.Context, text string) ([]float32, bool) {
	if g.embedder == nil || strings.TrimSpace(text) == "" {
		return nil, false
	}

	vec, err := g.embedder.Embed(ctx, text)
	if err != nil {
		g.logger.Warn("embedding generation failed", "provider", g.embedder.Name(), "error", err)
		return nil, false
	}
	if len(vec) == 0 {
		g.logger.Warn("embedding provider returned an empty vector", "provider", g.embedder.Name())
		return nil, false
	}
	if err := embedding.ValidateDimension(vec, g.Dimension()); err != nil {
		g.logger.Warn("embedding has unexpected width", "provider", g.embedder.Name(), "error", err)
		return nil, false
	}
	return vec, true
}

// Enabled reports whether a provider is configured.
func (g *Generator) Enabled() bool { return g.embedder != nil }

// Model returns the provider model id.
func (g *Generator) Model() string { return g.model }

// Dimension returns the expected vector width.
func (g *Generator) Dimension() int { return g.dimension }

// Purge drops cached query vectors.
func (g *Generator) Purge() {
	if g.cache != nil {
		g.cache.Purge()
	}
}

var _ embedding.Generator = (*Generator)(nil)
