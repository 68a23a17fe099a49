package provider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/atas-platform/atas/internal/config"
)

// FromConfig builds the Generator chain for cfg: provider, guard, cache.
// A missing provider or credential yields a disabled Generator, not an error.
func FromConfig(ctx context.Context, cfg config.Embedding, logger *slog.Logger) (*Generator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "embedding")

	if !cfg.Enabled() {
		if cfg.Provider() != config.ProviderNone {
			logger.Warn("embedding provider has no api key, semantic search will use text fallback", "provider", cfg.Provider())
		} else {
			logger.Info("embeddings disabled, semantic search will use text fallback")
		}
		return Disabled(cfg.Dimension(), logger), nil
	}

	var base Embedder
	switch cfg.Provider() {
	case config.ProviderOpenAI:
		base = NewOpenAIEmbedder(OpenAIConfig{
			APIKey:    cfg.APIKey(),
			BaseURL:   cfg.BaseURL(),
			Model:     cfg.Model(),
			Dimension: cfg.Dimension(),
			Timeout:   cfg.Timeout(),
		})
	case config.ProviderGemini:
		g, err := NewGeminiEmbedder(ctx, GeminiConfig{
			APIKey:    cfg.APIKey(),
			BaseURL:   cfg.BaseURL(),
			Model:     cfg.Model(),
			Dimension: cfg.Dimension(),
			Timeout:   cfg.Timeout(),
		})
		if err != nil {
			return nil, err
		}
		base = g
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.Provider())
	}

	guarded := NewGuard(base, GuardConfig{RPS: cfg.RPS(), Failures: cfg.BreakerFailures()}, logger)
	cached, err := NewCachedEmbedder(guarded, cfg.CacheSize())
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}

	logger.Info("embedding provider configured", "provider", base.Name(), "dimension", cfg.Dimension())
	return NewGenerator(cached, cfg.Model(), cfg.Dimension(), logger), nil
}
