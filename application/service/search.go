// Package service provides application layer services that orchestrate domain operations.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/atas-platform/atas/domain"
	"github.com/atas-platform/atas/domain/account"
	"github.com/atas-platform/atas/domain/embedding"
	"github.com/atas-platform/atas/domain/event"
	"github.com/atas-platform/atas/domain/repository"
	"github.com/atas-platform/atas/internal/config"
)

// SearchMode tells which path produced a result.
type SearchMode string

// SearchMode values.
const (
	ModeSemantic SearchMode = "semantic"
	ModeText     SearchMode = "text"
)

// SearchOption configures a search request.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK   int
	role   account.Role
	format event.Format
}

// WithTopK sets the maximum number of results. Zero keeps the default.
func WithTopK(n int) SearchOption {
	return func(c *searchConfig) {
		if n != 0 {
			c.topK = n
		}
	}
}

// WithRole restricts profile results to users with the role.
func WithRole(r account.Role) SearchOption {
	return func(c *searchConfig) { c.role = r }
}

// WithFormat restricts event results to the format.
func WithFormat(f event.Format) SearchOption {
	return func(c *searchConfig) { c.format = f }
}

// Hit is one search result. Similarity is only set for semantic hits.
type Hit[T any] struct {
	Item       T
	Similarity float64
}

// Results are the hits of one search and the mode that produced them.
type Results[T any] struct {
	Mode SearchMode
	Hits []Hit[T]
}

// Search answers free-text queries over profiles and events. It embeds the
// query and ranks stored vectors; when that is impossible or finds nothing
// it falls back to substring matching. Provider and store failures are
// logged, never returned.
type Search struct {
	generator      embedding.Generator
	profileVectors embedding.Store
	eventVectors   embedding.Store
	profiles       account.ProfileStore
	events         event.Store
	defaultTopK    int
	maxDistance    float64
	logger         *slog.Logger
}

// NewSearch creates a Search service.
func NewSearch(
	generator embedding.Generator,
	profileVectors, eventVectors embedding.Store,
	profiles account.ProfileStore,
	events event.Store,
	defaultTopK int,
	maxDistance float64,
	logger *slog.Logger,
) *Search {
	if defaultTopK <= 0 || defaultTopK > config.MaxSearchLimit {
		defaultTopK = config.DefaultSearchLimit
	}
	return &Search{
		generator:      generator,
		profileVectors: profileVectors,
		eventVectors:   eventVectors,
		profiles:       profiles,
		events:         events,
		defaultTopK:    defaultTopK,
		maxDistance:    maxDistance,
		logger:         logger,
	}
}

func (s *Search) config(text string, opts []SearchOption) (searchConfig, string, error) {
	cfg := searchConfig{topK: s.defaultTopK}
	for _, opt := range opts {
		opt(&cfg)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return cfg, "", fmt.Errorf("%w: q_text is required", domain.ErrValidation)
	}
	if cfg.topK < 1 || cfg.topK > config.MaxSearchLimit {
		return cfg, "", fmt.Errorf("%w: top_k must be between 1 and %d", domain.ErrValidation, config.MaxSearchLimit)
	}
	return cfg, text, nil
}

// Profiles searches public profiles.
func (s *Search) Profiles(ctx context.Context, text string, opts ...SearchOption) (Results[account.ExpertView], error) {
	cfg, text, err := s.config(text, opts)
	if err != nil {
		return Results[account.ExpertView]{}, err
	}

	filters := []repository.Option{account.WithVisibility(account.VisibilityPublic)}
	if cfg.role != "" {
		filters = append(filters, account.WithRole(cfg.role))
	}

	if matches := s.nearest(ctx, s.profileVectors, text, cfg.topK, filters); len(matches) > 0 {
		views, err := s.profiles.View(ctx, embedding.IDs(matches))
		if err != nil {
			s.logger.Warn("load profiles for semantic hits failed", slog.String("error", err.Error()))
		} else if len(views) > 0 {
			return Results[account.ExpertView]{Mode: ModeSemantic, Hits: withSimilarity(views, matches, profileID)}, nil
		}
	}

	views, err := s.profiles.Search(ctx, append(filters,
		account.WithText(text),
		repository.WithOrderAsc("profiles.user_id"),
		repository.WithLimit(cfg.topK),
	)...)
	if err != nil {
		s.logger.Warn("profile text search failed", slog.String("error", err.Error()))
		views = nil
	}
	return Results[account.ExpertView]{Mode: ModeText, Hits: plain(views)}, nil
}

// Events searches published events.
func (s *Search) Events(ctx context.Context, text string, opts ...SearchOption) (Results[event.Event], error) {
	cfg, text, err := s.config(text, opts)
	if err != nil {
		return Results[event.Event]{}, err
	}

	filters := []repository.Option{event.WithStatus(event.StatusPublished)}
	if cfg.format != "" {
		filters = append(filters, event.WithFormat(cfg.format))
	}

	if matches := s.nearest(ctx, s.eventVectors, text, cfg.topK, filters); len(matches) > 0 {
		events, err := s.events.FindByIDs(ctx, embedding.IDs(matches))
		if err != nil {
			s.logger.Warn("load events for semantic hits failed", slog.String("error", err.Error()))
		} else if len(events) > 0 {
			return Results[event.Event]{Mode: ModeSemantic, Hits: withSimilarity(events, matches, event.Event.ID)}, nil
		}
	}

	events, err := s.events.Find(ctx, append(filters,
		event.WithText(text),
		repository.WithOrderAsc("events.id"),
		repository.WithLimit(cfg.topK),
	)...)
	if err != nil {
		s.logger.Warn("event text search failed", slog.String("error", err.Error()))
		events = nil
	}
	return Results[event.Event]{Mode: ModeText, Hits: plain(events)}, nil
}

// nearest embeds text and queries store. It returns nil whenever semantic
// search cannot run.
func (s *Search) nearest(ctx context.Context, store embedding.Store, text string, topK int, filters []repository.Option) []embedding.Match {
	if s.generator == nil || store == nil {
		return nil
	}
	vec, ok := s.generator.Generate(ctx, text)
	if !ok {
		return nil
	}
	matches, err := store.Nearest(ctx, embedding.NearestQuery{
		Vector:      vec,
		TopK:        topK,
		MaxDistance: s.maxDistance,
		Options:     filters,
	})
	if err != nil {
		s.logger.Warn("vector search failed, using text search",
			slog.String("kind", string(store.Kind())),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return matches
}

func profileID(v account.ExpertView) int64 { return v.User.ID() }

func withSimilarity[T any](items []T, matches []embedding.Match, id func(T) int64) []Hit[T] {
	similarity := make(map[int64]float64, len(matches))
	for _, m := range matches {
		similarity[m.EntityID()] = m.Similarity()
	}
	hits := make([]Hit[T], len(items))
	for i, it := range items {
		hits[i] = Hit[T]{Item: it, Similarity: similarity[id(it)]}
	}
	return hits
}

func plain[T any](items []T) []Hit[T] {
	hits := make([]Hit[T], len(items))
	for i, it := range items {
		hits[i] = Hit[T]{Item: it}
	}
	return hits
}
