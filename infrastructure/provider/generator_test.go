package provider

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atas-platform/atas/internal/config"
)

type stubEmbedder struct {
	calls atomic.Int64
	vec   []float32
	err   error
}

func (s *stubEmbedder) Name() string { return "stub:model" }

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.vec, nil
}

func quietLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func TestGenerator_Generate(t *testing.T) {
	ctx := context.Background()

	t.Run("returns a vector of the configured width", func(t *testing.T) {
		stub := &stubEmbedder{vec: []float32{1, 2, 3}}
		g := NewGenerator(stub, "model", 3, quietLogger())
		vec, ok := g.Generate(ctx, "text")
		require.True(t, ok)
		assert.Equal(t, []float32{1, 2, 3}, vec)
	})

	t.Run("blank text makes no call", func(t *testing.T) {
		stub := &stubEmbedder{vec: []float32{1, 2, 3}}
		g := NewGenerator(stub, "model", 3, quietLogger())
		_, ok := g.Generate(ctx, "   ")
		assert.False(t, ok)
		assert.Equal(t, int64(0), stub.calls.Load())
	})

	t.Run("provider error is no vector", func(t *testing.T) {
		g := NewGenerator(&stubEmbedder{err: errors.New("boom")}, "model", 3, quietLogger())
		vec, ok := g.Generate(ctx, "text")
		assert.False(t, ok)
		assert.Nil(t, vec)
	})

	t.Run("wrong width is no vector", func(t *testing.T) {
		g := NewGenerator(&stubEmbedder{vec: []float32{1, 2}}, "model", 3, quietLogger())
		_, ok := g.Generate(ctx, "text")
		assert.False(t, ok)
	})

	t.Run("empty vector is no vector", func(t *testing.T) {
		g := NewGenerator(&stubEmbedder{vec: []float32{}}, "model", 3, quietLogger())
		_, ok := g.Generate(ctx, "text")
		assert.False(t, ok)
	})

	t.Run("disabled", func(t *testing.T) {
		g := Disabled(3, quietLogger())
		_, ok := g.Generate(ctx, "text")
		assert.False(t, ok)
		assert.False(t, g.Enabled())
		assert.Equal(t, 3, g.Dimension())
	})
}

func TestGuard_OpensAfterConsecutiveFailures(t *testing.T) {
	stub := &stubEmbedder{err: errors.New("down")}
	g := NewGuard(stub, GuardConfig{Failures: 2}, quietLogger())

	for range 2 {
		_, err := g.Embed(context.Background(), "x")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnavailable)
	}
	assert.Equal(t, "open", g.State())

	_, err := g.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int64(2), stub.calls.Load())
}

func TestGuard_RateLimitHonoursContext(t *testing.T) {
	stub := &stubEmbedder{vec: []float32{1}}
	g := NewGuard(stub, GuardConfig{RPS: 0.001}, quietLogger())

	_, err := g.Embed(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Embed(ctx, "second")
	require.Error(t, err)
	assert.Equal(t, int64(1), stub.calls.Load())
}

func TestCachedEmbedder(t *testing.T) {
	stub := &stubEmbedder{vec: []float32{1, 2}}
	c, err := NewCachedEmbedder(stub, 4)
	require.NoError(t, err)

	first, err := c.Embed(context.Background(), "q")
	require.NoError(t, err)
	first[0] = 99

	second, err := c.Embed(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, second)
	assert.Equal(t, int64(1), stub.calls.Load())

	g := NewGenerator(c, "model", 2, quietLogger())
	g.Purge()
	assert.Equal(t, 0, c.Len())
	_, ok := g.Generate(context.Background(), "q")
	require.True(t, ok)
	assert.Equal(t, int64(2), stub.calls.Load())
}

func TestCachedEmbedder_SkipsFailures(t *testing.T) {
	stub := &stubEmbedder{err: errors.New("boom")}
	c, err := NewCachedEmbedder(stub, 4)
	require.NoError(t, err)

	_, err = c.Embed(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestFromConfig(t *testing.T) {
	ctx := context.Background()

	g, err := FromConfig(ctx, config.NewEmbedding(), quietLogger())
	require.NoError(t, err)
	assert.False(t, g.Enabled())

	g, err = FromConfig(ctx, config.NewEmbeddingWithOptions(config.WithProvider(config.ProviderOpenAI)), quietLogger())
	require.NoError(t, err)
	assert.False(t, g.Enabled(), "no api key")

	var status, counter atomic.Int64
	srv := fakeEmbeddingServer(t, 4, &status, &counter)
	g, err = FromConfig(ctx, config.NewEmbeddingWithOptions(
		config.WithProvider(config.ProviderOpenAI),
		config.WithAPIKey("k"),
		config.WithBaseURL(srv.URL),
		config.WithDimension(4),
		config.WithRPS(0),
	), quietLogger())
	require.NoError(t, err)
	require.True(t, g.Enabled())

	vec, ok := g.Generate(ctx, "Tuesday evening")
	require.True(t, ok)
	assert.Len(t, vec, 4)
	_, ok = g.Generate(ctx, "Tuesday evening")
	require.True(t, ok)
	assert.Equal(t, int64(1), counter.Load(), "second query served from cache")
}
