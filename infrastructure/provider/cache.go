package provider

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedEmbedder remembers recent vectors by text. Only successful calls
// are cached.
type CachedEmbedder struct {
	inner Embedder
	cache *lru.Cache[string, []float32]
}

// NewCachedEmbedder wraps inner with an LRU of the given size. A size below
// one disables caching and returns inner's behaviour unchanged.
func NewCachedEmbedder(inner Embedder, size int) (*CachedEmbedder, error) {
	c := &CachedEmbedder{inner: inner}
	if size < 1 {
		return c, nil
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	c.cache = cache
	return c, nil
}

// Name returns the wrapped embedder's name.
func (c *CachedEmbedder) Name() string { return c.inner.Name() }

// Embed returns a cached vector or asks the wrapped embedder.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.cache == nil {
		return c.inner.Embed(ctx, text)
	}
	key := c.inner.Name() + "\x00" + text
	if vec, ok := c.cache.Get(key); ok {
		return clone(vec), nil
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, clone(vec))
	return vec, nil
}

// Len returns the number of cached vectors.
func (c *CachedEmbedder) Len() int {
	if c.cache == nil {
		return 0
	}
	return c.cache.Len()
}

// Purge drops every cached vector.
func (c *CachedEmbedder) Purge() {
	if c.cache != nil {
		c.cache.Purge()
	}
}

func clone(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}

var _ Embedder = (*CachedEmbedder)(nil)
