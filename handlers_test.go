package atas

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atas-platform/atas/domain/task"
	"github.com/atas-platform/atas/internal/config"
)

func TestRegisterHandlers_CoversEveryOperation(t *testing.T) {
	client, err := New(
		WithSQLite(":memory:"),
		WithJWT("secret", time.Hour),
		WithEmbedding(config.NewEmbeddingWithOptions(config.WithDimension(4))),
	)
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	for _, op := range task.All() {
		assert.True(t, client.registry.HasHandler(op), op.String())
	}
	assert.NoError(t, client.validateHandlers())
}

func TestWithConfig(t *testing.T) {
	cfg := config.NewAppConfigWithOptions(
		config.WithDBURL("sqlite:///x.db"),
		config.WithJWTSecret("s"),
		config.WithWorkerCount(3),
		config.WithSearchLimit(7),
	)
	c := newClientConfig()
	WithConfig(cfg)(c)

	assert.Equal(t, "sqlite:///x.db", c.dbURL)
	assert.Equal(t, "s", c.jwtSecret)
	assert.Equal(t, 3, c.workerCount)
	assert.Equal(t, 7, c.searchLimit)
	assert.Equal(t, config.DefaultMaxDistance, c.maxDistance)
}
