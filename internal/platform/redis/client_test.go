package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petcare/internal/platform/config"
)

func TestNewWithoutURL(t *testing.T) {
	c, err := New(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestClientOptions(t *testing.T) {
	t.Run("config overrides url defaults", func(t *testing.T) {
		opts, err := clientOptions(config.RedisConfig{
			URL:          "redis://localhost:6379/2",
			PoolSize:     7,
			MinIdleConns: 1,
			DialTimeout:  2 * time.Second,
		})
		require.NoError(t, err)
		assert.Equal(t, "localhost:6379", opts.Addr)
		assert.Equal(t, 2, opts.DB)
		assert.Equal(t, 7, opts.PoolSize)
		assert.Equal(t, 1, opts.MinIdleConns)
		assert.Equal(t, 2*time.Second, opts.DialTimeout)
	})

	t.Run("zero values keep url defaults", func(t *testing.T) {
		opts, err := clientOptions(config.RedisConfig{URL: "redis://localhost:6379/0?pool_size=3"})
		require.NoError(t, err)
		assert.Equal(t, 3, opts.PoolSize)
	})

	t.Run("malformed url", func(t *testing.T) {
		_, err := clientOptions(config.RedisConfig{URL: "http://nope"})
		assert.Error(t, err)
	})
}
