package redis

import (
	"fmt"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hakawati-story-api/internal/config"
)

func TestOptions_AppliesDefaults(t *testing.T) {
	opts := options(&config.RedisConfig{})
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, defaultPoolSize, opts.PoolSize)
	assert.Equal(t, clientName, opts.ClientName)
}

func TestOptions_KeepsConfiguredValues(t *testing.T) {
	opts := options(&config.RedisConfig{
		Host:        "redis.internal",
		Port:        6380,
		DB:          2,
		PoolSize:    50,
		ReadTimeout: 3 * time.Second,
	})
	assert.Equal(t, "redis.internal:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 50, opts.PoolSize)
	assert.Equal(t, 3*time.Second, opts.ReadTimeout)
}

func TestNewClient_RejectsNilConfig(t *testing.T) {
	_, err := NewClient(nil)
	assert.Error(t, err)
}

func TestIsNil(t *testing.T) {
	assert.True(t, IsNil(goredis.Nil))
	assert.True(t, IsNil(fmt.Errorf("get overview: %w", goredis.Nil)))
	assert.False(t, IsNil(nil))
	require.False(t, IsNil(assert.AnError))
}
