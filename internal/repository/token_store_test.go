package repository

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/raihanm-dev/auth-service/pkg/config"
)

func TestNewTokenStoreSelectsBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := NewTokenStore(config.TokenStoreConfig{Backend: config.TokenStoreMemory}, time.Minute, nil, nil)
	assert.IsType(t, &MemoryTokenStore{}, store)

	store = NewTokenStore(config.TokenStoreConfig{Backend: config.TokenStoreRedis}, time.Minute, client, nil)
	assert.IsType(t, &RedisTokenStore{}, store)
}

func TestNewTokenStoreFallsBackToMemory(t *testing.T) {
	store := NewTokenStore(config.TokenStoreConfig{Backend: config.TokenStoreRedis}, time.Minute, nil, nil)
	assert.IsType(t, &MemoryTokenStore{}, store)

	store = NewTokenStore(config.TokenStoreConfig{Backend: "etcd"}, time.Minute, nil, nil)
	assert.IsType(t, &MemoryTokenStore{}, store)
}
