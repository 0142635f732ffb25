package database

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"echo-gateway/internal/config"
	"echo-gateway/internal/registry"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenStoreMemory(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Driver: "memory"}}

	store, closeFn, err := OpenStore(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &registry.MemoryStore{}, store)
	assert.NoError(t, closeFn(context.Background()))
}

func TestOpenStoreRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{
		Store: config.StoreConfig{Driver: "redis"},
		Redis: config.RedisConfig{URI: "redis://" + mr.Addr() + "/0", PoolSize: 4},
	}

	store, closeFn, err := OpenStore(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	defer closeFn(context.Background())

	require.NoError(t, store.Put(context.Background(), registry.Subscription{ConnectionID: "c1", Channel: "news"}))
	subs, err := store.ByChannel(context.Background(), "news")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "c1", subs[0].ConnectionID)
}

func TestOpenStoreRejectsUnknownDriver(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Driver: "cassandra"}}

	_, _, err := OpenStore(context.Background(), cfg, discardLogger())
	assert.ErrorContains(t, err, "cassandra")
}

func TestNewSQLConnectionRequiresURI(t *testing.T) {
	_, err := NewSQLConnection("postgres", config.DatabaseConfig{}, discardLogger())
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestNewRedisConnectionRejectsBadURL(t *testing.T) {
	_, err := NewRedisConnection(config.RedisConfig{URI: "not-a-url"}, discardLogger())
	assert.Error(t, err)
}
