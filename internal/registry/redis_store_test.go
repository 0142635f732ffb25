package registry

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisStore(t *testing.T) {
	_, client := newTestRedis(t)
	runStoreContract(t, NewRedisStore(client, ""))
}

func TestRedisStoreKeyLayout(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStore(client, "echo")
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, Subscription{ConnectionID: "connection-id-1", Channel: "presence-room", UserData: `{"user_id":1}`}))

	assert.Equal(t, `{"user_id":1}`, mr.HGet("echo:connection:connection-id-1", "presence-room"))
	assert.Equal(t, `{"user_id":1}`, mr.HGet("echo:channel:presence-room", "connection-id-1"))

	require.NoError(t, store.DeleteConnection(ctx, "connection-id-1"))
	assert.False(t, mr.Exists("echo:connection:connection-id-1"))
	assert.False(t, mr.Exists("echo:channel:presence-room"))
}

func TestRedisStoreErrorsPropagate(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStore(client, "")
	mr.Close()

	_, err := store.ByChannel(context.Background(), "orders")
	assert.Error(t, err)
}

// interleaveHook runs fn once, right after the first command issued while
// armed has returned.
type interleaveHook struct {
	armed atomic.Bool
	fn    func()
}

func (h *interleaveHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *interleaveHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if h.armed.CompareAndSwap(true, false) {
			h.fn()
		}
		return err
	}
}

func (h *interleaveHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestRedisStoreSubscribeDuringClearIsNotOrphaned(t *testing.T) {
	mr, client := newTestRedis(t)
	writerClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { writerClient.Close() })

	ctx := context.Background()
	store := NewRedisStore(client, "")
	writer := NewRedisStore(writerClient, "")

	require.NoError(t, store.Put(ctx, Subscription{ConnectionID: "c1", Channel: "a"}))

	hook := &interleaveHook{fn: func() {
		require.NoError(t, writer.Put(ctx, Subscription{ConnectionID: "c1", Channel: "b"}))
	}}
	client.AddHook(hook)

	hook.armed.Store(true)
	require.NoError(t, store.DeleteConnection(ctx, "c1"))
	assertIndexesAgree(t, store, "c1", []string{"a", "b"})

	require.NoError(t, store.DeleteConnection(ctx, "c1"))
	for _, channel := range []string{"a", "b"} {
		subs, err := store.ByChannel(ctx, channel)
		require.NoError(t, err)
		assert.Empty(t, subs, channel)
	}
	assert.False(t, mr.Exists("subscriptions:connection:c1"))
}
