package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	*MemoryStore
	err error
}

func (f *failingStore) Put(context.Context, Subscription) error { return f.err }

func (f *failingStore) ByChannel(context.Context, string) ([]Subscription, error) {
	return nil, f.err
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	ctx := context.Background()
	reg := New(NewMemoryStore(), nil)

	require.NoError(t, reg.Subscribe(ctx, "connection-id-1", "test-channel", ""))

	ids, err := reg.ConnectionsFor(ctx, "test-channel")
	require.NoError(t, err)
	assert.Equal(t, []string{"connection-id-1"}, ids)

	require.NoError(t, reg.Unsubscribe(ctx, "connection-id-1", "test-channel"))

	ids, err = reg.ConnectionsFor(ctx, "test-channel")
	require.NoError(t, err)
	assert.Empty(t, ids)

	// unsubscribing a missing row is not an error
	require.NoError(t, reg.Unsubscribe(ctx, "connection-id-1", "test-channel"))
}

func TestSubscribeTwiceKeepsOneRow(t *testing.T) {
	ctx := context.Background()
	reg := New(NewMemoryStore(), nil)

	require.NoError(t, reg.Subscribe(ctx, "connection-id-1", "test-channel", ""))
	require.NoError(t, reg.Subscribe(ctx, "connection-id-1", "test-channel", ""))

	ids, err := reg.ConnectionsFor(ctx, "test-channel")
	require.NoError(t, err)
	assert.Equal(t, []string{"connection-id-1"}, ids)
}

func TestConnectionsForDeduplicatesAcrossChannels(t *testing.T) {
	ctx := context.Background()
	reg := New(NewMemoryStore(), nil)

	require.NoError(t, reg.Subscribe(ctx, "c-1", "orders", ""))
	require.NoError(t, reg.Subscribe(ctx, "c-1", "news", ""))
	require.NoError(t, reg.Subscribe(ctx, "c-2", "news", ""))
	require.NoError(t, reg.Subscribe(ctx, "c-3", "weather", ""))

	ids, err := reg.ConnectionsFor(ctx, "orders", "news")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c-1", "c-2"}, ids)

	ids, err = reg.ConnectionsFor(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestChannelsForAndClearConnection(t *testing.T) {
	ctx := context.Background()
	reg := New(NewMemoryStore(), nil)

	userData := `{"user_id":1,"user_info":["the user info"]}`
	require.NoError(t, reg.Subscribe(ctx, "connection-id-1", "presence-channel", userData))
	require.NoError(t, reg.Subscribe(ctx, "connection-id-1", "test-channel", ""))
	require.NoError(t, reg.Subscribe(ctx, "connection-id-2", "presence-channel", `{"user_id":2}`))

	subs, err := reg.ChannelsFor(ctx, "connection-id-1")
	require.NoError(t, err)
	assert.Equal(t, []Subscription{
		{ConnectionID: "connection-id-1", Channel: "presence-channel", UserData: userData},
		{ConnectionID: "connection-id-1", Channel: "test-channel"},
	}, subs)

	require.NoError(t, reg.ClearConnection(ctx, "connection-id-1"))
	require.NoError(t, reg.ClearConnection(ctx, "connection-id-1"))

	subs, err = reg.ChannelsFor(ctx, "connection-id-1")
	require.NoError(t, err)
	assert.NotNil(t, subs)
	assert.Empty(t, subs)

	members, err := reg.MembersFor(ctx, "presence-channel")
	require.NoError(t, err)
	assert.Equal(t, []Subscription{{ConnectionID: "connection-id-2", Channel: "presence-channel", UserData: `{"user_id":2}`}}, members)
}

func TestStoreErrorsPropagateUnchanged(t *testing.T) {
	ctx := context.Background()
	storeErr := errors.New("store unavailable")
	reg := New(&failingStore{MemoryStore: NewMemoryStore(), err: storeErr}, nil)

	err := reg.Subscribe(ctx, "c-1", "orders", "")
	assert.Equal(t, storeErr, err)

	_, err = reg.ConnectionsFor(ctx, "orders", "news")
	assert.Equal(t, storeErr, err)

	_, err = reg.MembersFor(ctx, "orders")
	assert.Equal(t, storeErr, err)
}
