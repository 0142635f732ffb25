package registry

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises the row semantics every Store must provide.
func runStoreContract(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("PutIsUpsert", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, Subscription{ConnectionID: "c-upsert", Channel: "presence-room", UserData: `{"user_id":1}`}))
		require.NoError(t, store.Put(ctx, Subscription{ConnectionID: "c-upsert", Channel: "presence-room", UserData: `{"user_id":2}`}))

		subs, err := store.ByChannel(ctx, "presence-room")
		require.NoError(t, err)
		require.Len(t, subs, 1)
		assert.Equal(t, `{"user_id":2}`, subs[0].UserData)

		byConn, err := store.ByConnection(ctx, "c-upsert")
		require.NoError(t, err)
		require.Len(t, byConn, 1)
		assert.Equal(t, "presence-room", byConn[0].Channel)
	})

	t.Run("BothIndexesSeeWrites", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, Subscription{ConnectionID: "c-1", Channel: "orders"}))
		require.NoError(t, store.Put(ctx, Subscription{ConnectionID: "c-1", Channel: "news"}))
		require.NoError(t, store.Put(ctx, Subscription{ConnectionID: "c-2", Channel: "orders"}))

		byConn, err := store.ByConnection(ctx, "c-1")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"orders", "news"}, channelsOf(byConn))

		byChannel, err := store.ByChannel(ctx, "orders")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"c-1", "c-2"}, connectionsOf(byChannel))
	})

	t.Run("DeleteIsIdempotent", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "c-2", "orders"))
		require.NoError(t, store.Delete(ctx, "c-2", "orders"))

		byChannel, err := store.ByChannel(ctx, "orders")
		require.NoError(t, err)
		assert.Equal(t, []string{"c-1"}, connectionsOf(byChannel))
	})

	t.Run("DeleteConnectionCascades", func(t *testing.T) {
		require.NoError(t, store.DeleteConnection(ctx, "c-1"))
		require.NoError(t, store.DeleteConnection(ctx, "c-never-seen"))

		byConn, err := store.ByConnection(ctx, "c-1")
		require.NoError(t, err)
		assert.Empty(t, byConn)

		for _, channel := range []string{"orders", "news"} {
			byChannel, err := store.ByChannel(ctx, channel)
			require.NoError(t, err)
			assert.NotContains(t, connectionsOf(byChannel), "c-1")
		}
	})

	t.Run("ClearRacingSubscribesLeavesIndexesConsistent", func(t *testing.T) {
		const channels = 16
		var wg sync.WaitGroup
		for i := 0; i < channels; i++ {
			i := i
			wg.Add(2)
			go func() {
				defer wg.Done()
				assert.NoError(t, store.Put(ctx, Subscription{ConnectionID: "c-race", Channel: fmt.Sprintf("race-%d", i)}))
			}()
			go func() {
				defer wg.Done()
				assert.NoError(t, store.DeleteConnection(ctx, "c-race"))
			}()
		}
		wg.Wait()

		assertIndexesAgree(t, store, "c-race", raceChannels(channels))

		require.NoError(t, store.DeleteConnection(ctx, "c-race"))
		for _, channel := range raceChannels(channels) {
			byChannel, err := store.ByChannel(ctx, channel)
			require.NoError(t, err)
			assert.NotContains(t, connectionsOf(byChannel), "c-race", channel)
		}
	})

	t.Run("EmptyLookups", func(t *testing.T) {
		byConn, err := store.ByConnection(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, byConn)

		byChannel, err := store.ByChannel(ctx, "nothing")
		require.NoError(t, err)
		assert.Empty(t, byChannel)
	})
}

// assertIndexesAgree checks that the channel index lists connectionID for
// exactly the channels the connection index holds.
func assertIndexesAgree(t *testing.T, store Store, connectionID string, channels []string) {
	t.Helper()
	ctx := context.Background()
	byConn, err := store.ByConnection(ctx, connectionID)
	require.NoError(t, err)
	held := channelsOf(byConn)

	for _, channel := range channels {
		byChannel, err := store.ByChannel(ctx, channel)
		require.NoError(t, err)
		listed := slices.Contains(connectionsOf(byChannel), connectionID)
		assert.Equal(t, slices.Contains(held, channel), listed, "indexes disagree on %s", channel)
	}
}

func raceChannels(n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, fmt.Sprintf("race-%d", i))
	}
	return out
}

func channelsOf(subs []Subscription) []string {
	out := make([]string, 0, len(subs))
	for _, s := range subs {
		out = append(out, s.Channel)
	}
	return out
}

func connectionsOf(subs []Subscription) []string {
	out := make([]string, 0, len(subs))
	for _, s := range subs {
		out = append(out, s.ConnectionID)
	}
	return out
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}
