package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each index as a hash: one per connection mapping
// channel to user data, and one per channel mapping connection id to user
// data. Both hashes of a row are written in a single MULTI/EXEC.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// KEYS[1] connection hash, ARGV[1] channel key prefix, ARGV[2] connection id.
var deleteConnectionScript = redis.NewScript(`
local channels = redis.call('HKEYS', KEYS[1])
for _, channel in ipairs(channels) do
	redis.call('HDEL', ARGV[1] .. channel, ARGV[2])
end
redis.call('DEL', KEYS[1])
return #channels
`)

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "subscriptions"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) connectionKey(connectionID string) string {
	return fmt.Sprintf("%s:connection:%s", r.prefix, connectionID)
}

func (r *RedisStore) channelKey(channel string) string {
	return fmt.Sprintf("%s:channel:%s", r.prefix, channel)
}

func (r *RedisStore) Put(ctx context.Context, sub Subscription) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.connectionKey(sub.ConnectionID), sub.Channel, sub.UserData)
		pipe.HSet(ctx, r.channelKey(sub.Channel), sub.ConnectionID, sub.UserData)
		return nil
	})
	return err
}

func (r *RedisStore) Delete(ctx context.Context, connectionID, channel string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, r.connectionKey(connectionID), channel)
		pipe.HDel(ctx, r.channelKey(channel), connectionID)
		return nil
	})
	return err
}

func (r *RedisStore) ByConnection(ctx context.Context, connectionID string) ([]Subscription, error) {
	fields, err := r.client.HGetAll(ctx, r.connectionKey(connectionID)).Result()
	if err != nil {
		return nil, err
	}
	subs := make([]Subscription, 0, len(fields))
	for channel, userData := range fields {
		subs = append(subs, Subscription{ConnectionID: connectionID, Channel: channel, UserData: userData})
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].Channel < subs[j].Channel })
	return subs, nil
}

func (r *RedisStore) ByChannel(ctx context.Context, channel string) ([]Subscription, error) {
	fields, err := r.client.HGetAll(ctx, r.channelKey(channel)).Result()
	if err != nil {
		return nil, err
	}
	subs := make([]Subscription, 0, len(fields))
	for connectionID, userData := range fields {
		subs = append(subs, Subscription{ConnectionID: connectionID, Channel: channel, UserData: userData})
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].ConnectionID < subs[j].ConnectionID })
	return subs, nil
}

// DeleteConnection reads the connection's channels and removes both index
// entries in one script, so a Put for the same connection lands entirely
// before or entirely after it.
func (r *RedisStore) DeleteConnection(ctx context.Context, connectionID string) error {
	err := deleteConnectionScript.Run(ctx, r.client,
		[]string{r.connectionKey(connectionID)},
		r.channelKey(""), connectionID,
	).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
