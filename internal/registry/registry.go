package registry

import (
	"context"
	"log/slog"
	"sync"
)

// Subscription is one (connection, channel) row. UserData is only set for
// presence channels and holds the signed channel_data verbatim.
type Subscription struct {
	ConnectionID string `json:"connectionId"`
	Channel      string `json:"channel"`
	UserData     string `json:"userData,omitempty"`
}

// Store persists subscription rows keyed by (ConnectionID, Channel) and
// answers the two secondary lookups. Writes to one row must be atomic;
// nothing spans rows.
type Store interface {
	Put(ctx context.Context, sub Subscription) error
	Delete(ctx context.Context, connectionID, channel string) error
	ByConnection(ctx context.Context, connectionID string) ([]Subscription, error)
	ByChannel(ctx context.Context, channel string) ([]Subscription, error)
	DeleteConnection(ctx context.Context, connectionID string) error
}

// Registry is the connection to channel index shared by every invocation.
// It keeps no state of its own; store errors are returned unchanged.
type Registry struct {
	store  Store
	logger *slog.Logger
}

func New(store Store, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{store: store, logger: logger}
}

// Subscribe upserts the row for (connectionID, channel).
func (r *Registry) Subscribe(ctx context.Context, connectionID, channel, userData string) error {
	if err := r.store.Put(ctx, Subscription{ConnectionID: connectionID, Channel: channel, UserData: userData}); err != nil {
		return err
	}
	r.logger.Debug("Subscribed", "connectionID", connectionID, "channel", channel)
	return nil
}

// Unsubscribe removes the row if present.
func (r *Registry) Unsubscribe(ctx context.Context, connectionID, channel string) error {
	if err := r.store.Delete(ctx, connectionID, channel); err != nil {
		return err
	}
	r.logger.Debug("Unsubscribed", "connectionID", connectionID, "channel", channel)
	return nil
}

// ChannelsFor lists every subscription held by a connection.
func (r *Registry) ChannelsFor(ctx context.Context, connectionID string) ([]Subscription, error) {
	subs, err := r.store.ByConnection(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if subs == nil {
		subs = []Subscription{}
	}
	return subs, nil
}

// MembersFor lists every subscription on a channel, user data included.
func (r *Registry) MembersFor(ctx context.Context, channel string) ([]Subscription, error) {
	subs, err := r.store.ByChannel(ctx, channel)
	if err != nil {
		return nil, err
	}
	if subs == nil {
		subs = []Subscription{}
	}
	return subs, nil
}

// ConnectionsFor resolves one or more channels to the deduplicated set of
// subscribed connection ids. Channels are looked up concurrently.
func (r *Registry) ConnectionsFor(ctx context.Context, channels ...string) ([]string, error) {
	results := make([][]Subscription, len(channels))
	errs := make([]error, len(channels))

	if len(channels) == 1 {
		results[0], errs[0] = r.store.ByChannel(ctx, channels[0])
	} else {
		var wg sync.WaitGroup
		for i, channel := range channels {
			wg.Add(1)
			go func(i int, channel string) {
				defer wg.Done()
				results[i], errs[i] = r.store.ByChannel(ctx, channel)
			}(i, channel)
		}
		wg.Wait()
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, subs := range results {
		for _, sub := range subs {
			if _, ok := seen[sub.ConnectionID]; ok {
				continue
			}
			seen[sub.ConnectionID] = struct{}{}
			ids = append(ids, sub.ConnectionID)
		}
	}
	return ids, nil
}

// ClearConnection deletes every row owned by a connection. It is safe to
// call for a connection without rows.
func (r *Registry) ClearConnection(ctx context.Context, connectionID string) error {
	if err := r.store.DeleteConnection(ctx, connectionID); err != nil {
		return err
	}
	r.logger.Debug("Cleared connection", "connectionID", connectionID)
	return nil
}
