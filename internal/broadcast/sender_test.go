package broadcast

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"echo-gateway/internal/registry"
	"echo-gateway/internal/transport"
	"echo-gateway/internal/transport/transporttest"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSender(t *testing.T) (*Sender, *registry.Registry, *transporttest.Recorder) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := registry.New(registry.NewMemoryStore(), logger)
	rec := transporttest.NewRecorder()
	return NewSender(rec, reg, logger, 4), reg, rec
}

func subscribe(t *testing.T, reg *registry.Registry, channel string, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, reg.Subscribe(context.Background(), id, channel, ""))
	}
}

func TestSendDelivers(t *testing.T) {
	sender, _, rec := newTestSender(t)

	require.NoError(t, sender.Send(context.Background(), "c1", []byte(`{"event":"pong"}`)))
	assert.Equal(t, []string{`{"event":"pong"}`}, rec.To("c1"))
}

func TestSendGoneClearsConnection(t *testing.T) {
	ctx := context.Background()
	sender, reg, rec := newTestSender(t)
	subscribe(t, reg, "news", "c1")
	subscribe(t, reg, "sports", "c1")
	rec.Fail("c1", &transport.DeliveryError{ConnectionID: "c1", Err: transport.ErrGone})

	require.NoError(t, sender.Send(ctx, "c1", []byte("x")))

	subs, err := reg.ChannelsFor(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestSendPropagatesOtherFailures(t *testing.T) {
	ctx := context.Background()
	sender, reg, rec := newTestSender(t)
	subscribe(t, reg, "news", "c1")
	rec.Fail("c1", transport.ErrLimitExceeded)

	err := sender.Send(ctx, "c1", []byte("x"))
	assert.ErrorIs(t, err, transport.ErrLimitExceeded)

	subs, err := reg.ChannelsFor(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestBroadcastSkipsConnection(t *testing.T) {
	sender, reg, rec := newTestSender(t)
	subscribe(t, reg, "test-channel", "c1", "c2", "c3")

	require.NoError(t, sender.Broadcast(context.Background(), []string{"test-channel"}, []byte("hi"), "c1"))

	assert.Empty(t, rec.To("c1"))
	assert.Equal(t, []string{"hi"}, rec.To("c2"))
	assert.Equal(t, []string{"hi"}, rec.To("c3"))
}

func TestBroadcastDeduplicatesAcrossChannels(t *testing.T) {
	sender, reg, rec := newTestSender(t)
	subscribe(t, reg, "a", "c1", "c2")
	subscribe(t, reg, "b", "c2")
	require.NoError(t, reg.Subscribe(context.Background(), "c2", "a", ""))

	require.NoError(t, sender.Broadcast(context.Background(), []string{"a", "b"}, []byte("hi"), ""))

	assert.Len(t, rec.To("c1"), 1)
	assert.Len(t, rec.To("c2"), 1)
}

func TestBroadcastGoneIsNotAnError(t *testing.T) {
	ctx := context.Background()
	sender, reg, rec := newTestSender(t)
	subscribe(t, reg, "news", "c1", "c2", "c3")
	subscribe(t, reg, "other", "c2")
	rec.Fail("c2", transport.ErrGone)

	require.NoError(t, sender.Broadcast(ctx, []string{"news"}, []byte("hi"), ""))

	assert.Len(t, rec.To("c1"), 1)
	assert.Len(t, rec.To("c3"), 1)
	for _, channel := range []string{"news", "other"} {
		ids, err := reg.ConnectionsFor(ctx, channel)
		require.NoError(t, err)
		assert.NotContains(t, ids, "c2")
	}
}

func TestBroadcastIsolatesAndAggregatesFailures(t *testing.T) {
	sender, reg, rec := newTestSender(t)
	var ids []string
	for i := 0; i < 10; i++ {
		ids = append(ids, fmt.Sprintf("c%d", i))
	}
	subscribe(t, reg, "news", ids...)
	rec.Fail("c3", transport.ErrForbidden)
	rec.Fail("c7", transport.ErrPayloadTooLarge)

	err := sender.Broadcast(context.Background(), []string{"news"}, []byte("hi"), "")
	require.Error(t, err)

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 2)
	assert.ErrorIs(t, err, transport.ErrForbidden)
	assert.ErrorIs(t, err, transport.ErrPayloadTooLarge)
	assert.Len(t, rec.Deliveries(), 8)
}

func TestBroadcastEmptyChannel(t *testing.T) {
	sender, _, rec := newTestSender(t)

	require.NoError(t, sender.Broadcast(context.Background(), []string{"nobody"}, []byte("hi"), ""))
	assert.Empty(t, rec.Deliveries())
}
