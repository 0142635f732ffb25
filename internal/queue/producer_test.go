package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueMessageToChannels(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var job BroadcastJob
		if err := json.Unmarshal(val, &job); err != nil {
			return err
		}
		if len(job.Channels) != 2 || job.Channels[0] != "orders" || job.SkipConnectionID != "c1" {
			return errors.New("unexpected job")
		}
		if string(job.Data) != `{"event":"OrderShipped"}` {
			return errors.New("unexpected data")
		}
		return nil
	})

	p := NewPublisherWithProducer(producer, "echo-gateway.broadcasts", nil)
	err := p.QueueMessageToChannels(context.Background(), []string{"orders", "private-orders.1"}, []byte(`{"event":"OrderShipped"}`), "c1")
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestQueueMessageToChannelsFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewPublisherWithProducer(producer, "topic", nil)
	err := p.Broadcast(context.Background(), []string{"orders"}, []byte(`{}`), "")
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}

func TestQueueMessageToChannelsRejectsEmptyJob(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	p := NewPublisherWithProducer(producer, "topic", nil)

	assert.ErrorIs(t, p.QueueMessageToChannels(context.Background(), nil, []byte(`{}`), ""), ErrInvalidJob)
	assert.ErrorIs(t, p.QueueMessageToChannels(context.Background(), []string{"a"}, nil, ""), ErrInvalidJob)
	require.NoError(t, p.Close())
}

func TestProducerConfig(t *testing.T) {
	cfg := NewProducerConfig()

	assert.Equal(t, sarama.WaitForAll, cfg.Producer.RequiredAcks)
	assert.True(t, cfg.Producer.Return.Successes)
	assert.NoError(t, cfg.Validate())
}
