package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
)

// NewProducerConfig returns the sarama settings used for broadcast jobs.
func NewProducerConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Version = sarama.V2_0_0_0
	config.ClientID = "echo-gateway"
	config.Producer.MaxMessageBytes = 1000000
	return config
}

// Publisher enqueues broadcast jobs on a Kafka topic.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

func NewPublisher(brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	producer, err := sarama.NewSyncProducer(brokers, NewProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewPublisherWithProducer(producer, topic, logger), nil
}

func NewPublisherWithProducer(producer sarama.SyncProducer, topic string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{producer: producer, topic: topic, logger: logger}
}

// QueueMessageToChannels enqueues data for delivery to every subscriber
// of channels except skipConnectionID.
func (p *Publisher) QueueMessageToChannels(ctx context.Context, channels []string, data []byte, skipConnectionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	job := BroadcastJob{Channels: channels, Data: data, SkipConnectionID: skipConnectionID}
	if err := job.Validate(); err != nil {
		return err
	}
	value, err := json.Marshal(job)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(channels[0]),
		Value: sarama.ByteEncoder(value),
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to enqueue broadcast job: %w", err)
	}

	p.logger.Debug("Queued broadcast job",
		"channels", channels,
		"partition", partition,
		"offset", offset)
	return nil
}

// Broadcast lets a Publisher stand in for the in-process fan-out.
func (p *Publisher) Broadcast(ctx context.Context, channels []string, payload []byte, skipConnectionID string) error {
	return p.QueueMessageToChannels(ctx, channels, payload, skipConnectionID)
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}
