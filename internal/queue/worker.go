package queue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"echo-gateway/internal/config"

	"github.com/segmentio/kafka-go"
)

// Fanout runs a broadcast job.
type Fanout interface {
	Broadcast(ctx context.Context, channels []string, payload []byte, skipConnectionID string) error
}

// MessageReader is the part of *kafka.Reader the worker uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Worker consumes broadcast jobs and fans them out.
type Worker struct {
	reader MessageReader
	fanout Fanout
	logger *slog.Logger
}

func NewReader(cfg config.KafkaConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        500 * time.Millisecond,
		CommitInterval: 0,
	})
}

func NewWorker(reader MessageReader, fanout Fanout, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{reader: reader, fanout: fanout, logger: logger}
}

// Run processes jobs until ctx is cancelled. A job is committed once it
// was attempted; delivery failures are logged, not retried.
func (w *Worker) Run(ctx context.Context) error {
	defer w.reader.Close()

	for {
		msg, err := w.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				w.logger.Info("Broadcast worker stopped")
				return nil
			}
			return err
		}

		w.process(ctx, msg)

		if err := w.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (w *Worker) process(ctx context.Context, msg kafka.Message) {
	job, err := decodeJob(msg.Value)
	if err != nil {
		w.logger.Error("Dropping broadcast job", "partition", msg.Partition, "offset", msg.Offset, "error", err)
		return
	}

	if err := w.fanout.Broadcast(ctx, job.Channels, job.Data, job.SkipConnectionID); err != nil {
		w.logger.Error("Broadcast job finished with failures",
			"channels", job.Channels,
			"offset", msg.Offset,
			"error", err)
		return
	}
	w.logger.Debug("Broadcast job delivered", "channels", job.Channels, "offset", msg.Offset)
}
