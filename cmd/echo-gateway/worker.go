package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"echo-gateway/internal/config"
	"echo-gateway/internal/queue"

	"github.com/spf13/cobra"
)

var errNoBrokers = errors.New("KAFKA_BROKERS is required to consume broadcast jobs")

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume queued broadcast jobs from Kafka and fan them out",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWorker(ctx, cfg, logger, nil)
		},
	}
}

// runWorker consumes until ctx is cancelled. A nil reader connects to the
// configured brokers.
func runWorker(ctx context.Context, cfg *config.Config, logger *slog.Logger, reader queue.MessageReader) error {
	if reader == nil {
		if len(cfg.Kafka.Brokers) == 0 {
			return errNoBrokers
		}
		reader = queue.NewReader(cfg.Kafka)
	}

	c, err := openCore(ctx, cfg, logger)
	if err != nil {
		reader.Close()
		return err
	}
	defer func() {
		if err := c.close(context.Background()); err != nil {
			logger.Error("Failed to close subscription store", "error", err)
		}
	}()

	sender, err := c.remoteSender()
	if err != nil {
		reader.Close()
		return err
	}

	logger.Info("Broadcast worker starting", "topic", cfg.Kafka.Topic, "group", cfg.Kafka.GroupID)
	return queue.NewWorker(reader, sender, logger).Run(ctx)
}
