package broadcast

import (
	"context"
	"log/slog"
	"sync"

	"echo-gateway/internal/registry"
	"echo-gateway/internal/transport"

	"github.com/hashicorp/go-multierror"
)

const defaultMaxConcurrency = 32

// Sender delivers serialized messages to connections and prunes the
// registry when the transport reports a connection as gone.
type Sender struct {
	transport      transport.Transport
	registry       *registry.Registry
	logger         *slog.Logger
	maxConcurrency int
}

func NewSender(t transport.Transport, reg *registry.Registry, logger *slog.Logger, maxConcurrency int) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	if maxConcurrency <= 0 {
		maxConcurrency = defaultMaxConcurrency
	}
	return &Sender{
		transport:      t,
		registry:       reg,
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}
}

// Send delivers payload to one connection. A gone connection is cleared from
// the registry and reported as success; any other failure is returned.
func (s *Sender) Send(ctx context.Context, connectionID string, payload []byte) error {
	err := s.transport.Post(ctx, connectionID, payload)
	if err == nil {
		return nil
	}
	if !transport.IsGone(err) {
		return err
	}

	s.logger.Info("Connection gone, clearing subscriptions", "connectionID", connectionID)
	return s.registry.ClearConnection(ctx, connectionID)
}

// Broadcast fans payload out to every connection subscribed to any of the
// channels, except skipConnectionID. Every recipient is attempted; failures
// are collected and returned together.
func (s *Sender) Broadcast(ctx context.Context, channels []string, payload []byte, skipConnectionID string) error {
	recipients, err := s.registry.ConnectionsFor(ctx, channels...)
	if err != nil {
		return err
	}

	var (
		mu     sync.Mutex
		result *multierror.Error
		wg     sync.WaitGroup
		sem    = make(chan struct{}, s.maxConcurrency)
	)

	for _, connectionID := range recipients {
		if connectionID == skipConnectionID {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(connectionID string) {
			defer func() {
				<-sem
				wg.Done()
			}()

			if err := s.Send(ctx, connectionID, payload); err != nil {
				s.logger.Error("Failed to deliver message",
					"connectionID", connectionID,
					"channels", channels,
					"error", err)
				mu.Lock()
				result = multierror.Append(result, err)
				mu.Unlock()
			}
		}(connectionID)
	}
	wg.Wait()

	return result.ErrorOrNil()
}
