package broadcast

import (
	"context"
	"fmt"
	"log/slog"

	"echo-gateway/internal/protocol"

	"github.com/hashicorp/go-multierror"
)

// SocketKey is the payload key naming a connection to exclude from a
// server-side publish, usually the connection that triggered it.
const SocketKey = "socket"

// Fanout is the part of Sender the driver needs.
type Fanout interface {
	Broadcast(ctx context.Context, channels []string, payload []byte, skipConnectionID string) error
}

// Driver publishes application events to channels from the server side.
type Driver struct {
	fanout Fanout
	logger *slog.Logger
}

func NewDriver(fanout Fanout, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{fanout: fanout, logger: logger}
}

// Broadcast sends {event, channel, data: payload} to each channel. A string
// "socket" entry is removed from payload and used as the skip connection.
func (d *Driver) Broadcast(ctx context.Context, channels []string, event string, payload map[string]any) error {
	skip := PullSocket(payload)

	var result *multierror.Error
	for _, channel := range channels {
		msg, err := protocol.EncodeEvent(event, channel, payload)
		if err != nil {
			return fmt.Errorf("encode %s for %s: %w", event, channel, err)
		}
		if err := d.fanout.Broadcast(ctx, []string{channel}, msg, skip); err != nil {
			result = multierror.Append(result, fmt.Errorf("broadcast %s to %s: %w", event, channel, err))
		}
	}

	d.logger.Debug("Published event", "event", event, "channels", channels, "skip", skip)
	return result.ErrorOrNil()
}

// PullSocket removes and returns the skip connection id from payload.
func PullSocket(payload map[string]any) string {
	if payload == nil {
		return ""
	}
	v, ok := payload[SocketKey]
	if !ok {
		return ""
	}
	delete(payload, SocketKey)
	s, _ := v.(string)
	return s
}
