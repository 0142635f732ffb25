package transport

import (
	"context"
	"errors"
	"fmt"
)

// Delivery failure classes. ErrGone means the connection no longer exists;
// every other class is fatal for the caller.
var (
	ErrGone            = errors.New("connection gone")
	ErrLimitExceeded   = errors.New("delivery rate limit exceeded")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrForbidden       = errors.New("delivery forbidden")
)

// Transport pushes a serialized message to one live connection.
type Transport interface {
	Post(ctx context.Context, connectionID string, data []byte) error
}

// DeliveryError wraps a failed delivery with the target connection.
type DeliveryError struct {
	ConnectionID string
	Err          error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to connection %s: %v", e.ConnectionID, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

func IsGone(err error) bool {
	return errors.Is(err, ErrGone)
}
