package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// EventType is the transport-level event that started an invocation.
type EventType string

const (
	EventTypeConnect    EventType = "CONNECT"
	EventTypeMessage    EventType = "MESSAGE"
	EventTypeDisconnect EventType = "DISCONNECT"
)

func (et EventType) IsValid() bool {
	switch et {
	case EventTypeConnect, EventTypeMessage, EventTypeDisconnect:
		return true
	default:
		return false
	}
}

type RequestContext struct {
	EventType    EventType `json:"eventType"`
	ConnectionID string    `json:"connectionId"`
	RouteKey     string    `json:"routeKey,omitempty"`
	RequestID    string    `json:"requestId,omitempty"`
}

// Envelope is one inbound transport event, shaped like the events an API
// gateway hands to a websocket integration.
type Envelope struct {
	RequestContext RequestContext `json:"requestContext"`
	Body           string         `json:"body,omitempty"`
}

func NewEnvelope(eventType EventType, connectionID string, body []byte) *Envelope {
	return &Envelope{
		RequestContext: RequestContext{
			EventType:    eventType,
			ConnectionID: connectionID,
			RouteKey:     routeKeyFor(eventType),
		},
		Body: string(body),
	}
}

func (e *Envelope) Validate() error {
	if e.RequestContext.ConnectionID == "" {
		return fmt.Errorf("%w: connectionId missing", ErrMalformedMessage)
	}
	if !e.RequestContext.EventType.IsValid() {
		return fmt.Errorf("%w: event type %q has no handler", ErrMalformedMessage, e.RequestContext.EventType)
	}
	return nil
}

// DecodeEnvelope parses a JSON envelope.
func DecodeEnvelope(b []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

// DecodeBase64Envelope parses a base64 encoded JSON envelope, the form used
// when an invocation is passed on a command line.
func DecodeBase64Envelope(s string) (*Envelope, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("unable to unserialize message: %w", err)
	}
	return DecodeEnvelope(b)
}

func routeKeyFor(et EventType) string {
	switch et {
	case EventTypeConnect:
		return "$connect"
	case EventTypeDisconnect:
		return "$disconnect"
	default:
		return "$default"
	}
}
