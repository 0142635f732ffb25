package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrMalformedMessage = errors.New("malformed message")

// Event names used on the wire.
const (
	EventWhoami                  = "whoami"
	EventPing                    = "ping"
	EventPong                    = "pong"
	EventSubscribe               = "subscribe"
	EventUnsubscribe             = "unsubscribe"
	EventSubscriptionSucceeded   = "subscription_succeeded"
	EventUnsubscriptionSucceeded = "unsubscription_succeeded"
	EventError                   = "error"
	EventMemberAdded             = "member_added"
	EventMemberRemoved           = "member_removed"

	ClientEventPrefix = "client-"
)

// Kind is the closed set of inbound message kinds the router dispatches on.
type Kind int

const (
	KindUnknown Kind = iota
	KindPing
	KindWhoami
	KindSubscribe
	KindUnsubscribe
	KindClientEvent
)

func (k Kind) String() string {
	switch k {
	case KindPing:
		return EventPing
	case KindWhoami:
		return EventWhoami
	case KindSubscribe:
		return EventSubscribe
	case KindUnsubscribe:
		return EventUnsubscribe
	case KindClientEvent:
		return "client-event"
	default:
		return "unknown"
	}
}

// Classify maps an inbound event name onto its Kind.
func Classify(event string) Kind {
	switch event {
	case EventPing:
		return KindPing
	case EventWhoami:
		return KindWhoami
	case EventSubscribe:
		return KindSubscribe
	case EventUnsubscribe:
		return KindUnsubscribe
	}
	if strings.HasPrefix(event, ClientEventPrefix) {
		return KindClientEvent
	}
	return KindUnknown
}

// Frame is an inbound client message.
type Frame struct {
	Event   string
	Channel *string
	Data    json.RawMessage
}

func (f *Frame) Kind() Kind {
	return Classify(f.Event)
}

// ChannelName returns the top level channel or an empty string.
func (f *Frame) ChannelName() string {
	if f.Channel == nil {
		return ""
	}
	return *f.Channel
}

// ParseFrame decodes a client message. A body that is not JSON or lacks the
// event key is rejected with ErrMalformedMessage.
func ParseFrame(body []byte) (*Frame, error) {
	var raw struct {
		Event   *string         `json:"event"`
		Channel *string         `json:"channel"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if raw.Event == nil {
		return nil, fmt.Errorf("%w: event missing", ErrMalformedMessage)
	}
	return &Frame{Event: *raw.Event, Channel: raw.Channel, Data: raw.Data}, nil
}

// SubscribeData is the payload of subscribe and unsubscribe requests.
type SubscribeData struct {
	Channel     string      `json:"channel"`
	Auth        string      `json:"auth"`
	ChannelData ChannelData `json:"channel_data"`
}

// ParseSubscribeData decodes the data member of a subscribe or unsubscribe
// frame. Missing auth and channel_data default to empty.
func ParseSubscribeData(data json.RawMessage) (*SubscribeData, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: data missing", ErrMalformedMessage)
	}
	var sd SubscribeData
	if err := json.Unmarshal(data, &sd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if sd.Channel == "" {
		return nil, fmt.Errorf("%w: data.channel missing", ErrMalformedMessage)
	}
	return &sd, nil
}

// ChannelData holds the serialized presence payload exactly as it was
// signed. Clients normally send it as a JSON string; an inline object is
// kept in its compact encoding, and null or an empty array mean no data.
type ChannelData string

func (c *ChannelData) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")), bytes.Equal(trimmed, []byte("[]")):
		*c = ""
		return nil
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*c = ChannelData(s)
		return nil
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return err
		}
		*c = ChannelData(buf.String())
		return nil
	}
}

// Message is an outbound server event.
type Message struct {
	Event   string          `json:"event"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

var emptyList = json.RawMessage("[]")

func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// pong always carries the channel key, null when the ping had none.
type pong struct {
	Event   string  `json:"event"`
	Channel *string `json:"channel"`
}

func EncodePong(channel *string) ([]byte, error) {
	return json.Marshal(pong{Event: EventPong, Channel: channel})
}

func EncodeWhoami(connectionID string) ([]byte, error) {
	data, err := json.Marshal(map[string]string{"socket_id": connectionID})
	if err != nil {
		return nil, err
	}
	return (&Message{Event: EventWhoami, Data: data}).Encode()
}

func EncodeSubscriptionSucceeded(channel string, members []json.RawMessage) ([]byte, error) {
	data := emptyList
	if len(members) > 0 {
		encoded, err := json.Marshal(members)
		if err != nil {
			return nil, err
		}
		data = encoded
	}
	return (&Message{Event: EventSubscriptionSucceeded, Channel: channel, Data: data}).Encode()
}

func EncodeUnsubscriptionSucceeded(channel string) ([]byte, error) {
	return (&Message{Event: EventUnsubscriptionSucceeded, Channel: channel, Data: emptyList}).Encode()
}

// EncodeError builds an error event. An empty channel and message produce
// the bare {"event":"error"} answer to unrecognised events.
func EncodeError(channel, message string) ([]byte, error) {
	msg := &Message{Event: EventError, Channel: channel}
	if message != "" {
		data, err := json.Marshal(map[string]string{"message": message})
		if err != nil {
			return nil, err
		}
		msg.Data = data
	}
	return msg.Encode()
}

// EncodeEvent builds a channel event carrying an arbitrary payload.
func EncodeEvent(event, channel string, payload any) ([]byte, error) {
	var data json.RawMessage
	switch p := payload.(type) {
	case nil:
	case json.RawMessage:
		data = p
	default:
		encoded, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		data = encoded
	}
	return (&Message{Event: event, Channel: channel, Data: data}).Encode()
}
