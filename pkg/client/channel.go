package client

import (
	"encoding/json"

	"echo-gateway/internal/protocol"
)

// Channel is a subscribed channel as seen by application code. Event names
// passed to Listen and StopListening go through the connector's
// EventFormatter; the remaining methods take raw event names.
type Channel struct {
	name      string
	socket    *Socket
	formatter EventFormatter
}

func newChannel(socket *Socket, name string, formatter EventFormatter) *Channel {
	c := &Channel{name: name, socket: socket, formatter: formatter}
	c.Subscribe()
	return c
}

func (c *Channel) Name() string {
	return c.name
}

func (c *Channel) Subscribe() {
	c.socket.Subscribe(c.name)
}

func (c *Channel) Unsubscribe() {
	c.socket.Unsubscribe(c.name)
}

// Listen binds to an application event.
func (c *Channel) Listen(event string, l Listener) *Channel {
	return c.On(c.formatter.Format(event), l)
}

func (c *Channel) StopListening(event string) *Channel {
	c.socket.Unbind(c.name, c.formatter.Format(event))
	return c
}

func (c *Channel) On(event string, l Listener) *Channel {
	c.socket.Bind(c.name, event, l)
	return c
}

func (c *Channel) Subscribed(fn func()) *Channel {
	return c.On(protocol.EventSubscriptionSucceeded, func(json.RawMessage) { fn() })
}

func (c *Channel) Error(l Listener) *Channel {
	return c.On(protocol.EventError, l)
}

// Whisper sends a client event that the server relays to the other
// subscribers of the channel.
func (c *Channel) Whisper(event string, data any) *Channel {
	c.socket.Send(Message{Event: protocol.ClientEventPrefix + event, Channel: c.name, Data: data})
	return c
}

func (c *Channel) ListenForWhisper(event string, l Listener) *Channel {
	return c.On(protocol.ClientEventPrefix+event, l)
}

// Here receives the member list once a presence subscription succeeds.
func (c *Channel) Here(fn func(members []json.RawMessage)) *Channel {
	return c.On(protocol.EventSubscriptionSucceeded, func(data json.RawMessage) {
		var members []json.RawMessage
		if len(data) > 0 {
			if err := json.Unmarshal(data, &members); err != nil {
				c.socket.logger.Warn("Undecodable member list", "channel", c.name, "error", err)
				return
			}
		}
		fn(members)
	})
}

func (c *Channel) Joining(l Listener) *Channel {
	return c.On(protocol.EventMemberAdded, l)
}

func (c *Channel) Leaving(l Listener) *Channel {
	return c.On(protocol.EventMemberRemoved, l)
}
