package client

import (
	"strings"
	"sync"

	"echo-gateway/internal/protocol"
)

// Connector is the application-facing entry point. It owns one Socket and
// hands out one Channel per name.
type Connector struct {
	socket    *Socket
	formatter EventFormatter

	mu       sync.Mutex
	channels map[string]*Channel
}

// NewConnector builds the socket and starts connecting.
func NewConnector(opts Options) *Connector {
	opts = opts.withDefaults()
	c := &Connector{
		socket:    NewSocket(opts),
		formatter: NewEventFormatter(opts.Namespace),
		channels:  make(map[string]*Channel),
	}
	c.socket.Connect()
	return c
}

func (c *Connector) Socket() *Socket {
	return c.socket
}

func (c *Connector) Channel(name string) *Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := c.channels[name]; ok {
		return ch
	}
	ch := newChannel(c.socket, name, c.formatter)
	c.channels[name] = ch
	return ch
}

func (c *Connector) PrivateChannel(name string) *Channel {
	return c.Channel(protocol.PrivatePrefix + name)
}

func (c *Connector) PresenceChannel(name string) *Channel {
	return c.Channel(protocol.PresencePrefix + name)
}

// Leave drops the bare name together with its private and presence forms.
func (c *Connector) Leave(name string) {
	name = strings.TrimPrefix(strings.TrimPrefix(name, protocol.PrivatePrefix), protocol.PresencePrefix)
	for _, n := range []string{name, protocol.PrivatePrefix + name, protocol.PresencePrefix + name} {
		c.LeaveChannel(n)
	}
}

func (c *Connector) LeaveChannel(name string) {
	c.mu.Lock()
	ch, ok := c.channels[name]
	delete(c.channels, name)
	c.mu.Unlock()
	if ok {
		ch.Unsubscribe()
	}
}

func (c *Connector) SocketID() string {
	return c.socket.SocketID()
}

func (c *Connector) Disconnect() error {
	return c.socket.Close()
}
