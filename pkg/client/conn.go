package client

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
)

// Conn is one physical socket.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}

// Dialer opens physical sockets.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

const readLimit = 1 << 20

// WebsocketDialer dials with github.com/coder/websocket.
type WebsocketDialer struct {
	Header     http.Header
	HTTPClient *http.Client
}

func (d *WebsocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: d.Header,
		HTTPClient: d.HTTPClient,
	})
	if err != nil {
		return nil, err
	}
	c.SetReadLimit(readLimit)
	return &websocketConn{conn: c}, nil
}

type websocketConn struct {
	conn *websocket.Conn
}

func (c *websocketConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := c.conn.Read(ctx)
	return data, err
}

func (c *websocketConn) Write(ctx context.Context, data []byte) error {
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (c *websocketConn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}
