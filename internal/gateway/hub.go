package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"echo-gateway/internal/protocol"
	"echo-gateway/internal/transport"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// dispatchTimeout bounds one invocation of the dispatcher.
const dispatchTimeout = 30 * time.Second

// Dispatcher handles transport events for the edge. *router.Router
// satisfies it in-process; ForwardingDispatcher sends them over HTTP.
type Dispatcher interface {
	Handle(ctx context.Context, env *protocol.Envelope) error
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub is the websocket edge. It owns every live socket, assigns connection
// ids, reports CONNECT/MESSAGE/DISCONNECT to its dispatcher and implements
// transport.Transport for the sockets it holds.
type Hub struct {
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client

	dispatcher Dispatcher

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.RWMutex
	wg     sync.WaitGroup
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// SetDispatcher must be called before Run.
func (h *Hub) SetDispatcher(d Dispatcher) {
	h.dispatcher = d
}

func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-h.ctx.Done():
			h.logger.Info("WebSocket hub shutting down")
			h.closeAll()
			return
		}
	}
}

// Stop closes every socket and waits for the resulting disconnect
// invocations. Run must have been started.
func (h *Hub) Stop() {
	h.cancel()
	<-h.done
	h.wg.Wait()
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client.id] = client
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("Client registered", "connectionID", client.id, "total", total)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	current, ok := h.clients[client.id]
	if ok && current == client {
		delete(h.clients, client.id)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	client.close()
	h.logger.Info("Client unregistered", "connectionID", client.id, "total", total)

	h.disconnected(client.id)
}

// disconnected reports DISCONNECT without blocking the hub loop. The
// socket is already gone, so the invocation gets a fresh context.
func (h *Hub) disconnected(connectionID string) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.dispatch(context.Background(), protocol.NewEnvelope(protocol.EventTypeDisconnect, connectionID, nil))
	}()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
		h.disconnected(c.id)
	}
}

func (h *Hub) dispatch(ctx context.Context, env *protocol.Envelope) {
	if h.dispatcher == nil {
		h.logger.Error("No dispatcher configured, dropping event",
			"eventType", env.RequestContext.EventType,
			"connectionID", env.RequestContext.ConnectionID)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()

	if err := h.dispatcher.Handle(ctx, env); err != nil {
		h.logger.Error("Failed to handle event",
			"eventType", env.RequestContext.EventType,
			"connectionID", env.RequestContext.ConnectionID,
			"error", err)
	}
}

// ServeWS upgrades the request, reports CONNECT and starts the pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := newClient(h, conn, uuid.New().String())

	select {
	case h.register <- client:
	case <-h.ctx.Done():
		conn.Close()
		return
	}

	h.dispatch(client.ctx, protocol.NewEnvelope(protocol.EventTypeConnect, client.id, nil))

	client.wg.Add(2)
	go client.writePump()
	go client.readPump()
}

func (h *Hub) client(connectionID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[connectionID]
	return c, ok
}

// Post delivers data to a connection held by this hub.
func (h *Hub) Post(_ context.Context, connectionID string, data []byte) error {
	c, ok := h.client(connectionID)
	if !ok {
		return &transport.DeliveryError{ConnectionID: connectionID, Err: transport.ErrGone}
	}

	switch err := c.enqueue(data); err {
	case nil:
		return nil
	case ErrBufferFull:
		return &transport.DeliveryError{ConnectionID: connectionID, Err: fmt.Errorf("%w: %v", transport.ErrGone, err)}
	default:
		return &transport.DeliveryError{ConnectionID: connectionID, Err: transport.ErrGone}
	}
}

// Disconnect closes a connection held by this hub.
func (h *Hub) Disconnect(_ context.Context, connectionID string) error {
	c, ok := h.client(connectionID)
	if !ok {
		return &transport.DeliveryError{ConnectionID: connectionID, Err: transport.ErrGone}
	}
	c.close()
	return nil
}

// Connections returns the number of live sockets.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
