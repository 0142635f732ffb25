package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/eapache/queue"

	"echo-gateway/internal/protocol"
)

const (
	defaultReconnectDelay      = time.Second
	defaultErrorReconnectDelay = 3 * time.Second
	defaultPingInterval        = 60 * time.Second
	defaultMaxBuffer           = 1000
	defaultAuthTimeout         = 10 * time.Second
	writeTimeout               = 10 * time.Second
)

var ErrNoAuthEndpoint = errors.New("client: auth endpoint not configured")

// State is the lifecycle position of a Socket.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateIdentified
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateIdentified:
		return "identified"
	case StateClosing:
		return "closing"
	default:
		return "disconnected"
	}
}

// Listener receives the data member of an inbound event.
type Listener func(data json.RawMessage)

// Message is an outbound client frame.
type Message struct {
	Event   string `json:"event"`
	Channel string `json:"channel,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type Options struct {
	// Host is the websocket URL of the gateway.
	Host string
	// AuthEndpoint signs private and presence subscriptions.
	AuthEndpoint string
	BearerToken  string
	// Headers are sent with auth requests and the websocket handshake.
	Headers http.Header
	// Namespace qualifies short event names. Empty selects
	// DefaultNamespace unless DisableNamespace is set.
	Namespace        string
	DisableNamespace bool

	ReconnectDelay      time.Duration
	ErrorReconnectDelay time.Duration
	PingInterval        time.Duration
	MaxBuffer           int

	Dialer     Dialer
	HTTPClient *http.Client
	Logger     *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = defaultReconnectDelay
	}
	if o.ErrorReconnectDelay <= 0 {
		o.ErrorReconnectDelay = defaultErrorReconnectDelay
	}
	if o.PingInterval <= 0 {
		o.PingInterval = defaultPingInterval
	}
	if o.MaxBuffer <= 0 {
		o.MaxBuffer = defaultMaxBuffer
	}
	if o.Namespace == "" && !o.DisableNamespace {
		o.Namespace = DefaultNamespace
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: defaultAuthTimeout}
	}
	if o.Dialer == nil {
		o.Dialer = &WebsocketDialer{Header: o.Headers, HTTPClient: o.HTTPClient}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

type subscribeData struct {
	Channel     string `json:"channel"`
	Auth        string `json:"auth,omitempty"`
	ChannelData string `json:"channel_data,omitempty"`
}

type authResponse struct {
	Auth        string `json:"auth"`
	ChannelData string `json:"channel_data,omitempty"`
}

// Socket owns one logical connection to the gateway. It reconnects on its
// own, buffers frames sent while offline and replays its channel backlog
// every time the server identifies a new physical socket.
type Socket struct {
	opts   Options
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	state     State
	conn      Conn
	socketID  string
	closing   bool
	buffer    *queue.Queue
	backlog   []string
	listeners map[string]map[string][]Listener
	internal  map[string][]Listener
	reconnect *time.Timer
	stopPing  chan struct{}

	wg sync.WaitGroup
}

func NewSocket(opts Options) *Socket {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Socket{
		opts:      opts,
		logger:    opts.Logger.With("component", "socket"),
		ctx:       ctx,
		cancel:    cancel,
		buffer:    queue.New(),
		listeners: make(map[string]map[string][]Listener),
		internal:  make(map[string][]Listener),
	}
	s.internal[protocol.EventWhoami] = []Listener{s.identified}
	return s
}

// Connect starts dialing in the background. It is a no-op unless the
// socket is disconnected.
func (s *Socket) Connect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing || s.state != StateDisconnected {
		return
	}
	s.connectLocked()
}

func (s *Socket) connectLocked() {
	if s.opts.Host == "" {
		s.logger.Error("Cannot connect without a host")
		return
	}
	s.state = StateConnecting
	s.wg.Add(1)
	go s.dial()
}

func (s *Socket) dial() {
	defer s.wg.Done()

	s.logger.Debug("Dialing gateway", "host", s.opts.Host)
	conn, err := s.opts.Dialer.Dial(s.ctx, s.opts.Host)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateDisconnected
		if s.closing {
			return
		}
		s.logger.Warn("Dial failed, retrying", "error", err, "delay", s.opts.ErrorReconnectDelay)
		s.scheduleReconnectLocked(s.opts.ErrorReconnectDelay)
		return
	}
	if s.closing {
		go conn.Close()
		return
	}
	s.openedLocked(conn)
}

func (s *Socket) scheduleReconnectLocked(delay time.Duration) {
	s.reconnect = time.AfterFunc(delay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closing || s.state != StateDisconnected {
			return
		}
		s.socketID = ""
		s.connectLocked()
	})
}

func (s *Socket) openedLocked(conn Conn) {
	s.logger.Debug("Connected", "host", s.opts.Host)
	s.conn = conn
	s.state = StateConnected
	stop := make(chan struct{})
	s.stopPing = stop

	s.writeLocked(Message{Event: protocol.EventWhoami})
	for s.buffer.Length() > 0 {
		s.writeLocked(s.buffer.Remove().(Message))
	}

	s.wg.Add(2)
	go s.readLoop(conn)
	go s.pingLoop(conn, stop)
}

func (s *Socket) writeLocked(msg Message) {
	b, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("Failed to encode frame", "event", msg.Event, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(s.ctx, writeTimeout)
	defer cancel()
	if err := s.conn.Write(ctx, b); err != nil {
		s.logger.Warn("Write failed", "event", msg.Event, "error", err)
	}
}

func (s *Socket) readLoop(conn Conn) {
	defer s.wg.Done()
	for {
		data, err := conn.Read(s.ctx)
		if err != nil {
			s.closed(conn, err)
			return
		}
		s.dispatch(data)
	}
}

func (s *Socket) pingLoop(conn Conn, stop <-chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.conn == conn {
				s.writeLocked(Message{Event: protocol.EventPing})
			}
			s.mu.Unlock()
		}
	}
}

func (s *Socket) closed(conn Conn, err error) {
	s.mu.Lock()
	if s.conn != conn {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	if s.stopPing != nil {
		close(s.stopPing)
		s.stopPing = nil
	}
	s.state = StateDisconnected
	if !s.closing {
		s.logger.Info("Connection lost, reconnecting", "error", err, "delay", s.opts.ReconnectDelay)
		s.scheduleReconnectLocked(s.opts.ReconnectDelay)
	}
	s.mu.Unlock()
	_ = conn.Close()
}

func (s *Socket) dispatch(data []byte) {
	var frame struct {
		Event   string          `json:"event"`
		Channel string          `json:"channel"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		s.logger.Debug("Ignoring undecodable frame", "error", err)
		return
	}

	s.mu.Lock()
	var targets []Listener
	if frame.Channel != "" {
		targets = slices.Clone(s.listeners[frame.Channel][frame.Event])
	} else {
		targets = slices.Clone(s.internal[frame.Event])
	}
	s.mu.Unlock()

	for _, l := range targets {
		l(frame.Data)
	}
}

func (s *Socket) identified(data json.RawMessage) {
	var payload struct {
		SocketID string `json:"socket_id"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.SocketID == "" {
		s.logger.Warn("Ignoring whoami without socket_id")
		return
	}

	s.mu.Lock()
	s.socketID = payload.SocketID
	if s.state == StateConnected {
		s.state = StateIdentified
	}
	backlog := slices.Clone(s.backlog)
	s.mu.Unlock()

	s.logger.Debug("Identified", "socket_id", payload.SocketID, "backlog", len(backlog))
	for _, channel := range backlog {
		s.subscribeAs(channel, payload.SocketID)
	}
}

// Send writes the frame when the socket is open and buffers it otherwise.
// The buffer keeps the newest MaxBuffer frames.
func (s *Socket) Send(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.writeLocked(msg)
		return
	}
	s.buffer.Add(msg)
	if s.buffer.Length() > s.opts.MaxBuffer {
		dropped := s.buffer.Remove().(Message)
		s.logger.Warn("Outbound buffer full, dropping oldest frame", "event", dropped.Event)
	}
}

// Subscribe records the channel in the backlog and subscribes right away
// when the socket is identified. The backlog is replayed on reconnect.
func (s *Socket) Subscribe(channel string) {
	s.mu.Lock()
	if !slices.Contains(s.backlog, channel) {
		s.backlog = append(s.backlog, channel)
	}
	id := s.socketID
	s.mu.Unlock()

	if id == "" {
		s.logger.Debug("Subscription deferred until identified", "channel", channel)
		return
	}
	s.subscribeAs(channel, id)
}

func (s *Socket) subscribeAs(channel, socketID string) {
	if !protocol.TypeOf(channel).RequiresAuth() {
		s.Send(Message{Event: protocol.EventSubscribe, Data: subscribeData{Channel: channel}})
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		auth, err := s.authorize(s.ctx, channel, socketID)
		if err != nil {
			s.logger.Error("Channel authorization failed", "channel", channel, "error", err)
			return
		}
		s.mu.Lock()
		current := s.socketID
		s.mu.Unlock()
		if current != socketID {
			// the new socket replays its backlog with a fresh signature
			return
		}
		s.Send(Message{Event: protocol.EventSubscribe, Data: subscribeData{
			Channel:     channel,
			Auth:        auth.Auth,
			ChannelData: auth.ChannelData,
		}})
	}()
}

func (s *Socket) authorize(ctx context.Context, channel, socketID string) (*authResponse, error) {
	if s.opts.AuthEndpoint == "" {
		return nil, ErrNoAuthEndpoint
	}
	body, err := json.Marshal(map[string]string{"socket_id": socketID, "channel_name": channel})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.opts.AuthEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for k, vs := range s.opts.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if s.opts.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.opts.BearerToken)
	}

	resp, err := s.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("auth endpoint returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	var auth authResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return nil, fmt.Errorf("decode auth response: %w", err)
	}
	return &auth, nil
}

// Unsubscribe leaves the channel, drops its listeners and removes it from
// the backlog.
func (s *Socket) Unsubscribe(channel string) {
	s.Send(Message{Event: protocol.EventUnsubscribe, Data: subscribeData{Channel: channel}})

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listeners, channel)
	s.backlog = slices.DeleteFunc(s.backlog, func(c string) bool { return c == channel })
}

// On registers a listener for events that arrive without a channel.
func (s *Socket) On(event string, l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.internal[event] = append(s.internal[event], l)
}

func (s *Socket) Bind(channel, event string, l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	events, ok := s.listeners[channel]
	if !ok {
		events = make(map[string][]Listener)
		s.listeners[channel] = events
	}
	events[event] = append(events[event], l)
}

func (s *Socket) Unbind(channel, event string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if events, ok := s.listeners[channel]; ok {
		delete(events, event)
	}
}

func (s *Socket) SocketID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.socketID
}

func (s *Socket) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close stops reconnecting and keepalive, closes the physical socket and
// waits for background work to finish. A closed Socket cannot be reused.
func (s *Socket) Close() error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	s.state = StateClosing
	if s.reconnect != nil {
		s.reconnect.Stop()
	}
	if s.stopPing != nil {
		close(s.stopPing)
		s.stopPing = nil
	}
	s.internal = make(map[string][]Listener)
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close()
	}
	s.cancel()
	s.wg.Wait()

	s.mu.Lock()
	s.state = StateDisconnected
	s.mu.Unlock()
	return err
}
