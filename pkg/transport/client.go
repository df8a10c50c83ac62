// ABOUTME: WebSocket client for session protocol communication
// ABOUTME: Handles connection lifecycle, reconnect backoff and message routing
package transport

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kikitori/kikitori-go/pkg/protocol"
)

const (
	DefaultBaseDelay      = 2 * time.Second
	DefaultMaxAttempts    = 5
	DefaultConnectTimeout = 5 * time.Second
	DefaultPollInterval   = 100 * time.Millisecond
)

var (
	// ErrNotOpen is returned by Send when the channel is not Open
	ErrNotOpen = errors.New("transport not open")

	// ErrConnectTimeout is returned by Reconnect when Open was not reached in time
	ErrConnectTimeout = errors.New("timed out waiting for connection")
)

// Dialer opens WebSocket connections; *websocket.Dialer satisfies it
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// Observer receives transport events for metrics
type Observer interface {
	Reconnecting(attempt int, delay time.Duration)
	Received(msgType string)
	Sent(msgType string)
	Malformed()
}

type nopObserver struct{}

func (nopObserver) Reconnecting(int, time.Duration) {}
func (nopObserver) Received(string)                 {}
func (nopObserver) Sent(string)                     {}
func (nopObserver) Malformed()                      {}

// Config holds client configuration
type Config struct {
	// URL is the server base, e.g. ws://localhost:8000
	URL       string
	SessionID string

	BaseDelay      time.Duration
	MaxAttempts    int
	ConnectTimeout time.Duration
	PollInterval   time.Duration

	Dialer Dialer
	Header http.Header

	// Wait sleeps for a backoff delay; it must return early when ctx ends
	Wait func(ctx context.Context, d time.Duration) error

	Observer Observer
}

// Client represents a reconnecting WebSocket client
type Client struct {
	config Config

	mu        sync.RWMutex
	conn      *websocket.Conn
	state     State
	attempts  int
	gen       uint64
	baseCtx   context.Context
	runCancel context.CancelFunc
	runDone   chan struct{}

	writeMu sync.Mutex

	hooksMu    sync.RWMutex
	onMessage  func(protocol.Envelope)
	onState    func(State)
	listeners  map[int]func(protocol.Envelope)
	listenerID int
}

// NewClient creates a new client; it does not connect
func NewClient(config Config) *Client {
	if config.BaseDelay == 0 {
		config.BaseDelay = DefaultBaseDelay
	}
	if config.MaxAttempts == 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}
	if config.PollInterval == 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.Dialer == nil {
		config.Dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: config.ConnectTimeout,
		}
	}
	if config.Wait == nil {
		config.Wait = sleep
	}
	if config.Observer == nil {
		config.Observer = nopObserver{}
	}

	return &Client{
		config:    config,
		state:     Closed,
		listeners: make(map[int]func(protocol.Envelope)),
	}
}

// Endpoint returns the session WebSocket URL
func (c *Client) Endpoint() string {
	return strings.TrimRight(c.config.URL, "/") + "/ws/" + url.PathEscape(c.config.SessionID)
}

// OnMessage sets the primary inbound message callback
func (c *Client) OnMessage(fn func(protocol.Envelope)) {
	c.hooksMu.Lock()
	defer c.hooksMu.Unlock()
	c.onMessage = fn
}

// OnStateChange sets the state transition callback
func (c *Client) OnStateChange(fn func(State)) {
	c.hooksMu.Lock()
	defer c.hooksMu.Unlock()
	c.onState = fn
}

// AddListener registers a secondary message observer and returns its remover
func (c *Client) AddListener(fn func(protocol.Envelope)) (remove func()) {
	c.hooksMu.Lock()
	id := c.listenerID
	c.listenerID++
	c.listeners[id] = fn
	c.hooksMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.hooksMu.Lock()
			delete(c.listeners, id)
			c.hooksMu.Unlock()
		})
	}
}

// Connect starts the connection loop. It returns immediately; progress is
// reported through OnStateChange. Calling Connect while a loop is already
// running is a no-op. ctx bounds the lifetime of the loop.
func (c *Client) Connect(ctx context.Context) {
	c.mu.Lock()
	if done := c.runDone; done != nil {
		select {
		case <-done:
		default:
			if c.state != Offline {
				c.mu.Unlock()
				return
			}
			// the loop has given up and is only exiting
			c.mu.Unlock()
			<-done
			c.mu.Lock()
		}
	}
	c.attempts = 0
	c.baseCtx = ctx
	c.mu.Unlock()

	c.start(ctx)
}

// Reconnect tears down any current connection, restarts the loop with a
// fresh retry budget, then waits up to ConnectTimeout for Open. On timeout
// the loop keeps retrying with the normal backoff. It must not be called
// from a message or state callback.
func (c *Client) Reconnect(ctx context.Context) error {
	c.stop()

	c.mu.Lock()
	c.attempts = 0
	base := c.baseCtx
	c.mu.Unlock()
	if base == nil || base.Err() != nil {
		base = context.Background()
	}

	c.start(base)

	deadline := time.NewTimer(c.config.ConnectTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	for {
		if c.State() == Open {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			log.Printf("Transport: no connection after %v, falling back to backoff", c.config.ConnectTimeout)
			return ErrConnectTimeout
		case <-ticker.C:
		}
	}
}

// Disconnect closes the connection without triggering a reconnect.
// It must not be called from a message or state callback.
func (c *Client) Disconnect() {
	if c.State() == Closed {
		c.stop()
		return
	}

	c.setState(Closing)
	c.stop()
	c.setState(Closed)
	log.Printf("Connection closed")
}

// start launches the run loop under a new generation
func (c *Client) start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	c.mu.Lock()
	if c.runCancel != nil {
		c.runCancel()
	}
	c.gen++
	gen := c.gen
	c.runCancel = cancel
	c.runDone = done
	c.mu.Unlock()

	c.setStateFor(gen, Connecting)
	go c.run(ctx, gen, done)
}

// stop invalidates the current loop, closes its connection and waits for it
func (c *Client) stop() {
	c.mu.Lock()
	c.gen++
	conn := c.conn
	c.conn = nil
	cancel, done := c.runCancel, c.runDone
	c.runCancel, c.runDone = nil, nil
	c.mu.Unlock()

	if conn != nil {
		c.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		conn.Close()
	}
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (c *Client) run(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)

	for {
		if !c.setStateFor(gen, Connecting) {
			return
		}

		endpoint := c.Endpoint()
		log.Printf("Connecting to %s", endpoint)
		conn, _, err := c.config.Dialer.DialContext(ctx, endpoint, c.config.Header)
		if err != nil {
			log.Printf("Transport: dial failed: %v", err)
			if ctx.Err() != nil {
				c.setStateFor(gen, Closed)
				return
			}
		} else {
			c.mu.Lock()
			if c.gen != gen {
				c.mu.Unlock()
				conn.Close()
				return
			}
			c.conn = conn
			c.attempts = 0
			c.mu.Unlock()

			c.setStateFor(gen, Open)
			c.readMessages(conn)

			c.mu.Lock()
			if c.conn == conn {
				c.conn = nil
			}
			c.mu.Unlock()
			conn.Close()

			if ctx.Err() != nil {
				c.setStateFor(gen, Closed)
				return
			}
		}

		if !c.setStateFor(gen, Closed) {
			return
		}

		c.mu.Lock()
		c.attempts++
		attempt := c.attempts
		c.mu.Unlock()

		if attempt > c.config.MaxAttempts {
			log.Printf("Transport: giving up after %d attempts", c.config.MaxAttempts)
			c.setStateFor(gen, Offline)
			return
		}

		delay := c.config.BaseDelay * time.Duration(attempt)
		if !c.setStateFor(gen, Reconnecting) {
			return
		}
		log.Printf("Transport: reconnecting in %v (attempt %d/%d)", delay, attempt, c.config.MaxAttempts)
		c.config.Observer.Reconnecting(attempt, delay)

		if err := c.config.Wait(ctx, delay); err != nil {
			c.setStateFor(gen, Closed)
			return
		}
	}
}

// readMessages reads frames until the connection fails
func (c *Client) readMessages(conn *websocket.Conn) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Read error: %v", err)
			}
			return
		}

		if messageType != websocket.TextMessage {
			log.Printf("Ignoring non-text WebSocket message type: %d", messageType)
			continue
		}

		c.handleJSONMessage(data)
	}
}

// handleJSONMessage parses one frame and fans it out
func (c *Client) handleJSONMessage(data []byte) {
	env, err := protocol.ParseEnvelope(data)
	if err != nil {
		log.Printf("Dropping inbound frame: %v", err)
		c.config.Observer.Malformed()
		return
	}
	c.config.Observer.Received(env.Type)

	c.hooksMu.RLock()
	primary := c.onMessage
	listeners := make([]func(protocol.Envelope), 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.hooksMu.RUnlock()

	if primary != nil {
		primary(env)
	}
	for _, l := range listeners {
		l(env)
	}
}

// Send marshals data into an envelope and writes it. When the channel is
// not Open the message is dropped with a warning and ErrNotOpen returned.
func (c *Client) Send(msgType string, data interface{}) error {
	env, err := protocol.NewEnvelope(msgType, data)
	if err != nil {
		return err
	}
	return c.SendEnvelope(env)
}

// SendEnvelope writes a prepared envelope
func (c *Client) SendEnvelope(env protocol.Envelope) error {
	c.mu.RLock()
	conn, state := c.conn, c.state
	c.mu.RUnlock()

	if state != Open || conn == nil {
		log.Printf("Transport: not open (%s), dropping %s", state, env.Type)
		return ErrNotOpen
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteJSON(env); err != nil {
		return fmt.Errorf("failed to send %s: %w", env.Type, err)
	}
	c.config.Observer.Sent(env.Type)
	return nil
}

// State returns the current connection state
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Connected reports whether the channel is Open
func (c *Client) Connected() bool {
	return c.State() == Open
}

// Attempts returns the consecutive failed attempt count
func (c *Client) Attempts() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.attempts
}

// setStateFor applies s only if gen is still the live loop
func (c *Client) setStateFor(gen uint64, s State) bool {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return false
	}
	changed := c.state != s
	c.state = s
	c.mu.Unlock()

	if changed {
		c.notifyState(s)
	}
	return true
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	c.mu.Unlock()

	if changed {
		c.notifyState(s)
	}
}

func (c *Client) notifyState(s State) {
	c.hooksMu.RLock()
	fn := c.onState
	c.hooksMu.RUnlock()

	if fn != nil {
		fn(s)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
