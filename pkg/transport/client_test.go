// ABOUTME: Tests for the reconnecting WebSocket client
// ABOUTME: Uses in-process gorilla/websocket servers and an injected backoff timer
package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kikitori/kikitori-go/pkg/protocol"
)

type wsServer struct {
	*httptest.Server

	mu    sync.Mutex
	paths []string
	recv  chan protocol.Envelope
}

// newWSServer upgrades every request and hands the connection to handle
func newWSServer(t *testing.T, handle func(conn *websocket.Conn)) *wsServer {
	t.Helper()
	s := &wsServer{recv: make(chan protocol.Envelope, 16)}
	upgrader := websocket.Upgrader{}

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.paths = append(s.paths, r.URL.Path)
		s.mu.Unlock()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		handle(conn)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *wsServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func (s *wsServer) connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.paths)
}

// echoUntilClosed forwards client frames to s.recv until the client leaves
func (s *wsServer) echoUntilClosed(conn *websocket.Conn) {
	defer conn.Close()
	for {
		var env protocol.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		s.recv <- env
	}
}

type stateRecorder struct {
	mu     sync.Mutex
	states []State
}

func (r *stateRecorder) record(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *stateRecorder) snapshot() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]State, len(r.states))
	copy(out, r.states)
	return out
}

func waitForState(t *testing.T, c *Client, want State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s, still %s", want, c.State())
}

// blockingWait never fires on its own, so only ctx ends it
func blockingWait(ctx context.Context, d time.Duration) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestEndpoint(t *testing.T) {
	c := NewClient(Config{URL: "ws://localhost:8000/", SessionID: "abc 1"})
	if got := c.Endpoint(); got != "ws://localhost:8000/ws/abc%201" {
		t.Errorf("unexpected endpoint %s", got)
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Config{URL: "ws://localhost:8000", SessionID: "s"})
	if c.config.BaseDelay != 2*time.Second || c.config.MaxAttempts != 5 {
		t.Errorf("unexpected backoff defaults: %v x %d", c.config.BaseDelay, c.config.MaxAttempts)
	}
	if c.config.ConnectTimeout != 5*time.Second || c.config.PollInterval != 100*time.Millisecond {
		t.Errorf("unexpected timeout defaults: %v / %v", c.config.ConnectTimeout, c.config.PollInterval)
	}
	if c.State() != Closed {
		t.Errorf("expected initial state closed, got %s", c.State())
	}
}

func TestReceiveMessagesAndDropMalformed(t *testing.T) {
	srv := newWSServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"initial_data","data":{"session_id":"s1"}}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"note_added","data":{"note_id":"n1"}}`))
		srvHold(conn)
	})

	c := NewClient(Config{URL: srv.wsURL(), SessionID: "s1", Wait: blockingWait})

	primary := make(chan protocol.Envelope, 8)
	secondary := make(chan protocol.Envelope, 8)
	c.OnMessage(func(env protocol.Envelope) { primary <- env })
	remove := c.AddListener(func(env protocol.Envelope) { secondary <- env })
	defer remove()

	c.Connect(context.Background())
	defer c.Disconnect()

	for _, want := range []string{protocol.TypeInitialData, protocol.TypeNoteAdded} {
		select {
		case env := <-primary:
			if env.Type != want {
				t.Errorf("primary: expected %s, got %s", want, env.Type)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
		select {
		case env := <-secondary:
			if env.Type != want {
				t.Errorf("listener: expected %s, got %s", want, env.Type)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("listener timed out waiting for %s", want)
		}
	}

	if c.State() != Open {
		t.Errorf("expected malformed frame not to close the channel, state %s", c.State())
	}
	srv.mu.Lock()
	path := srv.paths[0]
	srv.mu.Unlock()
	if path != "/ws/s1" {
		t.Errorf("expected path /ws/s1, got %s", path)
	}
}

// srvHold keeps a server connection open until the client leaves
func srvHold(conn *websocket.Conn) {
	defer conn.Close()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestRemovedListenerStopsReceiving(t *testing.T) {
	c := NewClient(Config{URL: "ws://unused", SessionID: "s"})

	var mu sync.Mutex
	count := 0
	remove := c.AddListener(func(protocol.Envelope) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	c.handleJSONMessage([]byte(`{"type":"info","message":"a"}`))
	remove()
	remove()
	c.handleJSONMessage([]byte(`{"type":"info","message":"b"}`))

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Errorf("expected 1 delivery, got %d", count)
	}
}

func TestSendWhenNotOpen(t *testing.T) {
	c := NewClient(Config{URL: "ws://unused", SessionID: "s"})
	err := c.Send(protocol.TypeAddNote, protocol.AddNote{Text: "x"})
	if !errors.Is(err, ErrNotOpen) {
		t.Errorf("expected ErrNotOpen, got %v", err)
	}
}

func TestSendDelivers(t *testing.T) {
	var srv *wsServer
	srv = newWSServer(t, func(conn *websocket.Conn) { srv.echoUntilClosed(conn) })

	c := NewClient(Config{URL: srv.wsURL(), SessionID: "s1", Wait: blockingWait})
	c.Connect(context.Background())
	defer c.Disconnect()
	waitForState(t, c, Open)

	if err := c.Send(protocol.TypeAddNote, protocol.AddNote{Text: "memo"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	select {
	case env := <-srv.recv:
		if env.Type != protocol.TypeAddNote || !strings.Contains(string(env.Data), `"memo"`) {
			t.Errorf("unexpected frame %+v", env)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for server to receive")
	}
}

func TestBackoffSequenceEndsOffline(t *testing.T) {
	srv := newWSServer(t, func(conn *websocket.Conn) {
		// accept once, then drop the client
		conn.Close()
	})

	var mu sync.Mutex
	var delays []time.Duration
	rec := &stateRecorder{}

	c := NewClient(Config{
		URL:       srv.wsURL(),
		SessionID: "s1",
		Wait: func(ctx context.Context, d time.Duration) error {
			mu.Lock()
			first := len(delays) == 0
			delays = append(delays, d)
			mu.Unlock()
			if first {
				// every later dial is refused
				srv.Close()
			}
			return nil
		},
	})
	c.OnStateChange(rec.record)

	c.Connect(context.Background())
	waitForState(t, c, Offline)

	mu.Lock()
	gotDelays := append([]time.Duration(nil), delays...)
	mu.Unlock()
	wantDelays := []time.Duration{2 * time.Second, 4 * time.Second, 6 * time.Second, 8 * time.Second, 10 * time.Second}
	if !reflect.DeepEqual(gotDelays, wantDelays) {
		t.Errorf("expected delays %v, got %v", wantDelays, gotDelays)
	}

	want := []State{Connecting, Open, Closed, Reconnecting}
	for i := 0; i < 4; i++ {
		want = append(want, Connecting, Closed, Reconnecting)
	}
	want = append(want, Connecting, Closed, Offline)
	if got := rec.snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("unexpected state sequence:\n got %v\nwant %v", got, want)
	}

	// Offline is terminal until a manual call
	time.Sleep(50 * time.Millisecond)
	if c.State() != Offline {
		t.Errorf("expected to stay offline, got %s", c.State())
	}
}

func TestDisconnectDoesNotReconnect(t *testing.T) {
	srv := newWSServer(t, srvHold)

	waits := 0
	var mu sync.Mutex
	rec := &stateRecorder{}
	c := NewClient(Config{
		URL:       srv.wsURL(),
		SessionID: "s1",
		Wait: func(ctx context.Context, d time.Duration) error {
			mu.Lock()
			waits++
			mu.Unlock()
			return nil
		},
	})
	c.OnStateChange(rec.record)

	c.Connect(context.Background())
	waitForState(t, c, Open)

	c.Disconnect()
	time.Sleep(50 * time.Millisecond)

	if c.State() != Closed {
		t.Errorf("expected closed, got %s", c.State())
	}
	mu.Lock()
	defer mu.Unlock()
	if waits != 0 {
		t.Errorf("expected no reconnect after manual disconnect, got %d waits", waits)
	}
	want := []State{Connecting, Open, Closing, Closed}
	if got := rec.snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if srv.connections() != 1 {
		t.Errorf("expected a single connection, got %d", srv.connections())
	}

	// Disconnect again is harmless
	c.Disconnect()
}

func TestReconnectForced(t *testing.T) {
	srv := newWSServer(t, srvHold)

	c := NewClient(Config{URL: srv.wsURL(), SessionID: "s1", Wait: blockingWait})
	c.Connect(context.Background())
	defer c.Disconnect()
	waitForState(t, c, Open)

	if err := c.Reconnect(context.Background()); err != nil {
		t.Fatalf("Reconnect() error = %v", err)
	}
	if c.State() != Open {
		t.Errorf("expected open after reconnect, got %s", c.State())
	}
	if srv.connections() != 2 {
		t.Errorf("expected 2 connections, got %d", srv.connections())
	}
}

func TestReconnectFromOffline(t *testing.T) {
	srv := newWSServer(t, srvHold)

	c := NewClient(Config{URL: srv.wsURL(), SessionID: "s1", Wait: blockingWait})
	defer c.Disconnect()

	c.setState(Offline)
	if err := c.Reconnect(context.Background()); err != nil {
		t.Fatalf("Reconnect() error = %v", err)
	}
	if c.State() != Open {
		t.Errorf("expected open, got %s", c.State())
	}
	if c.Attempts() != 0 {
		t.Errorf("expected attempts reset, got %d", c.Attempts())
	}
}

func TestConnectLeavesOffline(t *testing.T) {
	var mu sync.Mutex
	refuse := true
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		closed := refuse
		mu.Unlock()
		if closed {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		srvHold(conn)
	}))
	defer srv.Close()

	c := NewClient(Config{
		URL:       "ws" + strings.TrimPrefix(srv.URL, "http"),
		SessionID: "s1",
		Wait:      func(ctx context.Context, d time.Duration) error { return nil },
	})
	defer c.Disconnect()

	c.Connect(context.Background())
	waitForState(t, c, Offline)

	// Offline stays put until a manual call
	time.Sleep(20 * time.Millisecond)
	if c.State() != Offline {
		t.Fatalf("expected to stay offline, got %s", c.State())
	}

	mu.Lock()
	refuse = false
	mu.Unlock()

	c.Connect(context.Background())
	waitForState(t, c, Open)
	if c.Attempts() != 0 {
		t.Errorf("expected attempts reset, got %d", c.Attempts())
	}
}

func TestReconnectTimeout(t *testing.T) {
	srv := newWSServer(t, srvHold)
	url := srv.wsURL()
	srv.Close()

	c := NewClient(Config{
		URL:            url,
		SessionID:      "s1",
		ConnectTimeout: 200 * time.Millisecond,
		PollInterval:   10 * time.Millisecond,
		Wait:           blockingWait,
	})
	defer c.Disconnect()

	start := time.Now()
	err := c.Reconnect(context.Background())
	if !errors.Is(err, ErrConnectTimeout) {
		t.Fatalf("expected ErrConnectTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 200*time.Millisecond {
		t.Errorf("returned too early after %v", elapsed)
	}

	// falls back to the backoff path
	waitForState(t, c, Reconnecting)
}
