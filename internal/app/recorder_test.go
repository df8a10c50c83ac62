// ABOUTME: Tests for recorder application orchestration
// ABOUTME: Runs the recorder against an in-process dev server with a tone source
package app

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kikitori/kikitori-go/internal/config"
	"github.com/kikitori/kikitori-go/internal/devserver"
	"github.com/kikitori/kikitori-go/internal/transcribe"
	"github.com/kikitori/kikitori-go/internal/ui"
	"github.com/kikitori/kikitori-go/pkg/audio/capture"
	"github.com/kikitori/kikitori-go/pkg/interview"
	"github.com/kikitori/kikitori-go/pkg/protocol"
	"github.com/kikitori/kikitori-go/pkg/transport"
)

func newDevServer(t *testing.T) (*devserver.Server, string) {
	t.Helper()
	srv := devserver.New(devserver.Config{Transcriber: transcribe.NewStatic("hello")})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	t.Cleanup(srv.Close)
	return srv, "ws" + strings.TrimPrefix(ts.URL, "http")
}

func testConfig(wsURL string) *config.Config {
	cfg := config.Default()
	cfg.Server.URL = wsURL
	cfg.Server.APIURL = ""
	cfg.Session.Title = "Recorder test"
	cfg.Reconnect.BaseDelay = 10 * time.Millisecond
	return cfg
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNewSource(t *testing.T) {
	tests := []struct {
		backend string
		want    string
		wantErr bool
	}{
		{"", "malgo", false},
		{"malgo", "malgo", false},
		{"tone", "tone", false},
		{"cassette", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			src, err := NewSource(tt.backend)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewSource(%q) error = %v", tt.backend, err)
			}
			if err == nil && src.Name() != tt.want {
				t.Errorf("NewSource(%q).Name() = %q, want %q", tt.backend, src.Name(), tt.want)
			}
		})
	}
}

func TestAPIURLFor(t *testing.T) {
	tests := map[string]string{
		"ws://localhost:8000": "http://localhost:8000",
		"wss://example.com/x": "https://example.com/x",
		"http://already:8000": "http://already:8000",
	}
	for in, want := range tests {
		if got := apiURLFor(in); got != want {
			t.Errorf("apiURLFor(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&capture.DeviceError{Kind: capture.PermissionDenied, Err: capture.ErrPermissionDenied}, "Microphone access was denied"},
		{&capture.DeviceError{Kind: capture.DeviceBusy}, "in use by another application"},
		{fmt.Errorf("start: %w", &capture.DeviceError{Kind: capture.DeviceNotFound}), "No microphone was found"},
		{&capture.DeviceError{Kind: capture.Unknown, Err: errors.New("ma_device_init: -42")}, "could not be started"},
		{fmt.Errorf("send: %w", interview.ErrNotConnected), "press c to reconnect"},
		{errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		if got := userMessage(tt.err); !strings.Contains(got, tt.want) {
			t.Errorf("userMessage(%v) = %q, want it to contain %q", tt.err, got, tt.want)
		}
	}
}

func TestPrepareCreatesSession(t *testing.T) {
	srv, wsURL := newDevServer(t)
	cfg := testConfig(wsURL)

	r := New(cfg, Options{Source: capture.NewTone(440, 0.3)})
	defer r.Stop()

	if err := r.Prepare(); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if cfg.Session.ID == "" {
		t.Fatal("expected a session to be created")
	}
	if !strings.HasPrefix(cfg.Server.APIURL, "http://") {
		t.Errorf("expected derived API URL, got %q", cfg.Server.APIURL)
	}
	snap, err := srv.Store().Get(cfg.Session.ID)
	if err != nil || snap.Title != "Recorder test" {
		t.Errorf("session not stored: %+v, %v", snap, err)
	}
	if r.Session().Endpoint() != wsURL+"/ws/"+cfg.Session.ID {
		t.Errorf("unexpected endpoint %q", r.Session().Endpoint())
	}
}

func TestPrepareFailsWithoutServer(t *testing.T) {
	cfg := testConfig("ws://127.0.0.1:1")
	r := New(cfg, Options{Source: capture.NewTone(440, 0.3)})
	defer r.Stop()

	if err := r.Prepare(); err == nil {
		t.Error("expected session creation to fail")
	}
}

func TestHandleActions(t *testing.T) {
	srv, wsURL := newDevServer(t)
	cfg := testConfig(wsURL)
	tone := capture.NewTone(440, 0.3)

	r := New(cfg, Options{Source: tone})
	defer r.Stop()
	if err := r.Prepare(); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	s := r.Session()
	defer s.Close()

	if err := r.Handle(ui.ActionRequestArticle); !errors.Is(err, interview.ErrNotConnected) {
		t.Errorf("expected ErrNotConnected before connecting, got %v", err)
	}

	s.Connect(r.ctx)
	eventually(t, "open connection", func() bool { return s.State() == transport.Open })

	if err := r.Handle(ui.ActionStartRecording); err != nil {
		t.Fatalf("start recording failed: %v", err)
	}
	if !tone.Running() {
		t.Error("expected capture running")
	}
	eventually(t, "server status", func() bool {
		snap, _ := srv.Store().Get(cfg.Session.ID)
		return snap.Status == protocol.StatusRecording
	})

	if err := r.Handle(ui.ActionStopRecording); err != nil {
		t.Fatalf("stop recording failed: %v", err)
	}
	if tone.Running() {
		t.Error("expected capture stopped")
	}

	if err := r.Handle(ui.ActionRequestQuestions); err != nil {
		t.Errorf("request questions failed: %v", err)
	}

	if err := r.Handle(ui.ActionSaveVersion); err != nil {
		t.Errorf("save version failed: %v", err)
	}
	if got := len(s.Versions()); got != 1 {
		t.Errorf("expected 1 saved version, got %d", got)
	}
}

func TestApplyConfig(t *testing.T) {
	_, wsURL := newDevServer(t)
	cfg := testConfig(wsURL)
	r := New(cfg, Options{Source: capture.NewTone(440, 0.3)})
	defer r.Stop()

	// before Prepare there is nothing to update
	r.ApplyConfig(cfg)

	if err := r.Prepare(); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	defer r.Session().Close()

	updated := testConfig(wsURL)
	updated.VAD.Threshold = 0.05
	updated.VAD.SilenceHold = 2 * time.Second
	r.ApplyConfig(updated)

	got := r.Session().Chunker().Config()
	if got.SilenceThreshold != 0.05 || got.SilenceHold != 2*time.Second {
		t.Errorf("thresholds not applied: %+v", got)
	}
}

func TestStartAutoRecordAndStop(t *testing.T) {
	srv, wsURL := newDevServer(t)
	cfg := testConfig(wsURL)

	r := New(cfg, Options{Source: capture.NewTone(440, 0.3), AutoRecord: true})

	done := make(chan error, 1)
	go func() { done <- r.Start() }()

	eventually(t, "recording session", func() bool {
		for _, snap := range srv.Store().List() {
			if snap.Status == protocol.StatusRecording {
				return true
			}
		}
		return false
	})

	r.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}
