// ABOUTME: Main recorder application orchestration
// ABOUTME: Coordinates discovery, session, capture, speech output, metrics and UI
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kikitori/kikitori-go/internal/config"
	"github.com/kikitori/kikitori-go/internal/discovery"
	"github.com/kikitori/kikitori-go/internal/metrics"
	"github.com/kikitori/kikitori-go/internal/tts"
	"github.com/kikitori/kikitori-go/internal/ui"
	"github.com/kikitori/kikitori-go/pkg/api"
	"github.com/kikitori/kikitori-go/pkg/audio/capture"
	"github.com/kikitori/kikitori-go/pkg/interview"
	"github.com/kikitori/kikitori-go/pkg/protocol"
	"github.com/kikitori/kikitori-go/pkg/transport"
)

const (
	discoveryTimeout = 10 * time.Second
	statsInterval    = 250 * time.Millisecond
)

// Options holds settings that do not come from the config file
type Options struct {
	// ConfigPath is watched for live VAD threshold changes when set
	ConfigPath string
	UseTUI     bool

	// AutoRecord starts capture as soon as the session is connected
	AutoRecord bool

	// Source overrides the configured audio backend
	Source capture.Source
}

// Recorder represents the main recorder application
type Recorder struct {
	config  *config.Config
	options Options

	api      *api.Client
	session  *interview.Session
	metrics  *metrics.Metrics
	speaker  *tts.Speaker
	controls *ui.Controls
	tuiProg  *tea.Program

	mu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new recorder
func New(cfg *config.Config, options Options) *Recorder {
	ctx, cancel := context.WithCancel(context.Background())

	return &Recorder{
		config:   cfg,
		options:  options,
		controls: ui.NewControls(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start runs the recorder until Stop is called or the TUI quits
func (r *Recorder) Start() error {
	if err := r.Prepare(); err != nil {
		return err
	}

	if r.options.UseTUI {
		prog, err := ui.Run(r.controls)
		if err != nil {
			return fmt.Errorf("failed to start TUI: %w", err)
		}
		r.mu.Lock()
		r.tuiProg = prog
		r.mu.Unlock()
		go func() {
			if _, err := prog.Run(); err != nil {
				log.Printf("TUI error: %v", err)
			}
			r.Stop()
		}()
		r.send(ui.StatusMsg{Endpoint: r.session.Endpoint()})
	}

	go r.handleControls()
	go r.statsLoop()

	if r.options.ConfigPath != "" {
		go func() {
			if err := config.Watch(r.ctx, r.options.ConfigPath, r.ApplyConfig); err != nil {
				log.Printf("Config watch stopped: %v", err)
			}
		}()
	}

	r.session.Connect(r.ctx)

	if r.options.AutoRecord {
		if err := r.session.StartRecording(r.ctx); err != nil {
			log.Printf("Failed to start recording: %v", err)
		}
	}

	<-r.ctx.Done()
	return r.shutdown()
}

// Prepare resolves the server, ensures a session exists and builds the
// interview session without connecting
func (r *Recorder) Prepare() error {
	if err := r.resolveServer(); err != nil {
		return err
	}

	r.api = api.NewClient(r.config.Server.APIURL, nil)
	if err := r.ensureSession(); err != nil {
		return err
	}

	if addr := r.config.Metrics.Addr; addr != "" {
		r.metrics = metrics.New()
		go func() {
			if err := r.metrics.Serve(r.ctx, addr); err != nil {
				log.Printf("Metrics server stopped: %v", err)
			}
		}()
	}

	source := r.options.Source
	if source == nil {
		var err error
		source, err = NewSource(r.config.Audio.Backend)
		if err != nil {
			return err
		}
	}

	session, err := interview.NewSession(r.sessionConfig(source))
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	r.session = session
	return nil
}

// Session returns the interview session once prepared
func (r *Recorder) Session() *interview.Session {
	return r.session
}

// resolveServer fills server URLs, browsing mDNS when discovery is enabled
func (r *Recorder) resolveServer() error {
	srv := &r.config.Server
	if srv.URL != "" && !srv.Discover {
		if srv.APIURL == "" {
			srv.APIURL = apiURLFor(srv.URL)
		}
		return nil
	}

	log.Printf("Starting server discovery...")
	ctx, cancel := context.WithTimeout(r.ctx, discoveryTimeout)
	defer cancel()

	found, err := discovery.NewManager(discovery.Config{}).First(ctx)
	if err != nil {
		return fmt.Errorf("server discovery failed: %w", err)
	}
	log.Printf("Discovered server %s at %s:%d", found.Name, found.Host, found.Port)

	srv.URL = found.WebSocketURL()
	srv.APIURL = found.APIURL()
	return nil
}

// apiURLFor derives the REST base from the WebSocket base
func apiURLFor(wsURL string) string {
	switch {
	case strings.HasPrefix(wsURL, "wss://"):
		return "https://" + strings.TrimPrefix(wsURL, "wss://")
	case strings.HasPrefix(wsURL, "ws://"):
		return "http://" + strings.TrimPrefix(wsURL, "ws://")
	default:
		return wsURL
	}
}

// ensureSession creates a session over HTTP when none is configured
func (r *Recorder) ensureSession() error {
	if r.config.Session.ID != "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(r.ctx, api.DefaultTimeout)
	defer cancel()

	snap, err := r.api.CreateSession(ctx, r.config.Session.Title)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	log.Printf("Created session %s", snap.SessionID)
	r.config.Session.ID = snap.SessionID
	return nil
}

func (r *Recorder) sessionConfig(source capture.Source) interview.Config {
	cfg := r.config

	transportCfg := cfg.Reconnect.TransportConfig()
	cc := interview.Config{
		ServerURL:    cfg.Server.URL,
		SessionID:    cfg.Session.ID,
		SpeakerID:    cfg.Session.SpeakerID,
		SpeakerName:  cfg.Session.SpeakerName,
		Source:       source,
		Capture:      cfg.Audio.SourceConfig(),
		Chunker:      cfg.VAD.ChunkerConfig(),
		CommitDelay:  cfg.Editor.CommitDelay,
		HistoryDepth: cfg.Editor.HistoryDepth,

		OnSnapshot: func(snap protocol.Snapshot) {
			r.send(ui.StatusMsg{Snapshot: &snap})
		},
		OnState: func(s transport.State) {
			if r.metrics != nil {
				r.metrics.ObserveState(s)
			}
			msg := ui.StatusMsg{ConnState: s.String()}
			if s == transport.Offline {
				msg.Notice = "offline: press c to reconnect"
			}
			r.send(msg)
			log.Printf("Connection state: %s", s)
		},
		OnNotice: func(n protocol.Notice) {
			log.Printf("Server %s: %s", n.Type, n.Message)
			r.send(ui.StatusMsg{Notice: n.Message})
		},
		OnProposal: func(p interview.Proposal) {
			r.send(ui.StatusMsg{Proposal: ui.String(p.ImprovedText)})
		},
		OnInterviewer: func(text string) {
			r.send(ui.StatusMsg{Reply: text})
		},
		OnActivity: func(a interview.Activity) {
			r.send(ui.StatusMsg{Activity: fmt.Sprintf("%s %s", a.Target, a.Status)})
		},
	}

	if r.metrics != nil {
		transportCfg.Observer = r.metrics
		cc.ChunkerOptions = r.metrics.ChunkerOptions()
	}
	cc.Transport = transportCfg

	if cfg.TTS.Enabled {
		r.speaker = tts.New(tts.Config{
			Endpoint: cfg.TTS.Endpoint,
			APIKey:   cfg.TTS.APIKey,
			Voice:    cfg.TTS.Voice,
		})
		cc.Speaker = r.speaker
	}
	return cc
}

// ApplyConfig applies the settings that can change while running
func (r *Recorder) ApplyConfig(c *config.Config) {
	if r.session == nil {
		return
	}
	r.session.Chunker().SetThresholds(c.VAD.Threshold, c.VAD.SilenceHold)
	log.Printf("Applied VAD threshold %.3f, silence hold %v", c.VAD.Threshold, c.VAD.SilenceHold)
}

// handleControls applies TUI actions to the session
func (r *Recorder) handleControls() {
	for {
		select {
		case action := <-r.controls.Actions:
			if action == ui.ActionQuit {
				r.Stop()
				return
			}
			if err := r.Handle(action); err != nil {
				log.Printf("Action failed: %v", err)
				r.send(ui.StatusMsg{Notice: userMessage(err)})
			}
		case <-r.ctx.Done():
			return
		}
	}
}

// Handle performs one user action against the session
func (r *Recorder) Handle(action ui.Action) error {
	s := r.session
	switch action {
	case ui.ActionStartRecording:
		if err := s.StartRecording(r.ctx); err != nil {
			return err
		}
		r.send(ui.StatusMsg{Recording: ui.Bool(true)})
	case ui.ActionStopRecording:
		if err := s.StopRecording(r.ctx, true); err != nil {
			return err
		}
		r.send(ui.StatusMsg{Recording: ui.Bool(false)})
	case ui.ActionUndo:
		s.Undo()
	case ui.ActionRedo:
		s.Redo()
	case ui.ActionAcceptProposal:
		s.AcceptProposal()
		r.send(ui.StatusMsg{Proposal: ui.String("")})
	case ui.ActionRejectProposal:
		s.RejectProposal()
		r.send(ui.StatusMsg{Proposal: ui.String("")})
	case ui.ActionRequestArticle:
		return s.RequestArticle()
	case ui.ActionRequestQuestions:
		return s.RequestQuestions()
	case ui.ActionReconnect:
		return s.Reconnect(r.ctx)
	case ui.ActionSaveVersion:
		v := s.SaveVersion(time.Now().Format("15:04:05"))
		r.send(ui.StatusMsg{Notice: "saved version " + v.Name})
	}
	r.send(ui.StatusMsg{CanUndo: ui.Bool(s.CanUndo()), CanRedo: ui.Bool(s.CanRedo())})
	return nil
}

// userMessage turns capture failures into guidance
func userMessage(err error) string {
	var derr *capture.DeviceError
	if errors.As(err, &derr) {
		return derr.UserMessage()
	}
	if errors.Is(err, interview.ErrNotConnected) {
		return "not connected: press c to reconnect"
	}
	return err.Error()
}

func (r *Recorder) statsLoop() {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats := r.session.Chunker().Stats()
			r.send(ui.StatusMsg{
				Chunker:   &stats,
				Recording: ui.Bool(r.session.Recording()),
			})
		case <-r.ctx.Done():
			return
		}
	}
}

// send forwards a status update to the TUI when it is running
func (r *Recorder) send(msg ui.StatusMsg) {
	r.mu.Lock()
	prog := r.tuiProg
	r.mu.Unlock()
	if prog != nil {
		prog.Send(msg)
	}
}

// Stop stops the recorder
func (r *Recorder) Stop() {
	r.cancel()
}

func (r *Recorder) shutdown() error {
	var errs []error
	if r.session != nil {
		if err := r.session.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.speaker != nil {
		if err := r.speaker.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.mu.Lock()
	prog := r.tuiProg
	r.mu.Unlock()
	if prog != nil {
		prog.Quit()
	}
	return errors.Join(errs...)
}

// NewSource creates the capture source for a backend name
func NewSource(backend string) (capture.Source, error) {
	switch backend {
	case "", "malgo":
		return capture.NewMalgo(), nil
	case "portaudio":
		return capture.NewPortAudio(), nil
	case "tone":
		return capture.NewTone(440, 0.3), nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q", backend)
	}
}
