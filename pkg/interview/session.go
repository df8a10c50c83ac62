// ABOUTME: Live interview session orchestration
// ABOUTME: Feeds captured audio to the server and folds server events into a local mirror
package interview

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/kikitori/kikitori-go/pkg/audio/capture"
	"github.com/kikitori/kikitori-go/pkg/chunker"
	"github.com/kikitori/kikitori-go/pkg/history"
	"github.com/kikitori/kikitori-go/pkg/protocol"
	"github.com/kikitori/kikitori-go/pkg/transport"
)

var (
	// ErrNotConnected is returned by commands while the transport is not open
	ErrNotConnected = errors.New("session not connected")

	// ErrNoSource is returned by StartRecording when no capture source is configured
	ErrNoSource = errors.New("no audio source configured")
)

// Proposal is a pending rewrite the user may accept or reject
type Proposal struct {
	protocol.TextImproved

	// Original is the span the proposal would replace, as it was when received
	Original string
}

// Session is one client's view of a live interview
type Session struct {
	config Config

	client    *transport.Client
	chunker   *chunker.Chunker
	capture   *capture.Capture
	history   *history.History
	debouncer *Debouncer

	ctx    context.Context
	cancel context.CancelFunc

	// lifecycle serializes StartRecording, StopRecording and Close
	lifecycle sync.Mutex

	mu        sync.Mutex
	snapshot  protocol.Snapshot
	proposal  *Proposal
	recording bool
	runCancel context.CancelFunc
	runDone   chan struct{}
}

// NewSession creates a session; it does not connect or record
func NewSession(config Config) (*Session, error) {
	config = config.withDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		config:   config,
		client:   transport.NewClient(config.Transport),
		history:  history.New("", history.WithMaxDepth(config.HistoryDepth)),
		ctx:      ctx,
		cancel:   cancel,
		snapshot: protocol.Snapshot{SessionID: config.SessionID},
	}
	s.debouncer = NewDebouncer(config.CommitDelay, s.commit)
	s.chunker = chunker.New(config.Chunker, transportSink{client: s.client}, config.ChunkerOptions...)
	if config.Source != nil {
		s.capture = capture.New(config.Source, config.Capture, s.chunker.Append)
	}

	s.client.OnMessage(s.handleEnvelope)
	s.client.OnStateChange(func(st transport.State) {
		if s.config.OnState != nil {
			s.config.OnState(st)
		}
	})

	return s, nil
}

// Connect starts the transport; progress is reported through OnState
func (s *Session) Connect(ctx context.Context) {
	s.client.Connect(ctx)
}

// Reconnect forces a fresh connection and waits for it to open
func (s *Session) Reconnect(ctx context.Context) error {
	return s.client.Reconnect(ctx)
}

// State returns the transport state
func (s *Session) State() transport.State {
	return s.client.State()
}

// Endpoint returns the session WebSocket URL
func (s *Session) Endpoint() string {
	return s.client.Endpoint()
}

// Close stops recording, commits pending edits and disconnects
func (s *Session) Close() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.stopCapture()
	s.chunker.Discard()
	s.debouncer.Flush()
	s.cancel()
	s.client.Disconnect()
	return nil
}

// StartRecording opens the microphone and begins streaming chunks.
// Resuming after a stop reconnects first so the mirror is resynchronized.
func (s *Session) StartRecording(ctx context.Context) error {
	if s.capture == nil {
		return ErrNoSource
	}

	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if s.recording {
		s.mu.Unlock()
		return nil
	}
	wasStopped := s.snapshot.WasStopped
	s.mu.Unlock()

	if wasStopped {
		log.Printf("Session %s: resuming after stop, resynchronizing", s.config.SessionID)
		if err := s.client.Reconnect(ctx); err != nil {
			return fmt.Errorf("failed to resynchronize session: %w", err)
		}
	}

	if err := s.capture.Start(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(s.ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.chunker.Run(runCtx)
	}()

	s.mu.Lock()
	s.recording = true
	s.runCancel = cancel
	s.runDone = done
	s.mu.Unlock()

	if err := s.send(protocol.NewUpdateStatus(protocol.StatusRecording)); err != nil {
		log.Printf("Session %s: recording locally, status not sent: %v", s.config.SessionID, err)
	}
	log.Printf("Session %s: recording via %s", s.config.SessionID, s.config.Source.Name())
	return nil
}

// StopRecording closes the microphone. With flush the buffered tail is sent
// as a final chunk, otherwise it is discarded.
func (s *Session) StopRecording(ctx context.Context, flush bool) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if !s.stopCapture() {
		return nil
	}

	if flush {
		s.chunker.Flush()
	} else {
		s.chunker.Discard()
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.send(protocol.NewUpdateStatus(protocol.StatusEditing)); err != nil {
		log.Printf("Session %s: stopped locally, status not sent: %v", s.config.SessionID, err)
	}
	log.Printf("Session %s: recording stopped", s.config.SessionID)
	return nil
}

// stopCapture halts the device and the poll loop. Returns false if not recording.
func (s *Session) stopCapture() bool {
	s.mu.Lock()
	if !s.recording {
		s.mu.Unlock()
		return false
	}
	s.recording = false
	cancel, done := s.runCancel, s.runDone
	s.runCancel, s.runDone = nil, nil
	s.mu.Unlock()

	s.capture.Stop()
	cancel()
	<-done
	return true
}

// Recording reports whether audio is being captured
func (s *Session) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}

// SetSpeaker changes the attribution of subsequent chunks
func (s *Session) SetSpeaker(id, name string) {
	s.chunker.SetSpeaker(id, name)
}

// Chunker exposes the chunker for threshold tuning and stats
func (s *Session) Chunker() *chunker.Chunker {
	return s.chunker
}

// Snapshot returns a copy of the mirrored document
func (s *Session) Snapshot() protocol.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot.Clone()
}

// Proposal returns the pending rewrite proposal, if any
func (s *Session) Proposal() (Proposal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proposal == nil {
		return Proposal{}, false
	}
	return *s.proposal, true
}

// EditArticle applies text locally at once and commits it after typing pauses
func (s *Session) EditArticle(text string) {
	s.setLocalText(text)
	s.debouncer.Trigger(text)
}

// CommitArticle sends any pending article edit immediately
func (s *Session) CommitArticle() bool {
	return s.debouncer.Flush()
}

// Undo reverts the article to the previous committed text
func (s *Session) Undo() (string, bool) {
	s.debouncer.Flush()
	text, ok := s.history.Undo()
	if ok {
		s.publishArticle(text)
	}
	return text, ok
}

// Redo reapplies the most recently undone article text
func (s *Session) Redo() (string, bool) {
	s.debouncer.Flush()
	text, ok := s.history.Redo()
	if ok {
		s.publishArticle(text)
	}
	return text, ok
}

// CanUndo reports whether Undo would change the article
func (s *Session) CanUndo() bool {
	return s.history.CanUndo() || s.hasPendingEdit()
}

// CanRedo reports whether Redo would change the article
func (s *Session) CanRedo() bool {
	return s.history.CanRedo() && !s.hasPendingEdit()
}

func (s *Session) hasPendingEdit() bool {
	_, ok := s.debouncer.Pending()
	return ok
}

// SaveVersion stores a named copy of the committed article text
func (s *Session) SaveVersion(name string) history.Snapshot {
	s.debouncer.Flush()
	return s.history.SaveSnapshot(name)
}

// Versions returns saved article versions, oldest first
func (s *Session) Versions() []history.Snapshot {
	return s.history.Snapshots()
}

// RestoreVersion makes a saved version the article text
func (s *Session) RestoreVersion(id string) bool {
	s.debouncer.Flush()
	text, ok := s.history.RestoreSnapshot(id)
	if ok {
		s.publishArticle(text)
	}
	return ok
}

// AcceptProposal applies the pending rewrite to the article and commits it
func (s *Session) AcceptProposal() (string, bool) {
	s.debouncer.Flush()

	s.mu.Lock()
	p := s.proposal
	s.proposal = nil
	current := s.snapshot.ArticleDraft.Text
	s.mu.Unlock()

	if p == nil {
		return current, false
	}
	text := p.Apply(current)
	s.history.SetContent(text)
	s.publishArticle(text)
	return text, true
}

// RejectProposal drops the pending rewrite
func (s *Session) RejectProposal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	had := s.proposal != nil
	s.proposal = nil
	return had
}

// AddNote sends a memo
func (s *Session) AddNote(text string) error {
	return s.send(protocol.NewAddNote(text))
}

// DeleteNote removes a memo by ID
func (s *Session) DeleteNote(noteID string) error {
	return s.send(protocol.NewDeleteNote(noteID))
}

// EditUtterance corrects a transcribed utterance
func (s *Session) EditUtterance(utteranceID, text, speakerName string) error {
	return s.send(protocol.NewEditUtterance(utteranceID, text, speakerName))
}

// DeleteUtterance removes a transcribed utterance
func (s *Session) DeleteUtterance(utteranceID string) error {
	return s.send(protocol.NewDeleteUtterance(utteranceID))
}

// ImproveText asks for a rewrite of part of the article; the answer
// arrives as a Proposal
func (s *Session) ImproveText(req protocol.ImproveText) error {
	return s.send(protocol.NewImproveText(req))
}

// Restructure asks for a span to be rewritten as a section or subsection
func (s *Session) Restructure(subsection bool, req protocol.Restructure) error {
	return s.send(protocol.NewRestructure(subsection, req))
}

// RequestArticle triggers article generation from the pending transcript
func (s *Session) RequestArticle() error {
	return s.send(protocol.NewTriggerArticleGeneration())
}

// RequestQuestions triggers question suggestions from the pending transcript
func (s *Session) RequestQuestions() error {
	return s.send(protocol.NewTriggerQuestionGeneration())
}

// AskInterviewer requests the AI interviewer's next line
func (s *Session) AskInterviewer(req protocol.InterviewerRequest) error {
	return s.send(protocol.NewInterviewerRequest(req))
}

// send transmits a built command
func (s *Session) send(env protocol.Envelope, err error) error {
	if err != nil {
		return err
	}
	if !s.client.Connected() {
		return fmt.Errorf("%w: %s dropped", ErrNotConnected, env.Type)
	}
	if err := s.client.SendEnvelope(env); err != nil {
		if errors.Is(err, transport.ErrNotOpen) {
			return fmt.Errorf("%w: %s dropped", ErrNotConnected, env.Type)
		}
		return err
	}
	return nil
}

// commit records a settled article text and sends it
func (s *Session) commit(text string) {
	s.history.SetContent(text)
	if err := s.send(protocol.NewEditArticle(text)); err != nil {
		log.Printf("Session %s: article edit not sent: %v", s.config.SessionID, err)
	}
}

// publishArticle applies a committed text locally and sends it
func (s *Session) publishArticle(text string) {
	s.setLocalText(text)
	if err := s.send(protocol.NewEditArticle(text)); err != nil {
		log.Printf("Session %s: article edit not sent: %v", s.config.SessionID, err)
	}
}

// setLocalText is the one optimistic mutation of the mirror
func (s *Session) setLocalText(text string) {
	s.mu.Lock()
	if s.snapshot.ArticleDraft.Text == text {
		s.mu.Unlock()
		return
	}
	s.snapshot.ArticleDraft.Text = text
	snap := s.snapshot.Clone()
	s.mu.Unlock()

	s.emitSnapshot(snap)
}

func (s *Session) emitSnapshot(snap protocol.Snapshot) {
	if s.config.OnSnapshot != nil {
		s.config.OnSnapshot(snap)
	}
}

// handleEnvelope runs on the transport read goroutine, in arrival order
func (s *Session) handleEnvelope(env protocol.Envelope) {
	if protocol.Mutates(env.Type) {
		s.applyEvent(env)
		return
	}

	switch env.Type {
	case protocol.TypeError, protocol.TypeInfo:
		n, _ := protocol.DecodeNotice(env)
		if n.Error {
			log.Printf("Session %s: server error: %s", s.config.SessionID, n.Message)
		}
		if s.config.OnNotice != nil {
			s.config.OnNotice(n)
		}

	case protocol.TypeTextImproved:
		p, err := protocol.DecodeTextImproved(env)
		if err != nil {
			log.Printf("Session %s: dropping proposal: %v", s.config.SessionID, err)
			return
		}
		s.mu.Lock()
		current := []rune(s.snapshot.ArticleDraft.Text)
		start, end := p.Span(len(current))
		prop := Proposal{TextImproved: p, Original: string(current[start:end])}
		s.proposal = &prop
		s.mu.Unlock()

		if s.config.OnProposal != nil {
			s.config.OnProposal(prop)
		}

	case protocol.TypeInterviewerResponse:
		r, err := protocol.DecodeInterviewerResponse(env)
		if err != nil {
			log.Printf("Session %s: dropping interviewer reply: %v", s.config.SessionID, err)
			return
		}
		if s.config.OnInterviewer != nil {
			s.config.OnInterviewer(r.Text)
		}
		if s.config.Speaker != nil && r.Text != "" {
			go func() {
				if err := s.config.Speaker.Speak(s.ctx, r.Text); err != nil && s.ctx.Err() == nil {
					log.Printf("Session %s: speech failed: %v", s.config.SessionID, err)
				}
			}()
		}

	case protocol.TypeWhisperStatus:
		ws, err := protocol.DecodeWhisperStatus(env)
		if err != nil {
			return
		}
		s.emitActivity(Activity{Target: "whisper", Status: ws.Status})

	case protocol.TypeAIStatusUpdate:
		as, err := protocol.DecodeAIStatus(env)
		if err != nil {
			return
		}
		s.emitActivity(Activity{Target: as.Target, Status: as.Status, Message: as.Message})

	default:
		log.Printf("Session %s: ignoring %s", s.config.SessionID, env.Type)
	}
}

func (s *Session) emitActivity(a Activity) {
	if s.config.OnActivity != nil {
		s.config.OnActivity(a)
	}
}

// applyEvent folds a document event into the mirror and the history
func (s *Session) applyEvent(env protocol.Envelope) {
	s.mu.Lock()
	prevText := s.snapshot.ArticleDraft.Text
	next, err := protocol.Reduce(s.snapshot, env)
	if err != nil {
		s.mu.Unlock()
		log.Printf("Session %s: dropping %s: %v", s.config.SessionID, env.Type, err)
		return
	}
	s.snapshot = next
	if env.Type == protocol.TypeInitialData {
		s.proposal = nil
	}
	snap := next.Clone()
	s.mu.Unlock()

	switch {
	case env.Type == protocol.TypeInitialData:
		// edits sent before the resync are not confirmed; start over from the server text
		s.debouncer.Cancel()
		s.history.Reset(snap.ArticleDraft.Text)
	case snap.ArticleDraft.Text != prevText:
		s.history.SetContent(snap.ArticleDraft.Text)
	}

	s.emitSnapshot(snap)
}
