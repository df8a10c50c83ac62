// ABOUTME: Session configuration and observer callbacks
// ABOUTME: Fills identity, capture and chunker defaults for a live interview
package interview

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kikitori/kikitori-go/pkg/audio/capture"
	"github.com/kikitori/kikitori-go/pkg/chunker"
	"github.com/kikitori/kikitori-go/pkg/protocol"
	"github.com/kikitori/kikitori-go/pkg/transport"
)

// DefaultSpeakerName labels chunks when no speaker name is configured
const DefaultSpeakerName = "Interviewer"

// Speaker reads text aloud. It is used for AI interviewer replies.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Activity is a background progress report from the server
type Activity struct {
	// Target is "whisper" for transcription or the AI target name
	Target  string
	Status  string
	Message string
}

// Config holds session configuration
type Config struct {
	// ServerURL is the WebSocket base, e.g. ws://localhost:8000
	ServerURL string
	SessionID string

	SpeakerID   string
	SpeakerName string

	// Source provides microphone audio; required for recording
	Source  capture.Source
	Capture capture.SourceConfig

	// Chunker thresholds; identity and native rate are filled in
	Chunker        chunker.Config
	ChunkerOptions []chunker.Option

	// Transport backoff and dialer; URL and SessionID are filled in
	Transport transport.Config

	// CommitDelay coalesces article edits before edit_article is sent
	CommitDelay  time.Duration
	HistoryDepth int

	// Speaker voices interviewer_response text when set
	Speaker Speaker

	// OnSnapshot is called after every change to the mirrored document
	OnSnapshot func(protocol.Snapshot)

	// OnState is called on every transport state transition
	OnState func(transport.State)

	// OnNotice is called for server error and info messages
	OnNotice func(protocol.Notice)

	// OnProposal is called when a rewrite proposal arrives
	OnProposal func(Proposal)

	// OnInterviewer is called with each AI interviewer reply
	OnInterviewer func(string)

	// OnActivity is called for transcription and AI progress reports
	OnActivity func(Activity)
}

func (c Config) withDefaults() Config {
	if c.SpeakerID == "" {
		c.SpeakerID = uuid.NewString()
	}
	if c.SpeakerName == "" {
		c.SpeakerName = DefaultSpeakerName
	}
	dc := capture.DefaultSourceConfig()
	if c.Capture.SampleRate == 0 {
		c.Capture.SampleRate = dc.SampleRate
	}
	if c.Capture.FrameSize == 0 {
		c.Capture.FrameSize = dc.FrameSize
	}
	if c.Capture.Channels == 0 {
		c.Capture.Channels = dc.Channels
	}
	if c.CommitDelay == 0 {
		c.CommitDelay = DefaultCommitDelay
	}

	c.Chunker.NativeSampleRate = c.Capture.SampleRate
	c.Chunker = c.Chunker.WithDefaults()
	c.Chunker.SessionID = c.SessionID
	c.Chunker.SpeakerID = c.SpeakerID
	c.Chunker.SpeakerName = c.SpeakerName

	c.Transport.URL = c.ServerURL
	c.Transport.SessionID = c.SessionID
	return c
}

// Validate checks the configuration can run a session
func (c Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server URL is required")
	}
	if c.SessionID == "" {
		return fmt.Errorf("session ID is required")
	}
	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("invalid capture config: %w", err)
	}
	if err := c.Chunker.Validate(); err != nil {
		return fmt.Errorf("invalid chunker config: %w", err)
	}
	return nil
}
