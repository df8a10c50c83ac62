// ABOUTME: AudioChunk value type and the Sink that consumes it
// ABOUTME: Chunks are immutable encoded utterances handed off exactly once
package chunker

import (
	"time"

	"github.com/kikitori/kikitori-go/pkg/audio"
)

// AudioChunk is one encoded utterance ready for transmission
type AudioChunk struct {
	Data        []byte
	MimeType    string
	SessionID   string
	SpeakerID   string
	SpeakerName string

	// Samples is the canonical-rate sample count inside Data
	Samples   int
	Reason    Reason
	CreatedAt time.Time
}

// Duration returns the audio length of the chunk
func (c AudioChunk) Duration() time.Duration {
	return audio.Duration(c.Samples, audio.CanonicalSampleRate)
}

// Sink receives emitted chunks. SendChunk must not block on the network.
type Sink interface {
	Connected() bool
	SendChunk(chunk AudioChunk) error
}

// Reason names why a buffer was emitted
type Reason string

const (
	ReasonFlush       Reason = "flush"
	ReasonPause       Reason = "pause"
	ReasonMaxDuration Reason = "max_duration"
)

// Discard reasons passed to the OnDiscard hook
const (
	DiscardTooShort     = "too_short"
	DiscardSilence      = "silence"
	DiscardDisconnected = "disconnected"
	DiscardStopped      = "stopped"
	DiscardEncodeFailed = "encode_failed"
	DiscardSendFailed   = "send_failed"
	// a frame at another sample rate arrived while audio was buffered
	DiscardRateMismatch = "rate_mismatch"
)
