// ABOUTME: Chunk sink that sends encoded audio over the session transport
// ABOUTME: Base64-encodes each chunk into an audio_chunk command
package interview

import (
	"github.com/kikitori/kikitori-go/pkg/audio/encode"
	"github.com/kikitori/kikitori-go/pkg/chunker"
	"github.com/kikitori/kikitori-go/pkg/protocol"
	"github.com/kikitori/kikitori-go/pkg/transport"
)

// transportSink adapts the transport client to chunker.Sink
type transportSink struct {
	client *transport.Client
}

func (s transportSink) Connected() bool {
	return s.client.Connected()
}

func (s transportSink) SendChunk(chunk chunker.AudioChunk) error {
	env, err := protocol.NewAudioChunk(protocol.AudioChunk{
		Chunk:       encode.Base64(chunk.Data),
		MimeType:    chunk.MimeType,
		SpeakerID:   chunk.SpeakerID,
		SpeakerName: chunk.SpeakerName,
		SessionID:   chunk.SessionID,
	})
	if err != nil {
		return err
	}
	return s.client.SendEnvelope(env)
}
