// ABOUTME: WAV audio encoder
// ABOUTME: Encodes float32 samples to a mono 16-bit PCM RIFF file
package encode

import (
	"bytes"
	"fmt"

	"github.com/kikitori/kikitori-go/pkg/audio"
	"github.com/youpy/go-wav"
)

// WAVHeaderSize is the size of the canonical RIFF/WAVE header
const WAVHeaderSize = 44

// WAVEncoder encodes WAV audio
type WAVEncoder struct {
	sampleRate int
}

// NewWAV creates a new WAV encoder for mono 16-bit output
func NewWAV(sampleRate int) *WAVEncoder {
	if sampleRate <= 0 {
		sampleRate = audio.CanonicalSampleRate
	}
	return &WAVEncoder{sampleRate: sampleRate}
}

// Encode converts float32 samples to a WAV file
func (e *WAVEncoder) Encode(samples []float32) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(WAVHeaderSize + len(samples)*2)

	w := wav.NewWriter(&buf, uint32(len(samples)), audio.CanonicalChannels, uint32(e.sampleRate), audio.CanonicalBitDepth)

	out := make([]wav.Sample, len(samples))
	for i, s := range samples {
		out[i].Values[0] = int(audio.FloatToInt16(s))
	}
	if err := w.WriteSamples(out); err != nil {
		return nil, fmt.Errorf("wav encode error: %w", err)
	}

	return buf.Bytes(), nil
}

// MimeType returns audio/wav
func (e *WAVEncoder) MimeType() string {
	return audio.MimeTypeWAV
}

// SampleRate returns the rate written into the header
func (e *WAVEncoder) SampleRate() int {
	return e.sampleRate
}

// Close releases resources
func (e *WAVEncoder) Close() error {
	return nil
}
