// ABOUTME: MP3 audio decoder
// ABOUTME: Decodes MP3 audio to float32 samples via go-mp3
package decode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
	"github.com/kikitori/kikitori-go/pkg/audio"
)

// MP3Decoder decodes MP3 audio
type MP3Decoder struct{}

// NewMP3 creates a new MP3 decoder
func NewMP3() Decoder {
	return &MP3Decoder{}
}

// Decode converts MP3 bytes to samples.
// go-mp3 always produces 16-bit little-endian stereo.
func (d *MP3Decoder) Decode(data []byte) (Clip, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return Clip{}, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return Clip{}, fmt.Errorf("mp3 decode error: %w", err)
	}

	numSamples := len(pcm) / 2 // 2 bytes per int16 sample
	samples := make([]float32, numSamples)
	for i := 0; i < numSamples; i++ {
		samples[i] = audio.Int16ToFloat(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}

	return Clip{
		Samples:    samples,
		SampleRate: decoder.SampleRate(),
		Channels:   2,
	}, nil
}

// Close releases decoder resources
func (d *MP3Decoder) Close() error {
	return nil
}
