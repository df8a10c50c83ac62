// ABOUTME: WAV audio decoder
// ABOUTME: Decodes RIFF/WAVE PCM files to float32 samples via go-wav
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/youpy/go-wav"
)

// WAVDecoder decodes WAV audio
type WAVDecoder struct{}

// NewWAV creates a new WAV decoder
func NewWAV() Decoder {
	return &WAVDecoder{}
}

// Decode converts a WAV file to samples
func (d *WAVDecoder) Decode(data []byte) (Clip, error) {
	reader := wav.NewReader(bytes.NewReader(data))

	format, err := reader.Format()
	if err != nil {
		return Clip{}, fmt.Errorf("failed to read wav format: %w", err)
	}
	if format.AudioFormat != wav.AudioFormatPCM {
		return Clip{}, fmt.Errorf("unsupported wav audio format: %d", format.AudioFormat)
	}

	channels := int(format.NumChannels)
	clip := Clip{
		SampleRate: int(format.SampleRate),
		Channels:   channels,
	}

	for {
		samples, err := reader.ReadSamples()
		for _, s := range samples {
			for ch := 0; ch < channels && ch < len(s.Values); ch++ {
				clip.Samples = append(clip.Samples, float32(reader.FloatValue(s, uint(ch))))
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Clip{}, fmt.Errorf("wav decode error: %w", err)
		}
	}

	return clip, nil
}

// Close releases decoder resources
func (d *WAVDecoder) Close() error {
	return nil
}
