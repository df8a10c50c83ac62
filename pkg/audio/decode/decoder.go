// ABOUTME: Decoder interface definition
// ABOUTME: Common interface for all audio decoders
package decode

import (
	"time"

	"github.com/kikitori/kikitori-go/pkg/audio"
)

// Clip is a fully decoded piece of audio
type Clip struct {
	// Samples are interleaved when Channels > 1
	Samples    []float32
	SampleRate int
	Channels   int
}

// Duration returns the playing time of the clip
func (c Clip) Duration() time.Duration {
	if c.Channels <= 0 {
		return 0
	}
	return audio.Duration(len(c.Samples)/c.Channels, c.SampleRate)
}

// Mono folds interleaved channels into one by averaging
func (c Clip) Mono() []float32 {
	if c.Channels <= 1 {
		out := make([]float32, len(c.Samples))
		copy(out, c.Samples)
		return out
	}
	frames := len(c.Samples) / c.Channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for ch := 0; ch < c.Channels; ch++ {
			sum += c.Samples[i*c.Channels+ch]
		}
		out[i] = sum / float32(c.Channels)
	}
	return out
}

// Decoder decodes a complete encoded file
type Decoder interface {
	// Decode converts encoded audio data to PCM samples
	Decode(data []byte) (Clip, error)

	// Close releases decoder resources
	Close() error
}
