//go:build portaudio

// ABOUTME: PortAudio capture source
// ABOUTME: Cross-platform microphone input using PortAudio
package capture

import (
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/kikitori/kikitori-go/pkg/audio"
)

// PortAudio capture source
type PortAudio struct {
	mu     sync.Mutex
	stream *portaudio.Stream
}

// NewPortAudio creates a new PortAudio capture source
func NewPortAudio() Source {
	return &PortAudio{}
}

// Name identifies the backend in logs and errors
func (p *PortAudio) Name() string { return "portaudio" }

// Open initializes PortAudio and starts the default input stream
func (p *PortAudio) Open(cfg SourceConfig, onFrame func(audio.Frame)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream != nil {
		return fmt.Errorf("%w: portaudio source already open", ErrDeviceBusy)
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	sampleRate := cfg.SampleRate
	stream, err := portaudio.OpenDefaultStream(cfg.Channels, 0, float64(sampleRate), cfg.FrameSize, func(in []float32) {
		onFrame(audio.Frame{
			Samples:    in,
			SampleRate: sampleRate,
			CapturedAt: time.Now(),
		})
	})
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("failed to open stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("failed to start stream: %w", err)
	}

	p.stream = stream
	return nil
}

// Close stops the stream and terminates PortAudio
func (p *PortAudio) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return nil
	}

	var firstErr error
	if err := p.stream.Stop(); err != nil {
		firstErr = err
	}
	if err := p.stream.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	p.stream = nil
	if err := portaudio.Terminate(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
