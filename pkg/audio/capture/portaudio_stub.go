//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package capture

import (
	"fmt"

	"github.com/kikitori/kikitori-go/pkg/audio"
)

// PortAudio capture source (stub)
type PortAudio struct{}

// NewPortAudio creates a new PortAudio capture source
func NewPortAudio() Source {
	return &PortAudio{}
}

// Name identifies the backend in logs and errors
func (p *PortAudio) Name() string { return "portaudio" }

// Open always fails without the portaudio build tag
func (p *PortAudio) Open(cfg SourceConfig, onFrame func(audio.Frame)) error {
	return fmt.Errorf("%w: PortAudio support not enabled (build with -tags portaudio)", ErrDeviceNotFound)
}

// Close releases resources
func (p *PortAudio) Close() error {
	return nil
}
