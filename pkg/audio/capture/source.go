// ABOUTME: Source capability interface for audio input backends
// ABOUTME: Defines the frame callback contract and requested device constraints
package capture

import (
	"fmt"

	"github.com/kikitori/kikitori-go/pkg/audio"
)

// SourceConfig describes the stream requested from a backend
type SourceConfig struct {
	// SampleRate is the native device rate (default 48000)
	SampleRate int

	// FrameSize is the number of samples per delivered frame (default 4096)
	FrameSize int

	// Channels must be 1; frames are always mono
	Channels int

	// DeviceName selects a specific input device; empty means the default
	DeviceName string
}

// DefaultSourceConfig returns the usual microphone settings
func DefaultSourceConfig() SourceConfig {
	return SourceConfig{
		SampleRate: audio.DefaultNativeSampleRate,
		FrameSize:  audio.DefaultFrameSize,
		Channels:   audio.CanonicalChannels,
	}
}

// Validate rejects configurations no backend can satisfy
func (c SourceConfig) Validate() error {
	if c.SampleRate < audio.CanonicalSampleRate {
		return fmt.Errorf("%w: sample rate %d below %d", ErrUnsupportedConstraint, c.SampleRate, audio.CanonicalSampleRate)
	}
	if c.FrameSize <= 0 {
		return fmt.Errorf("%w: frame size %d", ErrUnsupportedConstraint, c.FrameSize)
	}
	if c.Channels != 1 {
		return fmt.Errorf("%w: %d channels requested, only mono is supported", ErrUnsupportedConstraint, c.Channels)
	}
	return nil
}

// Source is an audio input backend.
// Open must not return until the device is delivering frames or has failed.
// onFrame is called from the backend's own goroutine; the Samples slice is
// only valid for the duration of the call.
type Source interface {
	Open(cfg SourceConfig, onFrame func(audio.Frame)) error
	Close() error
	Name() string
}
