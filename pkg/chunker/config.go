// ABOUTME: Chunker configuration and defaults
// ABOUTME: Voice-activity thresholds, timing windows and speaker identity
package chunker

import (
	"fmt"
	"time"

	"github.com/kikitori/kikitori-go/pkg/audio"
)

const (
	DefaultPollInterval     = 300 * time.Millisecond
	DefaultTailWindow       = 300 * time.Millisecond
	DefaultSilenceThreshold = 0.005
	DefaultMinBuffered      = 1 * time.Second
	DefaultSilenceHold      = 800 * time.Millisecond
	DefaultMaxBuffered      = 8 * time.Second

	// DefaultMinChunkSamples is one second at the canonical rate
	DefaultMinChunkSamples = audio.CanonicalSampleRate
)

// Config holds chunker parameters
type Config struct {
	NativeSampleRate int

	// PollInterval is how often Run re-evaluates without new audio
	PollInterval time.Duration

	// TailWindow is how much recent audio decides speech vs silence
	TailWindow time.Duration

	// SilenceThreshold is the RMS below which the tail counts as silent
	SilenceThreshold float64

	// A pause emits once more than MinBuffered is held and silence has
	// lasted longer than SilenceHold
	MinBuffered time.Duration
	SilenceHold time.Duration

	// MaxBuffered forces emission during continuous speech
	MaxBuffered time.Duration

	// MinChunkSamples at the canonical rate; shorter chunks are noise
	MinChunkSamples int

	SessionID   string
	SpeakerID   string
	SpeakerName string
}

// DefaultConfig returns the standard voice-activity settings
func DefaultConfig() Config {
	return Config{
		NativeSampleRate: audio.DefaultNativeSampleRate,
		PollInterval:     DefaultPollInterval,
		TailWindow:       DefaultTailWindow,
		SilenceThreshold: DefaultSilenceThreshold,
		MinBuffered:      DefaultMinBuffered,
		SilenceHold:      DefaultSilenceHold,
		MaxBuffered:      DefaultMaxBuffered,
		MinChunkSamples:  DefaultMinChunkSamples,
	}
}

// WithDefaults fills zero fields from DefaultConfig
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.NativeSampleRate == 0 {
		c.NativeSampleRate = d.NativeSampleRate
	}
	if c.PollInterval == 0 {
		c.PollInterval = d.PollInterval
	}
	if c.TailWindow == 0 {
		c.TailWindow = d.TailWindow
	}
	if c.SilenceThreshold == 0 {
		c.SilenceThreshold = d.SilenceThreshold
	}
	if c.MinBuffered == 0 {
		c.MinBuffered = d.MinBuffered
	}
	if c.SilenceHold == 0 {
		c.SilenceHold = d.SilenceHold
	}
	if c.MaxBuffered == 0 {
		c.MaxBuffered = d.MaxBuffered
	}
	if c.MinChunkSamples == 0 {
		c.MinChunkSamples = d.MinChunkSamples
	}
	return c
}

// Validate checks the configuration is internally consistent
func (c Config) Validate() error {
	if c.NativeSampleRate < audio.CanonicalSampleRate {
		return fmt.Errorf("native sample rate %d below canonical %d", c.NativeSampleRate, audio.CanonicalSampleRate)
	}
	if c.SilenceThreshold < 0 || c.SilenceThreshold >= 1 {
		return fmt.Errorf("silence threshold must be in [0, 1), got %f", c.SilenceThreshold)
	}
	if c.MaxBuffered <= c.MinBuffered {
		return fmt.Errorf("max buffered %v must exceed min buffered %v", c.MaxBuffered, c.MinBuffered)
	}
	if c.TailWindow <= 0 || c.PollInterval <= 0 {
		return fmt.Errorf("tail window and poll interval must be positive")
	}
	return nil
}
