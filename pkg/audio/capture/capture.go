// ABOUTME: Capture lifecycle wrapper around a Source
// ABOUTME: Guarantees idempotent stop and drops frames from stale sessions
package capture

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"github.com/kikitori/kikitori-go/pkg/audio"
)

// Capture owns one Source and the frame callback
type Capture struct {
	source  Source
	config  SourceConfig
	onFrame func(audio.Frame)

	mu     sync.Mutex
	active bool

	// generation changes on every Start and Stop; frames tagged with an
	// older generation are dropped
	generation atomic.Uint64
	frames     atomic.Uint64
}

// New creates a capture for source; onFrame receives every frame while active
func New(source Source, config SourceConfig, onFrame func(audio.Frame)) *Capture {
	if config.SampleRate == 0 {
		config.SampleRate = audio.DefaultNativeSampleRate
	}
	if config.FrameSize == 0 {
		config.FrameSize = audio.DefaultFrameSize
	}
	if config.Channels == 0 {
		config.Channels = audio.CanonicalChannels
	}

	return &Capture{
		source:  source,
		config:  config,
		onFrame: onFrame,
	}
}

// Start opens the source. It is a no-op when already active.
func (c *Capture) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return nil
	}
	gen := c.generation.Add(1)
	c.mu.Unlock()

	if err := c.config.Validate(); err != nil {
		return &DeviceError{Kind: Classify(err), Source: c.source.Name(), Err: err}
	}

	err := c.source.Open(c.config, func(f audio.Frame) {
		if c.generation.Load() != gen {
			return
		}
		c.frames.Add(1)
		if c.onFrame != nil {
			c.onFrame(f)
		}
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation.Load() != gen || ctx.Err() != nil {
		// Stop (or cancellation) raced the open
		if err == nil {
			if cerr := c.source.Close(); cerr != nil {
				log.Printf("Capture: close after cancelled start failed: %v", cerr)
			}
		}
		c.generation.Add(1)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrStopped
	}

	if err != nil {
		return &DeviceError{Kind: Classify(err), Source: c.source.Name(), Err: err}
	}

	c.active = true
	log.Printf("Capture started: %s at %dHz, %d samples/frame", c.source.Name(), c.config.SampleRate, c.config.FrameSize)
	return nil
}

// Stop releases the source. Safe to call repeatedly or before Start.
func (c *Capture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation.Add(1)
	if !c.active {
		return
	}
	c.active = false

	if err := c.source.Close(); err != nil {
		log.Printf("Capture: error closing %s: %v", c.source.Name(), err)
	}
	log.Printf("Capture stopped: %s", c.source.Name())
}

// Active reports whether the source is currently open
func (c *Capture) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Frames returns the number of frames delivered since creation
func (c *Capture) Frames() uint64 {
	return c.frames.Load()
}

// Config returns the stream configuration
func (c *Capture) Config() SourceConfig {
	return c.config
}
