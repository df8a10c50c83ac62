// ABOUTME: Voice-activity chunker deciding when buffered speech becomes a chunk
// ABOUTME: Tail-RMS silence detection with pause, max-duration and flush triggers
package chunker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/kikitori/kikitori-go/pkg/audio"
	"github.com/kikitori/kikitori-go/pkg/audio/encode"
	"github.com/kikitori/kikitori-go/pkg/audio/resample"
)

// Stats is a point-in-time view of the chunker
type Stats struct {
	BufferedSamples int
	Buffered        time.Duration
	Silent          bool
	SilenceFor      time.Duration
	Emitted         int
	Discarded       int
	LastEmit        time.Time
}

// Option configures a Chunker
type Option func(*Chunker)

// WithClock injects the time source
func WithClock(now func() time.Time) Option {
	return func(c *Chunker) { c.now = now }
}

// WithEncoder replaces the WAV encoder
func WithEncoder(enc encode.Encoder) Option {
	return func(c *Chunker) { c.encoder = enc }
}

// OnEmit registers a hook called after a chunk is handed to the sink
func OnEmit(fn func(AudioChunk)) Option {
	return func(c *Chunker) { c.onEmit = fn }
}

// OnDiscard registers a hook called when buffered audio is dropped
func OnDiscard(fn func(reason string, samples int)) Option {
	return func(c *Chunker) { c.onDiscard = fn }
}

// Chunker accumulates native-rate frames and emits chunks
type Chunker struct {
	config    Config
	sink      Sink
	encoder   encode.Encoder
	resampler *resample.Resampler
	now       func() time.Time
	onEmit    func(AudioChunk)
	onDiscard func(reason string, samples int)

	mu           sync.Mutex
	buffer       []float32
	silenceStart time.Time
	silent       bool
	emitted      int
	discarded    int
	lastEmit     time.Time
}

// New creates a chunker feeding sink
func New(config Config, sink Sink, opts ...Option) *Chunker {
	config = config.WithDefaults()

	c := &Chunker{
		config:    config,
		sink:      sink,
		encoder:   encode.NewWAV(audio.CanonicalSampleRate),
		resampler: resample.New(config.NativeSampleRate, audio.CanonicalSampleRate),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Append adds a frame and evaluates the send conditions
func (c *Chunker) Append(frame audio.Frame) {
	c.mu.Lock()
	if frame.SampleRate != 0 && frame.SampleRate != c.config.NativeSampleRate {
		if len(c.buffer) > 0 {
			native := c.config.NativeSampleRate
			c.discarded++
			c.mu.Unlock()
			log.Printf("Chunker: dropping %dHz frame while holding %dHz audio", frame.SampleRate, native)
			c.notifyDiscard(DiscardRateMismatch, len(frame.Samples))
			return
		}
		log.Printf("Chunker: native rate changed %d -> %d", c.config.NativeSampleRate, frame.SampleRate)
		c.config.NativeSampleRate = frame.SampleRate
		c.resampler = resample.New(frame.SampleRate, audio.CanonicalSampleRate)
	}
	c.buffer = append(c.buffer, frame.Samples...)
	d := c.evaluate(false)
	c.mu.Unlock()

	c.dispatch(d)
}

// Tick evaluates the send conditions without new audio
func (c *Chunker) Tick() {
	c.mu.Lock()
	d := c.evaluate(false)
	c.mu.Unlock()

	c.dispatch(d)
}

// Flush forces emission of whatever is buffered. The buffer is always cleared.
func (c *Chunker) Flush() {
	c.mu.Lock()
	d := c.evaluate(true)
	c.mu.Unlock()

	c.dispatch(d)
}

// Discard drops buffered audio without sending it
func (c *Chunker) Discard() {
	c.mu.Lock()
	n := len(c.buffer)
	c.reset()
	if n > 0 {
		c.discarded++
	}
	c.mu.Unlock()

	if n > 0 {
		c.notifyDiscard(DiscardStopped, n)
	}
}

// Run polls Tick every PollInterval until ctx is cancelled
func (c *Chunker) Run(ctx context.Context) {
	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick()
		}
	}
}

// SetThresholds updates the silence threshold and hold time
func (c *Chunker) SetThresholds(threshold float64, silenceHold time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if threshold > 0 {
		c.config.SilenceThreshold = threshold
	}
	if silenceHold > 0 {
		c.config.SilenceHold = silenceHold
	}
}

// SetSpeaker changes the attribution stamped on subsequent chunks
func (c *Chunker) SetSpeaker(id, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config.SpeakerID = id
	c.config.SpeakerName = name
}

// Config returns the current configuration
func (c *Chunker) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config
}

// Stats returns counters and buffer state
func (c *Chunker) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		BufferedSamples: len(c.buffer),
		Buffered:        audio.Duration(len(c.buffer), c.config.NativeSampleRate),
		Silent:          c.silent,
		Emitted:         c.emitted,
		Discarded:       c.discarded,
		LastEmit:        c.lastEmit,
	}
	if c.silent && !c.silenceStart.IsZero() {
		s.SilenceFor = c.now().Sub(c.silenceStart)
	}
	return s
}

// decision is the work evaluate hands to dispatch outside the lock
type decision struct {
	chunk         *AudioChunk
	discardReason string
	discardCount  int
}

// evaluate classifies the tail and detaches the buffer when a send
// condition fires (must hold c.mu)
func (c *Chunker) evaluate(force bool) decision {
	if len(c.buffer) == 0 {
		return decision{}
	}

	now := c.now()
	tailLen := audio.SamplesFor(c.config.TailWindow, c.config.NativeSampleRate)
	tail := c.buffer
	if len(tail) > tailLen {
		tail = tail[len(tail)-tailLen:]
	}

	c.silent = audio.RMS(tail) < c.config.SilenceThreshold
	if c.silent {
		if c.silenceStart.IsZero() {
			c.silenceStart = now
		}
	} else {
		c.silenceStart = time.Time{}
	}

	var silenceFor time.Duration
	if c.silent {
		silenceFor = now.Sub(c.silenceStart)
	}

	buffered := audio.Duration(len(c.buffer), c.config.NativeSampleRate)

	var reason Reason
	switch {
	case force:
		reason = ReasonFlush
	case buffered > c.config.MinBuffered && silenceFor > c.config.SilenceHold:
		reason = ReasonPause
	case buffered > c.config.MaxBuffered:
		reason = ReasonMaxDuration
	default:
		return decision{}
	}

	buf := c.buffer
	c.reset()

	if c.sink == nil || !c.sink.Connected() {
		c.discarded++
		return decision{discardReason: DiscardDisconnected, discardCount: len(buf)}
	}

	down := c.resampler.Resample(buf)
	if len(down) < c.config.MinChunkSamples {
		c.discarded++
		return decision{discardReason: DiscardTooShort, discardCount: len(buf)}
	}

	if !c.containsSpeech(buf, tailLen) {
		c.discarded++
		return decision{discardReason: DiscardSilence, discardCount: len(buf)}
	}

	data, err := c.encoder.Encode(down)
	if err != nil {
		log.Printf("Chunker: encode failed: %v", err)
		c.discarded++
		return decision{discardReason: DiscardEncodeFailed, discardCount: len(buf)}
	}

	c.emitted++
	c.lastEmit = now

	return decision{chunk: &AudioChunk{
		Data:        data,
		MimeType:    c.encoder.MimeType(),
		SessionID:   c.config.SessionID,
		SpeakerID:   c.config.SpeakerID,
		SpeakerName: c.config.SpeakerName,
		Samples:     len(down),
		Reason:      reason,
		CreatedAt:   now,
	}}
}

// containsSpeech reports whether any window of the buffer is above threshold
func (c *Chunker) containsSpeech(buf []float32, window int) bool {
	if window <= 0 {
		window = len(buf)
	}
	for start := 0; start < len(buf); start += window {
		end := start + window
		if end > len(buf) {
			end = len(buf)
		}
		if audio.RMS(buf[start:end]) >= c.config.SilenceThreshold {
			return true
		}
	}
	return false
}

// reset clears the buffer and silence tracking (must hold c.mu)
func (c *Chunker) reset() {
	c.buffer = nil
	c.silenceStart = time.Time{}
	c.silent = false
}

func (c *Chunker) dispatch(d decision) {
	if d.discardReason != "" {
		c.notifyDiscard(d.discardReason, d.discardCount)
		return
	}
	if d.chunk == nil {
		return
	}

	if err := c.sink.SendChunk(*d.chunk); err != nil {
		log.Printf("Chunker: send failed, dropping %v chunk: %v", d.chunk.Duration(), err)
		c.mu.Lock()
		c.emitted--
		c.discarded++
		c.mu.Unlock()
		c.notifyDiscard(DiscardSendFailed, d.chunk.Samples)
		return
	}

	log.Printf("Chunker: emitted %v chunk (%s, %d bytes)", d.chunk.Duration(), d.chunk.Reason, len(d.chunk.Data))
	if c.onEmit != nil {
		c.onEmit(*d.chunk)
	}
}

func (c *Chunker) notifyDiscard(reason string, samples int) {
	if c.onDiscard != nil {
		c.onDiscard(reason, samples)
	}
}
