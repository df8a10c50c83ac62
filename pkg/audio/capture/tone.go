// ABOUTME: Synthetic tone capture source
// ABOUTME: Generates paced sine bursts separated by silence for demos and tests
package capture

import (
	"math"
	"sync"
	"time"

	"github.com/kikitori/kikitori-go/pkg/audio"
)

// Tone generates a sine wave at real-time pace.
// When SpeakFor and PauseFor are both set, the tone alternates between
// SpeakFor of signal and PauseFor of silence so the chunker sees utterances.
type Tone struct {
	Frequency float64
	Amplitude float64
	SpeakFor  time.Duration
	PauseFor  time.Duration

	// FailWith makes Open return this error instead of starting
	FailWith error

	mu          sync.Mutex
	sampleIndex uint64
	stop        chan struct{}
	done        chan struct{}
	opens       int
	closes      int
}

// NewTone creates a continuous tone source
func NewTone(frequency, amplitude float64) *Tone {
	return &Tone{
		Frequency: frequency,
		Amplitude: amplitude,
	}
}

// Name identifies the backend in logs and errors
func (t *Tone) Name() string { return "tone" }

// Open starts a goroutine delivering one frame per frame period
func (t *Tone) Open(cfg SourceConfig, onFrame func(audio.Frame)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.FailWith != nil {
		return t.FailWith
	}
	if t.stop != nil {
		return ErrDeviceBusy
	}

	t.opens++
	t.stop = make(chan struct{})
	t.done = make(chan struct{})

	go t.run(cfg, onFrame, t.stop, t.done)
	return nil
}

func (t *Tone) run(cfg SourceConfig, onFrame func(audio.Frame), stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(audio.Duration(cfg.FrameSize, cfg.SampleRate))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			onFrame(audio.Frame{
				Samples:    t.Generate(cfg.FrameSize, cfg.SampleRate),
				SampleRate: cfg.SampleRate,
				CapturedAt: now,
			})
		}
	}
}

// Generate produces the next n samples at sampleRate
func (t *Tone) Generate(n, sampleRate int) []float32 {
	samples := make([]float32, n)
	cycle := SamplesForCycle(t.SpeakFor, t.PauseFor, sampleRate)
	speak := audio.SamplesFor(t.SpeakFor, sampleRate)

	for i := range samples {
		idx := t.sampleIndex + uint64(i)
		if cycle > 0 && int(idx%uint64(cycle)) >= speak {
			continue
		}
		tm := float64(idx) / float64(sampleRate)
		samples[i] = float32(t.Amplitude * math.Sin(2*math.Pi*t.Frequency*tm))
	}

	t.sampleIndex += uint64(n)
	return samples
}

// SamplesForCycle returns the length of one speak+pause period, 0 when continuous
func SamplesForCycle(speak, pause time.Duration, sampleRate int) int {
	if speak <= 0 || pause <= 0 {
		return 0
	}
	return audio.SamplesFor(speak+pause, sampleRate)
}

// Close stops the generator and waits for it to exit
func (t *Tone) Close() error {
	t.mu.Lock()
	stop, done := t.stop, t.done
	t.stop, t.done = nil, nil
	if stop != nil {
		t.closes++
	}
	t.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	return nil
}

// Running reports whether the generator goroutine is active
func (t *Tone) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stop != nil
}

// Counts returns how many times the source was opened and closed
func (t *Tone) Counts() (opens, closes int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.opens, t.closes
}
