// ABOUTME: Malgo-based capture source
// ABOUTME: Records mono f32 frames through miniaudio via malgo
package capture

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/kikitori/kikitori-go/pkg/audio"
)

// Malgo capture source using malgo/miniaudio library
type Malgo struct {
	mu       sync.Mutex
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
}

// NewMalgo creates a new Malgo capture source
func NewMalgo() *Malgo {
	return &Malgo{}
}

// Name identifies the backend in logs and errors
func (m *Malgo) Name() string { return "malgo" }

// Open initializes and starts the default capture device
func (m *Malgo) Open(cfg SourceConfig, onFrame func(audio.Frame)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		return fmt.Errorf("%w: malgo source already open", ErrDeviceBusy)
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		log.Printf("malgo: %s", message)
	})
	if err != nil {
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(cfg.Channels)
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(cfg.FrameSize)
	deviceConfig.Alsa.NoMMap = 1

	sampleRate := cfg.SampleRate
	onSamples := func(pOutputSample, pInputSamples []byte, frameCount uint32) {
		samples := make([]float32, frameCount)
		for i := range samples {
			if (i+1)*4 > len(pInputSamples) {
				samples = samples[:i]
				break
			}
			samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(pInputSamples[i*4:]))
		}
		onFrame(audio.Frame{
			Samples:    samples,
			SampleRate: sampleRate,
			CapturedAt: time.Now(),
		})
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onSamples,
	})
	if err != nil {
		releaseContext(ctx)
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		releaseContext(ctx)
		return fmt.Errorf("failed to start capture device: %w", err)
	}

	m.malgoCtx = ctx
	m.device = device
	return nil
}

// Close stops the device and releases the context
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		if err := m.device.Stop(); err != nil {
			log.Printf("Warning: capture device stop error: %v", err)
		}
		m.device.Uninit()
		m.device = nil
	}
	if m.malgoCtx != nil {
		releaseContext(m.malgoCtx)
		m.malgoCtx = nil
	}
	return nil
}

func releaseContext(ctx *malgo.AllocatedContext) {
	if err := ctx.Uninit(); err != nil {
		log.Printf("Warning: malgo context uninit error: %v", err)
	}
	ctx.Free()
}
