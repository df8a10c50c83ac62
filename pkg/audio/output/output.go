// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for audio playback backends
package output

// Output represents an audio output device
type Output interface {
	// Open initializes the output device
	Open(sampleRate, channels int) error

	// Write outputs interleaved float samples (blocks until written)
	Write(samples []float32) error

	// Close releases output resources
	Close() error
}

// applyVolume applies volume and mute to samples with clipping protection
func applyVolume(samples []float32, volume int, muted bool) []float32 {
	multiplier := float32(getVolumeMultiplier(volume, muted))

	result := make([]float32, len(samples))
	for i, sample := range samples {
		scaled := sample * multiplier
		if scaled > 1 {
			scaled = 1
		} else if scaled < -1 {
			scaled = -1
		}
		result[i] = scaled
	}

	return result
}

// getVolumeMultiplier calculates volume multiplier
func getVolumeMultiplier(volume int, muted bool) float64 {
	if muted {
		return 0.0
	}
	return float64(volume) / 100.0
}
