// ABOUTME: Audio type definitions
// ABOUTME: Defines capture frames, canonical format constants and sample conversion
package audio

import (
	"math"
	"time"
)

const (
	// CanonicalSampleRate is the rate the downstream recognizer expects
	CanonicalSampleRate = 16000

	// CanonicalChannels is the channel count of every transmitted chunk
	CanonicalChannels = 1

	// CanonicalBitDepth is the PCM bit depth of every transmitted chunk
	CanonicalBitDepth = 16

	// MimeTypeWAV labels WAV-encoded chunks on the wire
	MimeTypeWAV = "audio/wav"

	// DefaultNativeSampleRate is the usual microphone rate
	DefaultNativeSampleRate = 48000

	// DefaultFrameSize is the number of samples delivered per capture callback
	DefaultFrameSize = 4096
)

// Format describes a PCM stream layout
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// Canonical returns the fixed recognizer format
func Canonical() Format {
	return Format{
		SampleRate: CanonicalSampleRate,
		Channels:   CanonicalChannels,
		BitDepth:   CanonicalBitDepth,
	}
}

// Frame is one block of mono samples at the device's native rate.
// Frames are ephemeral; consumers copy what they keep.
type Frame struct {
	Samples    []float32
	SampleRate int
	CapturedAt time.Time
}

// Duration returns how much audio the frame holds
func (f Frame) Duration() time.Duration {
	return Duration(len(f.Samples), f.SampleRate)
}

// Duration converts a sample count at the given rate to wall time
func Duration(samples, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

// SamplesFor converts a wall-time span at the given rate to a sample count
func SamplesFor(d time.Duration, sampleRate int) int {
	return int(int64(d) * int64(sampleRate) / int64(time.Second))
}

// FloatToInt16 converts a float sample to 16-bit PCM.
// Input is clamped to [-1, 1]; negative values scale by 32768, positive by 32767.
func FloatToInt16(sample float32) int16 {
	if sample > 1 {
		sample = 1
	} else if sample < -1 {
		sample = -1
	}
	if sample < 0 {
		return int16(sample * 32768)
	}
	return int16(sample * 32767)
}

// Int16ToFloat converts 16-bit PCM back to a float sample
func Int16ToFloat(sample int16) float32 {
	if sample < 0 {
		return float32(sample) / 32768
	}
	return float32(sample) / 32767
}

// RMS returns the root-mean-square energy of the samples (0 for empty input)
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
