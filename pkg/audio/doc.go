// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines capture frames, the canonical recognizer format and sample math
// Package audio provides the fundamental audio types shared by capture,
// chunking and encoding.
//
// Microphone samples travel through the pipeline as mono float32 values in
// [-1, 1] at the device's native rate. Before transmission they are decimated
// to the canonical recognizer format:
//   - 16000 Hz
//   - 1 channel
//   - 16-bit signed little-endian PCM
//
// Example:
//
//	frame := audio.Frame{Samples: samples, SampleRate: 48000}
//	level := audio.RMS(frame.Samples)
//	pcm := audio.FloatToInt16(frame.Samples[0])
package audio
