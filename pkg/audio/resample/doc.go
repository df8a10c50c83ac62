// ABOUTME: Audio resampling package using nearest-neighbor decimation
// ABOUTME: Converts native capture rates to the canonical recognizer rate
// Package resample provides audio sample rate conversion.
//
// Output index i reads source index floor(i * inputRate / outputRate).
// Speech recognition tolerates the aliasing this introduces, and the
// conversion costs one multiply per output sample.
//
// Example:
//
//	r := resample.New(48000, 16000)
//	out := r.Resample(nativeSamples)
package resample
