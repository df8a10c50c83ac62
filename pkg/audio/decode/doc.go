// ABOUTME: Audio decoder package for reading encoded clips back to samples
// ABOUTME: Provides Decoder interface and implementations for WAV and MP3
// Package decode provides audio decoders for complete clips.
//
// Supports: WAV (PCM 8/16/24/32-bit), MP3
//
// All decoders output a Clip holding interleaved float32 samples in
// [-1, 1] together with the clip's own rate and channel count.
//
// Example:
//
//	clip, err := decode.NewMP3().Decode(audioData)
package decode
