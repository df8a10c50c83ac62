// ABOUTME: Audio encoder package for turning float frames into upload payloads
// ABOUTME: Provides Encoder interface, a WAV implementation and base64 framing
// Package encode provides audio encoders for chunk uploads.
//
// Supports: WAV (mono, 16-bit little-endian PCM)
//
// All encoders accept float32 samples in [-1, 1] at the encoder's
// sample rate and produce a self-contained file.
//
// Example:
//
//	encoder := encode.NewWAV(audio.CanonicalSampleRate)
//	data, err := encoder.Encode(samples)
//	payload := encode.Base64(data)
package encode
