// ABOUTME: Audio output package for playing spoken prompts
// ABOUTME: Provides Output interface and an oto implementation
// Package output provides audio playback interfaces.
//
// Currently supports oto for cross-platform audio output.
//
// Example:
//
//	out := output.NewOto()
//	err := out.Open(24000, 2)
//	err = out.Write(samples)
package output
