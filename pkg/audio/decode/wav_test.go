// ABOUTME: Tests for WAV decoder
// ABOUTME: Round-trips encoder output through the decoder
package decode

import (
	"math"
	"testing"

	"github.com/kikitori/kikitori-go/pkg/audio/encode"
)

func TestWAVDecoder_RoundTrip(t *testing.T) {
	input := []float32{0, 0.5, -0.5, 0.25, -1}

	data, err := encode.NewWAV(16000).Encode(input)
	if err != nil {
		t.Fatalf("Encode() unexpected error = %v", err)
	}

	clip, err := NewWAV().Decode(data)
	if err != nil {
		t.Fatalf("Decode() unexpected error = %v", err)
	}

	if clip.SampleRate != 16000 {
		t.Errorf("expected sample rate 16000, got %d", clip.SampleRate)
	}
	if clip.Channels != 1 {
		t.Errorf("expected 1 channel, got %d", clip.Channels)
	}
	if len(clip.Samples) != len(input) {
		t.Fatalf("expected %d samples, got %d", len(input), len(clip.Samples))
	}
	for i, v := range clip.Samples {
		if math.Abs(float64(v-input[i])) > 1e-3 {
			t.Errorf("sample %d: expected ~%f, got %f", i, input[i], v)
		}
	}
}

func TestWAVDecoder_Garbage(t *testing.T) {
	if _, err := NewWAV().Decode([]byte("not a wav file")); err == nil {
		t.Fatal("expected error for garbage input")
	}
}

func TestClipMono(t *testing.T) {
	clip := Clip{Samples: []float32{1, 0, 0.5, 0.5}, SampleRate: 16000, Channels: 2}
	mono := clip.Mono()
	want := []float32{0.5, 0.5}
	if len(mono) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(mono))
	}
	for i := range want {
		if mono[i] != want[i] {
			t.Errorf("index %d: expected %f, got %f", i, want[i], mono[i])
		}
	}
}
