// ABOUTME: Tests for nearest-neighbor resampler
// ABOUTME: Verifies decimation ratios, index mapping and frequency preservation
package resample

import (
	"math"
	"testing"
)

func TestResampleLengths(t *testing.T) {
	tests := []struct {
		name     string
		in, out  int
		inputLen int
		want     int
	}{
		{"48k to 16k exact", 48000, 16000, 4800, 1600},
		{"48k to 16k remainder", 48000, 16000, 4801, 1600},
		{"48k to 16k remainder 2", 48000, 16000, 4802, 1600},
		{"44.1k to 16k", 44100, 16000, 44100, 16000},
		{"identity", 16000, 16000, 1234, 1234},
		{"empty", 48000, 16000, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.in, tt.out)
			got := r.Resample(make([]float32, tt.inputLen))
			if len(got) != tt.want {
				t.Errorf("expected %d samples, got %d", tt.want, len(got))
			}
		})
	}
}

func TestResampleIndexMapping(t *testing.T) {
	input := make([]float32, 12)
	for i := range input {
		input[i] = float32(i)
	}

	got := New(48000, 16000).Resample(input)
	want := []float32{0, 3, 6, 9}
	if len(got) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestResampleDoesNotAliasInput(t *testing.T) {
	input := []float32{1, 2, 3}
	out := New(16000, 16000).Resample(input)
	out[0] = 99
	if input[0] != 1 {
		t.Error("identity resample must copy its input")
	}
}

func TestResamplePreservesLowFrequency(t *testing.T) {
	const (
		inRate  = 48000
		outRate = 16000
		freq    = 1000.0 // well below 4kHz (half the target Nyquist)
	)

	input := make([]float32, inRate)
	for i := range input {
		input[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / inRate))
	}

	out := New(inRate, outRate).Resample(input)
	if len(out) != len(input)/3 {
		t.Fatalf("expected floor(len/3)=%d samples, got %d", len(input)/3, len(out))
	}

	// Nearest-neighbor decimation by an integer factor picks exact samples
	// of the source sine, so the output is the same tone at the new rate.
	for i, v := range out {
		expected := math.Sin(2 * math.Pi * freq * float64(i) / outRate)
		if math.Abs(float64(v)-expected) > 1e-4 {
			t.Fatalf("sample %d: expected %f, got %f", i, expected, v)
		}
	}

	// Zero crossings per second should still be ~2*freq
	crossings := 0
	for i := 1; i < len(out); i++ {
		if (out[i-1] < 0) != (out[i] < 0) {
			crossings++
		}
	}
	if crossings < 1990 || crossings > 2010 {
		t.Errorf("expected ~2000 zero crossings, got %d", crossings)
	}
}
