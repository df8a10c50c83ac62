// ABOUTME: Audio output interface tests
// ABOUTME: Verifies Output implementations and volume scaling
package output

import (
	"testing"
)

func TestOtoImplementsOutput(t *testing.T) {
	var _ Output = (*Oto)(nil)
}

func TestOtoWriteBeforeOpen(t *testing.T) {
	out := NewOto()
	if err := out.Write([]float32{0.1}); err == nil {
		t.Fatal("expected error writing to unopened output")
	}
}

func TestOtoVolumeClamp(t *testing.T) {
	out := NewOto()

	out.SetVolume(150)
	if got := out.GetVolume(); got != 100 {
		t.Errorf("expected volume clamped to 100, got %d", got)
	}
	out.SetVolume(-5)
	if got := out.GetVolume(); got != 0 {
		t.Errorf("expected volume clamped to 0, got %d", got)
	}
	out.SetMuted(true)
	if !out.IsMuted() {
		t.Error("expected muted")
	}
}

func TestApplyVolume(t *testing.T) {
	tests := []struct {
		name   string
		volume int
		muted  bool
		in     float32
		want   float32
	}{
		{"full", 100, false, 0.5, 0.5},
		{"half", 50, false, 0.5, 0.25},
		{"muted", 100, true, 0.5, 0},
		{"zero", 0, false, 0.5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := applyVolume([]float32{tt.in}, tt.volume, tt.muted)
			if got[0] != tt.want {
				t.Errorf("expected %f, got %f", tt.want, got[0])
			}
		})
	}
}
