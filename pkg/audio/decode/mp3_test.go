// ABOUTME: Tests for MP3 decoder
// ABOUTME: Verifies invalid input is rejected
package decode

import "testing"

func TestMP3Decoder_Garbage(t *testing.T) {
	decoder := NewMP3()
	defer decoder.Close()

	if _, err := decoder.Decode([]byte{0x00, 0x01, 0x02}); err == nil {
		t.Fatal("expected error for non-mp3 input, got nil")
	}
}
