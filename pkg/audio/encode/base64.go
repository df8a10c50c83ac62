// ABOUTME: Windowed base64 encoding for large chunk payloads
// ABOUTME: Streams input through the encoder in fixed-size slices
package encode

import (
	"encoding/base64"
	"strings"
)

// Base64Window is the slice size fed to the encoder per write
const Base64Window = 1024

// Base64 returns the standard base64 encoding of data.
// Input is written in Base64Window slices so large chunks never need a
// second full-size intermediate copy.
func Base64(data []byte) string {
	var sb strings.Builder
	sb.Grow(base64.StdEncoding.EncodedLen(len(data)))

	enc := base64.NewEncoder(base64.StdEncoding, &sb)
	for off := 0; off < len(data); off += Base64Window {
		end := off + Base64Window
		if end > len(data) {
			end = len(data)
		}
		// strings.Builder never returns a write error
		_, _ = enc.Write(data[off:end])
	}
	_ = enc.Close()

	return sb.String()
}
