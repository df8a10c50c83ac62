// ABOUTME: Encoder interface definition
// ABOUTME: Common interface for all chunk encoders
package encode

// Encoder encodes float32 samples into a container format
type Encoder interface {
	// Encode converts samples to a complete encoded file
	Encode(samples []float32) ([]byte, error)

	// MimeType names the produced container
	MimeType() string

	// Close releases encoder resources
	Close() error
}
