package capture

import (
	"context"
	"errors"
)

// ErrCaptureUnavailable is returned when no capture device can be opened.
// It is terminal for the session.
var ErrCaptureUnavailable = errors.New("capture unavailable")

// ErrNotOpen is returned when recording is requested before Open
var ErrNotOpen = errors.New("capture session not open")

// Chunk is one fragment of captured media as delivered by the device
type Chunk struct {
	Data     []byte
	MimeType string
}

// Device is a source of captured media
type Device interface {
	// Open acquires the device and returns the negotiated MIME type, which may be empty
	Open(ctx context.Context) (string, error)

	// Record delivers chunks in emission order until ctx is cancelled or the input ends.
	// It returns after the last chunk has been sent and must not close chunks.
	Record(ctx context.Context, chunks chan<- Chunk) error

	// Close releases the device
	Close() error
}
