// Package camera provides frame sources for live recognition.
package camera

import (
	"errors"
	"time"
)

// ErrDeviceUnavailable is returned when a frame source cannot be opened.
var ErrDeviceUnavailable = errors.New("camera device unavailable")

// Frame is one captured image, JPEG encoded.
type Frame struct {
	JPEG     []byte
	Captured time.Time
}

// Source opens a frame stream. A source can be opened again after its handle is closed.
type Source interface {
	Open() (Handle, error)
}

// Handle is an open frame stream owned by a single reader.
// ReadFrame returns io.EOF when the stream has ended.
type Handle interface {
	ReadFrame() (Frame, error)
	Close() error
}
