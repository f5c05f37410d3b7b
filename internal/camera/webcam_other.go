//go:build !linux

package camera

import "fmt"

// Webcam is a V4L2 device producing MJPEG frames. Only available on Linux.
type Webcam struct {
	Device string
	Width  uint32
	Height uint32
}

// NewWebcam creates a webcam source for the given device node.
func NewWebcam(device string, width, height int) *Webcam {
	return &Webcam{Device: device, Width: uint32(width), Height: uint32(height)}
}

// Open always fails outside Linux.
func (w *Webcam) Open() (Handle, error) {
	return nil, fmt.Errorf("%w: V4L2 capture requires linux", ErrDeviceUnavailable)
}
