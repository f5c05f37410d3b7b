//go:build linux

package camera

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/blackjack/webcam"
	"github.com/kozaktomas/roll-call/internal/constants"
)

// pixFmtMJPEG is the V4L2 fourcc for Motion-JPEG.
const pixFmtMJPEG webcam.PixelFormat = 0x47504A4D

// maxFrameTimeouts is the number of consecutive frame timeouts tolerated before a read fails.
const maxFrameTimeouts = 3

// Webcam is a V4L2 device producing MJPEG frames.
type Webcam struct {
	Device string
	Width  uint32
	Height uint32
}

// NewWebcam creates a webcam source for the given device node.
func NewWebcam(device string, width, height int) *Webcam {
	return &Webcam{Device: device, Width: uint32(width), Height: uint32(height)}
}

// Open opens the device and starts streaming.
func (w *Webcam) Open() (Handle, error) {
	cam, err := webcam.Open(w.Device)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, w.Device, err)
	}

	if _, ok := cam.GetSupportedFormats()[pixFmtMJPEG]; !ok {
		cam.Close()
		return nil, fmt.Errorf("%w: %s does not support MJPEG", ErrDeviceUnavailable, w.Device)
	}

	_, width, height, err := cam.SetImageFormat(pixFmtMJPEG, w.Width, w.Height)
	if err != nil {
		cam.Close()
		return nil, fmt.Errorf("%w: setting image format: %v", ErrDeviceUnavailable, err)
	}
	log.Printf("Camera %s streaming MJPEG at %dx%d", w.Device, width, height)

	if err := cam.StartStreaming(); err != nil {
		cam.Close()
		return nil, fmt.Errorf("%w: starting stream: %v", ErrDeviceUnavailable, err)
	}

	return &webcamHandle{cam: cam, timeout: uint32(constants.CameraFrameTimeout / time.Second)}, nil
}

type webcamHandle struct {
	mu      sync.Mutex
	cam     *webcam.Webcam
	timeout uint32
	closed  bool
}

// ReadFrame waits for the next frame. The driver reuses its buffers, so the
// returned frame is a copy.
func (h *webcamHandle) ReadFrame() (Frame, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return Frame{}, io.EOF
	}

	timeouts := 0
	for {
		err := h.cam.WaitForFrame(h.timeout)
		var timeout *webcam.Timeout
		switch {
		case err == nil:
		case errors.As(err, &timeout):
			timeouts++
			if timeouts >= maxFrameTimeouts {
				return Frame{}, fmt.Errorf("waiting for frame: %w", err)
			}
			continue
		default:
			return Frame{}, fmt.Errorf("waiting for frame: %w", err)
		}

		buf, err := h.cam.ReadFrame()
		if err != nil {
			return Frame{}, fmt.Errorf("reading frame: %w", err)
		}
		if len(buf) == 0 {
			continue
		}

		data := make([]byte, len(buf))
		copy(data, buf)
		return Frame{JPEG: data, Captured: time.Now()}, nil
	}
}

func (h *webcamHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	if err := h.cam.Close(); err != nil {
		return fmt.Errorf("closing camera: %w", err)
	}
	return nil
}
