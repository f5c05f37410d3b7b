package camera

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/kozaktomas/roll-call/internal/fingerprint"
	"github.com/kozaktomas/roll-call/internal/uploads"
)

// DirectorySource replays the images of a directory in name order, which is
// useful for testing the live pipeline without a camera.
type DirectorySource struct {
	Dir      string
	Loop     bool          // start over after the last image instead of ending the stream
	Interval time.Duration // minimum time between frames
}

// Open lists the images in the directory.
func (s *DirectorySource) Open() (Handle, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && uploads.AllowedFile(e.Name()) {
			files = append(files, filepath.Join(s.Dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no images in %s", ErrDeviceUnavailable, s.Dir)
	}
	slices.Sort(files)

	return &directoryHandle{files: files, loop: s.Loop, interval: s.Interval}, nil
}

type directoryHandle struct {
	mu       sync.Mutex
	files    []string
	next     int
	loop     bool
	interval time.Duration
	last     time.Time
	closed   bool
}

func (h *directoryHandle) ReadFrame() (Frame, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return Frame{}, io.EOF
	}
	if h.next >= len(h.files) {
		if !h.loop {
			return Frame{}, io.EOF
		}
		h.next = 0
	}

	if h.interval > 0 && !h.last.IsZero() {
		if wait := h.interval - time.Since(h.last); wait > 0 {
			time.Sleep(wait)
		}
	}

	path := h.files[h.next]
	h.next++

	data, err := os.ReadFile(path)
	if err != nil {
		return Frame{}, fmt.Errorf("reading %s: %w", path, err)
	}
	jpegData, err := fingerprint.ToJPEG(data)
	if err != nil {
		return Frame{}, fmt.Errorf("converting %s: %w", path, err)
	}

	h.last = time.Now()
	return Frame{JPEG: jpegData, Captured: h.last}, nil
}

func (h *directoryHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}
