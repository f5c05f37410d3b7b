package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/roll-call/internal/constants"
	"github.com/kozaktomas/roll-call/internal/live"
	"github.com/kozaktomas/roll-call/internal/recognition"
)

// feedStatusInterval is how often the MJPEG feed checks whether the camera stopped.
const feedStatusInterval = time.Second

// LivePipeline is the live camera pipeline driven by the camera endpoints
type LivePipeline interface {
	Start(ctx context.Context) error
	Stop()
	Running() bool
	Subscribe() (<-chan live.Overlay, func())
	Capture(ctx context.Context) (*recognition.AttendanceReport, error)
}

// CameraHandler handles live camera endpoints
type CameraHandler struct {
	pipeline LivePipeline
}

// NewCameraHandler creates a new camera handler
func NewCameraHandler(pipeline LivePipeline) *CameraHandler {
	return &CameraHandler{pipeline: pipeline}
}

func (h *CameraHandler) status(w http.ResponseWriter) {
	respondJSON(w, http.StatusOK, map[string]bool{"running": h.pipeline.Running()})
}

// Status reports whether the camera is running
func (h *CameraHandler) Status(w http.ResponseWriter, r *http.Request) {
	h.status(w)
}

// Start opens the camera. The loop outlives the request.
func (h *CameraHandler) Start(w http.ResponseWriter, r *http.Request) {
	if err := h.pipeline.Start(context.WithoutCancel(r.Context())); err != nil {
		respondServiceError(w, err, "start camera")
		return
	}
	h.status(w)
}

// Stop stops the live loop and releases the camera
func (h *CameraHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.pipeline.Stop()
	h.status(w)
}

// Capture takes attendance from the current camera frame
func (h *CameraHandler) Capture(w http.ResponseWriter, r *http.Request) {
	report, err := h.pipeline.Capture(r.Context())
	if err != nil {
		respondServiceError(w, err, "capture attendance")
		return
	}
	respondJSON(w, http.StatusOK, toAttendanceResponse(report))
}

// Feed streams annotated frames as multipart MJPEG until the client leaves or
// the camera stops.
func (h *CameraHandler) Feed(w http.ResponseWriter, r *http.Request) {
	if !h.pipeline.Running() {
		respondServiceError(w, live.ErrNotRunning, "stream camera")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	overlays, unsubscribe := h.pipeline.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+constants.MJPEGBoundary)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(feedStatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if !h.pipeline.Running() {
				return
			}
		case o := <-overlays:
			frame, err := live.Render(o)
			if err != nil {
				log.Printf("Warning: failed to render frame: %v", err)
				continue
			}
			if err := writeMJPEGPart(w, frame); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeMJPEGPart(w http.ResponseWriter, frame []byte) error {
	if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", constants.MJPEGBoundary, len(frame)); err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return err
	}
	_, err := w.Write([]byte("\r\n"))
	return err
}
