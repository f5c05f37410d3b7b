// Package live runs continuous face recognition over a camera feed.
package live

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"sync"
	"time"

	"github.com/kozaktomas/roll-call/internal/camera"
	"github.com/kozaktomas/roll-call/internal/constants"
	"github.com/kozaktomas/roll-call/internal/facematch"
	"github.com/kozaktomas/roll-call/internal/fingerprint"
	"github.com/kozaktomas/roll-call/internal/recognition"
)

// ErrNotRunning is returned by Capture when the camera is stopped.
var ErrNotRunning = errors.New("camera is not running")

// DefaultDownsample is the linear factor frames are shrunk by before detection.
const DefaultDownsample = 4

// Snapshotter provides the gallery to match against.
type Snapshotter interface {
	Snapshot() facematch.Gallery
}

// Recorder records attendance for a captured frame.
type Recorder interface {
	Take(ctx context.Context, imageData []byte, source string) (*recognition.AttendanceReport, error)
}

// Detection is one face found in a live frame, in full frame coordinates.
type Detection struct {
	Box      facematch.Box `json:"box"`
	Label    string        `json:"label"`
	Known    bool          `json:"known"`
	Distance float64       `json:"distance,omitempty"`
}

// Overlay is a processed frame with its detections.
type Overlay struct {
	Frame      image.Image
	Detections []Detection
	Captured   time.Time
}

// Options configures a Pipeline.
type Options struct {
	Source     camera.Source
	Detector   recognition.Detector
	Gallery    Snapshotter
	Recorder   Recorder
	Tolerance  float64
	Downsample int
	Model      string        // detection model for live frames
	Timeout    time.Duration // upper bound for detecting one frame
}

// Pipeline owns the camera while running and publishes an Overlay per frame.
type Pipeline struct {
	opts Options

	mu          sync.Mutex
	session     *session
	subscribers map[chan Overlay]struct{}
}

// session is one Running period of the pipeline.
type session struct {
	handle camera.Handle
	readMu sync.Mutex // serializes reads between the loop and Capture
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a stopped pipeline.
func New(opts Options) *Pipeline {
	if opts.Downsample < 1 {
		opts.Downsample = DefaultDownsample
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = facematch.DefaultTolerance
	}
	if opts.Model == "" {
		opts.Model = fingerprint.ModelHOG
	}
	if opts.Timeout <= 0 {
		opts.Timeout = constants.LiveDetectTimeout
	}
	return &Pipeline{
		opts:        opts,
		subscribers: make(map[chan Overlay]struct{}),
	}
}

// Start opens the source and starts the frame loop. Starting a running
// pipeline does nothing. The loop stops when ctx is done, Stop is called or
// the source ends.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session != nil {
		return nil
	}

	handle, err := p.opts.Source.Open()
	if err != nil {
		if errors.Is(err, camera.ErrDeviceUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", camera.ErrDeviceUnavailable, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &session{
		handle: handle,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	p.session = s
	go p.run(ctx, s)

	log.Printf("Live pipeline started (downsample %d, model %s)", p.opts.Downsample, p.opts.Model)
	return nil
}

// Stop cancels the loop, including a detection in flight, waits for it to
// finish and releases the camera. Stopping a stopped pipeline does nothing.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	s := p.session
	p.session = nil
	p.mu.Unlock()

	if s == nil {
		return
	}
	s.cancel()
	<-s.done
	log.Printf("Live pipeline stopped")
}

// Running reports whether the pipeline currently owns the camera.
func (p *Pipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session != nil
}

// Subscribe returns a channel receiving overlays and a function to unsubscribe.
// Overlays are dropped for subscribers that are not keeping up.
func (p *Pipeline) Subscribe() (<-chan Overlay, func()) {
	ch := make(chan Overlay, constants.SubscriberBuffer)

	p.mu.Lock()
	p.subscribers[ch] = struct{}{}
	p.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subscribers, ch)
			p.mu.Unlock()
		})
	}
}

// Capture reads one frame from the running camera and records attendance for it.
func (p *Pipeline) Capture(ctx context.Context) (*recognition.AttendanceReport, error) {
	p.mu.Lock()
	s := p.session
	p.mu.Unlock()

	if s == nil {
		return nil, ErrNotRunning
	}

	frame, err := s.read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNotRunning
	}
	if err != nil {
		return nil, fmt.Errorf("capturing frame: %w", err)
	}

	return p.opts.Recorder.Take(ctx, frame.JPEG, constants.SourceWebcam)
}

func (s *session) read() (camera.Frame, error) {
	s.readMu.Lock()
	defer s.readMu.Unlock()
	return s.handle.ReadFrame()
}

func (p *Pipeline) run(ctx context.Context, s *session) {
	defer close(s.done)
	defer s.cancel()
	defer func() {
		s.readMu.Lock()
		if err := s.handle.Close(); err != nil {
			log.Printf("Warning: failed to close camera: %v", err)
		}
		s.readMu.Unlock()
	}()
	defer p.detach(s)

	for {
		if ctx.Err() != nil {
			return
		}

		frame, err := s.read()
		if errors.Is(err, io.EOF) {
			log.Printf("Camera stream ended")
			return
		}
		if err != nil {
			log.Printf("Camera read failed: %v", err)
			return
		}

		overlay, err := p.Process(ctx, frame)
		if err != nil {
			log.Printf("Warning: skipping frame: %v", err)
			continue
		}
		p.publish(overlay)
	}
}

// detach clears the session if the loop ended on its own.
func (p *Pipeline) detach(s *session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == s {
		p.session = nil
	}
}

// Process detects and labels the faces in one frame. Detection runs on a
// downsampled copy and boxes are scaled back to the frame. A detector failure
// or a detection exceeding Options.Timeout yields an overlay without detections.
func (p *Pipeline) Process(ctx context.Context, frame camera.Frame) (Overlay, error) {
	img, err := fingerprint.Decode(frame.JPEG)
	if err != nil {
		return Overlay{}, err
	}
	overlay := Overlay{Frame: img, Captured: frame.Captured}

	small, err := fingerprint.EncodeJPEG(fingerprint.Downsample(img, p.opts.Downsample))
	if err != nil {
		return Overlay{}, err
	}

	detectCtx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()
	faces, err := p.opts.Detector.DetectAndEncode(detectCtx, small, p.opts.Model)
	if err != nil {
		log.Printf("Warning: live detection failed: %v", err)
		return overlay, nil
	}

	snapshot := p.opts.Gallery.Snapshot()
	for _, face := range faces {
		d := Detection{Box: face.Box.Scale(p.opts.Downsample), Label: facematch.UnknownLabel}
		if m, ok := facematch.BestMatch(snapshot, face.Embedding, p.opts.Tolerance); ok {
			d.Label = m.StudentID
			d.Known = true
			d.Distance = m.Distance
		}
		overlay.Detections = append(overlay.Detections, d)
	}
	return overlay, nil
}

func (p *Pipeline) publish(o Overlay) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for ch := range p.subscribers {
		select {
		case ch <- o:
		default:
		}
	}
}
