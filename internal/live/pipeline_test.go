package live

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/roll-call/internal/camera"
	"github.com/kozaktomas/roll-call/internal/constants"
	"github.com/kozaktomas/roll-call/internal/facematch"
	"github.com/kozaktomas/roll-call/internal/fingerprint"
	"github.com/kozaktomas/roll-call/internal/recognition"
)

func testFrame(t *testing.T, width, height int) camera.Frame {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.Set(x, y, color.RGBA{R: 90, G: 90, B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("jpeg encode: %v", err)
	}
	return camera.Frame{JPEG: buf.Bytes(), Captured: time.Now()}
}

// fakeSource hands out a fixed number of frames, or endless frames when limit is 0.
type fakeSource struct {
	frame   camera.Frame
	limit   int
	openErr error

	mu     sync.Mutex
	opens  int
	closes int
}

func (s *fakeSource) Open() (camera.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return nil, s.openErr
	}
	s.opens++
	return &fakeHandle{src: s}, nil
}

func (s *fakeSource) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens, s.closes
}

type fakeHandle struct {
	src    *fakeSource
	reads  int
	closed bool
}

func (h *fakeHandle) ReadFrame() (camera.Frame, error) {
	if h.closed || (h.src.limit > 0 && h.reads >= h.src.limit) {
		return camera.Frame{}, io.EOF
	}
	h.reads++
	time.Sleep(time.Millisecond)
	return h.src.frame, nil
}

func (h *fakeHandle) Close() error {
	h.closed = true
	h.src.mu.Lock()
	h.src.closes++
	h.src.mu.Unlock()
	return nil
}

type fakeDetector struct {
	mu     sync.Mutex
	faces  []fingerprint.Face
	err    error
	models []string
	sizes  []image.Point
}

func (d *fakeDetector) DetectAndEncode(ctx context.Context, imageData []byte, model string) ([]fingerprint.Face, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.models = append(d.models, model)
	if img, err := fingerprint.Decode(imageData); err == nil {
		d.sizes = append(d.sizes, img.Bounds().Size())
	}
	return d.faces, d.err
}

type staticGallery facematch.Gallery

func (g staticGallery) Snapshot() facematch.Gallery {
	return facematch.Gallery(g)
}

type fakeRecorder struct {
	mu      sync.Mutex
	sources []string
	images  [][]byte
}

func (r *fakeRecorder) Take(ctx context.Context, imageData []byte, source string) (*recognition.AttendanceReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, source)
	r.images = append(r.images, imageData)
	return &recognition.AttendanceReport{ImagePath: "webcam_test.jpg", Faces: 1}, nil
}

func vec(values ...float64) facematch.Embedding {
	e := make(facematch.Embedding, 4)
	copy(e, values)
	return e
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func newTestPipeline(t *testing.T, src *fakeSource, det *fakeDetector, rec *fakeRecorder) *Pipeline {
	t.Helper()
	p := New(Options{
		Source:   src,
		Detector: det,
		Gallery:  staticGallery{{StudentID: "S1", Embedding: vec(0)}},
		Recorder: rec,
	})
	t.Cleanup(p.Stop)
	return p
}

func TestProcess_DownsamplesAndRescales(t *testing.T) {
	det := &fakeDetector{faces: []fingerprint.Face{
		{Box: facematch.Box{Left: 2, Top: 3, Right: 10, Bottom: 11}, Embedding: vec(0.1)},
		{Box: facematch.Box{Left: 12, Top: 1, Right: 15, Bottom: 5}, Embedding: vec(0.9)},
	}}
	p := newTestPipeline(t, &fakeSource{}, det, &fakeRecorder{})

	overlay, err := p.Process(context.Background(), testFrame(t, 64, 48))
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	if len(det.sizes) != 1 || det.sizes[0] != (image.Point{X: 16, Y: 12}) {
		t.Errorf("detector saw %v, want one 16x12 frame", det.sizes)
	}
	if len(det.models) != 1 || det.models[0] != fingerprint.ModelHOG {
		t.Errorf("detector models = %v, want [hog]", det.models)
	}
	if len(overlay.Detections) != 2 {
		t.Fatalf("expected 2 detections, got %d", len(overlay.Detections))
	}

	known := overlay.Detections[0]
	if !known.Known || known.Label != "S1" {
		t.Errorf("first face = %+v, want known S1", known)
	}
	if want := (facematch.Box{Left: 8, Top: 12, Right: 40, Bottom: 44}); known.Box != want {
		t.Errorf("first box = %+v, want %+v", known.Box, want)
	}

	unknown := overlay.Detections[1]
	if unknown.Known || unknown.Label != facematch.UnknownLabel {
		t.Errorf("second face = %+v, want unknown", unknown)
	}
}

func TestProcess_DetectorFailureYieldsEmptyOverlay(t *testing.T) {
	det := &fakeDetector{err: errors.New("embedding server down")}
	p := newTestPipeline(t, &fakeSource{}, det, &fakeRecorder{})

	overlay, err := p.Process(context.Background(), testFrame(t, 32, 32))
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if overlay.Frame == nil || len(overlay.Detections) != 0 {
		t.Errorf("expected frame without detections, got %+v", overlay.Detections)
	}
}

func TestProcess_InvalidFrame(t *testing.T) {
	p := newTestPipeline(t, &fakeSource{}, &fakeDetector{}, &fakeRecorder{})

	if _, err := p.Process(context.Background(), camera.Frame{JPEG: []byte("garbage")}); err == nil {
		t.Error("expected error for undecodable frame")
	}
}

func TestStartStop_ReleasesDevice(t *testing.T) {
	src := &fakeSource{frame: testFrame(t, 32, 32)}
	p := newTestPipeline(t, src, &fakeDetector{}, &fakeRecorder{})

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("second Start() error: %v", err)
	}
	if !p.Running() {
		t.Fatal("expected pipeline to be running")
	}

	p.Stop()
	if p.Running() {
		t.Error("expected pipeline to be stopped")
	}
	if opens, closes := src.counts(); opens != 1 || closes != 1 {
		t.Errorf("opens/closes = %d/%d, want 1/1", opens, closes)
	}

	// The device can be reacquired after a stop.
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("restart error: %v", err)
	}
	p.Stop()
	if opens, closes := src.counts(); opens != 2 || closes != 2 {
		t.Errorf("opens/closes = %d/%d, want 2/2", opens, closes)
	}
}

func TestStart_DeviceUnavailable(t *testing.T) {
	src := &fakeSource{openErr: errors.New("no such device")}
	p := newTestPipeline(t, src, &fakeDetector{}, &fakeRecorder{})

	err := p.Start(context.Background())
	if !errors.Is(err, camera.ErrDeviceUnavailable) {
		t.Fatalf("expected ErrDeviceUnavailable, got %v", err)
	}
	if p.Running() {
		t.Error("pipeline must stay stopped")
	}
}

func TestRun_StopsAtEndOfStream(t *testing.T) {
	src := &fakeSource{frame: testFrame(t, 32, 32), limit: 3}
	det := &fakeDetector{faces: []fingerprint.Face{{Box: facematch.Box{Right: 4, Bottom: 4}, Embedding: vec(0)}}}
	p := newTestPipeline(t, src, det, &fakeRecorder{})

	overlays, unsubscribe := p.Subscribe()
	defer unsubscribe()

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	select {
	case o := <-overlays:
		if len(o.Detections) != 1 || o.Detections[0].Label != "S1" {
			t.Errorf("unexpected overlay detections: %+v", o.Detections)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no overlay published")
	}

	waitFor(t, func() bool { return !p.Running() })
	waitFor(t, func() bool {
		_, closes := src.counts()
		return closes == 1
	})
}

func TestRun_StopsWhenContextCancelled(t *testing.T) {
	src := &fakeSource{frame: testFrame(t, 16, 16)}
	p := newTestPipeline(t, src, &fakeDetector{}, &fakeRecorder{})

	ctx, cancel := context.WithCancel(context.Background())
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	cancel()

	waitFor(t, func() bool { return !p.Running() })
}

func TestSubscribe_SlowSubscriberDoesNotBlock(t *testing.T) {
	src := &fakeSource{frame: testFrame(t, 16, 16), limit: constants.SubscriberBuffer + 5}
	p := newTestPipeline(t, src, &fakeDetector{}, &fakeRecorder{})

	overlays, unsubscribe := p.Subscribe()
	defer unsubscribe()

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	waitFor(t, func() bool { return !p.Running() })

	if got := len(overlays); got != constants.SubscriberBuffer {
		t.Errorf("buffered overlays = %d, want %d", got, constants.SubscriberBuffer)
	}
}

func TestCapture(t *testing.T) {
	src := &fakeSource{frame: testFrame(t, 16, 16)}
	rec := &fakeRecorder{}
	p := newTestPipeline(t, src, &fakeDetector{}, rec)

	if _, err := p.Capture(context.Background()); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	report, err := p.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture() error: %v", err)
	}
	if report.ImagePath != "webcam_test.jpg" {
		t.Errorf("unexpected report: %+v", report)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.sources) != 1 || rec.sources[0] != constants.SourceWebcam {
		t.Errorf("recorder sources = %v, want [%s]", rec.sources, constants.SourceWebcam)
	}
	if !bytes.Equal(rec.images[0], src.frame.JPEG) {
		t.Error("recorder did not receive the captured frame")
	}
}

// hangingDetector blocks until its context is done, like an embedding server that never answers.
type hangingDetector struct {
	entered chan struct{}
	once    sync.Once
}

func (d *hangingDetector) DetectAndEncode(ctx context.Context, imageData []byte, model string) ([]fingerprint.Face, error) {
	d.once.Do(func() { close(d.entered) })
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestStop_CancelsDetectionInFlight(t *testing.T) {
	src := &fakeSource{frame: testFrame(t, 32, 32)}
	det := &hangingDetector{entered: make(chan struct{})}
	p := New(Options{
		Source:   src,
		Detector: det,
		Gallery:  staticGallery{},
		Timeout:  time.Hour,
	})

	if err := p.Start(context.WithoutCancel(t.Context())); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	select {
	case <-det.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("detector was never called")
	}

	stopped := make(chan struct{})
	go func() {
		p.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on a pending detection")
	}
	if opens, closes := src.counts(); opens != 1 || closes != 1 {
		t.Errorf("opens/closes = %d/%d, want 1/1", opens, closes)
	}
}

func TestProcess_DetectionTimeout(t *testing.T) {
	p := New(Options{
		Source:   &fakeSource{},
		Detector: &hangingDetector{entered: make(chan struct{})},
		Gallery:  staticGallery{},
		Timeout:  20 * time.Millisecond,
	})

	start := time.Now()
	overlay, err := p.Process(context.Background(), testFrame(t, 32, 32))
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if len(overlay.Detections) != 0 {
		t.Errorf("expected no detections, got %+v", overlay.Detections)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Process took %v, expected the frame timeout to apply", elapsed)
	}
}
