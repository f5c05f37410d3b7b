package recognition

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/roll-call/internal/database/mock"
	"github.com/kozaktomas/roll-call/internal/facematch"
	"github.com/kozaktomas/roll-call/internal/fingerprint"
	"github.com/kozaktomas/roll-call/internal/gallery"
)

const testDim = 8

// vec returns an embedding with the given leading components.
func vec(values ...float64) facematch.Embedding {
	e := make(facematch.Embedding, testDim)
	copy(e, values)
	return e
}

func face(e facematch.Embedding) fingerprint.Face {
	return fingerprint.Face{Box: facematch.Box{Left: 10, Top: 10, Right: 50, Bottom: 50}, Embedding: e}
}

func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := range 16 {
		for x := range 16 {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("jpeg encode: %v", err)
	}
	return buf.Bytes()
}

// fakeDetector returns a fixed set of faces for every image.
type fakeDetector struct {
	faces  []fingerprint.Face
	err    error
	calls  int
	models []string
}

func (d *fakeDetector) DetectAndEncode(ctx context.Context, imageData []byte, model string) ([]fingerprint.Face, error) {
	d.calls++
	d.models = append(d.models, model)
	if d.err != nil {
		return nil, d.err
	}
	return d.faces, nil
}

// memImages is an in-memory ImageStore.
type memImages struct {
	mu        sync.Mutex
	files     map[string][]byte
	saveErr   error
	removeErr error
}

func newMemImages() *memImages {
	return &memImages{files: make(map[string][]byte)}
}

func (m *memImages) Save(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.files[name] = data
	return nil
}

func (m *memImages) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removeErr != nil {
		return m.removeErr
	}
	delete(m.files, name)
	return nil
}

func (m *memImages) has(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[name]
	return ok
}

func (m *memImages) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

// failingGallery wraps a store and fails selected operations.
type failingGallery struct {
	*gallery.Store
	appendErr error
	removeErr error
}

func (g *failingGallery) Append(id string, e facematch.Embedding) error {
	if g.appendErr != nil {
		return g.appendErr
	}
	return g.Store.Append(id, e)
}

func (g *failingGallery) Remove(id string) (bool, error) {
	if g.removeErr != nil {
		return false, g.removeErr
	}
	return g.Store.Remove(id)
}

var errBoom = errors.New("boom")

type harness struct {
	detector *fakeDetector
	gallery  *gallery.Store
	images   *memImages
	ledger   *mock.MockLedger
	now      time.Time
	deps     Deps
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		detector: &fakeDetector{},
		gallery:  gallery.NewStore(filepath.Join(t.TempDir(), "gallery.gob"), testDim),
		images:   newMemImages(),
		ledger:   mock.NewMockLedger(),
		now:      time.Date(2024, 3, 4, 8, 0, 0, 0, time.Local),
	}
	h.deps = Deps{
		Detector:       h.detector,
		Gallery:        h.gallery,
		Images:         h.images,
		Thresholds:     facematch.DefaultThresholds(),
		DetectionModel: "cnn",
		Now:            func() time.Time { return h.now },
	}
	return h
}

// enroll registers a student directly in both stores.
func (h *harness) enroll(t *testing.T, id, name string, e facematch.Embedding) {
	t.Helper()
	if err := h.gallery.Append(id, e); err != nil {
		t.Fatalf("gallery append %s: %v", id, err)
	}
	h.ledger.AddStudentDirect(databaseStudent(id, name))
}
