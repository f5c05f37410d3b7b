package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/database/mock"
	"github.com/kozaktomas/roll-call/internal/facematch"
	"github.com/kozaktomas/roll-call/internal/fingerprint"
	"github.com/kozaktomas/roll-call/internal/gallery"
	"github.com/kozaktomas/roll-call/internal/recognition"
	"github.com/kozaktomas/roll-call/internal/uploads"
)

const testDim = 4

// vec returns an embedding with the given leading components.
func vec(values ...float64) facematch.Embedding {
	e := make(facematch.Embedding, testDim)
	copy(e, values)
	return e
}

// fakeDetector returns the configured faces for every image
type fakeDetector struct {
	mu    sync.Mutex
	faces []fingerprint.Face
	err   error
}

func (d *fakeDetector) DetectAndEncode(ctx context.Context, imageData []byte, model string) ([]fingerprint.Face, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.faces, d.err
}

func (d *fakeDetector) set(faces ...fingerprint.Face) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.faces = faces
}

func faceAt(e facematch.Embedding) fingerprint.Face {
	return fingerprint.Face{Box: facematch.Box{Left: 4, Top: 4, Right: 12, Bottom: 12}, Embedding: e}
}

// testEnv wires the recognition coordinators to in-memory and temp-dir stores
type testEnv struct {
	ledger   *mock.MockLedger
	gallery  *gallery.Store
	images   *uploads.Dir
	detector *fakeDetector
	now      time.Time
	deps     recognition.Deps
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	images, err := uploads.NewDir(filepath.Join(dir, "uploads"))
	if err != nil {
		t.Fatalf("failed to create upload dir: %v", err)
	}

	env := &testEnv{
		ledger:   mock.NewMockLedger(),
		gallery:  gallery.NewStore(filepath.Join(dir, "models", "face_encodings.gob"), testDim),
		images:   images,
		detector: &fakeDetector{},
		now:      time.Date(2026, 3, 2, 8, 30, 0, 0, time.Local),
	}
	env.deps = recognition.Deps{
		Detector:       env.detector,
		Gallery:        env.gallery,
		Images:         env.images,
		DetectionModel: fingerprint.ModelHOG,
		Now:            func() time.Time { return env.now },
	}
	return env
}

// enroll registers a student directly in both stores
func (e *testEnv) enroll(t *testing.T, studentID, name string, embedding facematch.Embedding) {
	t.Helper()
	if err := e.gallery.Append(studentID, embedding); err != nil {
		t.Fatalf("failed to append %s: %v", studentID, err)
	}
	e.ledger.AddStudentDirect(database.Student{StudentID: studentID, Name: name, Class: "CS1"})
}

func (e *testEnv) studentsHandler() *StudentsHandler {
	return NewStudentsHandler(e.ledger, recognition.NewEnroller(e.deps, e.ledger), recognition.NewRemover(e.deps, e.ledger))
}

func (e *testEnv) attendanceHandler() *AttendanceHandler {
	return NewAttendanceHandler(e.ledger, recognition.NewAttendanceTaker(e.deps, e.ledger))
}

// testJPEG returns a small valid JPEG image
func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := range 16 {
		for x := range 16 {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode JPEG: %v", err)
	}
	return buf.Bytes()
}

// multipartRequest builds a multipart form request with an optional image file
func multipartRequest(t *testing.T, method, path string, fields map[string]string, filename string, data []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	if filename != "" {
		part, err := writer.CreateFormFile(imageField, filename)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		part.Write(data)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
