package recognition

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/fingerprint"
)

func databaseStudent(id, name string) database.Student {
	return database.Student{StudentID: id, Name: name, Class: "10A", ImagePath: id + ".jpg"}
}

func TestEnroll_Success(t *testing.T) {
	h := newHarness(t)
	h.detector.faces = []fingerprint.Face{face(vec(0.1, 0.2))}
	e := NewEnroller(h.deps, h.ledger)

	st, err := e.Enroll(context.Background(), EnrollRequest{
		StudentID: " S1 ",
		Name:      "Lan",
		Class:     "10A",
		Image:     testJPEG(t),
	})
	if err != nil {
		t.Fatalf("Enroll() error: %v", err)
	}

	if st.StudentID != "S1" {
		t.Errorf("expected trimmed id S1, got %q", st.StudentID)
	}
	if !strings.HasPrefix(st.ImagePath, "S1_20240304080000_") || !strings.HasSuffix(st.ImagePath, ".jpg") {
		t.Errorf("unexpected image path %q", st.ImagePath)
	}
	if !h.gallery.Has("S1") {
		t.Error("expected S1 in gallery")
	}
	if h.images.count() != 1 {
		t.Errorf("expected 1 stored image, got %d", h.images.count())
	}
	if h.detector.models[0] != "cnn" {
		t.Errorf("expected configured detection model, got %q", h.detector.models[0])
	}
}

func TestEnroll_Failures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(h *harness)
		req     func(t *testing.T) EnrollRequest
		wantErr error
	}{
		{
			name:    "missing name",
			req:     func(t *testing.T) EnrollRequest { return EnrollRequest{StudentID: "S1", Image: testJPEG(t)} },
			wantErr: ErrInvalidStudent,
		},
		{
			name:    "not an image",
			req:     func(t *testing.T) EnrollRequest { return EnrollRequest{StudentID: "S1", Name: "Lan", Image: []byte("nope")} },
			wantErr: ErrInvalidImage,
		},
		{
			name:    "no face",
			setup:   func(h *harness) { h.detector.faces = nil },
			wantErr: ErrNoFaceDetected,
		},
		{
			name: "two faces",
			setup: func(h *harness) {
				h.detector.faces = []fingerprint.Face{face(vec(0.1)), face(vec(0.9))}
			},
			wantErr: ErrMultipleFacesDetected,
		},
		{
			name:    "detector error",
			setup:   func(h *harness) { h.detector.err = errBoom },
			wantErr: errBoom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.detector.faces = []fingerprint.Face{face(vec(0.1))}
			if tt.setup != nil {
				tt.setup(h)
			}
			req := EnrollRequest{StudentID: "S1", Name: "Lan", Image: testJPEG(t)}
			if tt.req != nil {
				req = tt.req(t)
			}

			_, err := NewEnroller(h.deps, h.ledger).Enroll(context.Background(), req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if h.gallery.Len() != 0 {
				t.Errorf("expected empty gallery, got %d", h.gallery.Len())
			}
			if h.ledger.AddStudentCalls != 0 {
				t.Errorf("ledger must not be touched, got %d calls", h.ledger.AddStudentCalls)
			}
			if h.images.count() != 0 {
				t.Errorf("expected image to be removed, %d left", h.images.count())
			}
		})
	}
}

func TestEnroll_DuplicateLeavesGalleryUnchanged(t *testing.T) {
	h := newHarness(t)
	h.detector.faces = []fingerprint.Face{face(vec(0.1))}
	e := NewEnroller(h.deps, h.ledger)
	ctx := context.Background()

	if _, err := e.Enroll(ctx, EnrollRequest{StudentID: "S1", Name: "Lan", Image: testJPEG(t)}); err != nil {
		t.Fatalf("first Enroll() error: %v", err)
	}

	h.now = h.now.Add(time.Second)
	_, err := e.Enroll(ctx, EnrollRequest{StudentID: "S1", Name: "Lan", Image: testJPEG(t)})
	if !errors.Is(err, ErrDuplicateIdentity) {
		t.Fatalf("expected ErrDuplicateIdentity, got %v", err)
	}
	if h.gallery.Len() != 1 {
		t.Errorf("expected gallery size 1, got %d", h.gallery.Len())
	}
	if n, _ := h.ledger.CountStudents(ctx); n != 1 {
		t.Errorf("expected 1 student, got %d", n)
	}
	if h.images.count() != 1 {
		t.Errorf("expected only the first image to remain, got %d", h.images.count())
	}
}

func TestEnroll_RepeatedSubmitKeepsEnrolledImage(t *testing.T) {
	h := newHarness(t)
	h.detector.faces = []fingerprint.Face{face(vec(0.1))}
	e := NewEnroller(h.deps, h.ledger)
	ctx := context.Background()

	st, err := e.Enroll(ctx, EnrollRequest{StudentID: "S1", Name: "Lan", Image: testJPEG(t)})
	if err != nil {
		t.Fatalf("first Enroll() error: %v", err)
	}

	_, err = e.Enroll(ctx, EnrollRequest{StudentID: "S1", Name: "Lan", Image: testJPEG(t)})
	if !errors.Is(err, ErrDuplicateIdentity) {
		t.Fatalf("expected ErrDuplicateIdentity, got %v", err)
	}
	if !h.images.has(st.ImagePath) {
		t.Errorf("enrollment image %q should still exist", st.ImagePath)
	}
	if h.images.count() != 1 {
		t.Errorf("expected 1 stored image, got %d", h.images.count())
	}
	if h.detector.calls != 1 {
		t.Errorf("duplicate should be rejected before detection, got %d detector calls", h.detector.calls)
	}
}

func TestEnroll_LedgerFailureCompensates(t *testing.T) {
	h := newHarness(t)
	h.detector.faces = []fingerprint.Face{face(vec(0.1))}
	h.enroll(t, "S0", "Existing", vec(0.9))
	h.ledger.AddStudentError = errBoom
	ctx := context.Background()

	_, err := NewEnroller(h.deps, h.ledger).Enroll(ctx, EnrollRequest{StudentID: "S1", Name: "Lan", Image: testJPEG(t)})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected ledger error, got %v", err)
	}

	if h.gallery.Len() != 1 || h.gallery.Has("S1") {
		t.Errorf("gallery should be back to its previous state, got %v", h.gallery.IDs())
	}
	if n, _ := h.ledger.CountStudents(ctx); n != 1 {
		t.Errorf("expected ledger row count 1, got %d", n)
	}
	if h.images.count() != 0 {
		t.Errorf("expected image to be removed, %d left", h.images.count())
	}
}

func TestEnroll_LedgerDuplicateMapsToDuplicateIdentity(t *testing.T) {
	h := newHarness(t)
	h.detector.faces = []fingerprint.Face{face(vec(0.1))}
	// Registered in the ledger but missing from the gallery.
	h.ledger.AddStudentDirect(databaseStudent("S1", "Lan"))

	_, err := NewEnroller(h.deps, h.ledger).Enroll(context.Background(), EnrollRequest{StudentID: "S1", Name: "Lan", Image: testJPEG(t)})
	if !errors.Is(err, ErrDuplicateIdentity) {
		t.Fatalf("expected ErrDuplicateIdentity, got %v", err)
	}
	if h.gallery.Has("S1") {
		t.Error("gallery entry should have been rolled back")
	}
}

func TestEnroll_CompensationFailureIsReported(t *testing.T) {
	h := newHarness(t)
	h.detector.faces = []fingerprint.Face{face(vec(0.1))}
	h.ledger.AddStudentError = errBoom
	rollbackErr := errors.New("disk full")
	h.deps.Gallery = &failingGallery{Store: h.gallery, removeErr: rollbackErr}

	_, err := NewEnroller(h.deps, h.ledger).Enroll(context.Background(), EnrollRequest{StudentID: "S1", Name: "Lan", Image: testJPEG(t)})
	if !errors.Is(err, errBoom) || !errors.Is(err, rollbackErr) {
		t.Fatalf("expected both ledger and rollback errors, got %v", err)
	}
}

func TestEnroll_GalleryFailureSkipsLedger(t *testing.T) {
	h := newHarness(t)
	h.detector.faces = []fingerprint.Face{face(vec(0.1))}
	h.deps.Gallery = &failingGallery{Store: h.gallery, appendErr: errBoom}

	_, err := NewEnroller(h.deps, h.ledger).Enroll(context.Background(), EnrollRequest{StudentID: "S1", Name: "Lan", Image: testJPEG(t)})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected gallery error, got %v", err)
	}
	if h.ledger.AddStudentCalls != 0 {
		t.Error("ledger must not be called after a gallery failure")
	}
	if h.images.count() != 0 {
		t.Errorf("expected image to be removed, %d left", h.images.count())
	}
}
