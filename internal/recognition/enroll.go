package recognition

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/fingerprint"
	"github.com/kozaktomas/roll-call/internal/uploads"
)

// EnrollRequest carries the student record and the enrollment photo.
type EnrollRequest struct {
	StudentID string
	Name      string
	Email     string
	Phone     string
	Class     string
	Image     []byte
}

// Enroller registers a student in both the gallery and the ledger.
// Either both succeed or neither keeps the student.
type Enroller struct {
	deps   Deps
	ledger database.StudentWriter
}

// NewEnroller creates an enrollment coordinator.
func NewEnroller(deps Deps, ledger database.StudentWriter) *Enroller {
	return &Enroller{deps: deps, ledger: ledger}
}

// Enroll rejects an already enrolled ID, then saves the photo, encodes its single face, appends it to the gallery and
// registers the student. A ledger failure removes the gallery entry again.
// Every failure removes the saved photo.
func (e *Enroller) Enroll(ctx context.Context, req EnrollRequest) (*database.Student, error) {
	req.StudentID = strings.TrimSpace(req.StudentID)
	req.Name = strings.TrimSpace(req.Name)
	if req.StudentID == "" || req.Name == "" {
		return nil, ErrInvalidStudent
	}

	imageData, err := fingerprint.ToJPEG(req.Image)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	if e.deps.Gallery.Has(req.StudentID) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateIdentity, req.StudentID)
	}

	filename := uploads.EnrollmentName(req.StudentID, e.deps.now())
	if err := e.deps.Images.Save(filename, imageData); err != nil {
		return nil, fmt.Errorf("saving enrollment image: %w", err)
	}

	student, err := e.enroll(ctx, req, imageData, filename)
	if err != nil {
		if rmErr := e.deps.Images.Remove(filename); rmErr != nil {
			err = errors.Join(err, rmErr)
		}
		return nil, err
	}
	return student, nil
}

func (e *Enroller) enroll(ctx context.Context, req EnrollRequest, imageData []byte, filename string) (*database.Student, error) {
	faces, err := e.deps.Detector.DetectAndEncode(ctx, imageData, e.deps.DetectionModel)
	if err != nil {
		return nil, fmt.Errorf("detecting faces: %w", err)
	}
	switch {
	case len(faces) == 0:
		return nil, ErrNoFaceDetected
	case len(faces) > 1:
		return nil, fmt.Errorf("%w: found %d", ErrMultipleFacesDetected, len(faces))
	}

	// Append rejects an ID enrolled concurrently since the check in Enroll.
	if err := e.deps.Gallery.Append(req.StudentID, faces[0].Embedding); err != nil {
		return nil, fmt.Errorf("storing face encoding: %w", err)
	}

	student, err := e.ledger.AddStudent(ctx, database.Student{
		StudentID: req.StudentID,
		Name:      req.Name,
		Email:     strings.TrimSpace(req.Email),
		Phone:     strings.TrimSpace(req.Phone),
		Class:     strings.TrimSpace(req.Class),
		ImagePath: filename,
		CreatedAt: e.deps.now(),
	})
	if err != nil {
		if errors.Is(err, database.ErrStudentExists) {
			err = fmt.Errorf("%w: %w", ErrDuplicateIdentity, err)
		} else {
			err = fmt.Errorf("registering student: %w", err)
		}
		if _, rmErr := e.deps.Gallery.Remove(req.StudentID); rmErr != nil {
			log.Printf("Enrollment of %s: failed to roll back face encoding: %v", req.StudentID, rmErr)
			err = errors.Join(err, fmt.Errorf("rolling back face encoding: %w", rmErr))
		}
		return nil, err
	}

	log.Printf("Enrolled student %s (%s)", student.StudentID, student.Name)
	return student, nil
}
