package recognition

import (
	"errors"

	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/gallery"
)

var (
	// ErrInvalidStudent is returned when required student fields are missing.
	ErrInvalidStudent = errors.New("student id and name are required")

	// ErrInvalidImage is returned when the uploaded data is not a decodable image.
	ErrInvalidImage = errors.New("invalid image")

	// ErrNoFaceDetected is returned when the detector finds no face.
	ErrNoFaceDetected = errors.New("no face detected")

	// ErrMultipleFacesDetected is returned when an enrollment image has more than one face.
	ErrMultipleFacesDetected = errors.New("multiple faces detected, enrollment requires exactly one")

	// ErrNoEnrollments is returned when attendance is taken against an empty gallery.
	ErrNoEnrollments = errors.New("no students enrolled")

	// ErrNoRecognizableFace is returned when faces were found but none matched an enrolled student.
	ErrNoRecognizableFace = errors.New("no enrolled student recognized")

	// ErrStudentNotFound is returned when deleting a student that exists in neither store.
	ErrStudentNotFound = errors.New("student not found")

	// ErrDuplicateIdentity is returned when enrolling a student ID that is already enrolled.
	ErrDuplicateIdentity = gallery.ErrDuplicateIdentity

	// ErrAlreadyMarkedToday is reported per student when attendance was already taken today.
	ErrAlreadyMarkedToday = database.ErrAlreadyMarkedToday
)
