package recognition

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/kozaktomas/roll-call/internal/constants"
	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/facematch"
	"github.com/kozaktomas/roll-call/internal/fingerprint"
	"github.com/kozaktomas/roll-call/internal/uploads"
)

// Outcome is the per-student result of an attendance attempt.
type Outcome string

const (
	OutcomeMarked        Outcome = "success"
	OutcomeAlreadyMarked Outcome = "already_marked"
	OutcomeFailed        Outcome = "error"
)

// AttendanceResult describes one recognized student.
type AttendanceResult struct {
	StudentID     string
	Name          string
	Class         string
	Distance      float64
	Confidence    float64
	Tier          facematch.Tier
	LowConfidence bool
	Outcome       Outcome
	Message       string
}

// AttendanceReport is the outcome of one attendance image.
type AttendanceReport struct {
	ImagePath string
	Faces     int
	Results   []AttendanceResult
}

// AttendanceTaker recognizes students in a photo and records their attendance.
type AttendanceTaker struct {
	deps   Deps
	ledger database.Ledger
}

// NewAttendanceTaker creates an attendance coordinator.
func NewAttendanceTaker(deps Deps, ledger database.Ledger) *AttendanceTaker {
	return &AttendanceTaker{deps: deps, ledger: ledger}
}

// Take records attendance for every enrolled student recognized in the image.
// A student already marked today is reported with OutcomeAlreadyMarked and a
// ledger failure for one student with OutcomeFailed, so marks committed for the
// others are still reported. When nobody is recognized, or every row failed,
// the stored image is removed again and an error is returned.
func (a *AttendanceTaker) Take(ctx context.Context, imageData []byte, source string) (*AttendanceReport, error) {
	if a.deps.Gallery.Len() == 0 {
		return nil, ErrNoEnrollments
	}

	imageData, err := fingerprint.ToJPEG(imageData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	now := a.deps.now()
	filename := uploads.AttendanceName(source, now)
	if err := a.deps.Images.Save(filename, imageData); err != nil {
		return nil, fmt.Errorf("saving attendance image: %w", err)
	}

	report, err := a.take(ctx, imageData, filename)
	if err != nil {
		if rmErr := a.deps.Images.Remove(filename); rmErr != nil {
			err = errors.Join(err, rmErr)
		}
		return nil, err
	}
	return report, nil
}

func (a *AttendanceTaker) take(ctx context.Context, imageData []byte, filename string) (*AttendanceReport, error) {
	faces, err := a.deps.Detector.DetectAndEncode(ctx, imageData, a.deps.DetectionModel)
	if err != nil {
		return nil, fmt.Errorf("detecting faces: %w", err)
	}
	if len(faces) == 0 {
		return nil, ErrNoFaceDetected
	}

	thresholds := a.deps.thresholds()
	snapshot := a.deps.Gallery.Snapshot()
	report := &AttendanceReport{ImagePath: filename, Faces: len(faces)}

	// Several faces can match the same student; keep the closest one.
	type candidate struct {
		match facematch.MatchResult
		tier  facematch.Tier
	}
	best := make(map[string]candidate)
	var order []string
	for _, face := range faces {
		match, ok := facematch.BestMatch(snapshot, face.Embedding, thresholds.Tolerance)
		if !ok {
			continue
		}
		tier := thresholds.Classify(match.Confidence)
		if tier == facematch.TierRejected {
			continue
		}
		prev, seen := best[match.StudentID]
		if !seen {
			order = append(order, match.StudentID)
		} else if match.Confidence <= prev.match.Confidence {
			continue
		}
		best[match.StudentID] = candidate{match: match, tier: tier}
	}

	var failures []error
	for _, id := range order {
		c := best[id]
		result := AttendanceResult{
			StudentID:     id,
			Distance:      c.match.Distance,
			Confidence:    c.match.Confidence,
			Tier:          c.tier,
			LowConfidence: c.tier == facematch.TierLow,
		}

		student, err := a.ledger.GetStudent(ctx, id)
		if err != nil {
			failures = append(failures, fmt.Errorf("looking up student %s: %w", id, err))
			result.Outcome = OutcomeFailed
			result.Message = "Could not look up student"
			report.Results = append(report.Results, result)
			continue
		}
		if student == nil {
			log.Printf("Face matched %s but the student is not registered, skipping orphaned encoding", id)
			continue
		}
		result.Name = student.Name
		result.Class = student.Class

		_, err = a.ledger.MarkAttendance(ctx, id, a.deps.now(), filename)
		switch {
		case err == nil:
			result.Outcome = OutcomeMarked
			result.Message = "Attendance marked"
		case errors.Is(err, database.ErrAlreadyMarkedToday):
			result.Outcome = OutcomeAlreadyMarked
			result.Message = "Already marked today"
		default:
			failures = append(failures, fmt.Errorf("marking attendance for %s: %w", id, err))
			result.Outcome = OutcomeFailed
			result.Message = "Could not record attendance"
		}
		if result.LowConfidence && result.Outcome != OutcomeFailed {
			result.Message += constants.LowConfidenceNotice
		}

		report.Results = append(report.Results, result)
	}

	if len(report.Results) == 0 {
		return nil, ErrNoRecognizableFace
	}
	if len(failures) == len(report.Results) {
		return nil, errors.Join(failures...)
	}
	for _, err := range failures {
		log.Printf("Attendance partially recorded for %s: %v", filename, err)
	}
	return report, nil
}
