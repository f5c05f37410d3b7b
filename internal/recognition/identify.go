package recognition

import (
	"context"
	"fmt"

	"github.com/kozaktomas/roll-call/internal/facematch"
)

// Identification is the match for one detected face, without side effects.
type Identification struct {
	Box        facematch.Box
	Label      string // student ID or facematch.UnknownLabel
	Matched    bool
	Distance   float64
	Confidence float64
	Tier       facematch.Tier
}

// Identify matches every face in the image against the gallery without
// recording attendance or storing the image.
func (a *AttendanceTaker) Identify(ctx context.Context, imageData []byte) ([]Identification, error) {
	if a.deps.Gallery.Len() == 0 {
		return nil, ErrNoEnrollments
	}

	faces, err := a.deps.Detector.DetectAndEncode(ctx, imageData, a.deps.DetectionModel)
	if err != nil {
		return nil, fmt.Errorf("detecting faces: %w", err)
	}
	if len(faces) == 0 {
		return nil, ErrNoFaceDetected
	}

	thresholds := a.deps.thresholds()
	snapshot := a.deps.Gallery.Snapshot()

	ids := make([]Identification, len(faces))
	for i, face := range faces {
		ids[i] = Identification{Box: face.Box, Label: facematch.UnknownLabel, Tier: facematch.TierRejected}
		if m, ok := facematch.BestMatch(snapshot, face.Embedding, thresholds.Tolerance); ok {
			ids[i].Label = m.StudentID
			ids[i].Matched = true
			ids[i].Distance = m.Distance
			ids[i].Confidence = m.Confidence
			ids[i].Tier = thresholds.Classify(m.Confidence)
		}
	}
	return ids, nil
}
