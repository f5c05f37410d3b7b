// Package recognition coordinates face matching with the gallery, the student
// ledger and the stored images.
package recognition

import (
	"context"
	"time"

	"github.com/kozaktomas/roll-call/internal/facematch"
	"github.com/kozaktomas/roll-call/internal/fingerprint"
)

// Detector finds faces in an image and encodes each of them.
type Detector interface {
	DetectAndEncode(ctx context.Context, imageData []byte, model string) ([]fingerprint.Face, error)
}

// Gallery is the enrolled embedding store.
type Gallery interface {
	Append(studentID string, embedding facematch.Embedding) error
	Remove(studentID string) (bool, error)
	Has(studentID string) bool
	Len() int
	Snapshot() facematch.Gallery
}

// ImageStore keeps the enrollment and attendance images.
type ImageStore interface {
	Save(name string, data []byte) error
	Remove(name string) error
}

// Deps are the collaborators shared by the coordinators.
type Deps struct {
	Detector       Detector
	Gallery        Gallery
	Images         ImageStore
	Thresholds     facematch.Thresholds
	DetectionModel string
	Now            func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d Deps) thresholds() facematch.Thresholds {
	if d.Thresholds == (facematch.Thresholds{}) {
		return facematch.DefaultThresholds()
	}
	return d.Thresholds
}
