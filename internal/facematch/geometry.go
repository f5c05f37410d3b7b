package facematch

import (
	"image"
	"math"
)

// Box is a face bounding box in pixel coordinates.
type Box struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// BoxFromCorners converts a detector bbox [x1, y1, x2, y2] to a Box.
// Returns false if the bbox does not have exactly four values.
func BoxFromCorners(bbox []float64) (Box, bool) {
	if len(bbox) != 4 {
		return Box{}, false
	}
	return Box{
		Left:   int(math.Round(bbox[0])),
		Top:    int(math.Round(bbox[1])),
		Right:  int(math.Round(bbox[2])),
		Bottom: int(math.Round(bbox[3])),
	}, true
}

// Scale multiplies every coordinate by factor.
// Used to map boxes detected on a downsampled frame back to the original resolution.
func (b Box) Scale(factor int) Box {
	return Box{
		Left:   b.Left * factor,
		Top:    b.Top * factor,
		Right:  b.Right * factor,
		Bottom: b.Bottom * factor,
	}
}

// Rect returns the box as an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.Left, b.Top, b.Right, b.Bottom)
}

// Width returns the box width in pixels.
func (b Box) Width() int {
	return b.Right - b.Left
}
