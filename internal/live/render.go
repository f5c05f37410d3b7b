package live

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/kozaktomas/roll-call/internal/fingerprint"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	knownColor   = color.RGBA{R: 0, G: 200, B: 0, A: 255}
	unknownColor = color.RGBA{R: 220, G: 0, B: 0, A: 255}
	labelColor   = color.White
)

const (
	boxThickness = 2
	labelPadding = 3
)

// Render draws the detections over the frame and returns it as JPEG.
// Known faces are outlined in green, unknown ones in red.
func Render(o Overlay) ([]byte, error) {
	bounds := o.Frame.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, o.Frame, bounds.Min, draw.Src)

	face := basicfont.Face7x13
	for _, d := range o.Detections {
		c := unknownColor
		if d.Known {
			c = knownColor
		}
		r := d.Box.Rect().Add(bounds.Min)
		outline(canvas, r, c)

		// Label bar inside the bottom of the box.
		height := face.Height + 2*labelPadding
		bar := image.Rect(r.Min.X, r.Max.Y-height, r.Max.X, r.Max.Y).Intersect(bounds)
		draw.Draw(canvas, bar, image.NewUniform(c), image.Point{}, draw.Src)

		drawer := &font.Drawer{
			Dst:  canvas,
			Src:  image.NewUniform(labelColor),
			Face: face,
			Dot:  fixed.P(r.Min.X+labelPadding, r.Max.Y-labelPadding-face.Descent),
		}
		drawer.DrawString(d.Label)
	}

	return fingerprint.EncodeJPEG(canvas)
}

func outline(dst *image.RGBA, r image.Rectangle, c color.Color) {
	src := image.NewUniform(c)
	t := boxThickness
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), src, image.Point{}, draw.Src)
	}
}
