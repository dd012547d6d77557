package vision

import (
	"fmt"
	"image"
	"image/color"

	"github.com/cyclopcam/firewatch/pkg/nn"
	"gocv.io/x/gocv"
)

var (
	ColorFire  = color.RGBA{R: 0, G: 0, B: 255, A: 255} // BGR order inside gocv, so this is red
	ColorSmoke = color.RGBA{R: 200, G: 200, B: 200, A: 255}
)

// Draw a labelled box onto img
func DrawDetection(img *gocv.Mat, class nn.Class, confidence float32, box nn.Rect) {
	c := ColorSmoke
	if class == nn.Fire {
		c = ColorFire
	}
	r := box.Clip(img.Cols(), img.Rows()).ImageRect()
	gocv.Rectangle(img, r, c, 2)
	label := fmt.Sprintf("%v %.2f", class, confidence)
	org := image.Pt(r.Min.X, max(r.Min.Y-6, 12))
	gocv.PutText(img, label, org, gocv.FontHersheySimplex, 0.5, c, 1)
}

// RenderSnapshot returns a JPEG of raw with the winning box drawn on it.
// An empty box produces a plain JPEG of the frame.
func RenderSnapshot(raw gocv.Mat, class nn.Class, confidence float32, box nn.Rect, quality int) ([]byte, error) {
	img := raw.Clone()
	defer img.Close()
	if box.Area() > 0 {
		DrawDetection(&img, class, confidence, box)
	}
	return EncodeJPEG(img, quality)
}
