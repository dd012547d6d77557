package vision

import (
	"image"

	"gocv.io/x/gocv"
)

const (
	DefaultCLAHEClipLimit = 2.0
	DefaultCLAHETileGrid  = 8
)

// Preprocessor produces the two views of a frame that we run through the model.
// Fire is bright and saturated, so the model sees the raw frame.
// Smoke is low contrast, so the model sees a locally equalized grayscale version.
type Preprocessor struct {
	ClipLimit float64
	TileGrid  int
}

func NewPreprocessor() *Preprocessor {
	return &Preprocessor{
		ClipLimit: DefaultCLAHEClipLimit,
		TileGrid:  DefaultCLAHETileGrid,
	}
}

// DualView returns (fireView, smokeView). Both have the dimensions and channel count of raw.
// raw is not modified.
func (p *Preprocessor) DualView(raw gocv.Mat) (gocv.Mat, gocv.Mat) {
	fireView := raw.Clone()
	smokeView := p.SmokeView(raw)
	return fireView, smokeView
}

// SmokeView is grayscale -> CLAHE -> back to 3 channels
func (p *Preprocessor) SmokeView(raw gocv.Mat) gocv.Mat {
	gray := toGray(raw)
	defer gray.Close()

	clahe := gocv.NewCLAHEWithParams(p.ClipLimit, image.Pt(p.TileGrid, p.TileGrid))
	defer clahe.Close()
	equalized := gocv.NewMat()
	defer equalized.Close()
	clahe.Apply(gray, &equalized)

	out := gocv.NewMat()
	gocv.CvtColor(equalized, &out, gocv.ColorGrayToBGR)
	return out
}
